package httpapi

import (
	"time"

	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

type registerResponse struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"username"`
	Email    string `json:"email"`
}

type loginUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UserName string `json:"username"`
}

type loginResponse struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	User    loginUser `json:"user"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

type assignResponse struct {
	Status        string  `json:"status"`
	AssignedUsers []int64 `json:"assigned_users"`
	TaskID        int64   `json:"task_id"`
}

// userSummary is how users appear nested inside tasks. Mobile is null when
// the user has none.
type userSummary struct {
	ID       int64   `json:"id"`
	UserName string  `json:"username"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Mobile   *string `json:"mobile"`
}

type taskResponse struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   *string       `json:"description"`
	CreatedAt     time.Time     `json:"created_at"`
	TaskType      string        `json:"task_type"`
	CompletedAt   *time.Time    `json:"completed_at"`
	Status        string        `json:"status"`
	AssignedUsers []userSummary `json:"assigned_users"`
}

func newUserSummary(u *models.User) userSummary {
	s := userSummary{ID: u.ID, UserName: u.UserName, Name: u.Name(), Email: u.Email}
	if u.Mobile != "" {
		m := u.Mobile
		s.Mobile = &m
	}
	return s
}

func newTaskResponse(t *models.Task) taskResponse {
	resp := taskResponse{
		ID:            t.ID,
		Name:          t.Name,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
		TaskType:      string(t.Type),
		CompletedAt:   t.CompletedAt,
		Status:        string(t.Status),
		AssignedUsers: make([]userSummary, 0, len(t.AssignedUsers)),
	}
	for i := range t.AssignedUsers {
		resp.AssignedUsers = append(resp.AssignedUsers, newUserSummary(&t.AssignedUsers[i]))
	}
	return resp
}

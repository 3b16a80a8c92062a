package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/server/services"
)

func (a *API) createTask(w http.ResponseWriter, r *http.Request) {
	f, ok := decodeForm(w, r)
	if !ok {
		return
	}

	task, err := a.tasks.Create(r.Context(), services.CreateTaskInput{
		Name:        f.str("name"),
		Description: f.nullableStr("description"),
		TaskType:    f.str("task_type"),
		Invalid:     f.errs,
	})
	if err != nil {
		a.handleError(r.Context(), w, "create task", err)
		return
	}

	writeJSON(w, http.StatusCreated, newTaskResponse(task))
}

func (a *API) assignTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	var req struct {
		UserIDs json.RawMessage `json:"user_ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	userIDs, verrs := parseUserIDs(req.UserIDs)
	if verrs != nil {
		writeValidationErrors(w, verrs)
		return
	}

	res, err := a.tasks.Assign(r.Context(), taskID, userIDs)
	if err != nil {
		a.handleError(r.Context(), w, "assign task", err)
		return
	}

	a.logger.Info(r.Context(), "task assigned",
		"task_id", res.TaskID, "requested", len(userIDs), "assigned", len(res.AssignedUsers),
		"request_id", RequestID(r.Context()))

	assigned := res.AssignedUsers
	if assigned == nil {
		assigned = []int64{}
	}
	writeJSON(w, http.StatusOK, assignResponse{
		Status:        "success",
		AssignedUsers: assigned,
		TaskID:        res.TaskID,
	})
}

func (a *API) listUserTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	tasks, err := a.tasks.ListByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("User %d not found", userID))
			return
		}
		a.handleError(r.Context(), w, "list tasks", err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

package services

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/dbx"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
		PasswordMinLength:            8,
	}
}

// memStore is an in-memory stand-in for the database shared by the fake
// repositories. It ignores the DBTX handle, so transactional rollback is
// asserted through sqlmock expectations instead.
type memStore struct {
	mu sync.Mutex

	users      map[int64]*models.User
	nextUserID int64

	tasks      map[int64]*models.Task
	nextTaskID int64
	assignees  map[int64]map[int64]struct{}

	// injected failures, keyed by method name
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]*models.User{},
		tasks:     map[int64]*models.Task{},
		assignees: map[int64]map[int64]struct{}{},
		fail:      map[string]error{},
	}
}

// seedUser stores a user directly, bypassing registration.
func (s *memStore) seedUser(userName, first, last string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := &models.User{
		ID:        s.nextUserID,
		UserName:  userName,
		Email:     userName + "@example.com",
		FirstName: first,
		LastName:  last,
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) assigneeCount(taskID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assignees[taskID])
}

type fakeRepoManager struct {
	store *memStore
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{store: newMemStore()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository            { return &fakeUsersRepo{m.store} }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository            { return &fakeTasksRepo{m.store} }

type fakeUsersRepo struct{ s *memStore }

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["users.Create"]; err != nil {
		return nil, err
	}
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, &common.ConstraintError{Constraint: users.ConstraintEmail, Err: common.ErrorAlreadyExists}
		}
	}
	r.s.nextUserID++
	cp := *u
	cp.ID = r.s.nextUserID
	cp.DateJoined = time.Now()
	r.s.users[cp.ID] = &cp
	return &cp, nil
}

func (r *fakeUsersRepo) GetUserByLogin(_ context.Context, userName string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["users.GetUserByLogin"]; err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.UserName == userName {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["users.GetByID"]; err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) ExistingIDs(_ context.Context, ids []int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["users.ExistingIDs"]; err != nil {
		return nil, err
	}
	var out []int64
	for _, id := range ids {
		if _, ok := r.s.users[id]; ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (r *fakeUsersRepo) taken(match func(*models.User) bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["users.Taken"]; err != nil {
		return false, err
	}
	for _, u := range r.s.users {
		if match(u) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUsersRepo) UserNameTaken(_ context.Context, userName string) (bool, error) {
	return r.taken(func(u *models.User) bool { return u.UserName == userName })
}

func (r *fakeUsersRepo) EmailTaken(_ context.Context, email string) (bool, error) {
	return r.taken(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *fakeUsersRepo) MobileTaken(_ context.Context, mobile string) (bool, error) {
	return r.taken(func(u *models.User) bool { return u.Mobile != "" && u.Mobile == mobile })
}

type fakeTasksRepo struct{ s *memStore }

func (r *fakeTasksRepo) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tasks.Create"]; err != nil {
		return nil, err
	}
	r.s.nextTaskID++
	t.ID = r.s.nextTaskID
	t.CreatedAt = time.Now()
	cp := *t
	r.s.tasks[t.ID] = &cp
	return t, nil
}

func (r *fakeTasksRepo) LockByID(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tasks.LockByID"]; err != nil {
		return err
	}
	if _, ok := r.s.tasks[id]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *fakeTasksRepo) AddAssignees(_ context.Context, taskID int64, userIDs []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tasks.AddAssignees"]; err != nil {
		return err
	}
	set, ok := r.s.assignees[taskID]
	if !ok {
		set = map[int64]struct{}{}
		r.s.assignees[taskID] = set
	}
	for _, id := range userIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (r *fakeTasksRepo) assigneeIDs(taskID int64) []int64 {
	out := []int64{}
	for id := range r.s.assignees[taskID] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (r *fakeTasksRepo) AssigneeIDs(_ context.Context, taskID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tasks.AssigneeIDs"]; err != nil {
		return nil, err
	}
	return r.assigneeIDs(taskID), nil
}

func (r *fakeTasksRepo) ListByAssignee(_ context.Context, userID int64) ([]*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail["tasks.ListByAssignee"]; err != nil {
		return nil, err
	}
	out := []*models.Task{}
	for taskID, set := range r.s.assignees {
		if _, ok := set[userID]; !ok {
			continue
		}
		cp := *r.s.tasks[taskID]
		cp.AssignedUsers = []models.User{}
		for _, id := range r.assigneeIDs(taskID) {
			cp.AssignedUsers = append(cp.AssignedUsers, *r.s.users[id])
		}
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Task) int { return int(a.ID - b.ID) })
	return out, nil
}

func userIDs(list []models.User) []int64 {
	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	return ids
}

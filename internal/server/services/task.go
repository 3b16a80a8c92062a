package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/dbx"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskhub/internal/validation"
)

// UsersNotFoundError aborts an assignment naming every requested user id
// that does not exist, ascending.
type UsersNotFoundError struct {
	Missing []int64
}

func (e *UsersNotFoundError) Error() string {
	return fmt.Sprintf("Users not found: %v", e.Missing)
}

// CreateTaskInput carries the task creation form. An empty TaskType means
// models.TaskTypeOther. Invalid works as in RegisterInput.
type CreateTaskInput struct {
	Name        string
	Description *string
	TaskType    string
	Invalid     validation.Errors
}

// AssignmentResult is the full assignment set of a task after Assign.
type AssignmentResult struct {
	TaskID        int64
	AssignedUsers []int64
}

// TaskService implements task creation, assignment and listing.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager) *TaskService {
	return &TaskService{db: db, repomanager: m}
}

func taskTypeChoices() []string {
	out := make([]string, len(models.TaskTypes))
	for i, t := range models.TaskTypes {
		out[i] = string(t)
	}
	return out
}

// Create validates in and stores a pending, unassigned task.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput) (*models.Task, error) {
	name := strings.TrimSpace(in.Name)
	taskType := in.TaskType
	if taskType == "" {
		taskType = string(models.TaskTypeOther)
	}

	errs := in.Invalid.Clone()
	errs.Field("name", name, validation.Required, validation.MaxLength(100))
	errs.Field("task_type", taskType, validation.Choice(taskTypeChoices()...))
	if errs.HasErrors() {
		return nil, errs
	}

	task := &models.Task{
		Name:        name,
		Description: in.Description,
		Type:        models.TaskType(taskType),
		Status:      models.TaskStatusPending,
	}

	t, err := s.repomanager.Tasks(s.db).Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	t.AssignedUsers = []models.User{}
	return t, nil
}

// Assign adds userIDs to the task's assignment set. Either every id exists
// and all of them are added, or nothing changes and *UsersNotFoundError lists
// the unknown ids. Re-adding a member is a no-op. The result holds the whole
// set, not only the ids passed in.
func (s *TaskService) Assign(ctx context.Context, taskID int64, userIDs []int64) (*AssignmentResult, error) {
	requested := slices.Clone(userIDs)
	slices.Sort(requested)
	requested = slices.Compact(requested)

	var result *AssignmentResult

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		tasksRepo := s.repomanager.Tasks(tx)

		if err := tasksRepo.LockByID(ctx, taskID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTaskNotFound
			}
			return fmt.Errorf("error locking task: %w", err)
		}

		found, err := s.repomanager.Users(tx).ExistingIDs(ctx, requested)
		if err != nil {
			return fmt.Errorf("error resolving users: %w", err)
		}
		if missing := missingIDs(requested, found); len(missing) > 0 {
			return &UsersNotFoundError{Missing: missing}
		}

		if err := tasksRepo.AddAssignees(ctx, taskID, requested); err != nil {
			return fmt.Errorf("error adding assignees: %w", err)
		}

		assigned, err := tasksRepo.AssigneeIDs(ctx, taskID)
		if err != nil {
			return fmt.Errorf("error reading assignees: %w", err)
		}

		result = &AssignmentResult{TaskID: taskID, AssignedUsers: assigned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// missingIDs returns requested − found; requested must be sorted.
func missingIDs(requested, found []int64) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var missing []int64
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// ListByUser returns the tasks assigned to userID with all their assignees.
// An unknown user is common.ErrUserNotFound rather than an empty list.
func (s *TaskService) ListByUser(ctx context.Context, userID int64) ([]*models.Task, error) {
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	tasks, err := s.repomanager.Tasks(s.db).ListByAssignee(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	return tasks, nil
}

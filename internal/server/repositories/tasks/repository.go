// Package tasks is the task store: task records and the assignment set
// linking tasks to users.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

type Repository interface {
	// Create persists a new task and fills in its id and creation time.
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	// LockByID takes a row lock on the task for the rest of the enclosing
	// transaction. Returns common.ErrorNotFound if the task does not exist.
	LockByID(ctx context.Context, id int64) error
	// AddAssignees adds users to the assignment set; existing members are kept as is.
	AddAssignees(ctx context.Context, taskID int64, userIDs []int64) error
	// AssigneeIDs returns the complete assignment set, ascending.
	AssigneeIDs(ctx context.Context, taskID int64) ([]int64, error)
	// ListByAssignee returns the tasks assigned to userID ordered by id, each
	// with all of its assigned users loaded.
	ListByAssignee(ctx context.Context, userID int64) ([]*models.Task, error)
}

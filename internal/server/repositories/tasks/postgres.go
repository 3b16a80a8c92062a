package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/dbx"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `
		INSERT INTO tasks (name, description, task_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	var description any
	if task.Description != nil {
		description = *task.Description
	}

	err := r.db.QueryRowContext(ctx, query,
		task.Name, description, string(task.Type), string(task.Status),
	).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return task, nil
}

func (r *PostgresRepository) LockByID(ctx context.Context, id int64) error {
	query := `SELECT id FROM tasks WHERE id = $1 FOR UPDATE`

	var found int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddAssignees(ctx context.Context, taskID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `INSERT INTO task_assignees (task_id, user_id) SELECT $1::bigint, unnest($2::bigint[]) ON CONFLICT (task_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, taskID, userIDs); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AssigneeIDs(ctx context.Context, taskID int64) ([]int64, error) {
	query := `SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) ListByAssignee(ctx context.Context, userID int64) ([]*models.Task, error) {
	query := `
		SELECT t.id, t.name, t.description, t.created_at, t.task_type, t.status, t.completed_at
		FROM tasks t
		JOIN task_assignees ta ON ta.task_id = t.id
		WHERE ta.user_id = $1
		ORDER BY t.id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	result := []*models.Task{}
	for rows.Next() {
		var (
			item        models.Task
			description sql.NullString
			completedAt sql.NullTime
			taskType    string
			status      string
		)
		if err := rows.Scan(&item.ID, &item.Name, &description, &item.CreatedAt, &taskType, &status, &completedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if description.Valid {
			item.Description = &description.String
		}
		if completedAt.Valid {
			item.CompletedAt = &completedAt.Time
		}
		item.Type = models.TaskType(taskType)
		item.Status = models.TaskStatus(status)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadAssignees(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// loadAssignees fills AssignedUsers of every task with a single query.
func (r *PostgresRepository) loadAssignees(ctx context.Context, list []*models.Task) error {
	if len(list) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Task, len(list))
	ids := make([]int64, len(list))
	for i, t := range list {
		byID[t.ID] = t
		ids[i] = t.ID
		t.AssignedUsers = []models.User{}
	}

	query := `
		SELECT ta.task_id, u.id, u.username, u.email, u.mobile, u.first_name, u.last_name
		FROM task_assignees ta
		JOIN users u ON u.id = ta.user_id
		WHERE ta.task_id = ANY($1)
		ORDER BY ta.task_id, u.id
	`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to select assignees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID int64
			u      models.User
			mobile sql.NullString
		)
		if err := rows.Scan(&taskID, &u.ID, &u.UserName, &u.Email, &mobile, &u.FirstName, &u.LastName); err != nil {
			return fmt.Errorf("scan error: %w", err)
		}
		u.Mobile = mobile.String
		if t, ok := byID[taskID]; ok {
			t.AssignedUsers = append(t.AssignedUsers, u)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

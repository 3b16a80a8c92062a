package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/dbx"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

const selectUser = `SELECT id, username, password_hash, email, mobile, first_name, last_name, date_joined FROM users`

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user and fills in the generated id and join date.
// Unique violations come back as *common.ConstraintError.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password_hash, email, mobile, first_name, last_name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, date_joined
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.PasswordHash, user.Email, nullIfEmpty(user.Mobile), user.FirstName, user.LastName,
	).Scan(&user.ID, &user.DateJoined)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			return nil, &common.ConstraintError{Constraint: constraint, Err: common.ErrorAlreadyExists}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE username = $1`, userName)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var mobile sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.UserName, &user.PasswordHash, &user.Email, &mobile,
		&user.FirstName, &user.LastName, &user.DateJoined,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Mobile = mobile.String
	return user, nil
}

func (r *PostgresRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// one bigint[] parameter, however long the list
	query := `SELECT id FROM users WHERE id = ANY($1) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var found []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return found, nil
}

func (r *PostgresRepository) UserNameTaken(ctx context.Context, userName string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, userName)
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email)
}

func (r *PostgresRepository) MobileTaken(ctx context.Context, mobile string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE mobile = $1)`, mobile)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

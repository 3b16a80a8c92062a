// Package users is the user directory: account records looked up by
// username or id, plus the uniqueness probes used during registration.
package users

import (
	"context"

	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

// Names of the unique constraints guarding the users table. A
// *common.ConstraintError returned by Create carries one of them.
const (
	ConstraintUserName = "users_username_key"
	ConstraintEmail    = "users_email_lower_idx"
	ConstraintMobile   = "users_mobile_key"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// ExistingIDs returns the subset of ids that belong to users, ascending.
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
	UserNameTaken(ctx context.Context, userName string) (bool, error)
	// EmailTaken compares case-insensitively.
	EmailTaken(ctx context.Context, email string) (bool, error)
	MobileTaken(ctx context.Context, mobile string) (bool, error)
}

// Package models defines server-side data models persisted in the database.
package models

import (
	"strings"
	"time"
)

// User is an account in the user directory. Mobile is empty when the user
// did not provide one.
type User struct {
	ID           int64
	UserName     string
	Email        string
	Mobile       string
	FirstName    string
	LastName     string
	PasswordHash string
	DateJoined   time.Time
}

// Name is the display name: first and last name joined and trimmed.
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

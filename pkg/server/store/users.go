package store

import (
	"time"

	"github.com/keylinehq/keyline/pkg/model"
)

// UsersStore abstracts user storage operations
type UsersStore interface {
	// ListUsers returns all users in an account
	ListUsers(accountID string) ([]model.User, error)

	// FindUser retrieves a user by ID or email within an account
	FindUser(accountID, ref string) (*model.User, error)

	// CreateUser persists a new user
	CreateUser(user *model.User) error

	// UpdateUser persists changes to a user
	UpdateUser(user *model.User) error

	// DeleteUser removes a user by ID within an account
	DeleteUser(accountID, id string) error

	// SetPasswordResetToken stores a pending password reset token
	SetPasswordResetToken(accountID, userID, token string, sentAt time.Time) error
}

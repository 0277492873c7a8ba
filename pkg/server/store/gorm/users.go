package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure UsersStore implements store.UsersStore
var _ store.UsersStore = (*UsersStore)(nil)

// UsersStore implements store.UsersStore using GORM
type UsersStore struct {
	db *gorm.DB
}

// NewUsersStore creates a new UsersStore
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{db: db}
}

// ListUsers returns all users in an account
func (s *UsersStore) ListUsers(accountID string) ([]model.User, error) {
	var users []model.User
	err := s.db.Where("account_id = ?", accountID).
		Order("created_at").
		Find(&users).Error
	return users, err
}

// FindUser retrieves a user by ID or email within an account
func (s *UsersStore) FindUser(accountID, ref string) (*model.User, error) {
	var user model.User
	err := s.db.Where("account_id = ? AND id = ?", accountID, ref).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("account_id = ? AND email = ?", accountID, ref).First(&user).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser persists a new user
func (s *UsersStore) CreateUser(user *model.User) error {
	return s.db.Create(user).Error
}

// UpdateUser persists changes to a user
func (s *UsersStore) UpdateUser(user *model.User) error {
	return s.db.Save(user).Error
}

// DeleteUser removes a user by ID within an account
func (s *UsersStore) DeleteUser(accountID, id string) error {
	result := s.db.Where("account_id = ? AND id = ?", accountID, id).Delete(&model.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// SetPasswordResetToken stores a pending password reset token
func (s *UsersStore) SetPasswordResetToken(accountID, userID, token string, sentAt time.Time) error {
	result := s.db.Model(&model.User{}).
		Where("account_id = ? AND id = ?", accountID, userID).
		Updates(map[string]interface{}{
			"password_reset_token":   token,
			"password_reset_sent_at": sentAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

package gorm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure AccountsStore implements store.AccountsStore
var _ store.AccountsStore = (*AccountsStore)(nil)

// AccountsStore implements store.AccountsStore using GORM
type AccountsStore struct {
	db *gorm.DB
}

// NewAccountsStore creates a new AccountsStore
func NewAccountsStore(db *gorm.DB) *AccountsStore {
	return &AccountsStore{db: db}
}

// FindAccount retrieves an account by ID or slug
func (s *AccountsStore) FindAccount(ref string) (*model.Account, error) {
	var account model.Account
	err := s.db.Where("id = ?", ref).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("slug = ?", ref).First(&account).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AccountExists checks if an account exists
func (s *AccountsStore) AccountExists(ref string) bool {
	_, err := s.FindAccount(ref)
	return err == nil
}

// CreateAccount creates a new account together with its admin user
func (s *AccountsStore) CreateAccount(name, slug, adminEmail, adminPasswordDigest string) (*model.Account, error) {
	account := &model.Account{
		ID:   uuid.NewString(),
		Name: name,
		Slug: slug,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}

		admin := &model.User{
			ID:             uuid.NewString(),
			AccountID:      account.ID,
			Email:          adminEmail,
			RoleName:       string(bearer.RoleAdmin),
			PasswordDigest: adminPasswordDigest,
		}
		return tx.Create(admin).Error
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateAccount persists changes to an account
func (s *AccountsStore) UpdateAccount(account *model.Account) error {
	return s.db.Save(account).Error
}

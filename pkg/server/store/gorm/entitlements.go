package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure EntitlementsStore implements store.EntitlementsStore
var _ store.EntitlementsStore = (*EntitlementsStore)(nil)

// EntitlementsStore implements store.EntitlementsStore using GORM
type EntitlementsStore struct {
	db *gorm.DB
}

// NewEntitlementsStore creates a new EntitlementsStore
func NewEntitlementsStore(db *gorm.DB) *EntitlementsStore {
	return &EntitlementsStore{db: db}
}

// ListEntitlements returns all entitlements in an account
func (s *EntitlementsStore) ListEntitlements(accountID string) ([]model.Entitlement, error) {
	var entitlements []model.Entitlement
	err := s.db.Where("account_id = ?", accountID).
		Order("code").
		Find(&entitlements).Error
	return entitlements, err
}

// FindEntitlement retrieves an entitlement by ID or code within an account
func (s *EntitlementsStore) FindEntitlement(accountID, ref string) (*model.Entitlement, error) {
	var entitlement model.Entitlement
	err := s.db.Where("account_id = ? AND id = ?", accountID, ref).First(&entitlement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("account_id = ? AND code = ?", accountID, ref).First(&entitlement).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entitlement, nil
}

// CreateEntitlement persists a new entitlement
func (s *EntitlementsStore) CreateEntitlement(entitlement *model.Entitlement) error {
	return s.db.Create(entitlement).Error
}

// DeleteEntitlement removes an entitlement by ID within an account
func (s *EntitlementsStore) DeleteEntitlement(accountID, id string) error {
	result := s.db.Where("account_id = ? AND id = ?", accountID, id).Delete(&model.Entitlement{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

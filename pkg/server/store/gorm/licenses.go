package gorm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure LicensesStore implements store.LicensesStore
var _ store.LicensesStore = (*LicensesStore)(nil)

// LicensesStore implements store.LicensesStore using GORM
type LicensesStore struct {
	db *gorm.DB
}

// NewLicensesStore creates a new LicensesStore
func NewLicensesStore(db *gorm.DB) *LicensesStore {
	return &LicensesStore{db: db}
}

// ListLicenses returns all licenses in an account
func (s *LicensesStore) ListLicenses(accountID string) ([]model.License, error) {
	var licenses []model.License
	err := s.db.Where("account_id = ?", accountID).
		Order("created_at").
		Find(&licenses).Error
	return licenses, err
}

// ListLicensesForProduct returns the licenses issued against a product
func (s *LicensesStore) ListLicensesForProduct(accountID, productID string) ([]model.License, error) {
	var licenses []model.License
	err := s.db.Where("account_id = ? AND product_id = ?", accountID, productID).
		Order("created_at").
		Find(&licenses).Error
	return licenses, err
}

// ListLicensesForUser returns the licenses held by a user
func (s *LicensesStore) ListLicensesForUser(accountID, userID string) ([]model.License, error) {
	var licenses []model.License
	err := s.db.Where("account_id = ? AND user_id = ?", accountID, userID).
		Order("created_at").
		Find(&licenses).Error
	return licenses, err
}

// FindLicense retrieves a license by ID or key within an account
func (s *LicensesStore) FindLicense(accountID, ref string) (*model.License, error) {
	var license model.License
	err := s.db.Where("account_id = ? AND id = ?", accountID, ref).First(&license).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("account_id = ? AND key = ?", accountID, ref).First(&license).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// CreateLicense persists a new license
func (s *LicensesStore) CreateLicense(license *model.License) error {
	return s.db.Create(license).Error
}

// UpdateLicense persists changes to a license
func (s *LicensesStore) UpdateLicense(license *model.License) error {
	return s.db.Save(license).Error
}

// DeleteLicense removes a license by ID within an account
func (s *LicensesStore) DeleteLicense(accountID, id string) error {
	result := s.db.Where("account_id = ? AND id = ?", accountID, id).Delete(&model.License{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// LicenseEntitlements returns the entitlements attached to a license
func (s *LicensesStore) LicenseEntitlements(accountID, licenseID string) ([]model.Entitlement, error) {
	var entitlements []model.Entitlement
	err := s.db.
		Joins("JOIN license_entitlements ON license_entitlements.entitlement_id = entitlements.id").
		Where("license_entitlements.account_id = ? AND license_entitlements.license_id = ?", accountID, licenseID).
		Order("entitlements.code").
		Find(&entitlements).Error
	return entitlements, err
}

// AttachEntitlement attaches an entitlement to a license
func (s *LicensesStore) AttachEntitlement(accountID, licenseID, entitlementID string) error {
	row := model.LicenseEntitlement{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		LicenseID:     licenseID,
		EntitlementID: entitlementID,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "license_id"}, {Name: "entitlement_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

// DetachEntitlement detaches an entitlement from a license
func (s *LicensesStore) DetachEntitlement(accountID, licenseID, entitlementID string) error {
	return s.db.
		Where("account_id = ? AND license_id = ? AND entitlement_id = ?", accountID, licenseID, entitlementID).
		Delete(&model.LicenseEntitlement{}).Error
}

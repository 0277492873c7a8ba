package store

import "github.com/keylinehq/keyline/pkg/model"

// LicensesStore abstracts license storage operations
type LicensesStore interface {
	// ListLicenses returns all licenses in an account
	ListLicenses(accountID string) ([]model.License, error)

	// ListLicensesForProduct returns the licenses issued against a product
	ListLicensesForProduct(accountID, productID string) ([]model.License, error)

	// ListLicensesForUser returns the licenses held by a user
	ListLicensesForUser(accountID, userID string) ([]model.License, error)

	// FindLicense retrieves a license by ID or key within an account
	FindLicense(accountID, ref string) (*model.License, error)

	// CreateLicense persists a new license
	CreateLicense(license *model.License) error

	// UpdateLicense persists changes to a license
	UpdateLicense(license *model.License) error

	// DeleteLicense removes a license by ID within an account
	DeleteLicense(accountID, id string) error

	// LicenseEntitlements returns the entitlements attached to a license
	LicenseEntitlements(accountID, licenseID string) ([]model.Entitlement, error)

	// AttachEntitlement attaches an entitlement to a license. Attaching an
	// already-attached entitlement is a no-op.
	AttachEntitlement(accountID, licenseID, entitlementID string) error

	// DetachEntitlement detaches an entitlement from a license
	DetachEntitlement(accountID, licenseID, entitlementID string) error
}

// EntitlementsStore abstracts entitlement storage operations
type EntitlementsStore interface {
	// ListEntitlements returns all entitlements in an account
	ListEntitlements(accountID string) ([]model.Entitlement, error)

	// FindEntitlement retrieves an entitlement by ID or code within an account
	FindEntitlement(accountID, ref string) (*model.Entitlement, error)

	// CreateEntitlement persists a new entitlement
	CreateEntitlement(entitlement *model.Entitlement) error

	// DeleteEntitlement removes an entitlement by ID within an account
	DeleteEntitlement(accountID, id string) error
}

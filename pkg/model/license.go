package model

import "time"

// License grants a user access to a product. Key is a secondary alias used
// for lookups alongside the primary id.
type License struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	AccountID string     `gorm:"column:account_id;not null;index" json:"account_id"`
	ProductID string     `gorm:"column:product_id;not null;index" json:"product_id"`
	UserID    *string    `gorm:"column:user_id;index" json:"user_id"`
	Key       string     `gorm:"column:key;uniqueIndex;not null" json:"key"`
	Expiry    *time.Time `gorm:"column:expiry" json:"expiry"`
	Suspended bool       `gorm:"column:suspended;not null;default:false" json:"suspended"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (License) TableName() string {
	return "licenses"
}

// LicenseEntitlement attaches an entitlement to a license.
type LicenseEntitlement struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID     string    `gorm:"column:account_id;not null;index" json:"account_id"`
	LicenseID     string    `gorm:"column:license_id;not null;index" json:"license_id"`
	EntitlementID string    `gorm:"column:entitlement_id;not null;index" json:"entitlement_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LicenseEntitlement) TableName() string {
	return "license_entitlements"
}

package model

import "time"

// Entitlement is a named capability. Licenses hold entitlements; release
// artifacts may require them.
type Entitlement struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID string    `gorm:"column:account_id;not null;index" json:"account_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Code      string    `gorm:"column:code;not null;index" json:"code"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Entitlement) TableName() string {
	return "entitlements"
}

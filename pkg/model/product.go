package model

import "time"

// Distribution strategies for a product's release artifacts.
const (
	DistributionOpen     = "open"
	DistributionLicensed = "licensed"
)

// Product is a licensable software product. Code is a secondary alias used
// by package-manager style lookups (e.g. the PyPI simple index).
type Product struct {
	ID                   string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID            string    `gorm:"column:account_id;not null;index" json:"account_id"`
	Name                 string    `gorm:"column:name;not null" json:"name"`
	Code                 string    `gorm:"column:code;index" json:"code"`
	DistributionStrategy string    `gorm:"column:distribution_strategy;not null;default:licensed" json:"distribution_strategy"`
	Platforms            string    `gorm:"column:platforms" json:"platforms"` // JSON-encoded list
	Metadata             string    `gorm:"column:metadata" json:"metadata"`  // JSON-encoded map
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// Open reports whether the product distributes releases without a license.
func (p Product) Open() bool {
	return p.DistributionStrategy == DistributionOpen
}

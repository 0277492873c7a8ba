package model

import "time"

// ReleaseArtifact is a downloadable release file for a product. Filename is
// a secondary alias for lookups. ReleaseNotes holds markdown rendered by the
// release-notes endpoint.
type ReleaseArtifact struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID    string    `gorm:"column:account_id;not null;index" json:"account_id"`
	ProductID    string    `gorm:"column:product_id;not null;index" json:"product_id"`
	Filename     string    `gorm:"column:filename;not null;index" json:"filename"`
	Version      string    `gorm:"column:version;not null" json:"version"`
	Platform     string    `gorm:"column:platform" json:"platform"`
	ContentType  string    `gorm:"column:content_type" json:"content_type"`
	Filesize     int64     `gorm:"column:filesize" json:"filesize"`
	DownloadURL  string    `gorm:"column:download_url" json:"download_url"`
	ReleaseNotes string    `gorm:"column:release_notes" json:"release_notes"`
	Yanked       bool      `gorm:"column:yanked;not null;default:false" json:"yanked"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ReleaseArtifact) TableName() string {
	return "release_artifacts"
}

// ReleaseEntitlementConstraint requires an entitlement for an artifact to be
// visible to a licensed bearer.
type ReleaseEntitlementConstraint struct {
	ID                string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID         string    `gorm:"column:account_id;not null;index" json:"account_id"`
	ReleaseArtifactID string    `gorm:"column:release_artifact_id;not null;index" json:"release_artifact_id"`
	EntitlementID     string    `gorm:"column:entitlement_id;not null;index" json:"entitlement_id"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ReleaseEntitlementConstraint) TableName() string {
	return "release_entitlement_constraints"
}

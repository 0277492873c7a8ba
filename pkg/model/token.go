package model

import "time"

// Bearer types for tokens. The value names the kind of record the token
// authenticates as.
const (
	TokenBearerUser    = "user"
	TokenBearerProduct = "product"
	TokenBearerLicense = "license"
)

// Token is an API credential. It is bound to its bearer record (a user,
// product or license) and may carry explicit permission grants on top of the
// bearer role's defaults.
type Token struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	AccountID  string     `gorm:"column:account_id;not null;index" json:"account_id"`
	BearerType string     `gorm:"column:bearer_type;not null" json:"bearer_type"`
	BearerID   string     `gorm:"column:bearer_id;not null;index" json:"bearer_id"`
	Digest     string     `gorm:"column:digest;uniqueIndex;not null" json:"-"`
	Expiry     *time.Time `gorm:"column:expiry" json:"expiry"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Token) TableName() string {
	return "tokens"
}

// TokenPermission is an explicit per-token permission grant. The effective
// permission set of a token bearer is its role's defaults plus these rows.
type TokenPermission struct {
	ID      string `gorm:"column:id;primaryKey" json:"id"`
	TokenID string `gorm:"column:token_id;not null;index" json:"token_id"`
	Action  string `gorm:"column:action;not null" json:"action"`
}

func (TokenPermission) TableName() string {
	return "token_permissions"
}

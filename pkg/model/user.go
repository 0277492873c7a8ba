package model

import "time"

// User is a human principal within an account. The role name is one of the
// closed set understood by the bearer package.
type User struct {
	ID                  string     `gorm:"column:id;primaryKey" json:"id"`
	AccountID           string     `gorm:"column:account_id;not null;index" json:"account_id"`
	Email               string     `gorm:"column:email;not null" json:"email"`
	FirstName           string     `gorm:"column:first_name" json:"first_name"`
	LastName            string     `gorm:"column:last_name" json:"last_name"`
	RoleName            string     `gorm:"column:role_name;not null" json:"role_name"`
	PasswordDigest      string     `gorm:"column:password_digest" json:"-"`
	PasswordResetToken  *string    `gorm:"column:password_reset_token" json:"-"`
	PasswordResetSentAt *time.Time `gorm:"column:password_reset_sent_at" json:"-"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

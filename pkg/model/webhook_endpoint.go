package model

import (
	"strings"
	"time"
)

// WebhookEndpoint is a subscriber URL. Subscriptions is a comma-separated
// list of event-type names; the literal "*" subscribes to every event.
type WebhookEndpoint struct {
	ID            string    `gorm:"column:id;primaryKey" json:"id"`
	AccountID     string    `gorm:"column:account_id;not null;index" json:"account_id"`
	URL           string    `gorm:"column:url;not null" json:"url"`
	Subscriptions string    `gorm:"column:subscriptions;not null;default:*" json:"subscriptions"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (WebhookEndpoint) TableName() string {
	return "webhook_endpoints"
}

// SubscribedTo reports whether the endpoint subscribes to the named event.
func (e WebhookEndpoint) SubscribedTo(event string) bool {
	for _, s := range strings.Split(e.Subscriptions, ",") {
		s = strings.TrimSpace(s)
		if s == "*" || s == event {
			return true
		}
	}
	return false
}

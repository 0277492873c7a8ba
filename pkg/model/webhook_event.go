package model

import "time"

// Webhook event delivery statuses.
const (
	WebhookEventPending   = "pending"
	WebhookEventDelivered = "delivered"
	WebhookEventFailed    = "failed"
)

// WebhookEvent is the durable record of a single state-changing mutation.
// EventTypeID is NOT NULL at the storage layer; exactly one row exists per
// triggering mutation.
type WebhookEvent struct {
	ID           string     `gorm:"column:id;primaryKey" json:"id"`
	AccountID    string     `gorm:"column:account_id;not null;index" json:"account_id"`
	EventTypeID  string     `gorm:"column:event_type_id;not null" json:"-"`
	Event        string     `gorm:"column:event;not null" json:"event"`
	ResourceType string     `gorm:"column:resource_type;not null" json:"resource_type"`
	ResourceID   string     `gorm:"column:resource_id;not null" json:"resource_id"`
	Payload      string     `gorm:"column:payload;not null" json:"payload"` // JSON resource snapshot
	Status       string     `gorm:"column:status;not null;default:pending;index" json:"status"`
	Attempts     int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError    string     `gorm:"column:last_error" json:"last_error"`
	DeliveredAt  *time.Time `gorm:"column:delivered_at" json:"delivered_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

package model

import "time"

// EventType is a catalog entry identifying a class of state change eligible
// for webhook notification. Seeded once by name; immutable afterwards.
type EventType struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Event     string    `gorm:"column:event;uniqueIndex;not null" json:"event"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (EventType) TableName() string {
	return "event_types"
}

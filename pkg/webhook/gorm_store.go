package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
)

// Ensure GormStore implements both store surfaces.
var (
	_ RecordStore   = (*GormStore)(nil)
	_ DeliveryStore = (*GormStore)(nil)
)

// GormStore implements the webhook stores using GORM. Constructed over a
// transaction handle it participates in the caller's transaction.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Seed upserts the full event-type catalog by name. Re-running is a no-op
// for names already present, so the catalog never accumulates duplicates.
func Seed(db *gorm.DB) error {
	for _, name := range EventTypes {
		et := model.EventType{ID: uuid.NewString(), Event: name}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event"}},
			DoNothing: true,
		}).Create(&et).Error
		if err != nil {
			return fmt.Errorf("seed event type %q: %w", name, err)
		}
	}
	return nil
}

// FindEventTypeByName returns the catalog entry for an event name.
func (s *GormStore) FindEventTypeByName(name string) (*model.EventType, error) {
	var et model.EventType
	err := s.db.Where("event = ?", name).First(&et).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("event type %q: %w", name, authz.ErrUnknownEventType)
		}
		return nil, err
	}
	return &et, nil
}

// CreateWebhookEvent persists one event row.
func (s *GormStore) CreateWebhookEvent(ev *model.WebhookEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return s.db.Create(ev).Error
}

// ClaimPending returns up to limit undelivered events, oldest first.
func (s *GormStore) ClaimPending(limit int) ([]model.WebhookEvent, error) {
	var events []model.WebhookEvent
	err := s.db.
		Where("status = ?", model.WebhookEventPending).
		Order("created_at").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// MatchingEndpoints returns the account's endpoints subscribed to the event.
func (s *GormStore) MatchingEndpoints(accountID, event string) ([]model.WebhookEndpoint, error) {
	var endpoints []model.WebhookEndpoint
	err := s.db.Where("account_id = ?", accountID).Find(&endpoints).Error
	if err != nil {
		return nil, err
	}
	matched := endpoints[:0]
	for _, e := range endpoints {
		if e.SubscribedTo(event) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// MarkDelivered takes an event out of the queue as succeeded.
func (s *GormStore) MarkDelivered(id string, at time.Time) error {
	return s.db.Model(&model.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       model.WebhookEventDelivered,
		"delivered_at": at,
	}).Error
}

// MarkFailed records a failed attempt, terminally when final is true.
func (s *GormStore) MarkFailed(id string, attempts int, lastError string, final bool) error {
	status := model.WebhookEventPending
	if final {
		status = model.WebhookEventFailed
	}
	return s.db.Model(&model.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"attempts":   attempts,
		"last_error": lastError,
	}).Error
}

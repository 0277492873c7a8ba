package webhook

import (
	"time"

	"github.com/keylinehq/keyline/pkg/model"
)

// CatalogStore resolves event types by name.
type CatalogStore interface {
	// FindEventTypeByName returns the catalog entry for an event name, or an
	// error wrapping authz.ErrUnknownEventType when the name is not seeded.
	FindEventTypeByName(name string) (*model.EventType, error)
}

// RecordStore is the phase-one surface: everything Record needs inside the
// caller's transaction.
type RecordStore interface {
	CatalogStore

	// CreateWebhookEvent persists one event row. The event type reference is
	// NOT NULL at the storage layer.
	CreateWebhookEvent(ev *model.WebhookEvent) error
}

// DeliveryStore is the phase-two surface read by the delivery worker.
type DeliveryStore interface {
	// ClaimPending returns up to limit undelivered events, oldest first.
	ClaimPending(limit int) ([]model.WebhookEvent, error)

	// MatchingEndpoints returns the account's endpoints subscribed to the
	// event name, honoring the "*" wildcard subscription.
	MatchingEndpoints(accountID, event string) ([]model.WebhookEndpoint, error)

	MarkDelivered(id string, at time.Time) error

	// MarkFailed records a failed attempt. When final is true the event
	// leaves the queue permanently.
	MarkFailed(id string, attempts int, lastError string, final bool) error
}

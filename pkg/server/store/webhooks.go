package store

import "github.com/keylinehq/keyline/pkg/model"

// WebhooksStore abstracts webhook endpoint and event storage operations.
// Recording and delivering events is the webhook package's concern; this
// store covers the management surface.
type WebhooksStore interface {
	// ListEndpoints returns an account's webhook endpoints
	ListEndpoints(accountID string) ([]model.WebhookEndpoint, error)

	// FindEndpoint retrieves an endpoint by ID within an account
	FindEndpoint(accountID, id string) (*model.WebhookEndpoint, error)

	// CreateEndpoint persists a new endpoint
	CreateEndpoint(endpoint *model.WebhookEndpoint) error

	// UpdateEndpoint persists changes to an endpoint
	UpdateEndpoint(endpoint *model.WebhookEndpoint) error

	// DeleteEndpoint removes an endpoint by ID within an account
	DeleteEndpoint(accountID, id string) error

	// ListEvents returns an account's recorded webhook events, newest first
	ListEvents(accountID string, limit, offset int) ([]model.WebhookEvent, error)
}

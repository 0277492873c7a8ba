package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure WebhooksStore implements store.WebhooksStore
var _ store.WebhooksStore = (*WebhooksStore)(nil)

// WebhooksStore implements store.WebhooksStore using GORM
type WebhooksStore struct {
	db *gorm.DB
}

// NewWebhooksStore creates a new WebhooksStore
func NewWebhooksStore(db *gorm.DB) *WebhooksStore {
	return &WebhooksStore{db: db}
}

// ListEndpoints returns an account's webhook endpoints
func (s *WebhooksStore) ListEndpoints(accountID string) ([]model.WebhookEndpoint, error) {
	var endpoints []model.WebhookEndpoint
	err := s.db.Where("account_id = ?", accountID).
		Order("created_at").
		Find(&endpoints).Error
	return endpoints, err
}

// FindEndpoint retrieves an endpoint by ID within an account
func (s *WebhooksStore) FindEndpoint(accountID, id string) (*model.WebhookEndpoint, error) {
	var endpoint model.WebhookEndpoint
	err := s.db.Where("account_id = ? AND id = ?", accountID, id).First(&endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// CreateEndpoint persists a new endpoint
func (s *WebhooksStore) CreateEndpoint(endpoint *model.WebhookEndpoint) error {
	return s.db.Create(endpoint).Error
}

// UpdateEndpoint persists changes to an endpoint
func (s *WebhooksStore) UpdateEndpoint(endpoint *model.WebhookEndpoint) error {
	return s.db.Save(endpoint).Error
}

// DeleteEndpoint removes an endpoint by ID within an account
func (s *WebhooksStore) DeleteEndpoint(accountID, id string) error {
	result := s.db.Where("account_id = ? AND id = ?", accountID, id).Delete(&model.WebhookEndpoint{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// ListEvents returns an account's recorded webhook events, newest first
func (s *WebhooksStore) ListEvents(accountID string, limit, offset int) ([]model.WebhookEvent, error) {
	query := s.db.Where("account_id = ?", accountID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var events []model.WebhookEvent
	err := query.Find(&events).Error
	return events, err
}

package endpoints

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
)

func TestListWebhookEndpoints(t *testing.T) {
	page := []model.WebhookEndpoint{
		{ID: "hook-1", AccountID: testAccount.ID, URL: "https://hooks.test.co/keyline", Subscriptions: "*"},
	}

	t.Run("admin sees endpoints", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}
		webhooks.On("ListEndpoints", testAccount.ID).Return(page, nil)

		handler := handleListWebhookEndpoints(webhooks)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/webhook-endpoints", nil, staffBearer(bearer.RoleAdmin))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "hook-1")
	})

	t.Run("support agent is told nothing exists", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}
		webhooks.On("ListEndpoints", testAccount.ID).Return(page, nil)

		handler := handleListWebhookEndpoints(webhooks)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/webhook-endpoints", nil, staffBearer(bearer.RoleSupportAgent))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreateWebhookEndpoint(t *testing.T) {
	t.Run("valid subscriptions are joined and stored", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}
		webhooks.On("CreateEndpoint", mock.MatchedBy(func(e *model.WebhookEndpoint) bool {
			return e.URL == "https://hooks.test.co/keyline" &&
				e.Subscriptions == "license.created,release.yanked"
		})).Return(nil)

		handler := handleCreateWebhookEndpoint(webhooks)
		body := strings.NewReader(`{"url": "https://hooks.test.co/keyline", "subscriptions": ["license.created", "release.yanked"]}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/webhook-endpoints", body, staffBearer(bearer.RoleDeveloper))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		webhooks.AssertExpectations(t)
	})

	t.Run("no subscriptions defaults to the wildcard", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}
		webhooks.On("CreateEndpoint", mock.MatchedBy(func(e *model.WebhookEndpoint) bool {
			return e.Subscriptions == "*"
		})).Return(nil)

		handler := handleCreateWebhookEndpoint(webhooks)
		body := strings.NewReader(`{"url": "https://hooks.test.co/keyline"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/webhook-endpoints", body, staffBearer(bearer.RoleAdmin))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("unknown event name is rejected", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}

		handler := handleCreateWebhookEndpoint(webhooks)
		body := strings.NewReader(`{"url": "https://hooks.test.co/keyline", "subscriptions": ["license.exploded"]}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/webhook-endpoints", body, staffBearer(bearer.RoleAdmin))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		webhooks.AssertNotCalled(t, "CreateEndpoint", mock.Anything)
	})

	t.Run("relative urls are rejected", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}

		handler := handleCreateWebhookEndpoint(webhooks)
		body := strings.NewReader(`{"url": "/not/a/url"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/webhook-endpoints", body, staffBearer(bearer.RoleAdmin))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("sales agent cannot manage endpoints", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}

		handler := handleCreateWebhookEndpoint(webhooks)
		body := strings.NewReader(`{"url": "https://hooks.test.co/keyline"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/webhook-endpoints", body, staffBearer(bearer.RoleSalesAgent))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestListWebhookEvents(t *testing.T) {
	page := []model.WebhookEvent{
		{ID: "ev-1", AccountID: testAccount.ID, Event: "license.created", Status: model.WebhookEventDelivered},
	}

	t.Run("admin reads the delivery ledger", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}
		webhooks.On("ListEvents", testAccount.ID, mock.Anything, 0).Return(page, nil)

		handler := handleListWebhookEvents(webhooks)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/webhook-events", nil, staffBearer(bearer.RoleAdmin))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "license.created")
	})

	t.Run("product bearer is told nothing exists", func(t *testing.T) {
		webhooks := &MockWebhooksStore{}

		handler := handleListWebhookEvents(webhooks)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/webhook-events", nil, productBearer("prod-1"))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		webhooks.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything, mock.Anything)
	})
}

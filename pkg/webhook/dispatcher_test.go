package webhook

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
)

// MockRecordStore is a mock implementation of RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) FindEventTypeByName(name string) (*model.EventType, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EventType), args.Error(1)
}

func (m *MockRecordStore) CreateWebhookEvent(ev *model.WebhookEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}

func TestDispatcherRecord(t *testing.T) {
	t.Run("records one pending event per mutation", func(t *testing.T) {
		store := new(MockRecordStore)
		store.On("FindEventTypeByName", "license.created").
			Return(&model.EventType{ID: "et-1", Event: "license.created"}, nil)
		store.On("CreateWebhookEvent", mock.AnythingOfType("*model.WebhookEvent")).
			Return(nil).Once()

		d := NewDispatcher()
		snapshot := map[string]string{"id": "lic-1", "key": "ABCD-1234"}
		ev, err := d.Record(store, "license.created", "acct-1", "licenses", "lic-1", snapshot)

		assert.NoError(t, err)
		assert.Equal(t, "et-1", ev.EventTypeID)
		assert.Equal(t, "license.created", ev.Event)
		assert.Equal(t, "acct-1", ev.AccountID)
		assert.Equal(t, "licenses", ev.ResourceType)
		assert.Equal(t, "lic-1", ev.ResourceID)
		assert.Equal(t, model.WebhookEventPending, ev.Status)

		var decoded map[string]string
		assert.NoError(t, json.Unmarshal([]byte(ev.Payload), &decoded))
		assert.Equal(t, "ABCD-1234", decoded["key"])

		store.AssertExpectations(t)
	})

	t.Run("unknown event type fails the mutation", func(t *testing.T) {
		store := new(MockRecordStore)
		store.On("FindEventTypeByName", "license.exploded").
			Return(nil, authz.ErrUnknownEventType)

		d := NewDispatcher()
		ev, err := d.Record(store, "license.exploded", "acct-1", "licenses", "lic-1", nil)

		assert.Nil(t, ev)
		assert.ErrorIs(t, err, authz.ErrUnknownEventType)
		store.AssertNotCalled(t, "CreateWebhookEvent", mock.Anything)
	})

	t.Run("create failure surfaces to the caller", func(t *testing.T) {
		store := new(MockRecordStore)
		store.On("FindEventTypeByName", "product.updated").
			Return(&model.EventType{ID: "et-2", Event: "product.updated"}, nil)
		store.On("CreateWebhookEvent", mock.Anything).
			Return(errors.New("constraint violation"))

		d := NewDispatcher()
		_, err := d.Record(store, "product.updated", "acct-1", "products", "prod-1", nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "product.updated")
	})
}

func TestDispatcherNotify(t *testing.T) {
	d := NewDispatcher()

	// Repeated notifies never block; a single pending wake absorbs them.
	d.Notify()
	d.Notify()
	d.Notify()

	select {
	case <-d.Wake():
	case <-time.After(time.Second):
		t.Fatal("expected a pending wake")
	}

	select {
	case <-d.Wake():
		t.Fatal("expected wake channel to be drained")
	default:
	}
}

func TestValidateCatalog(t *testing.T) {
	store := new(MockRecordStore)
	store.On("FindEventTypeByName", "license.created").
		Return(&model.EventType{ID: "et-1", Event: "license.created"}, nil)
	store.On("FindEventTypeByName", "bogus.event").
		Return(nil, authz.ErrUnknownEventType)

	assert.NoError(t, ValidateCatalog(store, "license.created"))

	err := ValidateCatalog(store, "license.created", "bogus.event")
	assert.ErrorIs(t, err, authz.ErrUnknownEventType)
	assert.Contains(t, err.Error(), "bogus.event")
}

func TestEventTypesCatalog(t *testing.T) {
	assert.Contains(t, EventTypes, Wildcard)
	assert.Contains(t, EventTypes, "license.created")
	assert.Contains(t, EventTypes, "release.yanked")

	seen := make(map[string]bool, len(EventTypes))
	for _, name := range EventTypes {
		assert.False(t, seen[name], "duplicate event type %q", name)
		seen[name] = true
	}
}

func TestEndpointSubscribedTo(t *testing.T) {
	tests := []struct {
		name          string
		subscriptions string
		event         string
		want          bool
	}{
		{"exact match", "license.created,license.deleted", "license.created", true},
		{"no match", "license.created", "product.updated", false},
		{"wildcard", "*", "anything.at.all", true},
		{"wildcard among others", "license.created, *", "product.updated", true},
		{"whitespace tolerated", "license.created, license.deleted", "license.deleted", true},
		{"empty subscriptions", "", "license.created", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := model.WebhookEndpoint{Subscriptions: tt.subscriptions}
			assert.Equal(t, tt.want, e.SubscribedTo(tt.event))
		})
	}
}

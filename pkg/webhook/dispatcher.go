package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/keylinehq/keyline/pkg/model"
)

// Dispatcher records webhook events for committed mutations and wakes the
// delivery worker. It holds no mutable state beyond the wake channel and is
// safe for concurrent use.
type Dispatcher struct {
	wake chan struct{}
}

// NewDispatcher creates a dispatcher. The wake channel has capacity one; a
// pending wake absorbs further notifications.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{wake: make(chan struct{}, 1)}
}

// Record writes exactly one WebhookEvent row through the given store. Called
// inside the mutation's transaction so the event commits or rolls back with
// it. The snapshot is marshaled as the resource's state at mutation time.
func (d *Dispatcher) Record(store RecordStore, event, accountID, resourceType, resourceID string, snapshot interface{}) (*model.WebhookEvent, error) {
	et, err := store.FindEventTypeByName(event)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal %s snapshot: %w", resourceType, err)
	}

	ev := &model.WebhookEvent{
		AccountID:    accountID,
		EventTypeID:  et.ID,
		Event:        event,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Payload:      string(payload),
		Status:       model.WebhookEventPending,
	}
	if err := store.CreateWebhookEvent(ev); err != nil {
		return nil, fmt.Errorf("record webhook event %s: %w", event, err)
	}
	return ev, nil
}

// Notify wakes the delivery worker after the recording transaction has
// committed. Non-blocking; delivery also runs on a timer, so a missed wake
// only delays the next pass.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wake exposes the wake channel to the delivery worker.
func (d *Dispatcher) Wake() <-chan struct{} {
	return d.wake
}

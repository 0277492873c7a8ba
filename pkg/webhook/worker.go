package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/keylinehq/keyline/pkg/audit"
	"github.com/keylinehq/keyline/pkg/model"
)

// Delivery defaults; overridable through the worker options.
const (
	DefaultConcurrency  = 4
	DefaultMaxAttempts  = 5
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 50
)

// Payload is the logical delivery shape POSTed to subscriber endpoints.
type Payload struct {
	Event            string          `json:"event"`
	AccountID        string          `json:"account_id"`
	ResourceType     string          `json:"resource_type"`
	ResourceID       string          `json:"resource_id"`
	ResourceSnapshot json.RawMessage `json:"resource_snapshot"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// Worker delivers recorded webhook events to subscriber endpoints. It polls
// the durable queue on an interval and additionally wakes on dispatcher
// notifications. Delivery order across events is not guaranteed.
type Worker struct {
	store       DeliveryStore
	dispatcher  *Dispatcher
	client      *http.Client
	logger      *log.Logger
	concurrency int
	maxAttempts int
	interval    time.Duration
	batchSize   int
}

// Option configures a Worker.
type Option func(*Worker)

// WithConcurrency sets the delivery pool size.
func WithConcurrency(n int) Option {
	return func(w *Worker) { w.concurrency = n }
}

// WithMaxAttempts bounds retries per event.
func WithMaxAttempts(n int) Option {
	return func(w *Worker) { w.maxAttempts = n }
}

// WithPollInterval sets the queue polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithHTTPClient overrides the delivery client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Worker) { w.client = c }
}

// NewWorker creates a delivery worker.
func NewWorker(store DeliveryStore, dispatcher *Dispatcher, logger *log.Logger, opts ...Option) *Worker {
	w := &Worker{
		store:       store,
		dispatcher:  dispatcher,
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
		concurrency: DefaultConcurrency,
		maxAttempts: DefaultMaxAttempts,
		interval:    DefaultPollInterval,
		batchSize:   DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run delivers until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.dispatcher.Wake():
		}
	}
}

// runOnce claims a batch and fans it out to the delivery pool.
func (w *Worker) runOnce(ctx context.Context) {
	events, err := w.store.ClaimPending(w.batchSize)
	if err != nil {
		w.logger.Printf("webhook: claim pending: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}

	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		ev := ev
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.deliver(ctx, ev)
		}()
	}
	wg.Wait()
}

// deliver POSTs one event to every matching endpoint and settles its queue
// status. A durability failure is audited, never silently dropped.
func (w *Worker) deliver(ctx context.Context, ev model.WebhookEvent) {
	endpoints, err := w.store.MatchingEndpoints(ev.AccountID, ev.Event)
	if err != nil {
		w.fail(ev, fmt.Sprintf("list endpoints: %v", err))
		return
	}

	payload := Payload{
		Event:            ev.Event,
		AccountID:        ev.AccountID,
		ResourceType:     ev.ResourceType,
		ResourceID:       ev.ResourceID,
		ResourceSnapshot: json.RawMessage(ev.Payload),
		OccurredAt:       ev.CreatedAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		w.fail(ev, fmt.Sprintf("marshal payload: %v", err))
		return
	}

	for _, endpoint := range endpoints {
		if err := w.post(ctx, endpoint.URL, body); err != nil {
			w.fail(ev, fmt.Sprintf("post %s: %v", endpoint.URL, err))
			return
		}
	}

	if err := w.store.MarkDelivered(ev.ID, time.Now().UTC()); err != nil {
		w.logger.Printf("webhook: mark delivered %s: %v", ev.ID, err)
	}
}

func (w *Worker) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (w *Worker) fail(ev model.WebhookEvent, reason string) {
	attempts := ev.Attempts + 1
	final := attempts >= w.maxAttempts

	audit.Log(audit.WebhookFailureEvent{
		EventID:   ev.ID,
		AccountID: ev.AccountID,
		Event:     ev.Event,
		Attempts:  attempts,
		Final:     final,
		Reason:    reason,
	})
	w.logger.Printf("webhook: deliver %s (%s) attempt %d: %s", ev.ID, ev.Event, attempts, reason)

	if err := w.store.MarkFailed(ev.ID, attempts, reason, final); err != nil {
		w.logger.Printf("webhook: mark failed %s: %v", ev.ID, err)
	}
}

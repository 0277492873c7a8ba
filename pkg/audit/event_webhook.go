package audit

import (
	"fmt"
	"strconv"
)

// WebhookFailureEvent represents a webhook delivery failure audit event
type WebhookFailureEvent struct {
	EventID   string
	AccountID string
	Event     string
	Attempts  int
	Final     bool
	Reason    string
}

func (e WebhookFailureEvent) MessageID() string {
	return "webhook-failure"
}

func (e WebhookFailureEvent) Message() string {
	if e.Final {
		return fmt.Sprintf("webhook event %s (%s) abandoned after %d attempts: %s", e.EventID, e.Event, e.Attempts, e.Reason)
	}
	return fmt.Sprintf("webhook event %s (%s) delivery attempt %d failed: %s", e.EventID, e.Event, e.Attempts, e.Reason)
}

func (e WebhookFailureEvent) Severity() Severity {
	if e.Final {
		return SeverityError
	}
	return SeverityWarning
}

func (e WebhookFailureEvent) Facility() int {
	return FacilityAuth
}

func (e WebhookFailureEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDSubject: {
			"event_id": e.EventID,
			"event":    e.Event,
			"account":  e.AccountID,
		},
		SDIDDelivery: {
			"attempts": strconv.Itoa(e.Attempts),
			"final":    strconv.FormatBool(e.Final),
			"reason":   e.Reason,
		},
		SDIDAction: {
			"operation": "deliver",
			"result":    "failure",
		},
	}
}

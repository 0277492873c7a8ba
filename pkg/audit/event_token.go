package audit

import "fmt"

// TokenEvent represents a token lifecycle audit event
type TokenEvent struct {
	TokenID    string
	BearerKind string
	BearerID   string
	AccountID  string
	ClientIP   string
	Operation  string // "generate" or "revoke"
	Success    bool
}

func (e TokenEvent) MessageID() string {
	return "token"
}

func (e TokenEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("token %s for %s %s: %s succeeded", e.TokenID, e.BearerKind, e.BearerID, e.Operation)
	}
	return fmt.Sprintf("token %s for %s %s: %s failed", e.TokenID, e.BearerKind, e.BearerID, e.Operation)
}

func (e TokenEvent) Severity() Severity {
	return SeverityInfo
}

func (e TokenEvent) Facility() int {
	return FacilityAuthPriv
}

func (e TokenEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"bearer_kind": e.BearerKind,
			"bearer_id":   e.BearerID,
			"account":     e.AccountID,
		},
		SDIDSubject: {
			"token": e.TokenID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    result,
		},
	}
}

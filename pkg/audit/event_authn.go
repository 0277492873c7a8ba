package audit

import "fmt"

// AuthnEvent represents an authentication audit event
type AuthnEvent struct {
	BearerKind   string
	BearerID     string
	AccountID    string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e AuthnEvent) MessageID() string {
	return "authn"
}

func (e AuthnEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s %s successfully authenticated", e.BearerKind, e.BearerID)
	}
	return fmt.Sprintf("%s %s failed to authenticate: %s", e.BearerKind, e.BearerID, e.ErrorMessage)
}

func (e AuthnEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e AuthnEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AuthnEvent) StructuredData() map[string]map[string]string {
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
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "authenticate",
			"result":    result,
		},
	}
}

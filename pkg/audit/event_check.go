package audit

import "fmt"

// CheckEvent represents an authorization decision audit event
type CheckEvent struct {
	BearerKind   string
	BearerID     string
	AccountID    string
	ClientIP     string
	Action       string
	ResourceType string
	ResourceID   string
	Allowed      bool
	Hidden       bool
}

func (e CheckEvent) MessageID() string {
	return "check"
}

func (e CheckEvent) Message() string {
	if e.Allowed {
		return fmt.Sprintf("%s %s performed %s on %s %s: allowed", e.BearerKind, e.BearerID, e.Action, e.ResourceType, e.ResourceID)
	}
	return fmt.Sprintf("%s %s attempted %s on %s %s: denied", e.BearerKind, e.BearerID, e.Action, e.ResourceType, e.ResourceID)
}

func (e CheckEvent) Severity() Severity {
	if e.Allowed {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e CheckEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CheckEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Allowed {
		result = "failure"
	}
	hidden := "false"
	if e.Hidden {
		hidden = "true"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"bearer_kind": e.BearerKind,
			"bearer_id":   e.BearerID,
			"account":     e.AccountID,
		},
		SDIDSubject: {
			"resource_type": e.ResourceType,
			"resource_id":   e.ResourceID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.Action,
			"result":    result,
			"hidden":    hidden,
		},
	}
}

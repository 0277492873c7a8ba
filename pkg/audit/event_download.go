package audit

import "fmt"

// DownloadEvent represents an artifact download audit event
type DownloadEvent struct {
	BearerKind string
	BearerID   string
	AccountID  string
	ClientIP   string
	ProductID  string
	ArtifactID string
	Filename   string
	Allowed    bool
}

func (e DownloadEvent) MessageID() string {
	return "download"
}

func (e DownloadEvent) Message() string {
	if e.Allowed {
		return fmt.Sprintf("%s %s downloaded artifact %s (%s)", e.BearerKind, e.BearerID, e.ArtifactID, e.Filename)
	}
	return fmt.Sprintf("%s %s was denied download of artifact %s (%s)", e.BearerKind, e.BearerID, e.ArtifactID, e.Filename)
}

func (e DownloadEvent) Severity() Severity {
	if e.Allowed {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e DownloadEvent) Facility() int {
	return FacilityAuth
}

func (e DownloadEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Allowed {
		result = "failure"
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"bearer_kind": e.BearerKind,
			"bearer_id":   e.BearerID,
			"account":     e.AccountID,
		},
		SDIDSubject: {
			"product":  e.ProductID,
			"artifact": e.ArtifactID,
			"filename": e.Filename,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "download",
			"result":    result,
		},
	}
}

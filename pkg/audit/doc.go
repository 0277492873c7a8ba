// Package audit provides audit logging for Keyline operations.
//
// This package implements structured audit logging for security-relevant
// operations such as authentication attempts, authorization decisions,
// token issuance, and webhook delivery failures.
//
// # Event Types
//
// The package defines event types for various operations:
//
//   - Authentication events (success/failure)
//   - Authorization check events
//   - Token generation and revocation events
//   - Artifact download events
//   - Webhook delivery failure events
//
// # Usage
//
//	audit.Log(audit.CheckEvent{...})
//
// Audit events are logged in RFC5424 syslog format suitable for security
// monitoring and compliance requirements, and optionally persisted to a
// dedicated audit database.
package audit

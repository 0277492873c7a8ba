// Package config provides configuration management for Keyline.
//
// This package handles loading and validating Keyline server configuration
// from environment variables and configuration files.
//
// # Configuration Sources
//
// Configuration is loaded from:
//
//   - Environment variables (primary)
//   - Configuration files (optional)
//
// # Key Configuration Options
//
//   - KEYLINE_FALLBACK_INDEX_URL: Upstream package index for unknown packages
//   - KEYLINE_WEBHOOK_DELIVERY_ATTEMPTS: Webhook retry budget
//   - KEYLINE_AUDIT_ENABLED: Audit logging toggle
//   - KEYLINE_LOG_LEVEL: Logging verbosity
//   - DATABASE_URL: Database connection
//   - PORT: Server listen port
package config

// Package keyline provides a Go implementation of a multi-tenant software
// licensing and distribution server.
//
// Keyline stores accounts, users, products, licenses, entitlements and
// release artifacts, authorizes every API request against a deny-by-default
// policy registry, records webhook events in the same transaction as the
// mutation that caused them, and serves a PEP 503 simple package index whose
// contents are gated by the caller's licenses.
//
// # Architecture
//
// The server is organized into several packages:
//
//   - pkg/server: HTTP server and routing
//   - pkg/server/endpoints: REST API endpoint handlers
//   - pkg/server/middleware: Token and session authentication
//   - pkg/authz: Policy registry and authorization decisions
//   - pkg/bearer: Authenticated caller identity
//   - pkg/dist: Distribution gating for release artifacts
//   - pkg/webhook: Webhook event recording and delivery
//   - pkg/model: Database models
//   - pkg/db: Database connection utilities
//   - pkg/audit: Audit logging
//   - pkg/config: Configuration management
//
// # Quick Start
//
// The server is run via the keylinectl CLI:
//
//	# Run database migrations and seed the event catalog
//	keylinectl db migrate
//	keylinectl db seed
//
//	# Create an account with an admin user
//	keylinectl account create acme --email admin@acme.example
//
//	# Start the server
//	keylinectl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - KEYLINE_JWT_SECRET: HMAC secret for user session tokens
//   - KEYLINE_CONFIG_PATH: Config directory (default: /etc/keyline/config)
//   - KEYLINE_LOG_LEVEL: Log level (debug enables SQL logging)
//   - PORT: Server port (default: 8000)
//
// For more information, see https://github.com/keylinehq/keyline
package main

// Package model defines the database models for Keyline.
//
// This package contains GORM models that map to the Keyline database schema.
// Every tenant-owned table carries an account_id column; cross-account rows
// are never visible to a bearer.
//
// # Core Models
//
//   - Account: tenant root, owns everything else
//   - User: human principal with an assigned role
//   - Product: licensable software product with a distribution strategy
//   - License: grant of a product to a user, carries entitlements
//   - Token: API credential bound to a user, product or license
//   - Entitlement: named capability referenced by licenses and artifacts
//   - ReleaseArtifact: downloadable release file, optionally entitlement-gated
//   - EventType: catalog entry for webhook notifications
//   - WebhookEvent: durable record of a single state-changing mutation
//   - WebhookEndpoint: subscriber URL with event subscriptions
package model

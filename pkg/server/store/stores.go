package store

import "github.com/keylinehq/keyline/pkg/webhook"

// Stores bundles every store the endpoints depend on. A bundle is either
// bound to the root connection or, inside Transaction, to a single
// transaction so a mutation and its webhook event row commit together.
type Stores struct {
	Accounts     AccountsStore
	Users        UsersStore
	Products     ProductsStore
	Licenses     LicensesStore
	Entitlements EntitlementsStore
	Tokens       TokensStore
	Artifacts    ArtifactsStore
	Webhooks     WebhooksStore
	Events       webhook.RecordStore
	Health       HealthStore
}

// Transactor opens transactions over a Stores bundle.
type Transactor interface {
	// Transaction runs fn with a transaction-bound bundle. A returned error
	// rolls back everything fn wrote, including recorded webhook events.
	Transaction(fn func(Stores) error) error
}

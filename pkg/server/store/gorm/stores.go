package gorm

import (
	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// Ensure Bundle implements store.Transactor
var _ store.Transactor = (*Bundle)(nil)

// Bundle binds the full store set to one GORM connection
type Bundle struct {
	db *gorm.DB
}

// NewBundle creates a store bundle over a database connection
func NewBundle(db *gorm.DB) *Bundle {
	return &Bundle{db: db}
}

// Stores returns the bundle's stores bound to the root connection
func (b *Bundle) Stores() store.Stores {
	return bind(b.db)
}

// Transaction runs fn with a transaction-bound bundle. A returned error
// rolls back everything fn wrote, including recorded webhook events.
func (b *Bundle) Transaction(fn func(store.Stores) error) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx))
	})
}

func bind(db *gorm.DB) store.Stores {
	return store.Stores{
		Accounts:     NewAccountsStore(db),
		Users:        NewUsersStore(db),
		Products:     NewProductsStore(db),
		Licenses:     NewLicensesStore(db),
		Entitlements: NewEntitlementsStore(db),
		Tokens:       NewTokensStore(db),
		Artifacts:    NewArtifactsStore(db),
		Webhooks:     NewWebhooksStore(db),
		Events:       webhook.NewGormStore(db),
		Health:       NewHealthStore(db),
	}
}

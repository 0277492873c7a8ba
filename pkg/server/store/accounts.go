package store

import "github.com/keylinehq/keyline/pkg/model"

// AccountsStore abstracts account (tenant) storage operations
type AccountsStore interface {
	// FindAccount retrieves an account by ID or slug
	FindAccount(ref string) (*model.Account, error)

	// AccountExists checks if an account exists
	AccountExists(ref string) bool

	// CreateAccount creates a new account together with its admin user.
	// Returns the created account.
	CreateAccount(name, slug, adminEmail, adminPasswordDigest string) (*model.Account, error)

	// UpdateAccount persists changes to an account
	UpdateAccount(account *model.Account) error
}

package store

import "github.com/keylinehq/keyline/pkg/model"

// ProductsStore abstracts product storage operations
type ProductsStore interface {
	// ListProducts returns all products in an account
	ListProducts(accountID string) ([]model.Product, error)

	// FindProduct retrieves a product by ID or code within an account
	FindProduct(accountID, ref string) (*model.Product, error)

	// FindProductByCode retrieves a product by its code alias only. Used by
	// package-index lookups where the reference is never a primary ID.
	FindProductByCode(accountID, code string) (*model.Product, error)

	// CreateProduct persists a new product
	CreateProduct(product *model.Product) error

	// UpdateProduct persists changes to a product
	UpdateProduct(product *model.Product) error

	// DeleteProduct removes a product by ID within an account
	DeleteProduct(accountID, id string) error
}

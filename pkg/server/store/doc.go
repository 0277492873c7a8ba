// Package store provides storage abstractions for the Keyline server.
//
// This package defines interfaces for database operations, allowing the
// server endpoints to be decoupled from the specific database implementation.
// This enables easier testing with mocks and potential support for different
// storage backends.
//
// Every operation that touches account-owned rows takes the account ID as
// its first argument; implementations apply the tenant filter before any
// other predicate. Lookups by a client-supplied reference resolve aliases
// (product code, license key, user email, artifact filename) after the
// primary ID misses, always inside the same account scope.
//
// # Usage
//
//	products := gorm.NewProductsStore(db)
//	product, err := products.FindProduct(accountID, ref)
//	if err != nil {
//	    if errors.Is(err, authz.ErrNotFound) {
//	        // Handle not found
//	    }
//	}
package store

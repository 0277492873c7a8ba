package store

import "github.com/keylinehq/keyline/pkg/model"

// TokensStore abstracts API token storage operations
type TokensStore interface {
	// FindTokenByDigest retrieves a token by the digest of its secret
	FindTokenByDigest(digest string) (*model.Token, error)

	// TokenDigestExists checks whether a digest is already taken
	TokenDigestExists(digest string) (bool, error)

	// ListTokensForBearer returns the tokens bound to a bearer record
	ListTokensForBearer(accountID, bearerType, bearerID string) ([]model.Token, error)

	// CreateToken persists a new token with its permission grants
	CreateToken(token *model.Token, permissions []string) error

	// TokenPermissions returns the explicit grants attached to a token
	TokenPermissions(tokenID string) ([]string, error)

	// DeleteToken removes a token by ID within an account
	DeleteToken(accountID, id string) error
}

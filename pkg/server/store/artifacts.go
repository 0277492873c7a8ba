package store

import "github.com/keylinehq/keyline/pkg/model"

// ArtifactsStore abstracts release artifact storage operations
type ArtifactsStore interface {
	// ListArtifacts returns a product's artifacts, newest first. Yanked
	// artifacts are included; visibility filtering happens above the store.
	ListArtifacts(accountID, productID string, limit, offset int) ([]model.ReleaseArtifact, error)

	// FindArtifact retrieves an artifact by ID or filename within a product
	FindArtifact(accountID, productID, ref string) (*model.ReleaseArtifact, error)

	// CreateArtifact persists a new artifact
	CreateArtifact(artifact *model.ReleaseArtifact) error

	// UpdateArtifact persists changes to an artifact
	UpdateArtifact(artifact *model.ReleaseArtifact) error

	// DeleteArtifact removes an artifact by ID within an account
	DeleteArtifact(accountID, id string) error

	// ArtifactConstraints returns the entitlements an artifact requires
	ArtifactConstraints(accountID, artifactID string) ([]model.Entitlement, error)

	// AttachConstraint requires an entitlement for an artifact. Attaching an
	// already-attached constraint is a no-op.
	AttachConstraint(accountID, artifactID, entitlementID string) error

	// DetachConstraint removes an entitlement requirement from an artifact
	DetachConstraint(accountID, artifactID, entitlementID string) error
}

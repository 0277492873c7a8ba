package gorm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure ArtifactsStore implements store.ArtifactsStore
var _ store.ArtifactsStore = (*ArtifactsStore)(nil)

// ArtifactsStore implements store.ArtifactsStore using GORM
type ArtifactsStore struct {
	db *gorm.DB
}

// NewArtifactsStore creates a new ArtifactsStore
func NewArtifactsStore(db *gorm.DB) *ArtifactsStore {
	return &ArtifactsStore{db: db}
}

// ListArtifacts returns a product's artifacts, newest first
func (s *ArtifactsStore) ListArtifacts(accountID, productID string, limit, offset int) ([]model.ReleaseArtifact, error) {
	query := s.db.
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var artifacts []model.ReleaseArtifact
	err := query.Find(&artifacts).Error
	return artifacts, err
}

// FindArtifact retrieves an artifact by ID or filename within a product
func (s *ArtifactsStore) FindArtifact(accountID, productID, ref string) (*model.ReleaseArtifact, error) {
	var artifact model.ReleaseArtifact
	err := s.db.
		Where("account_id = ? AND product_id = ? AND id = ?", accountID, productID, ref).
		First(&artifact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.
			Where("account_id = ? AND product_id = ? AND filename = ?", accountID, productID, ref).
			First(&artifact).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// CreateArtifact persists a new artifact
func (s *ArtifactsStore) CreateArtifact(artifact *model.ReleaseArtifact) error {
	return s.db.Create(artifact).Error
}

// UpdateArtifact persists changes to an artifact
func (s *ArtifactsStore) UpdateArtifact(artifact *model.ReleaseArtifact) error {
	return s.db.Save(artifact).Error
}

// DeleteArtifact removes an artifact by ID within an account
func (s *ArtifactsStore) DeleteArtifact(accountID, id string) error {
	result := s.db.Where("account_id = ? AND id = ?", accountID, id).Delete(&model.ReleaseArtifact{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// ArtifactConstraints returns the entitlements an artifact requires
func (s *ArtifactsStore) ArtifactConstraints(accountID, artifactID string) ([]model.Entitlement, error) {
	var entitlements []model.Entitlement
	err := s.db.
		Joins("JOIN release_entitlement_constraints ON release_entitlement_constraints.entitlement_id = entitlements.id").
		Where("release_entitlement_constraints.account_id = ? AND release_entitlement_constraints.release_artifact_id = ?", accountID, artifactID).
		Order("entitlements.code").
		Find(&entitlements).Error
	return entitlements, err
}

// AttachConstraint requires an entitlement for an artifact
func (s *ArtifactsStore) AttachConstraint(accountID, artifactID, entitlementID string) error {
	row := model.ReleaseEntitlementConstraint{
		ID:                uuid.NewString(),
		AccountID:         accountID,
		ReleaseArtifactID: artifactID,
		EntitlementID:     entitlementID,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "release_artifact_id"}, {Name: "entitlement_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

// DetachConstraint removes an entitlement requirement from an artifact
func (s *ArtifactsStore) DetachConstraint(accountID, artifactID, entitlementID string) error {
	return s.db.
		Where("account_id = ? AND release_artifact_id = ? AND entitlement_id = ?", accountID, artifactID, entitlementID).
		Delete(&model.ReleaseEntitlementConstraint{}).Error
}

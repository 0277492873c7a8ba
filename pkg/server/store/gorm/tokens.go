package gorm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure TokensStore implements store.TokensStore
var _ store.TokensStore = (*TokensStore)(nil)

// TokensStore implements store.TokensStore using GORM
type TokensStore struct {
	db *gorm.DB
}

// NewTokensStore creates a new TokensStore
func NewTokensStore(db *gorm.DB) *TokensStore {
	return &TokensStore{db: db}
}

// FindTokenByDigest retrieves a token by the digest of its secret
func (s *TokensStore) FindTokenByDigest(digest string) (*model.Token, error) {
	var token model.Token
	err := s.db.Where("digest = ?", digest).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// TokenDigestExists checks whether a digest is already taken
func (s *TokensStore) TokenDigestExists(digest string) (bool, error) {
	var count int64
	err := s.db.Model(&model.Token{}).Where("digest = ?", digest).Count(&count).Error
	return count > 0, err
}

// ListTokensForBearer returns the tokens bound to a bearer record
func (s *TokensStore) ListTokensForBearer(accountID, bearerType, bearerID string) ([]model.Token, error) {
	var tokens []model.Token
	err := s.db.
		Where("account_id = ? AND bearer_type = ? AND bearer_id = ?", accountID, bearerType, bearerID).
		Order("created_at").
		Find(&tokens).Error
	return tokens, err
}

// CreateToken persists a new token with its permission grants
func (s *TokensStore) CreateToken(token *model.Token, permissions []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(token).Error; err != nil {
			return err
		}
		for _, action := range permissions {
			row := model.TokenPermission{
				ID:      uuid.NewString(),
				TokenID: token.ID,
				Action:  action,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// TokenPermissions returns the explicit grants attached to a token
func (s *TokensStore) TokenPermissions(tokenID string) ([]string, error) {
	var rows []model.TokenPermission
	if err := s.db.Where("token_id = ?", tokenID).Find(&rows).Error; err != nil {
		return nil, err
	}
	actions := make([]string, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, row.Action)
	}
	return actions, nil
}

// DeleteToken removes a token by ID within an account
func (s *TokensStore) DeleteToken(accountID, id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("account_id = ? AND id = ?", accountID, id).Delete(&model.Token{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return authz.ErrNotFound
		}
		return tx.Where("token_id = ?", id).Delete(&model.TokenPermission{}).Error
	})
}

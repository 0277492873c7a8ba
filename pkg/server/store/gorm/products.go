package gorm

import (
	"errors"

	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// Ensure ProductsStore implements store.ProductsStore
var _ store.ProductsStore = (*ProductsStore)(nil)

// ProductsStore implements store.ProductsStore using GORM
type ProductsStore struct {
	db *gorm.DB
}

// NewProductsStore creates a new ProductsStore
func NewProductsStore(db *gorm.DB) *ProductsStore {
	return &ProductsStore{db: db}
}

// ListProducts returns all products in an account
func (s *ProductsStore) ListProducts(accountID string) ([]model.Product, error) {
	var products []model.Product
	err := s.db.Where("account_id = ?", accountID).
		Order("created_at").
		Find(&products).Error
	return products, err
}

// FindProduct retrieves a product by ID or code within an account
func (s *ProductsStore) FindProduct(accountID, ref string) (*model.Product, error) {
	var product model.Product
	err := s.db.Where("account_id = ? AND id = ?", accountID, ref).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("account_id = ? AND code = ?", accountID, ref).First(&product).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindProductByCode retrieves a product by its code alias only
func (s *ProductsStore) FindProductByCode(accountID, code string) (*model.Product, error) {
	var product model.Product
	err := s.db.Where("account_id = ? AND code = ?", accountID, code).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct persists a new product
func (s *ProductsStore) CreateProduct(product *model.Product) error {
	return s.db.Create(product).Error
}

// UpdateProduct persists changes to a product
func (s *ProductsStore) UpdateProduct(product *model.Product) error {
	return s.db.Save(product).Error
}

// DeleteProduct removes a product by ID within an account
func (s *ProductsStore) DeleteProduct(accountID, id string) error {
	result := s.db.Where("account_id = ? AND id = ?", accountID, id).Delete(&model.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

package endpoints

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// MockProductsStore implements store.ProductsStore for testing using testify/mock
type MockProductsStore struct {
	mock.Mock
}

func (m *MockProductsStore) ListProducts(accountID string) ([]model.Product, error) {
	args := m.Called(accountID)
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductsStore) FindProduct(accountID, ref string) (*model.Product, error) {
	args := m.Called(accountID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductsStore) FindProductByCode(accountID, code string) (*model.Product, error) {
	args := m.Called(accountID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductsStore) CreateProduct(product *model.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductsStore) UpdateProduct(product *model.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductsStore) DeleteProduct(accountID, id string) error {
	args := m.Called(accountID, id)
	return args.Error(0)
}

// MockLicensesStore implements store.LicensesStore for testing using testify/mock
type MockLicensesStore struct {
	mock.Mock
}

func (m *MockLicensesStore) ListLicenses(accountID string) ([]model.License, error) {
	args := m.Called(accountID)
	return args.Get(0).([]model.License), args.Error(1)
}

func (m *MockLicensesStore) ListLicensesForProduct(accountID, productID string) ([]model.License, error) {
	args := m.Called(accountID, productID)
	return args.Get(0).([]model.License), args.Error(1)
}

func (m *MockLicensesStore) ListLicensesForUser(accountID, userID string) ([]model.License, error) {
	args := m.Called(accountID, userID)
	return args.Get(0).([]model.License), args.Error(1)
}

func (m *MockLicensesStore) FindLicense(accountID, ref string) (*model.License, error) {
	args := m.Called(accountID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.License), args.Error(1)
}

func (m *MockLicensesStore) CreateLicense(license *model.License) error {
	args := m.Called(license)
	return args.Error(0)
}

func (m *MockLicensesStore) UpdateLicense(license *model.License) error {
	args := m.Called(license)
	return args.Error(0)
}

func (m *MockLicensesStore) DeleteLicense(accountID, id string) error {
	args := m.Called(accountID, id)
	return args.Error(0)
}

func (m *MockLicensesStore) LicenseEntitlements(accountID, licenseID string) ([]model.Entitlement, error) {
	args := m.Called(accountID, licenseID)
	return args.Get(0).([]model.Entitlement), args.Error(1)
}

func (m *MockLicensesStore) AttachEntitlement(accountID, licenseID, entitlementID string) error {
	args := m.Called(accountID, licenseID, entitlementID)
	return args.Error(0)
}

func (m *MockLicensesStore) DetachEntitlement(accountID, licenseID, entitlementID string) error {
	args := m.Called(accountID, licenseID, entitlementID)
	return args.Error(0)
}

// MockEntitlementsStore implements store.EntitlementsStore for testing using testify/mock
type MockEntitlementsStore struct {
	mock.Mock
}

func (m *MockEntitlementsStore) ListEntitlements(accountID string) ([]model.Entitlement, error) {
	args := m.Called(accountID)
	return args.Get(0).([]model.Entitlement), args.Error(1)
}

func (m *MockEntitlementsStore) FindEntitlement(accountID, ref string) (*model.Entitlement, error) {
	args := m.Called(accountID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Entitlement), args.Error(1)
}

func (m *MockEntitlementsStore) CreateEntitlement(entitlement *model.Entitlement) error {
	args := m.Called(entitlement)
	return args.Error(0)
}

func (m *MockEntitlementsStore) DeleteEntitlement(accountID, id string) error {
	args := m.Called(accountID, id)
	return args.Error(0)
}

// MockUsersStore implements store.UsersStore for testing using testify/mock
type MockUsersStore struct {
	mock.Mock
}

func (m *MockUsersStore) ListUsers(accountID string) ([]model.User, error) {
	args := m.Called(accountID)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUsersStore) FindUser(accountID, ref string) (*model.User, error) {
	args := m.Called(accountID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsersStore) CreateUser(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUsersStore) UpdateUser(user *model.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUsersStore) DeleteUser(accountID, id string) error {
	args := m.Called(accountID, id)
	return args.Error(0)
}

func (m *MockUsersStore) SetPasswordResetToken(accountID, userID, token string, sentAt time.Time) error {
	args := m.Called(accountID, userID, token, sentAt)
	return args.Error(0)
}

// MockTokensStore implements store.TokensStore for testing using testify/mock
type MockTokensStore struct {
	mock.Mock
}

func (m *MockTokensStore) FindTokenByDigest(digest string) (*model.Token, error) {
	args := m.Called(digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Token), args.Error(1)
}

func (m *MockTokensStore) TokenDigestExists(digest string) (bool, error) {
	args := m.Called(digest)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokensStore) ListTokensForBearer(accountID, bearerType, bearerID string) ([]model.Token, error) {
	args := m.Called(accountID, bearerType, bearerID)
	return args.Get(0).([]model.Token), args.Error(1)
}

func (m *MockTokensStore) CreateToken(token *model.Token, permissions []string) error {
	args := m.Called(token, permissions)
	return args.Error(0)
}

func (m *MockTokensStore) TokenPermissions(tokenID string) ([]string, error) {
	args := m.Called(tokenID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTokensStore) DeleteToken(accountID, id string) error {
	args := m.Called(accountID, id)
	return args.Error(0)
}

// MockArtifactsStore implements store.ArtifactsStore for testing using testify/mock
type MockArtifactsStore struct {
	mock.Mock
}

func (m *MockArtifactsStore) ListArtifacts(accountID, productID string, limit, offset int) ([]model.ReleaseArtifact, error) {
	args := m.Called(accountID, productID, limit, offset)
	return args.Get(0).([]model.ReleaseArtifact), args.Error(1)
}

func (m *MockArtifactsStore) FindArtifact(accountID, productID, ref string) (*model.ReleaseArtifact, error) {
	args := m.Called(accountID, productID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReleaseArtifact), args.Error(1)
}

func (m *MockArtifactsStore) CreateArtifact(artifact *model.ReleaseArtifact) error {
	args := m.Called(artifact)
	return args.Error(0)
}

func (m *MockArtifactsStore) UpdateArtifact(artifact *model.ReleaseArtifact) error {
	args := m.Called(artifact)
	return args.Error(0)
}

func (m *MockArtifactsStore) DeleteArtifact(accountID, id string) error {
	args := m.Called(accountID, id)
	return args.Error(0)
}

func (m *MockArtifactsStore) ArtifactConstraints(accountID, artifactID string) ([]model.Entitlement, error) {
	args := m.Called(accountID, artifactID)
	return args.Get(0).([]model.Entitlement), args.Error(1)
}

func (m *MockArtifactsStore) AttachConstraint(accountID, artifactID, entitlementID string) error {
	args := m.Called(accountID, artifactID, entitlementID)
	return args.Error(0)
}

func (m *MockArtifactsStore) DetachConstraint(accountID, artifactID, entitlementID string) error {
	args := m.Called(accountID, artifactID, entitlementID)
	return args.Error(0)
}

// MockWebhooksStore implements store.WebhooksStore for testing using testify/mock
type MockWebhooksStore struct {
	mock.Mock
}

func (m *MockWebhooksStore) ListEndpoints(accountID string) ([]model.WebhookEndpoint, error) {
	args := m.Called(accountID)
	return args.Get(0).([]model.WebhookEndpoint), args.Error(1)
}

func (m *MockWebhooksStore) FindEndpoint(accountID, id string) (*model.WebhookEndpoint, error) {
	args := m.Called(accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEndpoint), args.Error(1)
}

func (m *MockWebhooksStore) CreateEndpoint(endpoint *model.WebhookEndpoint) error {
	args := m.Called(endpoint)
	return args.Error(0)
}

func (m *MockWebhooksStore) UpdateEndpoint(endpoint *model.WebhookEndpoint) error {
	args := m.Called(endpoint)
	return args.Error(0)
}

func (m *MockWebhooksStore) DeleteEndpoint(accountID, id string) error {
	args := m.Called(accountID, id)
	return args.Error(0)
}

func (m *MockWebhooksStore) ListEvents(accountID string, limit, offset int) ([]model.WebhookEvent, error) {
	args := m.Called(accountID, limit, offset)
	return args.Get(0).([]model.WebhookEvent), args.Error(1)
}

// fakeRecordStore is an in-memory webhook.RecordStore that accepts every
// catalog event and keeps the recorded rows for assertions.
type fakeRecordStore struct {
	mu       sync.Mutex
	recorded []model.WebhookEvent
}

func (f *fakeRecordStore) FindEventTypeByName(name string) (*model.EventType, error) {
	return &model.EventType{ID: "et-" + name, Event: name}, nil
}

func (f *fakeRecordStore) CreateWebhookEvent(ev *model.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	f.recorded = append(f.recorded, *ev)
	return nil
}

func (f *fakeRecordStore) events() []model.WebhookEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.WebhookEvent, len(f.recorded))
	copy(out, f.recorded)
	return out
}

// fakeTransactor runs the callback against a fixed bundle without any
// transactional boundary.
type fakeTransactor struct {
	stores store.Stores
}

func (f *fakeTransactor) Transaction(fn func(store.Stores) error) error {
	return fn(f.stores)
}

package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/webhook"
)

func licensedProduct() *model.Product {
	return &model.Product{ID: "prod-1", AccountID: testAccount.ID, Name: "Alpha", DistributionStrategy: model.DistributionLicensed}
}

func openProduct() *model.Product {
	return &model.Product{ID: "prod-1", AccountID: testAccount.ID, Name: "Alpha", DistributionStrategy: model.DistributionOpen}
}

func TestListArtifactsLicensed(t *testing.T) {
	product := licensedProduct()
	page := []model.ReleaseArtifact{
		{ID: "art-1", AccountID: testAccount.ID, ProductID: product.ID, Filename: "alpha-1.0.0.tar.gz", Version: "1.0.0"},
		{ID: "art-2", AccountID: testAccount.ID, ProductID: product.ID, Filename: "alpha-2.0.0-pro.tar.gz", Version: "2.0.0"},
	}

	newStores := func(heldEntitlements []model.Entitlement) store.Stores {
		products := &MockProductsStore{}
		products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)

		licenses := &MockLicensesStore{}
		licenses.On("FindLicense", testAccount.ID, "lic-1").Return(&model.License{
			ID: "lic-1", AccountID: testAccount.ID, ProductID: product.ID, Key: "key-1",
		}, nil)
		licenses.On("LicenseEntitlements", testAccount.ID, "lic-1").Return(heldEntitlements, nil)

		artifacts := &MockArtifactsStore{}
		artifacts.On("ListArtifacts", testAccount.ID, product.ID, mock.Anything, 0).Return(page, nil)
		artifacts.On("ArtifactConstraints", testAccount.ID, "art-1").Return([]model.Entitlement{}, nil)
		artifacts.On("ArtifactConstraints", testAccount.ID, "art-2").Return([]model.Entitlement{
			{ID: "ent-1", Code: "pro"},
		}, nil)

		return store.Stores{Products: products, Licenses: licenses, Artifacts: artifacts}
	}

	t.Run("license without entitlement sees only unconstrained artifacts", func(t *testing.T) {
		handler := handleListArtifacts(newStores([]model.Entitlement{}))
		req := requestWithIdentity("GET", "/v1/accounts/test-co/products/prod-1/artifacts", nil, licenseBearer("lic-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "art-1")
		assert.NotContains(t, w.Body.String(), "art-2")
	})

	t.Run("license with entitlement sees constrained artifact", func(t *testing.T) {
		handler := handleListArtifacts(newStores([]model.Entitlement{{ID: "ent-1", Code: "pro"}}))
		req := requestWithIdentity("GET", "/v1/accounts/test-co/products/prod-1/artifacts", nil, licenseBearer("lic-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "art-1")
		assert.Contains(t, w.Body.String(), "art-2")
	})

	t.Run("anonymous bearer is told nothing exists", func(t *testing.T) {
		products := &MockProductsStore{}
		products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
		artifacts := &MockArtifactsStore{}
		artifacts.On("ListArtifacts", testAccount.ID, product.ID, mock.Anything, 0).Return(page, nil)
		stores := store.Stores{Products: products, Artifacts: artifacts}

		handler := handleListArtifacts(stores)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/products/prod-1/artifacts", nil, bearer.Anonymous(testAccount.ID))
		req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListArtifactsOpen(t *testing.T) {
	product := openProduct()
	page := []model.ReleaseArtifact{
		{ID: "art-1", AccountID: testAccount.ID, ProductID: product.ID, Filename: "alpha-1.0.0.tar.gz", Version: "1.0.0"},
		{ID: "art-2", AccountID: testAccount.ID, ProductID: product.ID, Filename: "alpha-1.1.0.tar.gz", Version: "1.1.0", Yanked: true},
	}

	products := &MockProductsStore{}
	products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
	artifacts := &MockArtifactsStore{}
	artifacts.On("ListArtifacts", testAccount.ID, product.ID, mock.Anything, 0).Return(page, nil)
	artifacts.On("ArtifactConstraints", testAccount.ID, mock.Anything).Return([]model.Entitlement{}, nil)
	stores := store.Stores{Products: products, Artifacts: artifacts}

	handler := handleListArtifacts(stores)
	req := requestWithIdentity("GET", "/v1/accounts/test-co/products/prod-1/artifacts", nil, bearer.Anonymous(testAccount.ID))
	req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1"})
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "art-1")
	// Yanked artifacts are withdrawn from anonymous listings.
	assert.NotContains(t, w.Body.String(), "art-2")
}

func TestDownloadArtifact(t *testing.T) {
	product := openProduct()
	artifact := &model.ReleaseArtifact{
		ID: "art-1", AccountID: testAccount.ID, ProductID: product.ID,
		Filename: "alpha-1.0.0.tar.gz", Version: "1.0.0",
		DownloadURL: "https://cdn.example.com/alpha-1.0.0.tar.gz",
	}

	products := &MockProductsStore{}
	products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
	artifacts := &MockArtifactsStore{}
	artifacts.On("FindArtifact", testAccount.ID, product.ID, "alpha-1.0.0.tar.gz").Return(artifact, nil)
	artifacts.On("ArtifactConstraints", testAccount.ID, "art-1").Return([]model.Entitlement{}, nil)
	rec := &fakeRecordStore{}
	stores := store.Stores{Products: products, Artifacts: artifacts}
	transactor := &fakeTransactor{stores: store.Stores{Events: rec}}

	handler := handleDownloadArtifact(stores, transactor, webhook.NewDispatcher())
	req := requestWithIdentity("GET", "/v1/accounts/test-co/products/prod-1/artifacts/alpha-1.0.0.tar.gz/download", nil, bearer.Anonymous(testAccount.ID))
	req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1", "artifact": "alpha-1.0.0.tar.gz"})
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, artifact.DownloadURL, w.Header().Get("Location"))
	events := rec.events()
	if assert.Len(t, events, 1) {
		assert.Equal(t, "release.downloaded", events[0].Event)
	}
}

func TestYankArtifact(t *testing.T) {
	product := licensedProduct()
	artifact := &model.ReleaseArtifact{
		ID: "art-1", AccountID: testAccount.ID, ProductID: product.ID,
		Filename: "alpha-1.0.0.tar.gz", Version: "1.0.0",
	}

	products := &MockProductsStore{}
	products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
	artifacts := &MockArtifactsStore{}
	artifacts.On("FindArtifact", testAccount.ID, product.ID, "art-1").Return(artifact, nil)
	artifacts.On("UpdateArtifact", mock.AnythingOfType("*model.ReleaseArtifact")).Return(nil)
	rec := &fakeRecordStore{}
	stores := store.Stores{Products: products, Artifacts: artifacts}
	transactor := &fakeTransactor{stores: store.Stores{Artifacts: artifacts, Events: rec}}

	handler := handleYankArtifact(stores, transactor, webhook.NewDispatcher())
	req := requestWithIdentity("POST", "/v1/accounts/test-co/products/prod-1/artifacts/art-1/yank", nil, productBearer("prod-1"))
	req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1", "artifact": "art-1"})
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, artifact.Yanked)
	events := rec.events()
	if assert.Len(t, events, 1) {
		assert.Equal(t, "release.yanked", events[0].Event)
	}
}

func TestReleaseNotesRendered(t *testing.T) {
	product := openProduct()
	artifact := &model.ReleaseArtifact{
		ID: "art-1", AccountID: testAccount.ID, ProductID: product.ID,
		Filename: "alpha-1.0.0.tar.gz", Version: "1.0.0",
		ReleaseNotes: "# Changes\n\n- faster startup\n",
	}

	products := &MockProductsStore{}
	products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
	artifacts := &MockArtifactsStore{}
	artifacts.On("FindArtifact", testAccount.ID, product.ID, "art-1").Return(artifact, nil)
	artifacts.On("ArtifactConstraints", testAccount.ID, "art-1").Return([]model.Entitlement{}, nil)
	stores := store.Stores{Products: products, Artifacts: artifacts}

	handler := handleReleaseNotes(stores)
	req := requestWithIdentity("GET", "/v1/accounts/test-co/products/prod-1/artifacts/art-1/release-notes", nil, bearer.Anonymous(testAccount.ID))
	req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1", "artifact": "art-1"})
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<h1>Changes</h1>")
	assert.Contains(t, w.Body.String(), "<li>faster startup</li>")
}

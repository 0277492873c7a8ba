package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
)

func TestNormalizePackageName(t *testing.T) {
	cases := map[string]string{
		"Django":         "django",
		"my.package":     "my-package",
		"my__package":    "my-package",
		"My-._-Package":  "my-package",
		"already-normal": "already-normal",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePackageName(in), "normalize %q", in)
	}
}

func TestSimpleIndexUnknownPackageFallsThrough(t *testing.T) {
	products := &MockProductsStore{}
	products.On("FindProductByCode", testAccount.ID, "requests").Return(nil, authz.ErrNotFound)
	stores := store.Stores{Products: products}

	handler := handleSimpleIndex(stores)
	req := requestWithIdentity("GET", "/v1/accounts/test-co/pypi/simple/requests/", nil, bearer.Anonymous(testAccount.ID))
	req = withMuxVars(req, map[string]string{"account": "test-co", "package": "requests"})
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://pypi.org/simple/requests/", w.Header().Get("Location"))
}

func TestSimpleIndexPrivatePackage(t *testing.T) {
	product := &model.Product{
		ID: "prod-1", AccountID: testAccount.ID, Name: "Alpha", Code: "alpha",
		DistributionStrategy: model.DistributionLicensed,
	}
	page := []model.ReleaseArtifact{
		{ID: "art-1", AccountID: testAccount.ID, ProductID: product.ID, Filename: "alpha-1.0.0.tar.gz", Version: "1.0.0"},
	}

	t.Run("licensed bearer gets the index page", func(t *testing.T) {
		products := &MockProductsStore{}
		products.On("FindProductByCode", testAccount.ID, "alpha").Return(product, nil)
		licenses := &MockLicensesStore{}
		licenses.On("FindLicense", testAccount.ID, "lic-1").Return(&model.License{
			ID: "lic-1", AccountID: testAccount.ID, ProductID: product.ID, Key: "key-1",
		}, nil)
		licenses.On("LicenseEntitlements", testAccount.ID, "lic-1").Return([]model.Entitlement{}, nil)
		artifacts := &MockArtifactsStore{}
		artifacts.On("ListArtifacts", testAccount.ID, product.ID, mock.Anything, 0).Return(page, nil)
		artifacts.On("ArtifactConstraints", testAccount.ID, "art-1").Return([]model.Entitlement{}, nil)
		stores := store.Stores{Products: products, Licenses: licenses, Artifacts: artifacts}

		handler := handleSimpleIndex(stores)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/pypi/simple/alpha/", nil, licenseBearer("lic-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "package": "alpha"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "alpha-1.0.0.tar.gz")
		assert.Contains(t, w.Body.String(), "/v1/accounts/test-co/products/prod-1/artifacts/art-1/download")
	})

	t.Run("unlicensed bearer is indistinguishable from a missing package", func(t *testing.T) {
		products := &MockProductsStore{}
		products.On("FindProductByCode", testAccount.ID, "alpha").Return(product, nil)
		artifacts := &MockArtifactsStore{}
		artifacts.On("ListArtifacts", testAccount.ID, product.ID, mock.Anything, 0).Return(page, nil)
		artifacts.On("ArtifactConstraints", testAccount.ID, "art-1").Return([]model.Entitlement{}, nil)
		stores := store.Stores{Products: products, Artifacts: artifacts}

		handler := handleSimpleIndex(stores)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/pypi/simple/alpha/", nil, bearer.Anonymous(testAccount.ID))
		req = withMuxVars(req, map[string]string{"account": "test-co", "package": "alpha"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "https://pypi.org/simple/alpha/", w.Header().Get("Location"))
	})
}

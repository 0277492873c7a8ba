package endpoints

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/webhook"
)

func TestListLicenses(t *testing.T) {
	userID := "user-1"
	page := []model.License{
		{ID: "lic-1", AccountID: testAccount.ID, ProductID: "prod-1", UserID: &userID, Key: "key-1"},
	}

	t.Run("user bearer lists through the user scope", func(t *testing.T) {
		licenses := &MockLicensesStore{}
		licenses.On("ListLicensesForUser", testAccount.ID, userID).Return(page, nil)

		handler := handleListLicenses(licenses)
		b := bearer.Bearer{Kind: bearer.KindUser, ID: userID, AccountID: testAccount.ID, Role: bearer.RoleUser}
		req := requestWithIdentity("GET", "/v1/accounts/test-co/licenses", nil, b)
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "lic-1")
		licenses.AssertNotCalled(t, "ListLicenses", testAccount.ID)
	})

	t.Run("product bearer lists through the product scope", func(t *testing.T) {
		licenses := &MockLicensesStore{}
		licenses.On("ListLicensesForProduct", testAccount.ID, "prod-1").Return(page, nil)

		handler := handleListLicenses(licenses)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/licenses", nil, productBearer("prod-1"))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "lic-1")
	})

	t.Run("license bearer cannot index", func(t *testing.T) {
		licenses := &MockLicensesStore{}
		licenses.On("ListLicenses", testAccount.ID).Return(page, nil)

		handler := handleListLicenses(licenses)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/licenses", nil, licenseBearer("lic-1"))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestShowLicense(t *testing.T) {
	userID := "user-9"
	license := &model.License{ID: "lic-1", AccountID: testAccount.ID, ProductID: "prod-1", UserID: &userID, Key: "key-1"}

	t.Run("license bearer sees its own record", func(t *testing.T) {
		licenses := &MockLicensesStore{}
		licenses.On("FindLicense", testAccount.ID, "lic-1").Return(license, nil)

		handler := handleShowLicense(licenses)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/licenses/lic-1", nil, licenseBearer("lic-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "license": "lic-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("a foreign license bearer is told nothing exists", func(t *testing.T) {
		licenses := &MockLicensesStore{}
		licenses.On("FindLicense", testAccount.ID, "lic-1").Return(license, nil)

		handler := handleShowLicense(licenses)
		req := requestWithIdentity("GET", "/v1/accounts/test-co/licenses/lic-1", nil, licenseBearer("lic-other"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "license": "lic-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreateLicense(t *testing.T) {
	product := &model.Product{ID: "prod-1", AccountID: testAccount.ID, Name: "Alpha"}

	t.Run("product bearer creates for its own product", func(t *testing.T) {
		products := &MockProductsStore{}
		products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
		licenses := &MockLicensesStore{}
		licenses.On("CreateLicense", mock.AnythingOfType("*model.License")).Return(nil)
		rec := &fakeRecordStore{}
		transactor := &fakeTransactor{stores: store.Stores{Licenses: licenses, Events: rec}}

		handler := handleCreateLicense(products, &MockUsersStore{}, transactor, webhook.NewDispatcher())
		body := strings.NewReader(`{"product_id": "prod-1"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/licenses", body, productBearer("prod-1"))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		events := rec.events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, "license.created", events[0].Event)
		}
	})

	t.Run("product bearer cannot create for a foreign product", func(t *testing.T) {
		foreign := &model.Product{ID: "prod-2", AccountID: testAccount.ID, Name: "Beta"}
		products := &MockProductsStore{}
		products.On("FindProduct", testAccount.ID, "prod-2").Return(foreign, nil)
		rec := &fakeRecordStore{}
		transactor := &fakeTransactor{stores: store.Stores{Events: rec}}

		handler := handleCreateLicense(products, &MockUsersStore{}, transactor, webhook.NewDispatcher())
		body := strings.NewReader(`{"product_id": "prod-2"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/licenses", body, productBearer("prod-1"))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, rec.events())
	})
}

func TestUpdateLicenseSuspension(t *testing.T) {
	license := &model.License{ID: "lic-1", AccountID: testAccount.ID, ProductID: "prod-1", Key: "key-1"}

	licenses := &MockLicensesStore{}
	licenses.On("FindLicense", testAccount.ID, "lic-1").Return(license, nil)
	licenses.On("UpdateLicense", mock.AnythingOfType("*model.License")).Return(nil)
	rec := &fakeRecordStore{}
	transactor := &fakeTransactor{stores: store.Stores{Licenses: licenses, Events: rec}}

	handler := handleUpdateLicense(licenses, transactor, webhook.NewDispatcher())
	body := strings.NewReader(`{"suspended": true}`)
	req := requestWithIdentity("PATCH", "/v1/accounts/test-co/licenses/lic-1", body, staffBearer(bearer.RoleAdmin))
	req = withMuxVars(req, map[string]string{"account": "test-co", "license": "lic-1"})
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	events := rec.events()
	if assert.Len(t, events, 1) {
		assert.Equal(t, "license.suspended", events[0].Event)
	}
}

func TestAttachLicenseEntitlement(t *testing.T) {
	license := &model.License{ID: "lic-1", AccountID: testAccount.ID, ProductID: "prod-1", Key: "key-1"}
	entitlement := &model.Entitlement{ID: "ent-1", AccountID: testAccount.ID, Name: "Pro", Code: "pro"}

	licenses := &MockLicensesStore{}
	licenses.On("FindLicense", testAccount.ID, "lic-1").Return(license, nil)
	licenses.On("AttachEntitlement", testAccount.ID, "lic-1", "ent-1").Return(nil)
	entitlements := &MockEntitlementsStore{}
	entitlements.On("FindEntitlement", testAccount.ID, "pro").Return(entitlement, nil)
	rec := &fakeRecordStore{}
	transactor := &fakeTransactor{stores: store.Stores{Licenses: licenses, Events: rec}}

	handler := handleAttachEntitlement(licenses, entitlements, transactor, webhook.NewDispatcher())
	req := requestWithIdentity("PUT", "/v1/accounts/test-co/licenses/lic-1/entitlements/pro", nil, staffBearer(bearer.RoleAdmin))
	req = withMuxVars(req, map[string]string{"account": "test-co", "license": "lic-1", "entitlement": "pro"})
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	licenses.AssertCalled(t, "AttachEntitlement", testAccount.ID, "lic-1", "ent-1")
	events := rec.events()
	if assert.Len(t, events, 1) {
		assert.Equal(t, "license.entitlements.attached", events[0].Event)
	}
}

package endpoints

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/middleware"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/webhook"
)

func testAuthenticator() *middleware.Authenticator {
	return middleware.NewAuthenticator(nil, nil, nil, []byte("test-secret"))
}

func TestLogin(t *testing.T) {
	digest, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	user := &model.User{
		ID: "user-1", AccountID: testAccount.ID, Email: "admin@test.co",
		RoleName: string(bearer.RoleAdmin), PasswordDigest: string(digest),
	}

	t.Run("valid credentials issue a session", func(t *testing.T) {
		users := &MockUsersStore{}
		users.On("FindUser", testAccount.ID, "admin@test.co").Return(user, nil)
		tokens := &MockTokensStore{}
		tokens.On("TokenDigestExists", mock.Anything).Return(false, nil)
		tokens.On("CreateToken", mock.AnythingOfType("*model.Token"), []string(nil)).Return(nil)
		rec := &fakeRecordStore{}
		transactor := &fakeTransactor{stores: store.Stores{Tokens: tokens, Events: rec}}

		handler := handleLogin(users, tokens, testAuthenticator(), webhook.NewDispatcher(), transactor)
		body := strings.NewReader(`{"email": "admin@test.co", "password": "hunter2"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/tokens", body, bearer.Anonymous(testAccount.ID))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		// The session credential is a three-part JWT.
		assert.Contains(t, w.Body.String(), `"token"`)
		tokens.AssertExpectations(t)

		events := rec.events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, "token.generated", events[0].Event)
		}
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		users := &MockUsersStore{}
		users.On("FindUser", testAccount.ID, "admin@test.co").Return(user, nil)
		tokens := &MockTokensStore{}
		transactor := &fakeTransactor{stores: store.Stores{Events: &fakeRecordStore{}}}

		handler := handleLogin(users, tokens, testAuthenticator(), webhook.NewDispatcher(), transactor)
		body := strings.NewReader(`{"email": "admin@test.co", "password": "wrong"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/tokens", body, bearer.Anonymous(testAccount.ID))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		tokens.AssertNotCalled(t, "CreateToken", mock.Anything, mock.Anything)
	})

	t.Run("unknown user is rejected identically", func(t *testing.T) {
		users := &MockUsersStore{}
		users.On("FindUser", testAccount.ID, "ghost@test.co").Return(nil, assert.AnError)
		transactor := &fakeTransactor{stores: store.Stores{Events: &fakeRecordStore{}}}

		handler := handleLogin(users, &MockTokensStore{}, testAuthenticator(), webhook.NewDispatcher(), transactor)
		body := strings.NewReader(`{"email": "ghost@test.co", "password": "hunter2"}`)
		req := requestWithIdentity("POST", "/v1/accounts/test-co/tokens", body, bearer.Anonymous(testAccount.ID))
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGenerateProductToken(t *testing.T) {
	product := &model.Product{ID: "prod-1", AccountID: testAccount.ID, Name: "Alpha"}

	t.Run("admin generates an opaque token", func(t *testing.T) {
		products := &MockProductsStore{}
		products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
		tokens := &MockTokensStore{}
		tokens.On("TokenDigestExists", mock.Anything).Return(false, nil)
		tokens.On("CreateToken", mock.AnythingOfType("*model.Token"), []string(nil)).Return(nil)
		rec := &fakeRecordStore{}
		transactor := &fakeTransactor{stores: store.Stores{Tokens: tokens, Events: rec}}

		handler := handleGenerateProductToken(products, tokens, transactor, webhook.NewDispatcher())
		req := requestWithIdentity("POST", "/v1/accounts/test-co/products/prod-1/tokens", strings.NewReader(`{}`), staffBearer(bearer.RoleAdmin))
		req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"token"`)
		events := rec.events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, "token.generated", events[0].Event)
		}
	})

	t.Run("product bearer cannot mint tokens", func(t *testing.T) {
		products := &MockProductsStore{}
		products.On("FindProduct", testAccount.ID, "prod-1").Return(product, nil)
		tokens := &MockTokensStore{}
		transactor := &fakeTransactor{stores: store.Stores{Events: &fakeRecordStore{}}}

		handler := handleGenerateProductToken(products, tokens, transactor, webhook.NewDispatcher())
		req := requestWithIdentity("POST", "/v1/accounts/test-co/products/prod-1/tokens", strings.NewReader(`{}`), productBearer("prod-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "product": "prod-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		tokens.AssertNotCalled(t, "CreateToken", mock.Anything, mock.Anything)
	})
}

func TestGenerateLicenseToken(t *testing.T) {
	license := &model.License{ID: "lic-1", AccountID: testAccount.ID, ProductID: "prod-1", Key: "key-1"}

	t.Run("owning product generates a license token", func(t *testing.T) {
		licenses := &MockLicensesStore{}
		licenses.On("FindLicense", testAccount.ID, "lic-1").Return(license, nil)
		tokens := &MockTokensStore{}
		tokens.On("TokenDigestExists", mock.Anything).Return(false, nil)
		tokens.On("CreateToken", mock.AnythingOfType("*model.Token"), []string(nil)).Return(nil)
		rec := &fakeRecordStore{}
		transactor := &fakeTransactor{stores: store.Stores{Tokens: tokens, Events: rec}}

		handler := handleGenerateLicenseToken(licenses, tokens, transactor, webhook.NewDispatcher())
		req := requestWithIdentity("POST", "/v1/accounts/test-co/licenses/lic-1/tokens", strings.NewReader(`{}`), productBearer("prod-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "license": "lic-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("a foreign product is forbidden", func(t *testing.T) {
		licenses := &MockLicensesStore{}
		licenses.On("FindLicense", testAccount.ID, "lic-1").Return(license, nil)
		tokens := &MockTokensStore{}
		transactor := &fakeTransactor{stores: store.Stores{Events: &fakeRecordStore{}}}

		handler := handleGenerateLicenseToken(licenses, tokens, transactor, webhook.NewDispatcher())
		req := requestWithIdentity("POST", "/v1/accounts/test-co/licenses/lic-1/tokens", strings.NewReader(`{}`), productBearer("prod-other"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "license": "lic-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRevokeToken(t *testing.T) {
	t.Run("bearer revokes its own token", func(t *testing.T) {
		own := []model.Token{{ID: "tok-1", AccountID: testAccount.ID, BearerType: model.TokenBearerProduct, BearerID: "prod-1"}}
		tokens := &MockTokensStore{}
		tokens.On("ListTokensForBearer", testAccount.ID, "product", "prod-1").Return(own, nil)
		tokens.On("DeleteToken", testAccount.ID, "tok-1").Return(nil)
		rec := &fakeRecordStore{}
		transactor := &fakeTransactor{stores: store.Stores{Tokens: tokens, Events: rec}}

		handler := handleRevokeToken(tokens, transactor, webhook.NewDispatcher())
		req := requestWithIdentity("DELETE", "/v1/accounts/test-co/tokens/tok-1", nil, productBearer("prod-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "token": "tok-1"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		events := rec.events()
		if assert.Len(t, events, 1) {
			assert.Equal(t, "token.revoked", events[0].Event)
		}
	})

	t.Run("a foreign token is not found for non-staff", func(t *testing.T) {
		tokens := &MockTokensStore{}
		tokens.On("ListTokensForBearer", testAccount.ID, "product", "prod-1").Return([]model.Token{}, nil)
		transactor := &fakeTransactor{stores: store.Stores{Events: &fakeRecordStore{}}}

		handler := handleRevokeToken(tokens, transactor, webhook.NewDispatcher())
		req := requestWithIdentity("DELETE", "/v1/accounts/test-co/tokens/tok-9", nil, productBearer("prod-1"))
		req = withMuxVars(req, map[string]string{"account": "test-co", "token": "tok-9"})
		w := httptest.NewRecorder()
		handler(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		tokens.AssertNotCalled(t, "DeleteToken", mock.Anything, mock.Anything)
	})
}

package endpoints

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"

	"github.com/keylinehq/keyline/pkg/audit"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/middleware"
)

func init() {
	audit.SetEnabled(false)
}

var testAccount = &model.Account{ID: "acct-1", Name: "Test Co", Slug: "test-co"}

func staffBearer(role bearer.Role) bearer.Bearer {
	return bearer.Bearer{Kind: bearer.KindUser, ID: "user-1", AccountID: testAccount.ID, Role: role}
}

func productBearer(productID string) bearer.Bearer {
	return bearer.Bearer{Kind: bearer.KindProduct, ID: productID, AccountID: testAccount.ID, Role: bearer.RoleProduct}
}

func licenseBearer(licenseID string) bearer.Bearer {
	return bearer.Bearer{Kind: bearer.KindLicense, ID: licenseID, AccountID: testAccount.ID, Role: bearer.RoleLicense}
}

// requestWithIdentity builds a request carrying the account and bearer the
// auth middleware would have resolved.
func requestWithIdentity(method, target string, body io.Reader, b bearer.Bearer) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(middleware.NewContext(req.Context(), testAccount, b))
}

func withMuxVars(req *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(req, vars)
}

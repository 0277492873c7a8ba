package endpoints

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/keylinehq/keyline/pkg/audit"
	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/config"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/middleware"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/token"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// RegisterTokensEndpoints registers credential issuance and revocation
// endpoints. User sessions are JWTs wrapping a token row; product and
// license tokens are opaque secrets shown exactly once at generation.
func RegisterTokensEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("/tokens", handleLogin(s.Stores.Users, s.Stores.Tokens, s.Auth, s.Dispatcher, s.Bundle)).Methods("POST")
	router.HandleFunc("/tokens", handleListOwnTokens(s.Stores.Tokens)).Methods("GET")
	router.HandleFunc("/tokens/{token}", handleRevokeToken(s.Stores.Tokens, s.Bundle, s.Dispatcher)).Methods("DELETE")

	router.HandleFunc("/products/{product}/tokens", handleGenerateProductToken(s.Stores.Products, s.Stores.Tokens, s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/products/{product}/tokens", handleListProductTokens(s.Stores.Products, s.Stores.Tokens)).Methods("GET")
	router.HandleFunc("/licenses/{license}/tokens", handleGenerateLicenseToken(s.Stores.Licenses, s.Stores.Tokens, s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/licenses/{license}/tokens", handleListLicenseTokens(s.Stores.Licenses, s.Stores.Tokens)).Methods("GET")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin exchanges user credentials for a session. The session is a
// signed JWT whose backing token row expires with it; revoking the row
// invalidates the session immediately.
func handleLogin(users store.UsersStore, tokens store.TokensStore, auth *middleware.Authenticator, dispatcher *webhook.Dispatcher, transactor store.Transactor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}

		user, err := users.FindUser(account.ID, req.Email)
		if err != nil || user.PasswordDigest == "" ||
			bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(req.Password)) != nil {
			audit.Log(audit.TokenEvent{
				BearerKind: "user",
				BearerID:   req.Email,
				AccountID:  account.ID,
				ClientIP:   clientIP(r),
				Operation:  "generate",
				Success:    false,
			})
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		secret, err := token.GenerateUnique(func(tok string) (bool, error) {
			return tokens.TokenDigestExists(token.Digest(tok))
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		ttl := config.Get().UserTokenDuration()
		expiry := time.Now().Add(ttl)
		row := &model.Token{
			ID:         uuid.NewString(),
			AccountID:  account.ID,
			BearerType: model.TokenBearerUser,
			BearerID:   user.ID,
			Digest:     token.Digest(secret),
			Expiry:     &expiry,
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Tokens.CreateToken(row, nil); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "token.generated", account.ID, "tokens", row.ID, row)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		session, err := auth.IssueSession(secret, user.ID, ttl)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.TokenEvent{
			TokenID:    row.ID,
			BearerKind: "user",
			BearerID:   user.ID,
			AccountID:  account.ID,
			ClientIP:   clientIP(r),
			Operation:  "generate",
			Success:    true,
		})

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"token":   session,
			"expiry":  expiry,
			"bearer":  map[string]string{"type": model.TokenBearerUser, "id": user.ID},
			"session": row.ID,
		})
	}
}

func handleListOwnTokens(tokens store.TokensStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}
		if b.IsAnonymous() {
			respondWithError(w, http.StatusNotFound, "Not found")
			return
		}

		page, err := tokens.ListTokensForBearer(account.ID, b.Kind.String(), b.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"tokens": page})
	}
}

// handleRevokeToken deletes a token row. Bearers revoke their own tokens;
// admins and developers revoke any token in the account.
func handleRevokeToken(tokens store.TokensStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		id := mux.Vars(r)["token"]
		page, err := tokens.ListTokensForBearer(account.ID, b.Kind.String(), b.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}
		var row *model.Token
		for i := range page {
			if page[i].ID == id {
				row = &page[i]
				break
			}
		}
		if row == nil && !b.Is(bearer.RoleAdmin, bearer.RoleDeveloper) {
			respondWithError(w, http.StatusNotFound, "Not found")
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Tokens.DeleteToken(account.ID, id); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "token.revoked", account.ID, "tokens", id, map[string]string{"id": id})
			return err
		})
		if err != nil {
			respondWithStoreError(w, err)
			return
		}
		dispatcher.Notify()

		audit.Log(audit.TokenEvent{
			TokenID:    id,
			BearerKind: b.Kind.String(),
			BearerID:   b.ID,
			AccountID:  account.ID,
			ClientIP:   clientIP(r),
			Operation:  "revoke",
			Success:    true,
		})

		w.WriteHeader(http.StatusNoContent)
	}
}

// generateOpaqueToken creates a token row bound to a product or license
// record and returns the raw secret alongside it.
func generateOpaqueToken(tokens store.TokensStore, transactor store.Transactor, dispatcher *webhook.Dispatcher, accountID, bearerType, bearerID string, expiry *time.Time, grants []string) (*model.Token, string, error) {
	secret, err := token.GenerateUnique(func(tok string) (bool, error) {
		return tokens.TokenDigestExists(token.Digest(tok))
	})
	if err != nil {
		return nil, "", err
	}

	row := &model.Token{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		BearerType: bearerType,
		BearerID:   bearerID,
		Digest:     token.Digest(secret),
		Expiry:     expiry,
	}

	err = transactor.Transaction(func(tx store.Stores) error {
		if err := tx.Tokens.CreateToken(row, grants); err != nil {
			return err
		}
		_, err := dispatcher.Record(tx.Events, "token.generated", accountID, "tokens", row.ID, row)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	dispatcher.Notify()
	return row, secret, nil
}

type generateTokenRequest struct {
	Expiry      *time.Time `json:"expiry"`
	Permissions []string   `json:"permissions"`
}

func handleGenerateProductToken(products store.ProductsStore, tokens store.TokensStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		product, err := products.FindProduct(account.ID, mux.Vars(r)["product"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.ProductTokenPolicy(*product)
		if d := policy.Authorize(b, authz.ActionCreate, model.Token{}); !d.Allowed() {
			respondWithDenial(w, r, b, d, "tokens", "")
			return
		}

		var req generateTokenRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		expiry := req.Expiry
		if expiry == nil {
			if ttl := config.Get().MachineTokenDuration(); ttl > 0 {
				e := time.Now().Add(ttl)
				expiry = &e
			}
		}

		row, secret, err := generateOpaqueToken(tokens, transactor, dispatcher, account.ID, model.TokenBearerProduct, product.ID, expiry, req.Permissions)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.TokenEvent{
			TokenID:    row.ID,
			BearerKind: b.Kind.String(),
			BearerID:   b.ID,
			AccountID:  account.ID,
			ClientIP:   clientIP(r),
			Operation:  "generate",
			Success:    true,
		})

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"token":  secret,
			"record": row,
		})
	}
}

func handleListProductTokens(products store.ProductsStore, tokens store.TokensStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		product, err := products.FindProduct(account.ID, mux.Vars(r)["product"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		page, err := tokens.ListTokensForBearer(account.ID, model.TokenBearerProduct, product.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.ProductTokenPolicy(*product)
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "tokens", "")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"tokens": page})
	}
}

func handleGenerateLicenseToken(licenses store.LicensesStore, tokens store.TokensStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		license, err := licenses.FindLicense(account.ID, mux.Vars(r)["license"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.LicenseTokenPolicy(*license)
		if d := policy.Authorize(b, authz.ActionCreate, model.Token{}); !d.Allowed() {
			respondWithDenial(w, r, b, d, "tokens", "")
			return
		}

		var req generateTokenRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		expiry := req.Expiry
		if expiry == nil {
			// License tokens never outlive the license itself.
			expiry = license.Expiry
		}

		row, secret, err := generateOpaqueToken(tokens, transactor, dispatcher, account.ID, model.TokenBearerLicense, license.ID, expiry, req.Permissions)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.TokenEvent{
			TokenID:    row.ID,
			BearerKind: b.Kind.String(),
			BearerID:   b.ID,
			AccountID:  account.ID,
			ClientIP:   clientIP(r),
			Operation:  "generate",
			Success:    true,
		})

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"token":  secret,
			"record": row,
		})
	}
}

func handleListLicenseTokens(licenses store.LicensesStore, tokens store.TokensStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		license, err := licenses.FindLicense(account.ID, mux.Vars(r)["license"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		page, err := tokens.ListTokensForBearer(account.ID, model.TokenBearerLicense, license.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.LicenseTokenPolicy(*license)
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "tokens", "")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"tokens": page})
	}
}

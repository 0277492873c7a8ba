package endpoints

import (
	"encoding/json"
	"net/http"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/store"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// RegisterAccountsEndpoints registers account signup and management
// endpoints. Signup is the one unauthenticated mutation the service offers.
func RegisterAccountsEndpoints(s *server.Server) {
	s.Router.HandleFunc("/v1/accounts", handleCreateAccount(s.Stores.Accounts)).Methods("POST")

	router := s.Router.PathPrefix("/v1/accounts/{account}").Subrouter()
	router.Use(s.Auth.Middleware)
	router.HandleFunc("", handleShowAccount()).Methods("GET")
	router.HandleFunc("", handleUpdateAccount(s.Stores.Accounts)).Methods("PATCH")
}

type createAccountRequest struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

func handleCreateAccount(accounts store.AccountsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.Name == "" || req.Slug == "" || req.AdminEmail == "" || req.AdminPassword == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "name, slug, admin_email and admin_password are required")
			return
		}
		if !slugPattern.MatchString(req.Slug) {
			respondWithError(w, http.StatusUnprocessableEntity, "slug must be lowercase letters, digits and hyphens")
			return
		}
		if accounts.AccountExists(req.Slug) {
			respondWithError(w, http.StatusConflict, "slug is already taken")
			return
		}

		digest, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		account, err := accounts.CreateAccount(req.Name, req.Slug, req.AdminEmail, string(digest))
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"account": account})
	}
}

func handleShowAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		// Any authenticated member of the account may see its record;
		// anonymous bearers are told nothing.
		if b.IsAnonymous() {
			respondWithError(w, http.StatusNotFound, "Not found")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"account": account})
	}
}

type updateAccountRequest struct {
	Name string `json:"name"`
}

func handleUpdateAccount(accounts store.AccountsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		if !b.Is(bearer.RoleAdmin) {
			respondWithError(w, http.StatusForbidden, "Forbidden")
			return
		}

		var req updateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.Name != "" {
			account.Name = req.Name
		}

		if err := accounts.UpdateAccount(account); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"account": account})
	}
}

package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// RegisterEntitlementsEndpoints registers the entitlement catalog endpoints
func RegisterEntitlementsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}/entitlements").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("", handleListEntitlements(s.Stores.Entitlements)).Methods("GET")
	router.HandleFunc("", handleCreateEntitlement(s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/{entitlement}", handleShowEntitlement(s.Stores.Entitlements)).Methods("GET")
	router.HandleFunc("/{entitlement}", handleDeleteEntitlement(s.Stores.Entitlements, s.Bundle, s.Dispatcher)).Methods("DELETE")
}

func handleListEntitlements(entitlements store.EntitlementsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		page, err := entitlements.ListEntitlements(account.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.EntitlementPolicy()
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "entitlements", "")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"entitlements": page})
	}
}

func handleShowEntitlement(entitlements store.EntitlementsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		entitlement, err := entitlements.FindEntitlement(account.ID, mux.Vars(r)["entitlement"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.EntitlementPolicy()
		if d := policy.Authorize(b, authz.ActionShow, *entitlement); !d.Allowed() {
			respondWithDenial(w, r, b, d, "entitlements", entitlement.ID)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"entitlement": entitlement})
	}
}

type entitlementRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func handleCreateEntitlement(transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		// Entitlement creation has no policy rule table: management is
		// admin and developer only.
		if !b.Is(bearer.RoleAdmin, bearer.RoleDeveloper) {
			respondWithError(w, http.StatusForbidden, "Forbidden")
			return
		}

		var req entitlementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.Name == "" || req.Code == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "name and code are required")
			return
		}

		entitlement := &model.Entitlement{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Name:      req.Name,
			Code:      req.Code,
		}

		err := transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Entitlements.CreateEntitlement(entitlement); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "entitlement.created", account.ID, "entitlements", entitlement.ID, entitlement)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"entitlement": entitlement})
	}
}

func handleDeleteEntitlement(entitlements store.EntitlementsStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		if !b.Is(bearer.RoleAdmin, bearer.RoleDeveloper) {
			respondWithError(w, http.StatusForbidden, "Forbidden")
			return
		}

		entitlement, err := entitlements.FindEntitlement(account.ID, mux.Vars(r)["entitlement"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Entitlements.DeleteEntitlement(account.ID, entitlement.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "entitlement.deleted", account.ID, "entitlements", entitlement.ID, entitlement)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		w.WriteHeader(http.StatusNoContent)
	}
}

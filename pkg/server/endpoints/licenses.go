package endpoints

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/token"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// RegisterLicensesEndpoints registers the license management endpoints
func RegisterLicensesEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}/licenses").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("", handleListLicenses(s.Stores.Licenses)).Methods("GET")
	router.HandleFunc("", handleCreateLicense(s.Stores.Products, s.Stores.Users, s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/{license}", handleShowLicense(s.Stores.Licenses)).Methods("GET")
	router.HandleFunc("/{license}", handleUpdateLicense(s.Stores.Licenses, s.Bundle, s.Dispatcher)).Methods("PATCH")
	router.HandleFunc("/{license}", handleDeleteLicense(s.Stores.Licenses, s.Bundle, s.Dispatcher)).Methods("DELETE")
	router.HandleFunc("/{license}/entitlements", handleListLicenseEntitlements(s.Stores.Licenses)).Methods("GET")
	router.HandleFunc("/{license}/entitlements/{entitlement}", handleAttachEntitlement(s.Stores.Licenses, s.Stores.Entitlements, s.Bundle, s.Dispatcher)).Methods("PUT")
	router.HandleFunc("/{license}/entitlements/{entitlement}", handleDetachEntitlement(s.Stores.Licenses, s.Stores.Entitlements, s.Bundle, s.Dispatcher)).Methods("DELETE")
}

type licenseRequest struct {
	ProductID string     `json:"product_id"`
	UserID    *string    `json:"user_id"`
	Key       string     `json:"key"`
	Expiry    *time.Time `json:"expiry"`
	Suspended *bool      `json:"suspended"`
}

// scopedLicenses narrows the page to what the bearer could ever see before
// the policy's uniform-ownership guard runs. Staff see everything.
func scopedLicenses(licenses store.LicensesStore, accountID string, b bearer.Bearer) ([]model.License, error) {
	switch b.Kind {
	case bearer.KindProduct:
		if b.ID != "" {
			return licenses.ListLicensesForProduct(accountID, b.ID)
		}
	case bearer.KindUser:
		if b.Is(bearer.RoleUser) {
			return licenses.ListLicensesForUser(accountID, b.ID)
		}
	}
	return licenses.ListLicenses(accountID)
}

func handleListLicenses(licenses store.LicensesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		page, err := scopedLicenses(licenses, account.ID, b)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.LicensePolicy()
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", "")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"licenses": page})
	}
}

func handleShowLicense(licenses store.LicensesStore) http.HandlerFunc {
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

		policy := authz.LicensePolicy()
		if d := policy.Authorize(b, authz.ActionShow, *license); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", license.ID)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"license": license})
	}
}

func handleCreateLicense(products store.ProductsStore, users store.UsersStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		var req licenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.ProductID == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "product_id is required")
			return
		}

		product, err := products.FindProduct(account.ID, req.ProductID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}
		if req.UserID != nil {
			if _, err := users.FindUser(account.ID, *req.UserID); err != nil {
				respondWithStoreError(w, err)
				return
			}
		}

		key := req.Key
		if key == "" {
			key, err = token.Random()
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		license := &model.License{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			ProductID: product.ID,
			UserID:    req.UserID,
			Key:       key,
			Expiry:    req.Expiry,
		}

		policy := authz.LicensePolicy()
		if d := policy.Authorize(b, authz.ActionCreate, *license); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", "")
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Licenses.CreateLicense(license); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "license.created", account.ID, "licenses", license.ID, license)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"license": license})
	}
}

func handleUpdateLicense(licenses store.LicensesStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
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

		policy := authz.LicensePolicy()
		if d := policy.Authorize(b, authz.ActionUpdate, *license); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", license.ID)
			return
		}

		var req licenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}

		event := "license.updated"
		if req.Expiry != nil {
			license.Expiry = req.Expiry
		}
		if req.UserID != nil {
			license.UserID = req.UserID
			event = "license.user.updated"
		}
		if req.Suspended != nil && *req.Suspended != license.Suspended {
			license.Suspended = *req.Suspended
			if license.Suspended {
				event = "license.suspended"
			} else {
				event = "license.reinstated"
			}
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Licenses.UpdateLicense(license); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, event, account.ID, "licenses", license.ID, license)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"license": license})
	}
}

func handleDeleteLicense(licenses store.LicensesStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
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

		policy := authz.LicensePolicy()
		if d := policy.Authorize(b, authz.ActionDestroy, *license); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", license.ID)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Licenses.DeleteLicense(account.ID, license.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "license.deleted", account.ID, "licenses", license.ID, license)
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

func handleListLicenseEntitlements(licenses store.LicensesStore) http.HandlerFunc {
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

		// Seeing a license's entitlements requires seeing the license.
		policy := authz.LicensePolicy()
		if d := policy.Authorize(b, authz.ActionShow, *license); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", license.ID)
			return
		}

		entitlements, err := licenses.LicenseEntitlements(account.ID, license.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"entitlements": entitlements})
	}
}

func handleAttachEntitlement(licenses store.LicensesStore, entitlements store.EntitlementsStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
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
		entitlement, err := entitlements.FindEntitlement(account.ID, mux.Vars(r)["entitlement"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		// Changing a license's entitlement set is an update of the license.
		policy := authz.LicensePolicy()
		if d := policy.Authorize(b, authz.ActionUpdate, *license); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", license.ID)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Licenses.AttachEntitlement(account.ID, license.ID, entitlement.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "license.entitlements.attached", account.ID, "licenses", license.ID, map[string]interface{}{
				"license":     license,
				"entitlement": entitlement,
			})
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"entitlement": entitlement})
	}
}

func handleDetachEntitlement(licenses store.LicensesStore, entitlements store.EntitlementsStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
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
		entitlement, err := entitlements.FindEntitlement(account.ID, mux.Vars(r)["entitlement"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.LicensePolicy()
		if d := policy.Authorize(b, authz.ActionUpdate, *license); !d.Allowed() {
			respondWithDenial(w, r, b, d, "licenses", license.ID)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Licenses.DetachEntitlement(account.ID, license.ID, entitlement.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "license.entitlements.detached", account.ID, "licenses", license.ID, map[string]interface{}{
				"license":     license,
				"entitlement": entitlement,
			})
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

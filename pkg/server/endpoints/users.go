package endpoints

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/token"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// RegisterUsersEndpoints registers the user management endpoints
func RegisterUsersEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}/users").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("", handleListUsers(s.Stores.Users)).Methods("GET")
	router.HandleFunc("", handleCreateUser(s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/{user}", handleShowUser(s.Stores.Users)).Methods("GET")
	router.HandleFunc("/{user}", handleUpdateUser(s.Stores.Users, s.Bundle, s.Dispatcher)).Methods("PATCH")
	router.HandleFunc("/{user}", handleDeleteUser(s.Stores.Users, s.Bundle, s.Dispatcher)).Methods("DELETE")
	router.HandleFunc("/{user}/password-reset", handlePasswordReset(s.Bundle, s.Dispatcher)).Methods("POST")
}

type userRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

func handleListUsers(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		page, err := users.ListUsers(account.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.UserPolicy()
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "users", "")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"users": page})
	}
}

func handleShowUser(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		user, err := users.FindUser(account.ID, mux.Vars(r)["user"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.UserPolicy()
		if d := policy.Authorize(b, authz.ActionShow, *user); !d.Allowed() {
			respondWithDenial(w, r, b, d, "users", user.ID)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"user": user})
	}
}

func handleCreateUser(transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			respondWithError(w, http.StatusUnprocessableEntity, "a valid email is required")
			return
		}
		role := bearer.Role(req.Role)
		if role == bearer.RoleNone {
			role = bearer.RoleUser
		}
		if !role.Valid() || role == bearer.RoleProduct || role == bearer.RoleLicense {
			respondWithError(w, http.StatusUnprocessableEntity, "unknown role")
			return
		}

		user := &model.User{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			RoleName:  string(role),
		}
		if req.Password != "" {
			digest, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			user.PasswordDigest = string(digest)
		}

		policy := authz.UserPolicy()
		if d := policy.Authorize(b, authz.ActionCreate, *user); !d.Allowed() {
			respondWithDenial(w, r, b, d, "users", "")
			return
		}

		err := transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Users.CreateUser(user); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "user.created", account.ID, "users", user.ID, user)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
	}
}

func handleUpdateUser(users store.UsersStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		user, err := users.FindUser(account.ID, mux.Vars(r)["user"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.UserPolicy()
		if d := policy.Authorize(b, authz.ActionUpdate, *user); !d.Allowed() {
			respondWithDenial(w, r, b, d, "users", user.ID)
			return
		}

		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}

		if req.Email != "" {
			if !strings.Contains(req.Email, "@") {
				respondWithError(w, http.StatusUnprocessableEntity, "a valid email is required")
				return
			}
			user.Email = req.Email
		}
		if req.FirstName != "" {
			user.FirstName = req.FirstName
		}
		if req.LastName != "" {
			user.LastName = req.LastName
		}
		if req.Role != "" {
			// Only admins change roles, and nobody self-promotes.
			if !b.Is(bearer.RoleAdmin) {
				respondWithError(w, http.StatusForbidden, "Forbidden")
				return
			}
			role := bearer.Role(req.Role)
			if !role.Valid() || role == bearer.RoleProduct || role == bearer.RoleLicense {
				respondWithError(w, http.StatusUnprocessableEntity, "unknown role")
				return
			}
			user.RoleName = string(role)
		}
		if req.Password != "" {
			digest, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			user.PasswordDigest = string(digest)
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Users.UpdateUser(user); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "user.updated", account.ID, "users", user.ID, user)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"user": user})
	}
}

func handleDeleteUser(users store.UsersStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		user, err := users.FindUser(account.ID, mux.Vars(r)["user"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.UserPolicy()
		if d := policy.Authorize(b, authz.ActionDestroy, *user); !d.Allowed() {
			respondWithDenial(w, r, b, d, "users", user.ID)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Users.DeleteUser(account.ID, user.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "user.deleted", account.ID, "users", user.ID, user)
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

// handlePasswordReset issues a reset token for a user. The token itself
// travels to the user out of band (the webhook payload carries it for the
// account's own mailer integration); the response body never includes it.
func handlePasswordReset(transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, _, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		reset, err := token.Random()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sentAt := time.Now()

		// Always report accepted, even for unknown users, so the endpoint
		// cannot be used to probe which emails exist.
		err = transactor.Transaction(func(tx store.Stores) error {
			user, err := tx.Users.FindUser(account.ID, mux.Vars(r)["user"])
			if err != nil {
				if authz.Hidden(err) {
					return nil
				}
				return err
			}
			if err := tx.Users.SetPasswordResetToken(account.ID, user.ID, token.Digest(reset), sentAt); err != nil {
				return err
			}
			_, err = dispatcher.Record(tx.Events, "user.password-reset", account.ID, "users", user.ID, map[string]interface{}{
				"user":        user,
				"reset_token": reset,
				"sent_at":     sentAt,
			})
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusAccepted, map[string]interface{}{"status": "accepted"})
	}
}

package endpoints

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// RegisterWebhooksEndpoints registers webhook endpoint management and the
// delivery ledger.
func RegisterWebhooksEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("/webhook-endpoints", handleListWebhookEndpoints(s.Stores.Webhooks)).Methods("GET")
	router.HandleFunc("/webhook-endpoints", handleCreateWebhookEndpoint(s.Stores.Webhooks)).Methods("POST")
	router.HandleFunc("/webhook-endpoints/{endpoint}", handleShowWebhookEndpoint(s.Stores.Webhooks)).Methods("GET")
	router.HandleFunc("/webhook-endpoints/{endpoint}", handleUpdateWebhookEndpoint(s.Stores.Webhooks)).Methods("PATCH")
	router.HandleFunc("/webhook-endpoints/{endpoint}", handleDeleteWebhookEndpoint(s.Stores.Webhooks)).Methods("DELETE")
	router.HandleFunc("/webhook-events", handleListWebhookEvents(s.Stores.Webhooks)).Methods("GET")
}

type webhookEndpointRequest struct {
	URL           string   `json:"url"`
	Subscriptions []string `json:"subscriptions"`
}

// validateSubscriptions checks every requested subscription against the
// event catalog. The wildcard is always valid.
func validateSubscriptions(subscriptions []string) (string, bool) {
	if len(subscriptions) == 0 {
		return webhook.Wildcard, true
	}
	known := make(map[string]struct{}, len(webhook.EventTypes))
	for _, e := range webhook.EventTypes {
		known[e] = struct{}{}
	}
	for _, s := range subscriptions {
		if _, ok := known[s]; !ok {
			return "", false
		}
	}
	return strings.Join(subscriptions, ","), true
}

func handleListWebhookEndpoints(webhooks store.WebhooksStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		page, err := webhooks.ListEndpoints(account.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.WebhookEndpointPolicy()
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "webhook_endpoints", "")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"webhook_endpoints": page})
	}
}

func handleShowWebhookEndpoint(webhooks store.WebhooksStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		endpoint, err := webhooks.FindEndpoint(account.ID, mux.Vars(r)["endpoint"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.WebhookEndpointPolicy()
		if d := policy.Authorize(b, authz.ActionShow, *endpoint); !d.Allowed() {
			respondWithDenial(w, r, b, d, "webhook_endpoints", endpoint.ID)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"webhook_endpoint": endpoint})
	}
}

func handleCreateWebhookEndpoint(webhooks store.WebhooksStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		var req webhookEndpointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		parsed, err := url.Parse(req.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "a valid url is required")
			return
		}
		subscriptions, ok2 := validateSubscriptions(req.Subscriptions)
		if !ok2 {
			respondWithError(w, http.StatusUnprocessableEntity, "unknown event type in subscriptions")
			return
		}

		endpoint := &model.WebhookEndpoint{
			ID:            uuid.NewString(),
			AccountID:     account.ID,
			URL:           req.URL,
			Subscriptions: subscriptions,
		}

		policy := authz.WebhookEndpointPolicy()
		if d := policy.Authorize(b, authz.ActionCreate, *endpoint); !d.Allowed() {
			respondWithDenial(w, r, b, d, "webhook_endpoints", "")
			return
		}

		if err := webhooks.CreateEndpoint(endpoint); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"webhook_endpoint": endpoint})
	}
}

func handleUpdateWebhookEndpoint(webhooks store.WebhooksStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		endpoint, err := webhooks.FindEndpoint(account.ID, mux.Vars(r)["endpoint"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.WebhookEndpointPolicy()
		if d := policy.Authorize(b, authz.ActionUpdate, *endpoint); !d.Allowed() {
			respondWithDenial(w, r, b, d, "webhook_endpoints", endpoint.ID)
			return
		}

		var req webhookEndpointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.URL != "" {
			parsed, err := url.Parse(req.URL)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				respondWithError(w, http.StatusUnprocessableEntity, "a valid url is required")
				return
			}
			endpoint.URL = req.URL
		}
		if req.Subscriptions != nil {
			subscriptions, ok2 := validateSubscriptions(req.Subscriptions)
			if !ok2 {
				respondWithError(w, http.StatusUnprocessableEntity, "unknown event type in subscriptions")
				return
			}
			endpoint.Subscriptions = subscriptions
		}

		if err := webhooks.UpdateEndpoint(endpoint); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"webhook_endpoint": endpoint})
	}
}

func handleDeleteWebhookEndpoint(webhooks store.WebhooksStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		endpoint, err := webhooks.FindEndpoint(account.ID, mux.Vars(r)["endpoint"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.WebhookEndpointPolicy()
		if d := policy.Authorize(b, authz.ActionDestroy, *endpoint); !d.Allowed() {
			respondWithDenial(w, r, b, d, "webhook_endpoints", endpoint.ID)
			return
		}

		if err := webhooks.DeleteEndpoint(account.ID, endpoint.ID); err != nil {
			respondWithStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListWebhookEvents(webhooks store.WebhooksStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		// The delivery ledger shares the endpoint policy: it reveals the
		// same configuration surface.
		policy := authz.WebhookEndpointPolicy()
		if d := policy.AuthorizeAll(b, authz.ActionIndex, nil); !d.Allowed() {
			respondWithDenial(w, r, b, d, "webhook_events", "")
			return
		}

		limit, offset := listLimit(r)
		page, err := webhooks.ListEvents(account.ID, limit, offset)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"webhook_events": page})
	}
}

package endpoints

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/keylinehq/keyline/pkg/audit"
	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/config"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server/middleware"
)

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// requestContext pulls the account and bearer placed by the authenticator.
// Both are always present on authenticated routes.
func requestContext(r *http.Request) (*model.Account, bearer.Bearer, bool) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		return nil, bearer.Bearer{}, false
	}
	b, ok := middleware.BearerFromContext(r.Context())
	if !ok {
		return nil, bearer.Bearer{}, false
	}
	return account, b, true
}

// respondWithDenial audits a denied decision and maps it to a response.
// Read denials present as not-found so probing cannot confirm existence;
// write denials present as forbidden.
func respondWithDenial(w http.ResponseWriter, r *http.Request, b bearer.Bearer, d authz.Decision, resourceType, resourceID string) {
	audit.Log(audit.CheckEvent{
		BearerKind:   b.Kind.String(),
		BearerID:     b.ID,
		AccountID:    b.AccountID,
		ClientIP:     clientIP(r),
		Action:       d.Action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Allowed:      false,
		Hidden:       d.HidesExistence(),
	})

	if d.HidesExistence() {
		respondWithError(w, http.StatusNotFound, "Not found")
		return
	}
	respondWithError(w, http.StatusForbidden, "Forbidden")
}

// respondWithStoreError maps resolution errors: hidden errors present as
// not-found, everything else as an internal error.
func respondWithStoreError(w http.ResponseWriter, err error) {
	if authz.Hidden(err) {
		respondWithError(w, http.StatusNotFound, "Not found")
		return
	}
	respondWithError(w, http.StatusInternalServerError, err.Error())
}

// clientIP resolves the request origin, honoring X-Forwarded-For only when
// the peer is a configured trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if config.Get().IsTrustedProxy(host) {
			return forwarded
		}
	}
	return host
}

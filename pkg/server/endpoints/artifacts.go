package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"github.com/keylinehq/keyline/pkg/audit"
	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/bearer"
	"github.com/keylinehq/keyline/pkg/config"
	"github.com/keylinehq/keyline/pkg/dist"
	"github.com/keylinehq/keyline/pkg/model"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/store"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// RegisterArtifactsEndpoints registers the release artifact endpoints
func RegisterArtifactsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}/products/{product}/artifacts").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("", handleListArtifacts(s.Stores)).Methods("GET")
	router.HandleFunc("", handleCreateArtifact(s.Stores.Products, s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/{artifact}", handleShowArtifact(s.Stores)).Methods("GET")
	router.HandleFunc("/{artifact}", handleUpdateArtifact(s.Stores, s.Bundle, s.Dispatcher)).Methods("PATCH")
	router.HandleFunc("/{artifact}", handleDeleteArtifact(s.Stores, s.Bundle, s.Dispatcher)).Methods("DELETE")
	router.HandleFunc("/{artifact}/download", handleDownloadArtifact(s.Stores, s.Bundle, s.Dispatcher)).Methods("GET")
	router.HandleFunc("/{artifact}/yank", handleYankArtifact(s.Stores, s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/{artifact}/release-notes", handleReleaseNotes(s.Stores)).Methods("GET")
	router.HandleFunc("/{artifact}/constraints/{entitlement}", handleAttachConstraint(s.Stores, s.Bundle, s.Dispatcher)).Methods("PUT")
	router.HandleFunc("/{artifact}/constraints/{entitlement}", handleDetachConstraint(s.Stores, s.Bundle, s.Dispatcher)).Methods("DELETE")
}

// resolveAccess resolves the bearer's licensing state for one product: the
// active licenses it holds against the product and the union of their
// entitlement codes. Suspended and expired licenses grant nothing.
func resolveAccess(stores store.Stores, accountID string, b bearer.Bearer, product model.Product) ([]model.License, dist.Access, error) {
	var candidates []model.License

	switch b.Kind {
	case bearer.KindLicense:
		if b.ID != "" {
			license, err := stores.Licenses.FindLicense(accountID, b.ID)
			if err != nil {
				if authz.Hidden(err) {
					return nil, dist.NewAccess(nil, nil), nil
				}
				return nil, dist.Access{}, err
			}
			candidates = []model.License{*license}
		}
	case bearer.KindUser:
		if b.ID != "" {
			page, err := stores.Licenses.ListLicensesForUser(accountID, b.ID)
			if err != nil {
				return nil, dist.Access{}, err
			}
			candidates = page
		}
	}

	now := time.Now()
	var held []model.License
	for _, l := range candidates {
		if l.ProductID != product.ID || l.Suspended {
			continue
		}
		if l.Expiry != nil && l.Expiry.Before(now) {
			continue
		}
		held = append(held, l)
	}

	var codes []string
	for _, l := range held {
		entitlements, err := stores.Licenses.LicenseEntitlements(accountID, l.ID)
		if err != nil {
			return nil, dist.Access{}, err
		}
		for _, e := range entitlements {
			codes = append(codes, e.Code)
		}
	}

	return held, dist.NewAccess(held, codes), nil
}

// gatedArtifacts wraps artifacts with their constraints and applies the
// distribution gate. Staff and the owning product bypass the gate and see
// everything, yanked artifacts included.
func gatedArtifacts(stores store.Stores, accountID string, b bearer.Bearer, product model.Product, access dist.Access, artifacts []model.ReleaseArtifact) ([]dist.Artifact, error) {
	wrapped := make([]dist.Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		constraints, err := stores.Artifacts.ArtifactConstraints(accountID, a.ID)
		if err != nil {
			return nil, err
		}
		codes := make([]string, 0, len(constraints))
		for _, c := range constraints {
			codes = append(codes, c.Code)
		}
		wrapped = append(wrapped, dist.Artifact{ReleaseArtifact: a, RequiredEntitlements: codes})
	}

	if b.Is(bearer.RoleAdmin, bearer.RoleDeveloper, bearer.RoleSalesAgent, bearer.RoleSupportAgent, bearer.RoleReadOnly) ||
		b.SameRecord(bearer.KindProduct, product.ID) {
		return wrapped, nil
	}
	return dist.FilterArtifacts(product, access, wrapped), nil
}

func listLimit(r *http.Request) (limit, offset int) {
	max := config.Get().APIArtifactListLimitMax
	limit = max
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func handleListArtifacts(stores store.Stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		product, err := stores.Products.FindProduct(account.ID, mux.Vars(r)["product"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		held, access, err := resolveAccess(stores, account.ID, b, *product)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		limit, offset := listLimit(r)
		page, err := stores.Artifacts.ListArtifacts(account.ID, product.ID, limit, offset)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		policy := authz.ReleaseArtifactPolicy(authz.ArtifactContext{Product: *product, HeldLicenses: held})
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "release_artifacts", "")
			return
		}

		visible, err := gatedArtifacts(stores, account.ID, b, *product, access, page)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"artifacts": visible})
	}
}

// findVisibleArtifact resolves one artifact and checks both the policy and
// the distribution gate. Denials and gated-away artifacts both surface as
// not-found so probing cannot distinguish them from absence.
func findVisibleArtifact(stores store.Stores, w http.ResponseWriter, r *http.Request, account *model.Account, b bearer.Bearer) (*model.Product, *model.ReleaseArtifact, bool) {
	product, err := stores.Products.FindProduct(account.ID, mux.Vars(r)["product"])
	if err != nil {
		respondWithStoreError(w, err)
		return nil, nil, false
	}

	artifact, err := stores.Artifacts.FindArtifact(account.ID, product.ID, mux.Vars(r)["artifact"])
	if err != nil {
		respondWithStoreError(w, err)
		return nil, nil, false
	}

	held, access, err := resolveAccess(stores, account.ID, b, *product)
	if err != nil {
		respondWithStoreError(w, err)
		return nil, nil, false
	}

	policy := authz.ReleaseArtifactPolicy(authz.ArtifactContext{Product: *product, HeldLicenses: held})
	if d := policy.Authorize(b, authz.ActionShow, *artifact); !d.Allowed() {
		respondWithDenial(w, r, b, d, "release_artifacts", artifact.ID)
		return nil, nil, false
	}

	visible, err := gatedArtifacts(stores, account.ID, b, *product, access, []model.ReleaseArtifact{*artifact})
	if err != nil {
		respondWithStoreError(w, err)
		return nil, nil, false
	}
	if len(visible) == 0 {
		respondWithError(w, http.StatusNotFound, "Not found")
		return nil, nil, false
	}

	return product, artifact, true
}

func handleShowArtifact(stores store.Stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		_, artifact, ok := findVisibleArtifact(stores, w, r, account, b)
		if !ok {
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"artifact": artifact})
	}
}

func handleDownloadArtifact(stores store.Stores, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		product, artifact, ok := findVisibleArtifact(stores, w, r, account, b)
		if !ok {
			return
		}

		if artifact.DownloadURL == "" {
			respondWithError(w, http.StatusConflict, "artifact has no download location")
			return
		}

		audit.Log(audit.DownloadEvent{
			BearerKind: b.Kind.String(),
			BearerID:   b.ID,
			AccountID:  account.ID,
			ClientIP:   clientIP(r),
			ProductID:  product.ID,
			ArtifactID: artifact.ID,
			Filename:   artifact.Filename,
			Allowed:    true,
		})

		err := transactor.Transaction(func(tx store.Stores) error {
			_, err := dispatcher.Record(tx.Events, "release.downloaded", account.ID, "release_artifacts", artifact.ID, artifact)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		http.Redirect(w, r, artifact.DownloadURL, http.StatusTemporaryRedirect)
	}
}

// handleReleaseNotes renders the artifact's markdown release notes as HTML.
func handleReleaseNotes(stores store.Stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		_, artifact, ok := findVisibleArtifact(stores, w, r, account, b)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(artifact.ReleaseNotes), &buf); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

type artifactRequest struct {
	Filename     string `json:"filename"`
	Version      string `json:"version"`
	Platform     string `json:"platform"`
	ContentType  string `json:"content_type"`
	Filesize     int64  `json:"filesize"`
	DownloadURL  string `json:"download_url"`
	ReleaseNotes string `json:"release_notes"`
}

func handleCreateArtifact(products store.ProductsStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
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

		var req artifactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.Filename == "" || req.Version == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "filename and version are required")
			return
		}

		artifact := &model.ReleaseArtifact{
			ID:           uuid.NewString(),
			AccountID:    account.ID,
			ProductID:    product.ID,
			Filename:     req.Filename,
			Version:      req.Version,
			Platform:     req.Platform,
			ContentType:  req.ContentType,
			Filesize:     req.Filesize,
			DownloadURL:  req.DownloadURL,
			ReleaseNotes: req.ReleaseNotes,
		}

		policy := authz.ReleaseArtifactPolicy(authz.ArtifactContext{Product: *product})
		if d := policy.Authorize(b, authz.ActionCreate, *artifact); !d.Allowed() {
			respondWithDenial(w, r, b, d, "release_artifacts", "")
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Artifacts.CreateArtifact(artifact); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "release.created", account.ID, "release_artifacts", artifact.ID, artifact)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"artifact": artifact})
	}
}

// findManagedArtifact resolves an artifact for a management action. No
// distribution gating applies; the policy's write rules decide.
func findManagedArtifact(stores store.Stores, w http.ResponseWriter, r *http.Request, account *model.Account, b bearer.Bearer, action string) (*model.ReleaseArtifact, bool) {
	product, err := stores.Products.FindProduct(account.ID, mux.Vars(r)["product"])
	if err != nil {
		respondWithStoreError(w, err)
		return nil, false
	}

	artifact, err := stores.Artifacts.FindArtifact(account.ID, product.ID, mux.Vars(r)["artifact"])
	if err != nil {
		respondWithStoreError(w, err)
		return nil, false
	}

	policy := authz.ReleaseArtifactPolicy(authz.ArtifactContext{Product: *product})
	if d := policy.Authorize(b, action, *artifact); !d.Allowed() {
		respondWithDenial(w, r, b, d, "release_artifacts", artifact.ID)
		return nil, false
	}

	return artifact, true
}

func handleUpdateArtifact(stores store.Stores, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		artifact, ok := findManagedArtifact(stores, w, r, account, b, authz.ActionUpdate)
		if !ok {
			return
		}

		var req artifactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}

		if req.Filename != "" {
			artifact.Filename = req.Filename
		}
		if req.Version != "" {
			artifact.Version = req.Version
		}
		if req.Platform != "" {
			artifact.Platform = req.Platform
		}
		if req.ContentType != "" {
			artifact.ContentType = req.ContentType
		}
		if req.Filesize != 0 {
			artifact.Filesize = req.Filesize
		}
		if req.DownloadURL != "" {
			artifact.DownloadURL = req.DownloadURL
		}
		if req.ReleaseNotes != "" {
			artifact.ReleaseNotes = req.ReleaseNotes
		}

		err := transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Artifacts.UpdateArtifact(artifact); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "release.updated", account.ID, "release_artifacts", artifact.ID, artifact)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"artifact": artifact})
	}
}

// handleYankArtifact withdraws a release from distribution without deleting
// its record. Yanked artifacts stay visible to staff and the owning product.
func handleYankArtifact(stores store.Stores, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		artifact, ok := findManagedArtifact(stores, w, r, account, b, authz.ActionUpdate)
		if !ok {
			return
		}

		if artifact.Yanked {
			respondWithJSON(w, http.StatusOK, map[string]interface{}{"artifact": artifact})
			return
		}
		artifact.Yanked = true

		err := transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Artifacts.UpdateArtifact(artifact); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "release.yanked", account.ID, "release_artifacts", artifact.ID, artifact)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"artifact": artifact})
	}
}

func handleDeleteArtifact(stores store.Stores, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		artifact, ok := findManagedArtifact(stores, w, r, account, b, authz.ActionDestroy)
		if !ok {
			return
		}

		err := transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Artifacts.DeleteArtifact(account.ID, artifact.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "release.deleted", account.ID, "release_artifacts", artifact.ID, artifact)
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

func handleAttachConstraint(stores store.Stores, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		artifact, ok := findManagedArtifact(stores, w, r, account, b, authz.ActionUpdate)
		if !ok {
			return
		}

		entitlement, err := stores.Entitlements.FindEntitlement(account.ID, mux.Vars(r)["entitlement"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Artifacts.AttachConstraint(account.ID, artifact.ID, entitlement.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "release.updated", account.ID, "release_artifacts", artifact.ID, artifact)
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

func handleDetachConstraint(stores store.Stores, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		artifact, ok := findManagedArtifact(stores, w, r, account, b, authz.ActionUpdate)
		if !ok {
			return
		}

		entitlement, err := stores.Entitlements.FindEntitlement(account.ID, mux.Vars(r)["entitlement"])
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Artifacts.DetachConstraint(account.ID, artifact.ID, entitlement.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "release.updated", account.ID, "release_artifacts", artifact.ID, artifact)
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

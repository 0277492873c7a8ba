package endpoints

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/keylinehq/keyline/pkg/authz"
	"github.com/keylinehq/keyline/pkg/config"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/store"
)

// simpleIndexTemplate renders a PEP 503 simple index page: one anchor per
// visible artifact, linking to the authenticated download endpoint.
var simpleIndexTemplate = template.Must(template.New("simple").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>Links for {{.Package}}</title>
  </head>
  <body>
    <h1>Links for {{.Package}}</h1>
{{- range .Links}}
    <a href="{{.Href}}">{{.Filename}}</a><br/>
{{- end}}
  </body>
</html>
`))

type simpleIndexLink struct {
	Href     string
	Filename string
}

// RegisterPyPIEndpoints registers the package-manager compatible index. An
// unknown package name falls through to the configured public index so one
// index URL serves private and public packages alike.
func RegisterPyPIEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}/pypi/simple").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("/{package}/", handleSimpleIndex(s.Stores)).Methods("GET")
	router.HandleFunc("/{package}", handleSimpleIndex(s.Stores)).Methods("GET")
}

// normalizePackageName applies PEP 503 name normalization.
func normalizePackageName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !lastDash {
				b.WriteRune('-')
			}
			lastDash = true
			continue
		}
		b.WriteRune(r)
		lastDash = false
	}
	return b.String()
}

func handleSimpleIndex(stores store.Stores) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		name := normalizePackageName(mux.Vars(r)["package"])
		fallback := strings.TrimSuffix(config.Get().FallbackIndexURL, "/") + "/" + name + "/"

		product, err := stores.Products.FindProductByCode(account.ID, name)
		if err != nil {
			if authz.Hidden(err) {
				// Not one of ours; hand the request to the public index.
				http.Redirect(w, r, fallback, http.StatusTemporaryRedirect)
				return
			}
			respondWithStoreError(w, err)
			return
		}

		_, access, err := resolveAccess(stores, account.ID, b, *product)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		page, err := stores.Artifacts.ListArtifacts(account.ID, product.ID, config.Get().APIArtifactListLimitMax, 0)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		visible, err := gatedArtifacts(stores, account.ID, b, *product, access, page)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		// A known package with nothing visible to this bearer also falls
		// through, so a missing license looks identical to a missing
		// package.
		if len(visible) == 0 {
			http.Redirect(w, r, fallback, http.StatusTemporaryRedirect)
			return
		}

		links := make([]simpleIndexLink, 0, len(visible))
		for _, a := range visible {
			links = append(links, simpleIndexLink{
				Href:     "/v1/accounts/" + account.Slug + "/products/" + product.ID + "/artifacts/" + a.ID + "/download",
				Filename: a.Filename,
			})
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = simpleIndexTemplate.Execute(w, map[string]interface{}{
			"Package": name,
			"Links":   links,
		})
	}
}

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

// RegisterProductsEndpoints registers the product management endpoints
func RegisterProductsEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/v1/accounts/{account}/products").Subrouter()
	router.Use(s.Auth.Middleware)

	router.HandleFunc("", handleListProducts(s.Stores.Products)).Methods("GET")
	router.HandleFunc("", handleCreateProduct(s.Bundle, s.Dispatcher)).Methods("POST")
	router.HandleFunc("/{product}", handleShowProduct(s.Stores.Products)).Methods("GET")
	router.HandleFunc("/{product}", handleUpdateProduct(s.Stores.Products, s.Bundle, s.Dispatcher)).Methods("PATCH")
	router.HandleFunc("/{product}", handleDeleteProduct(s.Stores.Products, s.Bundle, s.Dispatcher)).Methods("DELETE")
}

type productRequest struct {
	Name                 string `json:"name"`
	Code                 string `json:"code"`
	DistributionStrategy string `json:"distribution_strategy"`
	Platforms            string `json:"platforms"`
	Metadata             string `json:"metadata"`
}

func handleListProducts(products store.ProductsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		page, err := products.ListProducts(account.ID)
		if err != nil {
			respondWithStoreError(w, err)
			return
		}

		// Product bearers see a page narrowed to their own record before the
		// uniform-ownership guard runs.
		if b.Kind == bearer.KindProduct {
			narrowed := page[:0]
			for _, p := range page {
				if p.ID == b.ID {
					narrowed = append(narrowed, p)
				}
			}
			page = narrowed
		}

		policy := authz.ProductPolicy()
		if d := policy.AuthorizeAll(b, authz.ActionIndex, page); !d.Allowed() {
			respondWithDenial(w, r, b, d, "products", "")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"products": page})
	}
}

func handleShowProduct(products store.ProductsStore) http.HandlerFunc {
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

		policy := authz.ProductPolicy()
		if d := policy.Authorize(b, authz.ActionShow, *product); !d.Allowed() {
			respondWithDenial(w, r, b, d, "products", product.ID)
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"product": product})
	}
}

func handleCreateProduct(transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, b, ok := requestContext(r)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "missing request identity")
			return
		}

		var req productRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
		if req.Name == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "name is required")
			return
		}
		strategy := req.DistributionStrategy
		if strategy == "" {
			strategy = model.DistributionLicensed
		}
		if strategy != model.DistributionOpen && strategy != model.DistributionLicensed {
			respondWithError(w, http.StatusUnprocessableEntity, "unknown distribution strategy")
			return
		}

		product := &model.Product{
			ID:                   uuid.NewString(),
			AccountID:            account.ID,
			Name:                 req.Name,
			Code:                 req.Code,
			DistributionStrategy: strategy,
			Platforms:            req.Platforms,
			Metadata:             req.Metadata,
		}

		policy := authz.ProductPolicy()
		if d := policy.Authorize(b, authz.ActionCreate, *product); !d.Allowed() {
			respondWithDenial(w, r, b, d, "products", "")
			return
		}

		err := transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Products.CreateProduct(product); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "product.created", account.ID, "products", product.ID, product)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusCreated, map[string]interface{}{"product": product})
	}
}

func handleUpdateProduct(products store.ProductsStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
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

		policy := authz.ProductPolicy()
		if d := policy.Authorize(b, authz.ActionUpdate, *product); !d.Allowed() {
			respondWithDenial(w, r, b, d, "products", product.ID)
			return
		}

		var req productRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Malformed request body")
			return
		}

		if req.Name != "" {
			product.Name = req.Name
		}
		if req.Code != "" {
			product.Code = req.Code
		}
		if req.DistributionStrategy != "" {
			if req.DistributionStrategy != model.DistributionOpen && req.DistributionStrategy != model.DistributionLicensed {
				respondWithError(w, http.StatusUnprocessableEntity, "unknown distribution strategy")
				return
			}
			product.DistributionStrategy = req.DistributionStrategy
		}
		if req.Platforms != "" {
			product.Platforms = req.Platforms
		}
		if req.Metadata != "" {
			product.Metadata = req.Metadata
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Products.UpdateProduct(product); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "product.updated", account.ID, "products", product.ID, product)
			return err
		})
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dispatcher.Notify()

		respondWithJSON(w, http.StatusOK, map[string]interface{}{"product": product})
	}
}

func handleDeleteProduct(products store.ProductsStore, transactor store.Transactor, dispatcher *webhook.Dispatcher) http.HandlerFunc {
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

		policy := authz.ProductPolicy()
		if d := policy.Authorize(b, authz.ActionDestroy, *product); !d.Allowed() {
			respondWithDenial(w, r, b, d, "products", product.ID)
			return
		}

		err = transactor.Transaction(func(tx store.Stores) error {
			if err := tx.Products.DeleteProduct(account.ID, product.ID); err != nil {
				return err
			}
			_, err := dispatcher.Record(tx.Events, "product.deleted", account.ID, "products", product.ID, product)
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

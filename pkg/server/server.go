package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/keylinehq/keyline/pkg/config"
	"github.com/keylinehq/keyline/pkg/server/middleware"
	"github.com/keylinehq/keyline/pkg/server/store"
	storegorm "github.com/keylinehq/keyline/pkg/server/store/gorm"
	"github.com/keylinehq/keyline/pkg/webhook"
)

type Server struct {
	Router     *mux.Router
	DB         *gorm.DB
	Bundle     *storegorm.Bundle
	Stores     store.Stores
	Auth       *middleware.Authenticator
	Dispatcher *webhook.Dispatcher
	Config     *config.KeylineConfig
	srv        *http.Server
}

func NewServer(
	db *gorm.DB,
	cfg *config.KeylineConfig,
	host string,
	port string,
) *Server {
	bundle := storegorm.NewBundle(db)
	stores := bundle.Stores()

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Router:     router,
		DB:         db,
		Bundle:     bundle,
		Stores:     stores,
		Auth:       middleware.NewAuthenticator(stores.Accounts, stores.Tokens, stores.Users, nil),
		Dispatcher: webhook.NewDispatcher(),
		Config:     cfg,
		srv:        srv,
	}
}

func (s Server) Start() error {
	return s.srv.ListenAndServe()
}

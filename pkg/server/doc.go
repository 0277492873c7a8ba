// Package server provides the HTTP server for the Keyline API.
//
// This package implements the core HTTP server that handles all Keyline REST
// API requests. It uses gorilla/mux for routing and provides middleware for
// authentication and request handling.
//
// # Server Setup
//
//	srv := server.NewServer(db, cfg, host, port)
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Components
//
// The Server struct holds:
//
//   - Router: HTTP request router
//   - DB: Database connection
//   - Stores: Storage interfaces bound to the root connection
//   - Auth: Bearer token authentication middleware
//   - Dispatcher: Webhook event recorder
//
// # Endpoints
//
// API endpoints are registered via the endpoints subpackage:
//
//	endpoints.RegisterAll(srv)
//
// This registers all Keyline API endpoints including:
//
//   - /v1/accounts/{account}/products - Product management
//   - /v1/accounts/{account}/licenses - License management
//   - /v1/accounts/{account}/products/{product}/artifacts - Release artifacts
//   - /v1/accounts/{account}/pypi/simple/{package}/ - Package index
//   - /v1/accounts/{account}/webhook-endpoints - Webhook subscribers
//   - /v1/accounts/{account}/tokens - Token issuance
package server

package main

import (
	"net/http"

	httphandlers "finlink/internal/interfaces/http"
	"finlink/internal/shared/config"
	"finlink/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Sync triggers
	mux.HandleFunc("/api/users/{userID}/sync", deps.SyncHandler.HandleSyncUser)
	mux.HandleFunc("/api/users/{userID}/sync/login", deps.SyncHandler.HandleLoginSync)

	// Synced data
	mux.HandleFunc("/api/users/{userID}/accounts", deps.AccountHandler.HandleListAccounts)
	mux.HandleFunc("/api/users/{userID}/accounts/{id}", deps.AccountHandler.HandleAccountByID)
	mux.HandleFunc("/api/users/{userID}/transactions", deps.TransactionHandler.HandleListTransactions)

	// Push device tokens
	mux.HandleFunc("/api/users/{userID}/devices", deps.NotificationHandler.HandleRegisterDevice)
	mux.HandleFunc("/api/devices/{token}", deps.NotificationHandler.HandleUnregisterDevice)

	// Apply global middleware
	var handler http.Handler = mux
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}
	handler = middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(handler))

	return handler
}

package main

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nesohq/krakens/aggregator"
	"github.com/nesohq/krakens/handlers"
	"github.com/nesohq/krakens/middleware"
	"github.com/nesohq/krakens/ratelimit"
	"github.com/nesohq/krakens/tracker"
)

func SetupRouter(db *sql.DB, limiter *ratelimit.Limiter, sessions *tracker.Sessions, agg *aggregator.Aggregator, locator tracker.Locator) *mux.Router {

	router := mux.NewRouter()

	// ingestion route (authenticated by API key, not by user token)
	router.HandleFunc("/api/track", handlers.TrackBeacon(db, limiter, sessions, agg, locator)).Methods("POST")

	// stats routes
	router.Handle("/api/stats/realtime/{domainId}", middleware.AuthMiddleware(middleware.DomainOwnerMiddleware(db)(handlers.GetRealtimeStats(sessions, agg)))).Methods("GET")
	router.Handle("/api/stats/overview/{domainId}", middleware.AuthMiddleware(middleware.DomainOwnerMiddleware(db)(handlers.GetOverviewStats(agg)))).Methods("GET")

	// user routes
	router.HandleFunc("/api/user", handlers.CreateUser(db)).Methods("POST")
	router.HandleFunc("/api/user/login", handlers.Login(db)).Methods("POST")
	router.HandleFunc("/api/user/refresh-token", handlers.RefreshToken(db)).Methods("POST")

	// domain routes
	router.Handle("/api/domain", middleware.AuthMiddleware(handlers.CreateDomain(db))).Methods("POST")
	router.Handle("/api/domains", middleware.AuthMiddleware(handlers.GetUserDomains(db))).Methods("GET")
	router.Handle("/api/domain/{domainId}", middleware.AuthMiddleware(middleware.DomainOwnerMiddleware(db)(handlers.GetDomain(db)))).Methods("GET")
	router.Handle("/api/domain/{domainId}/settings", middleware.AuthMiddleware(middleware.DomainOwnerMiddleware(db)(handlers.UpdateDomainSettings(db)))).Methods("PUT")
	router.Handle("/api/domain/{domainId}", middleware.AuthMiddleware(middleware.DomainOwnerMiddleware(db)(handlers.DeleteDomain(db)))).Methods("DELETE")

	// api key routes
	router.Handle("/api/key", middleware.AuthMiddleware(handlers.CreateAPIKey(db))).Methods("POST")
	router.Handle("/api/keys", middleware.AuthMiddleware(handlers.GetUserAPIKeys(db))).Methods("GET")
	router.Handle("/api/key/{keyId}/revoke", middleware.AuthMiddleware(handlers.RevokeAPIKey(db))).Methods("PUT")

	// operational routes
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	return router
}

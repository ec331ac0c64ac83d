package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"github.com/nesohq/krakens/aggregator"
	"github.com/nesohq/krakens/db"
	"github.com/nesohq/krakens/ratelimit"
	"github.com/nesohq/krakens/tracker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	// db initialization
	postgres, err := db.CreatePostgresConnection()
	if err != nil {
		log.Fatal(err)
	}
	defer postgres.Close()

	// GeoIP is optional; without it every event gets country "Unknown".
	var locator tracker.Locator
	geoip, err := db.CreateGeoIPConnection()
	if err != nil {
		log.Println("GeoIP unavailable, countries will be Unknown:", err)
	} else {
		defer geoip.Close()
		locator = &tracker.GeoLocator{Reader: geoip}
	}

	// The live pipeline keeps all aggregate state in memory. A restart
	// starts the counters over; that's the deal for this layer.
	agg := aggregator.New()
	sessions := tracker.NewSessions(agg)
	limiter := ratelimit.NewLimiter()

	stop := make(chan struct{})
	defer close(stop)
	sessions.StartSweeping(time.Second, stop)
	limiter.StartPruning(time.Minute, stop)
	agg.StartPruning(time.Minute, stop)

	// router
	router := SetupRouter(postgres, limiter, sessions, agg, locator)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	address := fmt.Sprintf(":%s", port)

	log.Printf("Server is listening on port %s...\n", port)

	err = http.ListenAndServe(address, handlers.CORS( // cors config
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key"}),
	)(router))
	if err != nil {
		log.Fatalf("Failed to start server: %v\n", err)
	}
}

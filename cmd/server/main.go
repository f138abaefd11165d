package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/server"
	"cluster-tour-router/internal/tour"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if _, err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	log.Printf("Received signal %v, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// loadConfig reads the config file for defaults and lets environment
// variables override them
func loadConfig() (server.Config, error) {
	fileCfg, err := database.LoadConfig(os.Getenv("TOUR_CONFIG_FILE"))
	if err != nil {
		return server.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	policy := tour.DefaultPolicy()
	policy.TravelMode = getEnv("TOUR_TRAVEL_MODE", policy.TravelMode)
	policy.SentinelHigh = getEnvFloat("TOUR_SENTINEL_HIGH", policy.SentinelHigh)
	policy.PenaltyInterCluster = getEnvFloat("TOUR_PENALTY_INTERCLUSTER", policy.PenaltyInterCluster)
	policy.PenaltyWeight = getEnvFloat("TOUR_PENALTY_WEIGHT", policy.PenaltyWeight)
	policy.LinkingCost = getEnvFloat("TOUR_LINKING_MINUTES", policy.LinkingCost)
	policy.ReturnLinkingCost = getEnvFloat("TOUR_RETURN_LINKING_MINUTES", policy.ReturnLinkingCost)
	policy.FallbackLocalMinutes = getEnvFloat("TOUR_FALLBACK_LOCAL_MINUTES", policy.FallbackLocalMinutes)

	return server.Config{
		Addr:             getEnv("SERVER_ADDR", "127.0.0.1:8080"),
		Provider:         getEnv("TOUR_PROVIDER", server.ProviderOSRM),
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		GoogleBaseURL:    os.Getenv("GOOGLE_MAPS_BASE_URL"),
		OSRMBaseURL:      os.Getenv("OSRM_BASE_URL"),
		NominatimBaseURL: os.Getenv("NOMINATIM_BASE_URL"),
		NetworkFile:      getEnv("TOUR_NETWORK_FILE", fileCfg.NetworkFile),
		CacheDB:          getEnv("TOUR_CACHE_DB", fileCfg.CacheDBPath),
		Policy:           policy,
		Solver: tour.PlanOptions{
			ForceLink:     os.Getenv("TOUR_FORCE_LINK"),
			MaxIterations: getEnvInt("SOLVER_MAX_ITERATIONS", 0),
		},
		SolveOnStart:    getEnvBool("TOUR_SOLVE_ON_START", true),
		SolverTimeLimit: getEnvDuration("SOLVER_TIME_LIMIT", 0),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("[WARN] Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return f
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[WARN] Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[WARN] Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[WARN] Ignoring invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return b
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/distance"
	"cluster-tour-router/internal/geocoding"
	"cluster-tour-router/internal/handlers"
	"cluster-tour-router/internal/sqlite"
	"cluster-tour-router/internal/tour"
)

// Travel-time providers
const (
	ProviderOSRM   = "osrm"
	ProviderGoogle = "google"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	db         database.DataStore
	listener   net.Listener
	addr       string
	solve      bool
}

// Config holds server configuration
type Config struct {
	Addr string // e.g., "127.0.0.1:8080" or "127.0.0.1:0" for random port

	Provider         string
	GoogleAPIKey     string
	GoogleBaseURL    string
	OSRMBaseURL      string
	NominatimBaseURL string

	// NetworkFile is a JSON node set; empty serves the built-in network.
	NetworkFile string
	// CacheDB is a SQLite path, a .json file cache path, or
	// database.CacheDisabledPath for an in-memory cache.
	CacheDB string

	Policy       tour.Policy
	Solver       tour.PlanOptions
	SolveOnStart bool

	// SolverTimeLimit bounds one MILP solve; zero keeps the engine default.
	SolverTimeLimit time.Duration
}

// New creates and initializes a new server (does not start it)
func New(cfg Config) (*Server, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cost policy: %w", err)
	}

	log.Printf("Initializing provider cache...")
	db, travelCache, err := openCache(cfg.CacheDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider cache: %w", err)
	}

	log.Printf("Loading network...")
	network, err := database.NewNetworkStore(cfg.NetworkFile)
	if err != nil {
		closeStore(db)
		return nil, fmt.Errorf("failed to load network: %w", err)
	}

	provider, directions, geocoder, err := newProviders(cfg, travelCache)
	if err != nil {
		closeStore(db)
		return nil, err
	}

	var geocodeCache database.GeocodeCacheRepository
	if db != nil {
		geocodeCache = db.GeocodeCache()
	}
	coords := geocoding.NewCoordinateCache(geocoder, geocodeCache)

	planner := tour.NewPlanner(provider, directions, coords, cfg.Policy)
	if cfg.SolverTimeLimit > 0 {
		planner.Solver.TimeLimit = cfg.SolverTimeLimit
	}

	handler := &handlers.Handler{
		DB:       db,
		Network:  network,
		Planner:  planner,
		Sessions: handlers.NewTourSessionStore(handlers.DefaultSessionLimit),
		Defaults: cfg.Solver,
	}

	mux := setupRoutes(handler)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      loggingMiddleware(corsMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		db:         db,
		addr:       cfg.Addr,
		solve:      cfg.SolveOnStart,
	}, nil
}

// openCache selects the provider-result cache. The DataStore is nil unless
// the SQLite store is used.
func openCache(path string) (database.DataStore, database.TravelTimeCacheRepository, error) {
	switch {
	case path == database.CacheDisabledPath:
		cache, err := database.NewFileTravelTimeCache("")
		return nil, cache, err
	case strings.HasSuffix(path, ".json"):
		cache, err := database.NewFileTravelTimeCache(path)
		return nil, cache, err
	}

	if path == "" {
		var err error
		if path, err = database.GetDefaultCacheDBPath(); err != nil {
			return nil, nil, err
		}
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, nil, err
	}
	return store, store.TravelTimeCache(), nil
}

func newProviders(cfg Config, cache database.TravelTimeCacheRepository) (tour.TravelTimeProvider, tour.DirectionsProvider, geocoding.Geocoder, error) {
	switch cfg.Provider {
	case ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, nil, nil, errors.New("GOOGLE_API_KEY is required for the google provider")
		}
		log.Printf("Using Google Maps provider")
		p := distance.NewGoogleProvider(cfg.GoogleBaseURL, cfg.GoogleAPIKey, cache)
		return p, p, geocoding.NewGoogleGeocoder(cfg.GoogleBaseURL, cfg.GoogleAPIKey), nil
	case ProviderOSRM, "":
		log.Printf("Using OSRM provider: base_url=%s", orDefault(cfg.OSRMBaseURL, distance.DefaultOSRMBaseURL))
		p := distance.NewOSRMProvider(cfg.OSRMBaseURL, cache)
		return p, p, geocoding.NewNominatimGeocoder(cfg.NominatimBaseURL), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown travel time provider %q", cfg.Provider)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func closeStore(db database.DataStore) {
	if db != nil {
		db.Close()
	}
}

// Handler returns the HTTP handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	if s.solve {
		go s.solveOnStart()
	}

	return actualAddr, nil
}

func (s *Server) solveOnStart() {
	log.Printf("[PLAN] Solving initial tour")
	if _, err := s.handler.Solve(context.Background(), s.handler.Defaults); err != nil {
		log.Printf("[ERROR] Initial tour solve failed: %v", err)
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// setupRoutes configures all HTTP routes
func setupRoutes(handler *handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", method(http.MethodGet, handler.HandleHealthCheck))
	mux.HandleFunc("/api/v1/network", method(http.MethodGet, handler.HandleGetNetwork))
	mux.HandleFunc("/api/v1/network/reload", method(http.MethodPost, handler.HandleReloadNetwork))
	mux.HandleFunc("/api/v1/tour", method(http.MethodGet, handler.HandleGetTour))
	mux.HandleFunc("/api/v1/tour/solve", method(http.MethodPost, handler.HandleSolveTour))
	mux.HandleFunc("/api/v1/tour/runs", method(http.MethodGet, handler.HandleListTourRuns))
	mux.HandleFunc("/api/v1/cache", method(http.MethodDelete, handler.HandleClearCache))

	mux.HandleFunc("/api/v1/tour/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/tour/runs/" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.HandleGetTourRun(w, r)
	})

	return mux
}

func method(allowed string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != allowed {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("[HTTP] %s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Only allow localhost origins
		if origin == "" ||
			strings.HasPrefix(origin, "http://localhost:") ||
			strings.HasPrefix(origin, "http://127.0.0.1:") {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Package main provides the simulation API server:
// - POST /simulate runs a Monte Carlo simulation for a portfolio
// - GET /status reports run counters and the most recent runs
// - GET /health and GET /metrics for operations
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"portfolio-risk-lab/internal/domain"
	"portfolio-risk-lab/internal/linalg"
	"portfolio-risk-lab/internal/marketdata"
	"portfolio-risk-lab/internal/observability"
	"portfolio-risk-lab/internal/simulation"
	"portfolio-risk-lab/internal/storage"
	chstore "portfolio-risk-lab/internal/storage/clickhouse"
	"portfolio-risk-lab/internal/storage/memory"
	"portfolio-risk-lab/internal/storage/migrations"
	pgstore "portfolio-risk-lab/internal/storage/postgres"
)

// Server holds the API server components.
type Server struct {
	runner   *simulation.Runner
	runStore storage.RunStore
	logger   *log.Logger

	// State
	mu          sync.Mutex
	started     time.Time
	runs        int
	failures    int
	lastRunAt   time.Time
	lastRunID   string
	runInFlight bool
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("SERVER_ADDR", ":8080"), "HTTP listen address")
	dataBaseURL := flag.String("data-base-url", os.Getenv("MARKET_DATA_BASE_URL"), "Market data API base URL")
	apiToken := flag.String("api-token", os.Getenv("MARKET_DATA_API_TOKEN"), "Market data API token")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	workers := flag.Int("workers", 0, "Simulation worker count (0 = one per CPU)")
	windowStart := flag.String("window-start", "", "Historical window start date (YYYY-MM-DD)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *dataBaseURL == "" {
		logger.Fatal("--data-base-url is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	start := marketdata.DefaultWindowStart
	if *windowStart != "" {
		parsed, err := time.Parse("2006-01-02", *windowStart)
		if err != nil {
			logger.Fatalf("Invalid --window-start: %v", err)
		}
		start = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	runStore, barStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Provider chain: HTTP client wrapped in the bar cache
	httpProvider := marketdata.NewHTTPClient(*dataBaseURL, marketdata.WithAPIToken(*apiToken))
	provider := marketdata.NewCachedProvider(httpProvider, barStore)

	runner := simulation.NewRunner(simulation.RunnerOptions{
		Provider:    provider,
		RunStore:    runStore,
		Logger:      log.New(os.Stdout, "[simulation] ", log.LstdFlags|log.Lshortfile),
		Workers:     *workers,
		WindowStart: start,
	})

	server := &Server{
		runner:   runner,
		runStore: runStore,
		logger:   logger,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/simulate", server.handleSimulate)
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: mux,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the run and bar stores, running migrations for
// the database-backed pair.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.RunStore, storage.BarStore, func(), error) {
	if useMemory {
		return memory.NewRunStore(), memory.NewBarStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return pgstore.NewRunStore(pool), chstore.NewBarStore(chConn), cleanup, nil
}

// ErrorResponse is the JSON body returned on request failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleSimulate runs one simulation request.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req domain.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	s.mu.Lock()
	s.runInFlight = true
	s.mu.Unlock()

	start := time.Now()
	summary, err := s.runner.Run(r.Context(), &req)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.runInFlight = false
	s.runs++
	s.lastRunAt = time.Now()
	if err != nil {
		s.failures++
	} else {
		s.lastRunID = summary.RunID
	}
	s.mu.Unlock()

	if err != nil {
		observability.RecordRun("error", elapsed.Seconds())
		s.logger.Printf("Simulation failed: %v", err)
		writeError(w, statusForError(err), err.Error())
		return
	}

	observability.RecordRun("success", elapsed.Seconds())
	observability.RecordRunShape(len(req.Positions), summary.HorizonDays, summary.Trials)
	observability.MarkSuccessfulRun(time.Now().Unix())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// statusForError maps run failures onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, marketdata.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNumerical), errors.Is(err, linalg.ErrNotPositiveDefinite):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string                  `json:"status"`
	Uptime      string                  `json:"uptime"`
	Runs        int                     `json:"runs"`
	Failures    int                     `json:"failures"`
	RunInFlight bool                    `json:"run_in_flight"`
	LastRunAt   time.Time               `json:"last_run_at,omitempty"`
	LastRunID   string                  `json:"last_run_id,omitempty"`
	RecentRuns  []*domain.SimulationRun `json:"recent_runs,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Runs:        s.runs,
		Failures:    s.failures,
		RunInFlight: s.runInFlight,
		LastRunAt:   s.lastRunAt,
		LastRunID:   s.lastRunID,
	}
	s.mu.Unlock()

	if recent, err := s.runStore.GetRecent(r.Context(), 10); err == nil {
		resp.RecentRuns = recent
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

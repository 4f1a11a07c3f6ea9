package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	nethttp "net/http"
	"strconv"
	"time"

	"go-ndr-export-dashboard/internal/config"
	emrstore "go-ndr-export-dashboard/internal/connectors/emr"
	mysqlstore "go-ndr-export-dashboard/internal/connectors/mysql"
	ndrsvcstore "go-ndr-export-dashboard/internal/connectors/ndrsvc"
	presetstore "go-ndr-export-dashboard/internal/connectors/presets"
	"go-ndr-export-dashboard/internal/dashboard"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer   *nethttp.Server
	mysqlStore   *mysqlstore.Store
	presetsStore *presetstore.Store
	emrClient    *emrstore.Client
	prober       *ndrsvcstore.Prober
	dash         *dashboard.Dashboard
	pollCancel   context.CancelFunc
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config) (*Server, error) {
	var store *mysqlstore.Store
	if cfg.DBEnabled {
		createdStore, err := mysqlstore.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		store = createdStore
	}
	var presets *presetstore.Store
	if cfg.PresetsSQLitePath != "" {
		createdStore, err := presetstore.NewSQLiteStore(cfg.PresetsSQLitePath)
		if err != nil {
			return nil, err
		}
		presets = createdStore
	}

	emrClient := emrstore.NewClient(cfg.EMRBaseURL, cfg.EMRTimeout)
	prober := ndrsvcstore.NewProber(cfg.NDRPingURL, cfg.NDRPingTimeout)

	dash := dashboard.New(emrClient, cfg.PollInterval, cfg.DefaultFromDate, resolveLastRunDate(cfg, store))

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardPageHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/api/v1/dashboard", dashboardStateHandler(dash))
	mux.HandleFunc("/api/v1/dashboard/refresh", dashboardRefreshHandler(dash))
	mux.HandleFunc("/api/v1/dashboard/custom", customToggleHandler(dash))
	mux.HandleFunc("/api/v1/files/", fileActionRouter(dash, emrClient))
	mux.HandleFunc("/api/v1/export", exportHandler(dash))
	mux.HandleFunc("/api/v1/format", formatHandler(dash))
	mux.HandleFunc("/api/v1/auth", authHandler(dash))
	mux.HandleFunc("/api/v1/push-batch", pushBatchHandler(emrClient))
	mux.HandleFunc("/api/v1/presets", presetsHandler(presets))
	mux.HandleFunc("/api/v1/presets/", presetDetailHandler(presets))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(store, emrClient, prober))
	mux.HandleFunc("/api/v1/settings/export-defaults", exportDefaultsHandler(cfg))

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer:   httpServer,
		mysqlStore:   store,
		presetsStore: presets,
		emrClient:    emrClient,
		prober:       prober,
		dash:         dash,
	}, nil
}

// resolveLastRunDate reads ndr_last_run_date from the host database when that
// integration is enabled, falling back to the configured value otherwise.
func resolveLastRunDate(cfg config.Config, store *mysqlstore.Store) string {
	if store == nil {
		return cfg.LastRunDateFallback
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	lastRun, err := store.LastRunDate(ctx)
	recordDBQuery("openmrs", "LastRunDate", time.Since(start).Seconds(), err)
	if err != nil {
		log.Printf("reading ndr_last_run_date: %v", err)
		return cfg.LastRunDateFallback
	}
	if lastRun == "" {
		return cfg.LastRunDateFallback
	}
	return lastRun
}

// ListenAndServe starts the HTTP server and the background list poller.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	s.dash.StartPolling(ctx)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.pollCancel != nil {
		s.pollCancel()
	}
	s.dash.StopPolling()
	if s.mysqlStore != nil {
		_ = s.mysqlStore.Close()
	}
	if s.presetsStore != nil {
		_ = s.presetsStore.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ready",
	})
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		fmt.Printf("%s %s %s %s\n", r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

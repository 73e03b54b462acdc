// Package api serves the oracle feeds over a read-only JSON API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"priceconverter/oracle/common"
	"priceconverter/oracle/feeds"
	"priceconverter/oracle/format"
)

// ApiError defines the structure for standard JSON error responses
type ApiError struct {
	Code    string `json:"code"`    // e.g., "INVALID_FEED", "INTERNAL_ERROR"
	Message string `json:"message"` // User-friendly error message
}

// Define error codes
const (
	ErrCodeInvalidFeed      = "INVALID_FEED"
	ErrCodePriceFetchFailed = "PRICE_FETCH_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// writeJsonError is a helper to write standardized JSON errors
func writeJsonError(w http.ResponseWriter, statusCode int, errCode string, message string) {
	writeJson(w, statusCode, map[string]ApiError{"error": {Code: errCode, Message: message}})
}

func writeJson(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// FeedResponse is the body of a successful price request.
type FeedResponse struct {
	Feed      string `json:"feed"`
	Label     string `json:"label"`
	Operation string `json:"operation"`
	Price     string `json:"price"`
	RawPrice  string `json:"rawPrice"`
	Timestamp string `json:"timestamp"`
	Display   string `json:"display"`
}

// Options configures a Server.
type Options struct {
	CORSOrigins []string
	Logger      *zap.Logger
	// Registry receives the server's metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server represents the API server
type Server struct {
	router    *mux.Router
	fetcher   feeds.Fetcher
	formatter *format.Formatter
	logger    *zap.Logger
	origins   []string

	registry *prometheus.Registry
	reads    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewServer creates a new API server
func NewServer(fetcher feeds.Fetcher, formatter *format.Formatter, opts Options) *Server {
	if formatter == nil {
		formatter = format.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		router:    mux.NewRouter(),
		fetcher:   fetcher,
		formatter: formatter,
		logger:    logger,
		origins:   origins,
		registry:  registry,
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "priceconverter",
			Name:      "feed_reads_total",
			Help:      "Feed reads by feed and result.",
		}, []string{"feed", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "priceconverter",
			Name:      "feed_read_duration_seconds",
			Help:      "Latency of feed reads against the ledger.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
	}
	registry.MustRegister(s.reads, s.latency)

	s.routes()
	return s
}

// routes sets up the API routes
func (s *Server) routes() {
	s.router.HandleFunc("/api/v1/feeds", s.handleListFeeds()).Methods("GET")
	s.router.HandleFunc("/api/v1/prices", s.handleGetAllPrices()).Methods("GET")
	s.router.HandleFunc("/api/v1/prices/{feed}", s.handleGetPrice()).Methods("GET")
	s.router.HandleFunc("/api/v1/health", s.handleHealth()).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// handleListFeeds lists the feeds the contract exposes
func (s *Server) handleListFeeds() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type feed struct {
			Feed      string `json:"feed"`
			Label     string `json:"label"`
			Operation string `json:"operation"`
		}
		list := make([]feed, 0, len(common.Queries))
		for _, q := range common.Queries {
			list = append(list, feed{Feed: q.Slug, Label: q.Label, Operation: q.Operation})
		}
		writeJson(w, http.StatusOK, map[string]interface{}{"feeds": list})
	}
}

// handleGetPrice reads one feed and returns the formatted price
func (s *Server) handleGetPrice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.ToLower(mux.Vars(r)["feed"])

		spec, ok := common.QueryBySlug(slug)
		if !ok {
			writeJsonError(w, http.StatusNotFound, ErrCodeInvalidFeed,
				fmt.Sprintf("Unknown feed '%s'. See /api/v1/feeds.", slug))
			return
		}

		round, err := s.fetch(r.Context(), spec)
		if err != nil {
			writeJsonError(w, http.StatusBadGateway, ErrCodePriceFetchFailed,
				fmt.Sprintf("Failed to read '%s' from the ledger.", spec.Label))
			return
		}
		writeJson(w, http.StatusOK, s.feedResponse(spec, round))
	}
}

// handleGetAllPrices reads every feed concurrently. Failed feeds are listed
// under "errors" and do not fail the request unless every read failed.
func (s *Server) handleGetAllPrices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readings := feeds.Snapshot(r.Context(), fetcherFunc(s.fetch), common.Queries)

		prices := make([]FeedResponse, 0, len(readings))
		failures := make(map[string]ApiError)
		for _, reading := range readings {
			if reading.Err != nil {
				failures[reading.Spec.Slug] = ApiError{
					Code:    ErrCodePriceFetchFailed,
					Message: fmt.Sprintf("Failed to read '%s' from the ledger.", reading.Spec.Label),
				}
				continue
			}
			prices = append(prices, s.feedResponse(reading.Spec, reading.Round))
		}

		if len(prices) == 0 && len(readings) > 0 {
			writeJsonError(w, http.StatusBadGateway, ErrCodePriceFetchFailed, "Failed to read any feed from the ledger.")
			return
		}
		writeJson(w, http.StatusOK, map[string]interface{}{
			"prices": prices,
			"errors": failures,
		})
	}
}

type fetcherFunc func(ctx context.Context, spec common.QuerySpec) (feeds.RoundData, error)

func (f fetcherFunc) Fetch(ctx context.Context, spec common.QuerySpec) (feeds.RoundData, error) {
	return f(ctx, spec)
}

// fetch reads one feed and records its metrics.
func (s *Server) fetch(ctx context.Context, spec common.QuerySpec) (feeds.RoundData, error) {
	start := time.Now()
	round, err := s.fetcher.Fetch(ctx, spec)
	s.latency.WithLabelValues(spec.Slug).Observe(time.Since(start).Seconds())
	if err != nil {
		s.reads.WithLabelValues(spec.Slug, "error").Inc()
		s.logger.Warn("Feed read failed",
			zap.String("feed", spec.Slug),
			zap.String("operation", spec.Operation),
			zap.Error(err))
		return feeds.RoundData{}, err
	}
	s.reads.WithLabelValues(spec.Slug, "ok").Inc()
	return round, nil
}

func (s *Server) feedResponse(spec common.QuerySpec, round feeds.RoundData) FeedResponse {
	return FeedResponse{
		Feed:      spec.Slug,
		Label:     spec.Label,
		Operation: spec.Operation,
		Price:     format.Price(round.RawPrice),
		RawPrice:  round.RawPrice.String(),
		Timestamp: format.Timestamp(round.RawTimestamp).UTC().Format(time.RFC3339),
		Display:   s.formatter.Format(round.RawPrice, round.RawTimestamp),
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("API server stopped")
		return nil
	}
}

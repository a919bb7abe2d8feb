// Package api serves read-only leaderboard queries over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
	"github.com/okian/flatboard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default paging limits.
const (
	DefaultPageSize    = 10
	DefaultMaxPageSize = 100
)

// Dependencies required by HTTP handlers. The Database façade satisfies it.
type Dependencies interface {
	ReadLeaderboardPage(ctx context.Context, skill model.Skill, page, size int) []types.PlayerStat
	ReadRanks(ctx context.Context, name string) map[model.Skill]int
}

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler      *HealthHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
}

// Option configures a Server.
type Option func(*options)

type options struct {
	maxPageSize int
}

// WithMaxPageSize caps the size query parameter of leaderboard requests.
func WithMaxPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPageSize = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{maxPageSize: DefaultMaxPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		leaderboardHandler: NewLeaderboardHandler(deps, o.maxPageSize),
		rankHandler:        NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/leaderboard/", MetricsMiddleware(s.leaderboardHandler.HandleGetPage, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesTotal counts inbound user messages by channel.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pressbot_messages_total",
			Help: "Total number of inbound user messages",
		},
		[]string{"channel"},
	)

	// RateLimitedTotal counts messages rejected by the sliding-window limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pressbot_rate_limited_total",
			Help: "Total number of rate-limited user messages",
		},
	)

	// LLMCallsTotal counts model calls by outcome.
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pressbot_llm_calls_total",
			Help: "Total number of LLM calls",
		},
		[]string{"status"},
	)

	// ToolCallsTotal counts tool executions by tool name and outcome.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pressbot_tool_calls_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	// ActiveSessions tracks the number of live sessions in the store.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pressbot_active_sessions",
			Help: "Number of sessions currently held in memory",
		},
	)
)

// Server exposes the Prometheus registry over HTTP.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	s.logger.Info("metrics server started", "addr", s.srv.Addr)
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

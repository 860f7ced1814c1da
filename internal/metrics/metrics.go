// Package metrics exposes Prometheus counters for relay traffic and an
// optional /metrics endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Message metrics
	MessagesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_relay_messages_created_total",
			Help: "Total messages created",
		},
		[]string{"priority"},
	)

	MessagesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_relay_messages_read_total",
			Help: "Total messages transitioned to read",
		},
	)

	MessagesArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_relay_messages_archived_total",
			Help: "Total messages moved to an archive",
		},
	)

	UnknownRecipients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_relay_unknown_recipient_total",
			Help: "Total create_message calls rejected for an unknown recipient",
		},
	)

	// Tool metrics
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_relay_tool_calls_total",
			Help: "Total MCP tool calls",
		},
		[]string{"tool", "outcome"}, // outcome: "ok" or "error"
	)

	// Storage metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_relay_store_op_duration_seconds",
			Help:    "Message store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
		},
		[]string{"op"},
	)
)

// Tool call outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder feeds store mutations into the package counters.
type Recorder struct{}

var _ messages.Observer = Recorder{}

func (Recorder) Created(m *messages.Message) {
	MessagesCreated.WithLabelValues(string(m.Priority)).Inc()
}

func (Recorder) MarkedRead(n int) {
	MessagesRead.Add(float64(n))
}

func (Recorder) Archived(n int) {
	MessagesArchived.Add(float64(n))
}

func (Recorder) Observe(op string, d time.Duration) {
	StoreOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordToolCall counts one tool invocation.
func RecordToolCall(tool string, failed bool) {
	outcome := OutcomeOK
	if failed {
		outcome = OutcomeError
	}
	ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// Handler returns the Prometheus scrape handler mounted at /metrics.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package history records capture outcomes for the status API and for
// downstream consumers (dashboard via MQTT, long-term store in Postgres).
package history

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
)

// DefaultRetention is how many outcomes the in-memory ring keeps.
const DefaultRetention = 500

// Sink receives every recorded outcome. Sink failures are logged and do
// not fail the recording; the in-memory ring is the source of truth for
// the status API.
type Sink interface {
	Write(ctx context.Context, outcome burst.Outcome) error
	Name() string
}

// Recorder keeps a bounded ring of recent outcomes and fans each one out
// to the configured sinks.
type Recorder struct {
	logger    *zap.Logger
	retention int
	sinks     []Sink

	mu      sync.RWMutex
	ring    []burst.Outcome
	next    int
	entries int
}

// NewRecorder creates a recorder with the given retention; zero or
// negative retention falls back to the default.
func NewRecorder(retention int, logger *zap.Logger, sinks ...Sink) *Recorder {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:    logger.With(zap.String("component", "history_recorder")),
		retention: retention,
		sinks:     sinks,
		ring:      make([]burst.Outcome, retention),
	}
}

// Record stores the outcome and forwards it to every sink.
func (r *Recorder) Record(ctx context.Context, outcome burst.Outcome) {
	r.mu.Lock()
	r.ring[r.next] = outcome
	r.next = (r.next + 1) % r.retention
	if r.entries < r.retention {
		r.entries++
	}
	r.mu.Unlock()

	for _, sink := range r.sinks {
		if err := sink.Write(ctx, outcome); err != nil {
			r.logger.Warn("History sink write failed",
				zap.String("sink", sink.Name()),
				zap.String("outcome_id", outcome.ID),
				zap.Error(err))
		}
	}
}

// RecordAll records a burst's outcomes in order.
func (r *Recorder) RecordAll(ctx context.Context, outcomes []burst.Outcome) {
	for _, o := range outcomes {
		r.Record(ctx, o)
	}
}

// Recent returns up to limit outcomes, newest first. limit <= 0 returns
// everything retained.
func (r *Recorder) Recent(limit int) []burst.Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > r.entries {
		limit = r.entries
	}

	out := make([]burst.Outcome, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + r.retention) % r.retention
		out = append(out, r.ring[idx])
	}
	return out
}

// Len returns the number of retained outcomes.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries
}

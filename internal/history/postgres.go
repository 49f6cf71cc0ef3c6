package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/alpenglow-labs/ridgecam/internal/burst"
	"github.com/alpenglow-labs/ridgecam/internal/settings"
	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

const createOutcomesTable = `
CREATE TABLE IF NOT EXISTS capture_outcomes (
	id          UUID PRIMARY KEY,
	schedule    TEXT NOT NULL,
	profile_id  TEXT NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL,
	success     BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	image_id    TEXT NOT NULL DEFAULT '',
	tier        TEXT NOT NULL,
	degraded    BOOLEAN NOT NULL DEFAULT FALSE,
	latency_ms  BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_capture_outcomes_captured_at
	ON capture_outcomes (captured_at DESC);
`

// StoreConfig configures the Postgres outcome store.
type StoreConfig struct {
	DatabaseURL    string
	MaxConnections int
	MinConnections int
}

// Store persists capture outcomes to Postgres for long-term retention.
// It doubles as a history Sink behind the in-memory recorder.
type Store struct {
	pool   *pgxpool.Pool
	config StoreConfig
	logger *zap.Logger
}

// NewStore opens a connection pool and verifies connectivity.
func NewStore(ctx context.Context, config StoreConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if config.MaxConnections > 0 {
		poolConfig.MaxConns = int32(config.MaxConnections)
	}
	if config.MinConnections > 0 {
		poolConfig.MinConns = int32(config.MinConnections)
	}
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:   pool,
		config: config,
		logger: logger.With(zap.String("component", "history_store")),
	}, nil
}

// EnsureSchema creates the outcomes table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createOutcomesTable); err != nil {
		return fmt.Errorf("failed to create capture_outcomes schema: %w", err)
	}
	s.logger.Info("Capture outcome schema ready")
	return nil
}

// Write implements Sink.
func (s *Store) Write(ctx context.Context, outcome burst.Outcome) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO capture_outcomes
			(id, schedule, profile_id, captured_at, success, error, image_id, tier, degraded, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		outcome.ID,
		outcome.Schedule,
		outcome.ProfileID,
		outcome.Timestamp,
		outcome.Success,
		outcome.Error,
		outcome.ImageID,
		string(outcome.Tier),
		outcome.Degraded,
		outcome.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert capture outcome: %w", err)
	}
	return nil
}

// Name implements Sink.
func (s *Store) Name() string {
	return "postgres"
}

// Recent returns the newest outcomes up to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]burst.Outcome, error) {
	if limit <= 0 {
		limit = DefaultRetention
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, schedule, profile_id, captured_at, success, error, image_id, tier, degraded, latency_ms
		 FROM capture_outcomes
		 ORDER BY captured_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query capture outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []burst.Outcome
	for rows.Next() {
		var o burst.Outcome
		var tier string
		var latencyMs int64
		if err := rows.Scan(&o.ID, &o.Schedule, &o.ProfileID, &o.Timestamp,
			&o.Success, &o.Error, &o.ImageID, &tier, &o.Degraded, &latencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan capture outcome: %w", err)
		}
		o.Tier = settings.Tier(tier)
		o.Latency = time.Duration(latencyMs) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Check implements healthcheck.Checker.
func (s *Store) Check(ctx context.Context) *healthcheck.Result {
	status := healthcheck.StatusHealthy
	message := "History store is healthy"
	details := make(map[string]interface{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.pool.Ping(pingCtx); err != nil {
		status = healthcheck.StatusUnhealthy
		message = "Database ping failed: " + err.Error()
		details["ping_error"] = err.Error()
	} else {
		stats := s.pool.Stat()
		details["total_conns"] = stats.TotalConns()
		details["idle_conns"] = stats.IdleConns()
		details["acquired_conns"] = stats.AcquiredConns()
	}

	return &healthcheck.Result{
		ComponentName: s.Name(),
		Status:        status,
		Message:       message,
		Timestamp:     time.Now(),
		Details:       details,
	}
}

var _ Sink = (*Store)(nil)
var _ healthcheck.Checker = (*Store)(nil)

// Package api defines core interfaces shared across ridgecam components.
package api

import (
	"context"

	"github.com/alpenglow-labs/ridgecam/pkg/healthcheck"
)

// Coordinator is the contract for long-lived components that own
// goroutines, such as the scheduler loop. Start blocks until the component
// stops; Stop initiates shutdown and waits, bounded by ctx.
type Coordinator interface {
	// Name returns the unique name of the component
	Name() string

	// Start runs the component until ctx is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component
	Stop(ctx context.Context) error

	// Check reports the component's health
	Check(ctx context.Context) *healthcheck.Result

	// IsRunning returns true if the component is currently running
	IsRunning() bool
}

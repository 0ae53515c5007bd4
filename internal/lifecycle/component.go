// Package lifecycle starts the long-running parts of `medidesk serve` in
// dependency order and stops them in reverse.
package lifecycle

import "context"

// Component is a unit the Manager starts and stops.
type Component interface {
	// Start returns once the component is serving. Long-running work
	// continues in the background.
	Start(ctx context.Context) error

	// Stop drains in-flight work within the ctx deadline.
	Stop(ctx context.Context) error

	// Name is used in logs and errors. Must be non-empty.
	Name() string
}

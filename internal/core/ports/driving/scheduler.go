package driving

import "context"

// Scheduler runs ingestion cycles in the background: on filesystem changes
// and on fixed intervals.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Trigger requests a cycle. If one is running, at most one follow-up
	// cycle is queued no matter how many triggers arrive.
	Trigger(reason string)
}

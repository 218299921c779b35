package driven

import (
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// CycleObserver receives pipeline events for metrics.
type CycleObserver interface {
	// ObserveCycle is called once per finished cycle. result may be nil when err is set.
	ObserveCycle(result *domain.CycleResult, err error)

	// ObserveChange is called for each filesystem change seen by the watcher.
	ObserveChange(change domain.ChangeType)

	// ObserveTrigger is called for each trigger; coalesced is true when it
	// arrived while a cycle was already running.
	ObserveTrigger(reason string, coalesced bool)

	// ObserveIndexSize records the entry count after a save.
	ObserveIndexSize(entries int)

	// ObserveEmbedding records the latency of one embedding batch.
	ObserveEmbedding(batch int, elapsed time.Duration)
}

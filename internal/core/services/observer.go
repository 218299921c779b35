package services

import (
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

var _ driven.CycleObserver = nopObserver{}

// nopObserver discards pipeline events when no metrics sink is configured.
type nopObserver struct{}

func (nopObserver) ObserveCycle(*domain.CycleResult, error) {}
func (nopObserver) ObserveChange(domain.ChangeType) {}
func (nopObserver) ObserveTrigger(string, bool) {}
func (nopObserver) ObserveIndexSize(int) {}
func (nopObserver) ObserveEmbedding(int, time.Duration) {}

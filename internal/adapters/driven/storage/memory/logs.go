package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure the logs implement their interfaces.
var (
	_ driven.ChangeLog = (*ChangeLog)(nil)
	_ driven.QueryLog  = (*QueryLog)(nil)
)

// ChangeLog records change entries in memory.
type ChangeLog struct {
	mu      sync.Mutex
	records []domain.ChangeRecord
}

// NewChangeLog creates an empty change log.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{}
}

// Append records a change.
func (l *ChangeLog) Append(_ context.Context, r domain.ChangeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return nil
}

// Records returns a copy of the recorded changes.
func (l *ChangeLog) Records() []domain.ChangeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// QueryLog records query entries in memory.
type QueryLog struct {
	mu      sync.Mutex
	records []domain.QueryRecord
}

// NewQueryLog creates an empty query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{}
}

// Append records a query.
func (l *QueryLog) Append(_ context.Context, r domain.QueryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return nil
}

// Records returns a copy of the recorded queries.
func (l *QueryLog) Records() []domain.QueryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

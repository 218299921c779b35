package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure the logs implement their interfaces.
var (
	_ driven.ChangeLog = (*ChangeLog)(nil)
	_ driven.QueryLog  = (*QueryLog)(nil)
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	changeLogHeader = []string{"Timestamp", "File Path", "Change Type", "Hash"}
	queryLogHeader  = []string{"Timestamp", "Query", "Results", "Top Source"}
)

// csvAppender appends rows to a CSV file, writing the header when the file is new.
type csvAppender struct {
	path   string
	header []string
	mu     sync.Mutex
}

func (a *csvAppender) append(row []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(a.header); err != nil {
			return fmt.Errorf("write log header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush log: %w", err)
	}
	return nil
}

// ChangeLog appends observed file changes to a CSV file.
type ChangeLog struct {
	csv csvAppender
}

// NewChangeLog creates a change log at path.
func NewChangeLog(path string) *ChangeLog {
	return &ChangeLog{csv: csvAppender{path: path, header: changeLogHeader}}
}

// Append writes one change record.
func (l *ChangeLog) Append(_ context.Context, r domain.ChangeRecord) error {
	return l.csv.append([]string{
		formatTimestamp(r.Timestamp),
		r.Path,
		string(r.Type),
		r.Hash,
	})
}

// QueryLog appends similarity searches to a CSV file.
type QueryLog struct {
	csv csvAppender
}

// NewQueryLog creates a query log at path.
func NewQueryLog(path string) *QueryLog {
	return &QueryLog{csv: csvAppender{path: path, header: queryLogHeader}}
}

// Append writes one query record.
func (l *QueryLog) Append(_ context.Context, r domain.QueryRecord) error {
	return l.csv.append([]string{
		formatTimestamp(r.Timestamp),
		r.Query,
		strconv.Itoa(r.Results),
		r.TopSource,
	})
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(timestampLayout)
}

package file

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestChangeLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "file_change_log.csv")
	log := NewChangeLog(path)
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, log.Append(context.Background(), domain.ChangeRecord{
		Timestamp: ts, Path: "/docs/a.pdf", Type: domain.ChangeCreated, Hash: "h1",
	}))
	require.NoError(t, log.Append(context.Background(), domain.ChangeRecord{
		Timestamp: ts, Path: "/docs/a, b.pdf", Type: domain.ChangeDeleted,
	}))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, changeLogHeader, rows[0])
	assert.Equal(t, []string{"2024-03-01 09:30:00", "/docs/a.pdf", "Created", "h1"}, rows[1])
	assert.Equal(t, []string{"2024-03-01 09:30:00", "/docs/a, b.pdf", "Deleted", ""}, rows[2])
}

func TestQueryLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_logs.csv")
	log := NewQueryLog(path)

	for _, q := range []string{"first", "second \"quoted\""} {
		require.NoError(t, log.Append(context.Background(), domain.QueryRecord{
			Query: q, Results: 2, TopSource: "doc.md",
		}))
	}

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, queryLogHeader, rows[0])
	assert.Equal(t, "second \"quoted\"", rows[2][1])
	assert.Equal(t, "2", rows[2][2])
	assert.NotEmpty(t, rows[1][0], "zero timestamp defaults to now")
}

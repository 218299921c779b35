package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func TestConfigStore(t *testing.T) {
	s := NewConfigStore(map[string]any{
		"name":   "ragsync",
		"i64":    int64(7),
		"f64":    float64(3),
		"flag":   true,
		"list":   []any{"a", 1, "b"},
		"direct": []string{"x"},
	})

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", s.GetString("name"), "ragsync"},
		{"string wrong type", s.GetString("flag"), ""},
		{"int64", s.GetInt("i64"), 7},
		{"float64", s.GetInt("f64"), 3},
		{"int missing", s.GetInt("missing"), 0},
		{"bool", s.GetBool("flag"), true},
		{"bool wrong type", s.GetBool("name"), false},
		{"any slice", s.GetStringSlice("list"), []string{"a", "b"}},
		{"string slice", s.GetStringSlice("direct"), []string{"x"}},
		{"slice missing", s.GetStringSlice("missing"), []string(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	require.NoError(t, s.Set("new", 1))
	require.NoError(t, s.Save())
	assert.Equal(t, 1, s.Saves())
	assert.Contains(t, s.Keys(), "new")
	assert.Equal(t, ":memory:", s.Path())
}

func TestSourceStore(t *testing.T) {
	ctx := context.Background()
	s := NewSourceStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, domain.Source{}), domain.ErrInvalidInput)

	require.NoError(t, s.Save(ctx, domain.Source{ID: "/b.txt", Fingerprint: "1"}))
	require.NoError(t, s.Save(ctx, domain.Source{ID: "https://a.example"}))
	require.NoError(t, s.Save(ctx, domain.Source{ID: "/b.txt", Fingerprint: "2"}))

	got, err := s.Get(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Fingerprint)
	assert.Equal(t, domain.SourceKindFile, got.Kind)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "/b.txt", list[0].ID)
	assert.Equal(t, domain.SourceKindURL, list[1].Kind)
}

func TestFingerprintStore(t *testing.T) {
	ctx := context.Background()
	s := NewFingerprintStore("a")

	ok, _ := s.Contains(ctx, "a")
	assert.True(t, ok)

	require.NoError(t, s.AddAll(ctx, []string{"b", "c"}))
	n, _ := s.Count(ctx)
	assert.Equal(t, 3, n)

	require.NoError(t, s.Replace(ctx, []string{"z"}))
	ok, _ = s.Contains(ctx, "a")
	assert.False(t, ok)

	s.FailWrites = errors.New("disk full")
	assert.Error(t, s.AddAll(ctx, []string{"q"}))
	ok, _ = s.Contains(ctx, "q")
	assert.False(t, ok)
}

func TestLogs(t *testing.T) {
	ctx := context.Background()

	changes := NewChangeLog()
	require.NoError(t, changes.Append(ctx, domain.ChangeRecord{Path: "a", Type: domain.ChangeCreated}))
	assert.Len(t, changes.Records(), 1)

	queries := NewQueryLog()
	require.NoError(t, queries.Append(ctx, domain.QueryRecord{Query: "q"}))
	assert.Equal(t, "q", queries.Records()[0].Query)
}

func TestSchedulerStore(t *testing.T) {
	ctx := context.Background()
	s := NewSchedulerStore()

	task, err := s.GetTask(ctx, domain.TaskIDSweep)
	require.NoError(t, err)
	assert.Nil(t, task)

	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDSweep, Interval: time.Hour}))
	require.NoError(t, s.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDPoll}))
	tasks, err := s.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDPoll, tasks[0].ID)

	base := time.Now()
	for i := range 5 {
		require.NoError(t, s.RecordResult(ctx, &domain.TaskResult{
			TaskID: domain.TaskIDSweep, StartedAt: base.Add(time.Duration(i) * time.Minute), ItemsProcessed: i,
		}))
	}

	history, err := s.GetTaskHistory(ctx, domain.TaskIDSweep, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 4, history[0].ItemsProcessed)

	require.NoError(t, s.PruneHistory(ctx, 3))
	history, _ = s.GetTaskHistory(ctx, domain.TaskIDSweep, 0)
	assert.Len(t, history, 3)

	require.NoError(t, s.DeleteTask(ctx, domain.TaskIDSweep))
	task, _ = s.GetTask(ctx, domain.TaskIDSweep)
	assert.Nil(t, task)
}

package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_Flags(t *testing.T) {
	for _, name := range []string{"folder", "urls", "metrics-addr"} {
		assert.NotNil(t, watchCmd.Flags().Lookup(name), "missing --%s", name)
	}
}

func TestWatchCmd_RunsUntilCancelled(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantFolder func(env *testEnv) string
		wantURLs   []string
	}{
		{
			name:       "configured folder",
			args:       []string{"watch"},
			wantFolder: func(env *testEnv) string { return filepath.Join(env.root, "documents") },
		},
		{
			name:       "flag overrides",
			args:       []string{"watch", "--folder", "/srv/inbox", "--urls", "https://example.com/a"},
			wantFolder: func(*testEnv) string { return "/srv/inbox" },
			wantURLs:   []string{"https://example.com/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServices(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)
			go func() {
				_, err := executeContext(ctx, t, tt.args...)
				done <- err
			}()

			select {
			case <-env.scheduler.started:
			case <-time.After(5 * time.Second):
				t.Fatal("scheduler was not started")
			}
			cancel()

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("watch did not exit after cancel")
			}

			assert.True(t, env.scheduler.wasStopped())
			assert.Equal(t, 1, env.closed)
			require.Len(t, env.built, 1)
			assert.Equal(t, tt.wantFolder(env), env.built[0].Settings.Watch.Folder)
			assert.Equal(t, tt.wantURLs, env.built[0].Settings.Watch.URLs)
		})
	}
}

func TestWatchCmd_StartError(t *testing.T) {
	env := setupTestServices(t)
	env.scheduler.startErr = errors.New("scheduler store unavailable")

	_, err := execute(t, "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler store unavailable")
	assert.True(t, env.scheduler.wasStopped())
}

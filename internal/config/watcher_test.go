package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "futureswatch.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	var (
		mu  sync.Mutex
		got []string
	)
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		got = cfg.Symbols
		mu.Unlock()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	updated := DefaultConfig()
	updated.SetSymbols([]string{"BNBUSDT", "LTCUSDT"})
	require.NoError(t, updated.Save(path))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2 && got[0] == "BNBUSDT"
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, w.Reloads(), 1)
}

func TestWatcher_IgnoresInvalidConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "futureswatch.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	called := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(*Config) { called <- struct{}{} })
	require.NoError(t, err)
	w.debounceDur = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	bad := DefaultConfig()
	bad.Symbols = nil
	require.NoError(t, bad.Save(path))

	select {
	case <-called:
		t.Fatal("onChange called for an invalid config")
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, 0, w.Reloads())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "x.yaml"), nil)
	require.NoError(t, err)
	w.Stop()
}

func TestWatcher_IgnoresRemovedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "futureswatch.yaml")
	cfg := DefaultConfig()
	cfg.SetSymbols([]string{"BNBUSDT"})
	require.NoError(t, cfg.Save(path))

	called := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(*Config) { called <- struct{}{} })
	require.NoError(t, err)
	w.debounceDur = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.Rename(path, path+".bak"))

	select {
	case <-called:
		t.Fatal("onChange called after the config file was moved away")
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, 0, w.Reloads())
}

func TestWatcher_ProcessPendingMissingFile(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "gone.yaml"), func(*Config) {
		t.Fatal("onChange called for a missing file")
	})
	require.NoError(t, err)
	defer w.Stop()

	w.pending = time.Now().Add(-time.Second)
	w.processPending()
	assert.Equal(t, 0, w.Reloads())
	assert.True(t, w.pending.IsZero())
}

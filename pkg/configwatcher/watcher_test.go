package configwatcher

import (
	"context"
	"course_hub_backend/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
storage:
  type: minio
cache:
  invalidate_on_write: true
`

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, path, 50*time.Millisecond, func(cfg *config.Config) {
			reloaded <- cfg
		})
	}()

	// 等待监听建立
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  type: minio
cache:
  invalidate_on_write: false
  course_ttl: 30s
`), 0o644))

	select {
	case cfg := <-reloaded:
		assert.False(t, cfg.Cache.InvalidateOnWrite)
		assert.Equal(t, 30*time.Second, cfg.Cache.CourseTTL)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchConfigKeepsRunningOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *config.Config, 4)
	go func() {
		_ = WatchConfig(ctx, path, 50*time.Millisecond, func(cfg *config.Config) {
			reloaded <- cfg
		})
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\nstorage:\n  type: minio\n"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not be applied")
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0o644))
	select {
	case cfg := <-reloaded:
		assert.True(t, cfg.Cache.InvalidateOnWrite)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded after fix")
	}
}

func TestWatchConfigMissingDir(t *testing.T) {
	err := WatchConfig(context.Background(), filepath.Join(t.TempDir(), "nope", "config.yaml"), time.Millisecond, func(*config.Config) {})
	assert.Error(t, err)
}

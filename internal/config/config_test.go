package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
storage:
  type: minio
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 604800*time.Second, cfg.Cache.CourseTTL)
	assert.Equal(t, "allCourses", cfg.Cache.ListKey)
	assert.True(t, cfg.Cache.InvalidateOnWrite)
	assert.Equal(t, 5, cfg.Course.MaxWriteRetries)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Mail.Timeout)
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: mongo
  mongo_uri: mongodb://localhost:27017
cache:
  course_ttl: 1h
  invalidate_on_write: false
course:
  max_write_retries: 2
storage:
  type: minio
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.CourseTTL)
	assert.False(t, cfg.Cache.InvalidateOnWrite)
	assert.Equal(t, 2, cfg.Course.MaxWriteRetries)
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
storage:
  type: minio
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: postgres
storage:
  type: minio
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

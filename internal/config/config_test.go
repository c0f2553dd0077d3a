package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, config.DefaultObjectKey, cfg.Store.ObjectKey)
	assert.Equal(t, config.DefaultUserAgent, cfg.Gateway.UserAgent)
	assert.Equal(t, 13, cfg.Map.Zoom)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
port: "8080"
store:
  backend: gcs
  bucket: from-file
gateway:
  timeout: 5s
  requests_per_second: 2
map:
  zoom: 15
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("STORE_BUCKET", "from-env")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.BackendGCS, cfg.Store.Backend)
	assert.Equal(t, "from-env", cfg.Store.Bucket)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 2.0, cfg.Gateway.RequestsPerSecond)
	assert.Equal(t, 15, cfg.Map.Zoom)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	// untouched defaults survive a partial file
	assert.Equal(t, config.DefaultObjectKey, cfg.Store.ObjectKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"sql without url", func(c *config.Config) { c.Store.Backend = config.BackendSQL }, config.ErrMissingDatabaseURL},
		{"bad sql driver", func(c *config.Config) {
			c.Store.Backend = config.BackendSQL
			c.Store.SQLDriver = "mysql"
			c.Store.DatabaseURL = "x"
		}, config.ErrUnknownSQLDriver},
		{"gcs without bucket", func(c *config.Config) {
			c.Store.Backend = config.BackendGCS
			c.Store.Bucket = ""
		}, config.ErrMissingBucket},
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "s3" }, config.ErrUnknownBackend},
		{"empty key", func(c *config.Config) { c.Store.ObjectKey = " " }, config.ErrMissingObjectKey},
		{"redis without url", func(c *config.Config) { c.Session.Store = config.SessionRedis }, config.ErrMissingRedisURL},
		{"dev mode without token", func(c *config.Config) { c.DevMode = true }, config.ErrMissingDevToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

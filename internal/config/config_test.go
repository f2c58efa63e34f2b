package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscribe/internal/archive"
)

var envKeys = []string{
	"DOCSCRIBE_API_URL", "VITE_API_URL", "APP_ENV", "DOCSCRIBE_SESSION",
	"DOCSCRIBE_LOG_LEVEL", "DOCSCRIBE_LOG_FORMAT", "DOCSCRIBE_HTTP_TIMEOUT",
	"DOCSCRIBE_CACHE_TTL", "DOCSCRIBE_CACHE_MAX_ENTRIES", "DOCSCRIBE_CACHE_DISABLED",
	"DOCSCRIBE_ARCHIVE_BACKEND", "DOCSCRIBE_ARCHIVE_DIR", "DOCSCRIBE_ARCHIVE_DSN", "ARCHIVE_PG_DSN",
	"ARTIFACT_S3_REGION", "ARTIFACT_S3_ACCESS_KEY", "MINIO_ROOT_USER", "ARTIFACT_S3_SECRET_KEY",
	"MINIO_ROOT_PASSWORD", "ARTIFACT_S3_BUCKET", "ARTIFACT_MINIO_ENDPOINT", "ARTIFACT_S3_ENDPOINT",
	"ARTIFACT_S3_USE_SSL", "DOCSCRIBE_SERVE_ADDR", "PORT", "DOCSCRIBE_PREFS_FILE",
}

// cleanEnv isolates a test from the caller's environment and profile.
func cleanEnv(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("DOCSCRIBE_CONFIG", path)
	return path
}

func TestLoadDefaults(t *testing.T) {
	cleanEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.APIURL)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "127.0.0.1:8090", cfg.Serve.Addr)
	assert.Empty(t, cfg.Path)
	assert.False(t, cfg.Archive.CanUseS3())
	require.NoError(t, cfg.Validate())
}

func TestLoadProfileThenEnv(t *testing.T) {
	path := cleanEnv(t)
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://docs.example.com/api
log_level: debug
http_timeout: 45s
cache:
  ttl: 1m
  max_entries: 10
archive:
  backend: sqlite
  dsn: /tmp/archive.db
serve:
  addr: 0.0.0.0:9000
`), 0o600))
	t.Setenv("VITE_API_URL", "http://vite:8000/api")
	t.Setenv("PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "http://vite:8000/api", cfg.APIURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Cache.MaxEntries)
	assert.Equal(t, ":7000", cfg.Serve.Addr)
	assert.Equal(t, archive.BackendSQLite, cfg.Archive.Store().Backend)

	t.Setenv("DOCSCRIBE_API_URL", "http://primary/api")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://primary/api", cfg.APIURL)
}

func TestLoadRejectsBadInput(t *testing.T) {
	path := cleanEnv(t)
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unclosed"), 0o600))
	_, err := Load("")
	assert.Error(t, err)

	cleanEnv(t)
	t.Setenv("DOCSCRIBE_HTTP_TIMEOUT", "soon")
	_, err = Load("")
	assert.ErrorContains(t, err, "DOCSCRIBE_HTTP_TIMEOUT")
}

func TestArchiveLocalUsesMinio(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ARTIFACT_MINIO_ENDPOINT", "minio:9000")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "s3.amazonaws.com")
	t.Setenv("MINIO_ROOT_USER", "minio")
	t.Setenv("MINIO_ROOT_PASSWORD", "secret")
	t.Setenv("ARTIFACT_S3_USE_SSL", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", cfg.Archive.Endpoint)
	assert.Equal(t, "minio", cfg.Archive.AccessKey)
	assert.False(t, cfg.Archive.UseSSL)
	assert.Equal(t, "docscribe-revisions", cfg.Archive.Bucket)
	assert.True(t, cfg.Archive.CanUseS3())
}

func TestArchiveRemoteEnv(t *testing.T) {
	cleanEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ARTIFACT_MINIO_ENDPOINT", "minio:9000")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "s3.amazonaws.com")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "AK")
	t.Setenv("MINIO_ROOT_USER", "ignored")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "SK")
	t.Setenv("ARTIFACT_S3_USE_SSL", "not-a-bool")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s3.amazonaws.com", cfg.Archive.Endpoint)
	assert.Equal(t, "AK", cfg.Archive.AccessKey)
	assert.True(t, cfg.Archive.UseSSL)

	s3 := cfg.Archive.Store().S3
	assert.Equal(t, "SK", s3.SecretKey)
	assert.Equal(t, "us-east-1", s3.Region)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty url", func(c *Config) { c.APIURL = "" }, false},
		{"relative url", func(c *Config) { c.APIURL = "/api" }, false},
		{"unknown backend", func(c *Config) { c.Archive.Backend = "tape" }, false},
		{"sqlite without dsn", func(c *Config) { c.Archive.Backend = "sqlite"; c.Archive.DSN = "" }, false},
		{"zero cache", func(c *Config) { c.Cache.MaxEntries = 0 }, false},
		{"zero cache disabled", func(c *Config) { c.Cache.MaxEntries = 0; c.Cache.Disabled = true }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, false},
		{"json logs", func(c *Config) { c.LogFormat = "JSON" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}

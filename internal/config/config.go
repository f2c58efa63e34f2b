// Package config resolves docscribe settings from .env, the environment and
// an optional YAML profile. Environment variables win over the profile,
// which wins over defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docscribe/internal/api"
	"docscribe/internal/archive"
	"docscribe/internal/session"
)

type Config struct {
	APIURL      string        `yaml:"api_url"`
	Env         string        `yaml:"env"`
	SessionPath string        `yaml:"session_path"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Cache       CacheConfig   `yaml:"cache"`
	Archive     ArchiveConfig `yaml:"archive"`
	Serve       ServeConfig   `yaml:"serve"`

	// Path is the profile that was read, "" when none existed.
	Path string `yaml:"-"`
}

type CacheConfig struct {
	Disabled   bool          `yaml:"disabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

func (c CacheConfig) Client() api.CacheConfig {
	return api.CacheConfig{TTL: c.TTL, MaxEntries: c.MaxEntries}
}

type ArchiveConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	DSN     string `yaml:"dsn"`

	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`

	NoCache bool `yaml:"no_cache"`
}

// CanUseS3 reports whether endpoint, keys and bucket are all set.
func (c ArchiveConfig) CanUseS3() bool {
	return c.s3().Usable()
}

func (c ArchiveConfig) s3() archive.S3Config {
	return archive.S3Config{
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Bucket:    c.Bucket,
		UseSSL:    c.UseSSL,
	}
}

// Store converts the settings for archive.Open.
func (c ArchiveConfig) Store() archive.Config {
	return archive.Config{
		Backend: archive.Backend(strings.ToLower(strings.TrimSpace(c.Backend))),
		Dir:     c.Dir,
		DSN:     c.DSN,
		S3:      c.s3(),
		NoCache: c.NoCache,
	}
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
	// PrefsFile is watched and re-applied to the active project when set.
	PrefsFile string `yaml:"prefs_file"`
}

var archiveBackends = []string{"", "memory", "dir", "sqlite", "postgres", "s3"}

func Defaults() Config {
	return Config{
		APIURL:      api.DefaultBaseURL,
		Env:         "local",
		SessionPath: session.DefaultPath(),
		LogLevel:    "info",
		LogFormat:   "console",
		HTTPTimeout: api.DefaultTimeout,
		Cache:       CacheConfig{TTL: 30 * time.Second, MaxEntries: 256},
		Archive: ArchiveConfig{
			Dir:    defaultArchiveDir(),
			Region: "us-east-1",
			Bucket: "docscribe-revisions",
		},
		Serve: ServeConfig{Addr: "127.0.0.1:8090"},
	}
}

// Load reads .env, the profile at path (DefaultPath when empty) and the
// environment. A missing profile is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	path = firstNonEmpty(strings.TrimSpace(path), DefaultPath())
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg.Path = path
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPath is $DOCSCRIBE_CONFIG or the user config dir's
// docscribe/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("DOCSCRIBE_CONFIG")); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "docscribe", "config.yaml")
}

func defaultArchiveDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "docscribe", "revisions")
	}
	return filepath.Join(dir, "docscribe", "revisions")
}

func applyEnv(cfg *Config) error {
	cfg.APIURL = firstNonEmpty(env("DOCSCRIBE_API_URL"), env("VITE_API_URL"), cfg.APIURL)
	cfg.Env = firstNonEmpty(env("APP_ENV"), cfg.Env)
	cfg.SessionPath = firstNonEmpty(env("DOCSCRIBE_SESSION"), cfg.SessionPath)
	cfg.LogLevel = firstNonEmpty(env("DOCSCRIBE_LOG_LEVEL"), cfg.LogLevel)
	cfg.LogFormat = firstNonEmpty(env("DOCSCRIBE_LOG_FORMAT"), cfg.LogFormat)

	var err error
	if cfg.HTTPTimeout, err = envDuration("DOCSCRIBE_HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.Cache.TTL, err = envDuration("DOCSCRIBE_CACHE_TTL", cfg.Cache.TTL); err != nil {
		return err
	}
	if cfg.Cache.MaxEntries, err = envInt("DOCSCRIBE_CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries); err != nil {
		return err
	}
	if cfg.Cache.Disabled, err = envBool("DOCSCRIBE_CACHE_DISABLED", cfg.Cache.Disabled); err != nil {
		return err
	}

	cfg.Archive = resolveArchive(cfg.Env, cfg.Archive)

	cfg.Serve.Addr = firstNonEmpty(env("DOCSCRIBE_SERVE_ADDR"), cfg.Serve.Addr)
	if port := env("PORT"); port != "" {
		if strings.HasPrefix(port, ":") {
			cfg.Serve.Addr = port
		} else {
			cfg.Serve.Addr = ":" + port
		}
	}
	cfg.Serve.PrefsFile = firstNonEmpty(env("DOCSCRIBE_PREFS_FILE"), cfg.Serve.PrefsFile)
	return nil
}

// resolveArchive uses the artifact store variables of the docker-compose
// MinIO setup. In the local env the endpoint comes from
// ARTIFACT_MINIO_ENDPOINT and TLS is off.
func resolveArchive(appEnv string, a ArchiveConfig) ArchiveConfig {
	a.Backend = firstNonEmpty(env("DOCSCRIBE_ARCHIVE_BACKEND"), a.Backend)
	a.Dir = firstNonEmpty(env("DOCSCRIBE_ARCHIVE_DIR"), a.Dir)
	a.DSN = firstNonEmpty(env("DOCSCRIBE_ARCHIVE_DSN"), env("ARCHIVE_PG_DSN"), a.DSN)

	a.Region = firstNonEmpty(env("ARTIFACT_S3_REGION"), a.Region, "us-east-1")
	a.AccessKey = firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER"), a.AccessKey)
	a.SecretKey = firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD"), a.SecretKey)
	a.Bucket = firstNonEmpty(env("ARTIFACT_S3_BUCKET"), a.Bucket)

	if isLocal(appEnv) {
		a.Endpoint = firstNonEmpty(env("ARTIFACT_MINIO_ENDPOINT"), a.Endpoint)
		a.UseSSL = false
		return a
	}
	a.Endpoint = firstNonEmpty(env("ARTIFACT_S3_ENDPOINT"), a.Endpoint)
	if raw := env("ARTIFACT_S3_USE_SSL"); raw != "" {
		v, err := strconv.ParseBool(raw)
		a.UseSSL = err != nil || v
	}
	return a
}

func isLocal(appEnv string) bool {
	return strings.EqualFold(strings.TrimSpace(appEnv), "local")
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.APIURL))
	if strings.TrimSpace(c.APIURL) == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.APIURL)
	}
	backend := strings.ToLower(strings.TrimSpace(c.Archive.Backend))
	known := false
	for _, b := range archiveBackends {
		if backend == b {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}
	if (backend == "sqlite" || backend == "postgres") && strings.TrimSpace(c.Archive.DSN) == "" {
		return fmt.Errorf("archive backend %s needs a dsn", backend)
	}
	if !c.Cache.Disabled && (c.Cache.MaxEntries <= 0 || c.Cache.TTL <= 0) {
		return fmt.Errorf("cache ttl and max entries must be positive")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := env(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

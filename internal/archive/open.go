package archive

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Backend names an archive storage backend.
type Backend string

const (
	BackendAuto     Backend = ""
	BackendMemory   Backend = "memory"
	BackendDir      Backend = "dir"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendS3       Backend = "s3"
)

// Config selects and configures the archive backend.
type Config struct {
	Backend Backend     `yaml:"backend"`
	Dir     string      `yaml:"dir"`
	DSN     string      `yaml:"dsn"`
	S3      S3Config    `yaml:"s3"`
	Cache   CacheConfig `yaml:"cache"`
	// NoCache returns the backend without the read-through cache.
	NoCache bool `yaml:"no_cache"`
}

// Open builds the configured store. With BackendAuto it picks S3 when
// credentials are complete, then a directory when Dir is set, then memory.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	backend := Backend(strings.ToLower(strings.TrimSpace(string(cfg.Backend))))
	if backend == BackendAuto {
		switch {
		case cfg.S3.Usable():
			backend = BackendS3
		case strings.TrimSpace(cfg.Dir) != "":
			backend = BackendDir
		default:
			backend = BackendMemory
		}
	}

	var (
		origin Store
		err    error
	)
	switch backend {
	case BackendMemory:
		origin = NewMemoryStore()
	case BackendDir:
		if strings.TrimSpace(cfg.Dir) == "" {
			return nil, fmt.Errorf("archive dir is required for the dir backend")
		}
		origin = NewDirStore(cfg.Dir)
	case BackendSQLite:
		origin, err = OpenSQL(ctx, DialectSQLite, cfg.DSN)
	case BackendPostgres:
		origin, err = OpenSQL(ctx, DialectPostgres, cfg.DSN)
	case BackendS3:
		origin, err = NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s archive: %w", backend, err)
	}
	log.Debug("archive store selected", zap.String("backend", string(backend)), zap.Bool("cached", !cfg.NoCache))
	if cfg.NoCache {
		return origin, nil
	}
	return NewCachedStore(origin, cfg.Cache), nil
}

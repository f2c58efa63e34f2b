package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driver() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported sql dialect %q", d)
}

func (d Dialect) blobType() string {
	if d == DialectPostgres {
		return "BYTEA"
	}
	return "BLOB"
}

// bind rewrites ? placeholders to $n for postgres.
func (d Dialect) bind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SQLStore archives revisions in a single table keyed by (archive_key, name).
type SQLStore struct {
	db      *sql.DB
	dialect Dialect

	schemaOnce sync.Once
	schemaErr  error
}

// OpenSQL connects with the driver for dialect and pings the database.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	driver, err := dialect.driver()
	if err != nil {
		return nil, err
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", dialect)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db, dialect), nil
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS archived_files (
	archive_key TEXT NOT NULL,
	name        TEXT NOT NULL,
	content     `+s.dialect.blobType()+` NOT NULL,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (archive_key, name)
)`)
	})
	return s.schemaErr
}

func (s *SQLStore) Put(ctx context.Context, key, name string, content []byte) error {
	k, n, err := cleanRef(key, name)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx, s.dialect.bind(`
INSERT INTO archived_files (archive_key, name, content, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (archive_key, name) DO UPDATE SET
	content = excluded.content,
	updated_at = excluded.updated_at`), k, n, content)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key, name string) ([]byte, error) {
	k, n, err := cleanRef(key, name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, s.dialect.bind(
		`SELECT content FROM archived_files WHERE archive_key = ? AND name = ?`), k, n).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (s *SQLStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}

// List includes files stored under nested keys, so listing a project
// returns "revision/name" paths.
func (s *SQLStore) List(ctx context.Context, key string) ([]string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.bind(
		`SELECT archive_key, name FROM archived_files WHERE archive_key = ? OR archive_key LIKE ?`),
		k, likePrefix(k))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make([]string, 0, 32)
	for rows.Next() {
		var rowKey, name string
		if err := rows.Scan(&rowKey, &name); err != nil {
			return nil, err
		}
		if rowKey != k && !strings.HasPrefix(rowKey, k+"/") {
			continue // LIKE treats _ and % in k as wildcards
		}
		if rel := strings.TrimPrefix(rowKey, k+"/"); rowKey != k {
			name = rel + "/" + name
		}
		paths = append(paths, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func likePrefix(k string) string {
	return k + "/%"
}

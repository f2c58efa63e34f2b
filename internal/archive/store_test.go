package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "p1/r1", "content.md")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "p1/r1", "content.md", []byte("# one")))
	require.NoError(t, s.Put(ctx, "p1/r1", "revision.json", []byte("{}")))
	require.NoError(t, s.Put(ctx, "p1/r2", "content.md", []byte("# two")))
	require.NoError(t, s.Put(ctx, "p10/r1", "content.md", []byte("other project")))

	got, err := s.Get(ctx, "p1/r1", "content.md")
	require.NoError(t, err)
	assert.Equal(t, "# one", string(got))

	require.NoError(t, s.Put(ctx, "/p1/r1/", "content.md", []byte("# one v2")))
	got, err = s.Get(ctx, "p1/r1", "./content.md")
	require.NoError(t, err)
	assert.Equal(t, "# one v2", string(got))

	list, err := s.List(ctx, "p1/r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"content.md", "revision.json"}, list)

	list, err = s.List(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1/content.md", "r1/revision.json", "r2/content.md"}, list)

	list, err = s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Error(t, s.Put(ctx, "", "x", nil))
	assert.Error(t, s.Put(ctx, "p1", "", nil))
	assert.Error(t, s.Put(ctx, "p1/../etc", "x", nil))
	assert.Error(t, s.Put(ctx, "p1", "../x", nil))
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", "n", buf))
	buf[0] = 'x'
	got, err := s.Get(ctx, "k", "n")
	require.NoError(t, err)
	got[1] = 'y'
	again, _ := s.Get(ctx, "k", "n")
	assert.Equal(t, "abc", string(again))
}

func TestDirStore(t *testing.T) {
	root := t.TempDir()
	s := NewDirStore(root)
	runStoreContract(t, s)

	u, err := s.GetURL(context.Background(), "p1/r2", "content.md")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"))
	assert.True(t, strings.HasSuffix(u, "/p1/r2/content.md"))

	_, err = s.GetURL(context.Background(), "p1/r2", "nope.md")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.FileExists(t, filepath.Join(root, "p1", "r1", "revision.json"))
}

func TestDirStoreRequiresRoot(t *testing.T) {
	s := NewDirStore("  ")
	assert.Error(t, s.Put(context.Background(), "k", "n", nil))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQL(ctx, DialectSQLite, filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	runStoreContract(t, s)

	u, err := s.GetURL(ctx, "p1/r1", "content.md")
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestSQLiteStoreLikeWildcards(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQL(ctx, DialectSQLite, filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(ctx, "p_1/r1", "a", []byte("x")))
	require.NoError(t, s.Put(ctx, "pX1/r1", "b", []byte("y")))
	list, err := s.List(ctx, "p_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1/a"}, list)
}

func TestOpenSQLRejectsBadInput(t *testing.T) {
	_, err := OpenSQL(context.Background(), Dialect("oracle"), "dsn")
	assert.Error(t, err)
	_, err = OpenSQL(context.Background(), DialectSQLite, " ")
	assert.Error(t, err)
}

func TestDialectBind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y = ?"
	assert.Equal(t, q, DialectSQLite.bind(q))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", DialectPostgres.bind(q))
}

func TestNewS3StoreValidates(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "docs"})
	require.NoError(t, err)
	assert.Equal(t, "docs", s.Bucket())
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{}, nil)
	require.NoError(t, err)
	require.IsType(t, &CachedStore{}, s)
	assert.IsType(t, &MemoryStore{}, s.(*CachedStore).Origin())

	s, err = Open(ctx, Config{Dir: t.TempDir(), NoCache: true}, nil)
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, s)

	s, err = Open(ctx, Config{
		S3:      S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "docs"},
		Dir:     t.TempDir(),
		NoCache: true,
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, s)

	s, err = Open(ctx, Config{Backend: BackendSQLite, DSN: filepath.Join(t.TempDir(), "a.db"), NoCache: true}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	_ = s.(*SQLStore).Close()

	_, err = Open(ctx, Config{Backend: BackendDir}, nil)
	assert.Error(t, err)
	_, err = Open(ctx, Config{Backend: "tape"}, nil)
	assert.Error(t, err)
}

type countingStore struct {
	*MemoryStore
	mu        sync.Mutex
	gets      int
	lists     int
	urls      int
	failPut   bool
	urlResult string
}

func (s *countingStore) Put(ctx context.Context, key, name string, content []byte) error {
	if s.failPut {
		return fmt.Errorf("put failed")
	}
	return s.MemoryStore.Put(ctx, key, name, content)
}

func (s *countingStore) Get(ctx context.Context, key, name string) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.MemoryStore.Get(ctx, key, name)
}

func (s *countingStore) List(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.MemoryStore.List(ctx, key)
}

func (s *countingStore) GetURL(context.Context, string, string) (string, error) {
	s.mu.Lock()
	s.urls++
	s.mu.Unlock()
	return s.urlResult, nil
}

func TestCachedStoreContract(t *testing.T) {
	runStoreContract(t, NewCachedStore(NewMemoryStore(), DefaultCacheConfig()))
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: NewMemoryStore(), urlResult: "https://example/x"}
	require.NoError(t, origin.MemoryStore.Put(ctx, "p/r", "a", []byte("1")))
	s := NewCachedStore(origin, CacheConfig{})

	for range 3 {
		got, err := s.Get(ctx, "p/r", "a")
		require.NoError(t, err)
		assert.Equal(t, "1", string(got))
	}
	assert.Equal(t, 1, origin.gets)

	for range 2 {
		_, err := s.List(ctx, "p")
		require.NoError(t, err)
		_, err = s.GetURL(ctx, "p/r", "a")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, origin.lists)
	assert.Equal(t, 1, origin.urls)

	require.NoError(t, s.Put(ctx, "p/r2", "b", []byte("2")))
	list, err := s.List(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"r/a", "r2/b"}, list)
	assert.Equal(t, 2, origin.lists)

	m := s.Metrics()
	assert.Equal(t, uint64(2), m.BlobHits)
	assert.Equal(t, uint64(1), m.BlobMisses)
	assert.Equal(t, uint64(1), m.ListHits)
	assert.Equal(t, uint64(1), m.URLHits)
	assert.Equal(t, uint64(1), m.OriginWrites)
}

func TestCachedStoreSkipsLargeBlobsAndFailedWrites(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{MemoryStore: NewMemoryStore()}
	s := NewCachedStore(origin, CacheConfig{BlobMaxSize: 2})

	require.NoError(t, s.Put(ctx, "p/r", "big", []byte("12345")))
	_, err := s.Get(ctx, "p/r", "big")
	require.NoError(t, err)
	assert.Equal(t, 1, origin.gets)

	origin.failPut = true
	assert.Error(t, s.Put(ctx, "p/r", "x", []byte("1")))
	assert.Equal(t, uint64(1), s.Metrics().OriginWriteErr)

	_, err = s.Get(ctx, "p/r", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, uint64(1), s.Metrics().OriginReadErr)

	u, err := s.GetURL(ctx, "p/r", "big")
	require.NoError(t, err)
	assert.Empty(t, u)
	_, _ = s.GetURL(ctx, "p/r", "big")
	assert.Equal(t, 2, origin.urls, "empty URLs are not cached")
}

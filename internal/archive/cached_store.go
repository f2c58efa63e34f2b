package archive

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"docscribe/internal/pathutil"
)

type CacheConfig struct {
	BlobTTL        time.Duration `yaml:"blob_ttl"`
	BlobMaxEntries int           `yaml:"blob_max_entries"`
	// BlobMaxSize skips caching files larger than this many bytes.
	BlobMaxSize int `yaml:"blob_max_size"`

	ListTTL        time.Duration `yaml:"list_ttl"`
	ListMaxEntries int           `yaml:"list_max_entries"`

	URLTTL        time.Duration `yaml:"url_ttl"`
	URLMaxEntries int           `yaml:"url_max_entries"`
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 256,
		BlobMaxSize:    4 * 1024 * 1024, // 4MiB
		ListTTL:        30 * time.Second,
		ListMaxEntries: 128,
		URLTTL:         5 * time.Minute,
		URLMaxEntries:  256,
	}
}

func (c CacheConfig) withDefaults() CacheConfig {
	def := DefaultCacheConfig()
	if c.BlobTTL <= 0 {
		c.BlobTTL = def.BlobTTL
	}
	if c.BlobMaxEntries <= 0 {
		c.BlobMaxEntries = def.BlobMaxEntries
	}
	if c.BlobMaxSize <= 0 {
		c.BlobMaxSize = def.BlobMaxSize
	}
	if c.ListTTL <= 0 {
		c.ListTTL = def.ListTTL
	}
	if c.ListMaxEntries <= 0 {
		c.ListMaxEntries = def.ListMaxEntries
	}
	if c.URLTTL <= 0 {
		c.URLTTL = def.URLTTL
	}
	if c.URLMaxEntries <= 0 {
		c.URLMaxEntries = def.URLMaxEntries
	}
	return c
}

type MetricsSnapshot struct {
	BlobHits       uint64 `json:"blob_hits"`
	BlobMisses     uint64 `json:"blob_misses"`
	ListHits       uint64 `json:"list_hits"`
	ListMisses     uint64 `json:"list_misses"`
	URLHits        uint64 `json:"url_hits"`
	URLMisses      uint64 `json:"url_misses"`
	OriginReads    uint64 `json:"origin_reads"`
	OriginWrites   uint64 `json:"origin_writes"`
	OriginReadErr  uint64 `json:"origin_read_errors"`
	OriginWriteErr uint64 `json:"origin_write_errors"`
}

type metrics struct {
	blobHits       atomic.Uint64
	blobMisses     atomic.Uint64
	listHits       atomic.Uint64
	listMisses     atomic.Uint64
	urlHits        atomic.Uint64
	urlMisses      atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

// CachedStore is a read-through cache in front of another Store.
type CachedStore struct {
	origin  Store
	maxBlob int

	blobs   *expirable.LRU[string, []byte]
	lists   *expirable.LRU[string, []string]
	urls    *expirable.LRU[string, string]
	metrics metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	cfg = cfg.withDefaults()
	return &CachedStore{
		origin:  origin,
		maxBlob: cfg.BlobMaxSize,
		blobs:   expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		lists:   expirable.NewLRU[string, []string](cfg.ListMaxEntries, nil, cfg.ListTTL),
		urls:    expirable.NewLRU[string, string](cfg.URLMaxEntries, nil, cfg.URLTTL),
	}
}

// Origin is the wrapped store.
func (s *CachedStore) Origin() Store { return s.origin }

func (s *CachedStore) Metrics() MetricsSnapshot {
	m := &s.metrics
	return MetricsSnapshot{
		BlobHits:       m.blobHits.Load(),
		BlobMisses:     m.blobMisses.Load(),
		ListHits:       m.listHits.Load(),
		ListMisses:     m.listMisses.Load(),
		URLHits:        m.urlHits.Load(),
		URLMisses:      m.urlMisses.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

func (s *CachedStore) Put(ctx context.Context, key, name string, content []byte) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Put(ctx, key, name, content); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}
	ck := cacheKey(key, name)
	s.setBlob(ck, content)
	s.urls.Remove(ck)
	// Any listed prefix of key may now include the new file.
	s.lists.Purge()
	return nil
}

func (s *CachedStore) Get(ctx context.Context, key, name string) ([]byte, error) {
	ck := cacheKey(key, name)
	if raw, ok := s.blobs.Get(ck); ok {
		s.metrics.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.metrics.blobMisses.Add(1)
	s.metrics.originReads.Add(1)

	raw, err := s.origin.Get(ctx, key, name)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.setBlob(ck, raw)
	return append([]byte(nil), raw...), nil
}

func (s *CachedStore) GetURL(ctx context.Context, key, name string) (string, error) {
	ck := cacheKey(key, name)
	if cached, ok := s.urls.Get(ck); ok {
		s.metrics.urlHits.Add(1)
		return cached, nil
	}
	s.metrics.urlMisses.Add(1)
	s.metrics.originReads.Add(1)

	u, err := s.origin.GetURL(ctx, key, name)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return "", err
	}
	if strings.TrimSpace(u) != "" {
		s.urls.Add(ck, u)
	}
	return u, nil
}

func (s *CachedStore) List(ctx context.Context, key string) ([]string, error) {
	lk := pathutil.Normalize(key)
	if list, ok := s.lists.Get(lk); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), list...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)

	list, err := s.origin.List(ctx, key)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	s.lists.Add(lk, append([]string(nil), list...))
	return list, nil
}

func (s *CachedStore) setBlob(ck string, content []byte) {
	if len(content) > s.maxBlob {
		s.blobs.Remove(ck)
		return
	}
	s.blobs.Add(ck, append([]byte(nil), content...))
}

func cacheKey(key, name string) string {
	return pathutil.Normalize(key) + "\x00" + pathutil.Normalize(name)
}

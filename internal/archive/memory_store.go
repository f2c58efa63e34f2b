package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key, name string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	k, n, err := cleanRef(key, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectKey(k, n)] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key, name string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	k, n, err := cleanRef(key, name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[objectKey(k, n)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *MemoryStore) List(_ context.Context, key string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	prefix := k + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 16)
	for full := range s.data {
		if strings.HasPrefix(full, prefix) {
			out = append(out, strings.TrimPrefix(full, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

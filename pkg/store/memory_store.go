package store

import (
	"context"
	"encoding/json"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps records in-process for development and tests. It
// stores marshaled bytes rather than live pointers so both Store
// implementations share the same JSON round-trip and corruption
// semantics.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (s *MemoryStore) Save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.cache.Set(key, data, cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	x, found := s.cache.Get(key)
	if !found {
		return false, nil
	}
	data, ok := x.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// Corrupt persisted state reads as empty.
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Clear(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Corrupt overwrites a key with unparseable bytes. Test hook for the
// corruption-tolerance contract.
func (s *MemoryStore) Corrupt(key string) {
	s.cache.Set(key, []byte("{not json"), cache.NoExpiration)
}

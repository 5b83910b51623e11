package kv

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used in tests and when no database
// path is configured.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{balances: make(map[string]int64)}
}

func (s *MemoryStore) Balance(_ context.Context, user string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[normalize(user)], nil
}

func (s *MemoryStore) Adjust(_ context.Context, user string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := normalize(user)
	s.balances[u] += delta
	return s.balances[u], nil
}

func (s *MemoryStore) Top(_ context.Context, n int) ([]BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BalanceEntry, 0, len(s.balances))
	for u, b := range s.balances {
		out = append(out, BalanceEntry{User: u, Balance: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

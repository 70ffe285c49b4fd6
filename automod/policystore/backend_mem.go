package policystore

import (
	"context"
	"errors"
	"sync"
)

var errMemSaveFailed = errors.New("mem backend: save failed")

// In-memory backend, for tests and ephemeral deployments. SetFailSaves simulates a durability failure.
type MemBackend struct {
	mu        sync.Mutex
	data      map[string]CommunityPolicy
	saves     int
	failSaves bool
}

var _ Backend = (*MemBackend)(nil)

func NewMemBackend() *MemBackend {
	return &MemBackend{
		data: make(map[string]CommunityPolicy),
	}
}

func (b *MemBackend) Load(ctx context.Context) (map[string]CommunityPolicy, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]CommunityPolicy, len(b.data))
	for k, v := range b.data {
		out[k] = v.clone()
	}
	return out, nil
}

func (b *MemBackend) Save(ctx context.Context, policies map[string]CommunityPolicy) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSaves {
		return errMemSaveFailed
	}
	b.saves++
	b.data = make(map[string]CommunityPolicy, len(policies))
	for k, v := range policies {
		b.data[k] = v.clone()
	}
	return nil
}

// Number of successful saves so far.
func (b *MemBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *MemBackend) SetFailSaves(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSaves = fail
}

package policystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetOrCreateDefaults(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	backend := NewMemBackend()
	s, err := NewStore(ctx, backend, nil)
	require.NoError(t, err)

	for _, id := range []string{"c1", "c2", "123456789"} {
		p, err := s.GetOrCreate(ctx, id)
		assert.NoError(err)
		assert.True(p.WordFilterEnabled)
		assert.Nil(p.ModLogChannelID)

		// idempotent
		again, err := s.GetOrCreate(ctx, id)
		assert.NoError(err)
		assert.Equal(p, again)
	}
	assert.Equal(3, s.Len())
	// each first access persisted
	assert.Equal(3, backend.Saves())

	loaded, err := backend.Load(ctx)
	assert.NoError(err)
	assert.Equal(DefaultPolicy(), loaded["c2"])

	_, err = s.GetOrCreate(ctx, "")
	assert.ErrorIs(err, ErrInvalidCommunity)
}

func TestStoreToggleIsPureFlip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s, err := NewStore(ctx, NewMemBackend(), nil)
	require.NoError(t, err)

	orig, err := s.GetOrCreate(ctx, "c1")
	assert.NoError(err)

	toggle := func(p *CommunityPolicy) error {
		_, err := p.Toggle("wordfilter")
		return err
	}
	p, err := s.Update(ctx, "c1", toggle)
	assert.NoError(err)
	assert.False(p.WordFilterEnabled)
	p, err = s.Update(ctx, "c1", toggle)
	assert.NoError(err)
	assert.Equal(orig, p)

	_, err = s.Update(ctx, "c1", func(p *CommunityPolicy) error {
		_, err := p.Toggle("nope")
		return err
	})
	assert.ErrorIs(err, ErrUnknownFeature)
	// failed mutation leaves the value alone
	p, err = s.GetOrCreate(ctx, "c1")
	assert.NoError(err)
	assert.Equal(orig, p)
}

func TestStorePersistenceFailureKeepsMemory(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	backend := NewMemBackend()
	s, err := NewStore(ctx, backend, nil)
	require.NoError(t, err)

	_, err = s.GetOrCreate(ctx, "c1")
	assert.NoError(err)

	backend.SetFailSaves(true)
	p, err := s.Update(ctx, "c1", func(p *CommunityPolicy) error {
		p.SetLogChannel("chan9")
		return nil
	})
	assert.ErrorIs(err, ErrPersistence)
	ch, ok := p.LogChannel()
	assert.True(ok)
	assert.Equal("chan9", ch)

	// in-memory value survives, durable value does not
	p, err = s.GetOrCreate(ctx, "c1")
	assert.NoError(err)
	ch, _ = p.LogChannel()
	assert.Equal("chan9", ch)
	durable, _ := backend.Load(ctx)
	_, ok = durable["c1"].LogChannel()
	assert.False(ok)

	// default creation never fails, even when the write does
	p, err = s.GetOrCreate(ctx, "c2")
	assert.NoError(err)
	assert.Equal(DefaultPolicy(), p)

	// next successful write carries everything
	backend.SetFailSaves(false)
	_, err = s.Update(ctx, "c2", func(p *CommunityPolicy) error {
		_, err := p.Toggle("wordFilterEnabled")
		return err
	})
	assert.NoError(err)
	durable, _ = backend.Load(ctx)
	ch, _ = durable["c1"].LogChannel()
	assert.Equal("chan9", ch)
	assert.False(durable["c2"].WordFilterEnabled)
}

func TestStoreReturnsCopies(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s, err := NewStore(ctx, NewMemBackend(), nil)
	require.NoError(t, err)

	p, err := s.Update(ctx, "c1", func(p *CommunityPolicy) error {
		p.SetLogChannel("chan1")
		return nil
	})
	assert.NoError(err)
	*p.ModLogChannelID = "mutated"

	again, err := s.GetOrCreate(ctx, "c1")
	assert.NoError(err)
	ch, _ := again.LogChannel()
	assert.Equal("chan1", ch)
}

func TestStoreConcurrentUpdates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	backend := NewMemBackend()
	s, err := NewStore(ctx, backend, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i%4)
			for j := 0; j < 10; j++ {
				_, err := s.Update(ctx, id, func(p *CommunityPolicy) error {
					_, err := p.Toggle("wordfilter")
					return err
				})
				assert.NoError(err)
			}
		}(i)
	}
	wg.Wait()

	// each community was toggled an even number of times
	for i := 0; i < 4; i++ {
		p, err := s.GetOrCreate(ctx, fmt.Sprintf("c%d", i))
		assert.NoError(err)
		assert.True(p.WordFilterEnabled)
	}
	assert.Equal(80, backend.Saves())
}

type failingLoadBackend struct {
	MemBackend
}

func (b *failingLoadBackend) Load(ctx context.Context) (map[string]CommunityPolicy, error) {
	return nil, errors.New("corrupt")
}

func TestNewStoreLoadFailure(t *testing.T) {
	_, err := NewStore(context.Background(), &failingLoadBackend{}, nil)
	assert.Error(t, err)
}

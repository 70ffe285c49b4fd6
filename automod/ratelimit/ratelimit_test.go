package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBurstThreshold(t *testing.T) {
	assert := assert.New(t)
	clk := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewBurstLimiter(DefaultConfig(), clk)

	// five messages within the window are fine
	for i := 1; i <= 5; i++ {
		res := l.Hit("u1")
		assert.Equal(i, res.Count)
		assert.False(res.Exceeded)
		clk.Advance(1 * time.Second)
	}
	assert.Equal(5, l.Count("u1"))

	// sixth, still within 10s of the first, trips
	res := l.Hit("u1")
	assert.True(res.Exceeded)
	assert.Equal(6, res.Count)
	assert.Equal(0, l.Len())
	assert.Equal(0, clk.Pending())

	// a fresh window starts at one
	res = l.Hit("u1")
	assert.False(res.Exceeded)
	assert.Equal(1, res.Count)
}

func TestBurstNaturalExpiry(t *testing.T) {
	assert := assert.New(t)
	clk := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewBurstLimiter(DefaultConfig(), clk)

	for i := 0; i < 5; i++ {
		l.Hit("u1")
	}
	assert.Equal(1, l.Len())

	clk.Advance(9999 * time.Millisecond)
	assert.Equal(1, l.Len())
	clk.Advance(1 * time.Millisecond)
	assert.Equal(0, l.Len())
	assert.Equal(0, l.Count("u1"))

	res := l.Hit("u1")
	assert.Equal(1, res.Count)
	assert.False(res.Exceeded)
}

func TestBurstKeysIndependent(t *testing.T) {
	assert := assert.New(t)
	clk := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewBurstLimiter(Config{Threshold: 2, Window: time.Second}, clk)

	l.Hit("a")
	l.Hit("a")
	l.Hit("b")
	assert.True(l.Hit("a").Exceeded)
	assert.False(l.Hit("b").Exceeded)
	assert.Equal(2, l.Count("b"))
}

func TestBurstLateTimer(t *testing.T) {
	assert := assert.New(t)
	clk := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewBurstLimiter(DefaultConfig(), clk)

	for i := 0; i < 5; i++ {
		l.Hit("u1")
	}
	// window has ended but the expiry callback has not run yet
	clk.Set(clk.Now().Add(10 * time.Second))
	res := l.Hit("u1")
	assert.Equal(1, res.Count)
	assert.False(res.Exceeded)
}

func TestBurstStaleExpiry(t *testing.T) {
	assert := assert.New(t)
	clk := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewBurstLimiter(DefaultConfig(), clk)

	l.Hit("u1")
	staleGen := l.gen.Load()
	for i := 0; i < 5; i++ {
		l.Hit("u1")
	}
	// tripped and removed; new window opened
	l.Hit("u1")
	assert.Equal(1, l.Count("u1"))

	// an expiry for the old window must not remove the new one
	l.expire("u1", staleGen)
	assert.Equal(1, l.Count("u1"))

	// expiry for a missing key is a no-op
	l.expire("missing", staleGen)
	assert.Equal(1, l.Len())
}

func TestBurstStop(t *testing.T) {
	assert := assert.New(t)
	clk := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	l := NewBurstLimiter(DefaultConfig(), clk)

	l.Hit("a")
	l.Hit("b")
	assert.Equal(2, clk.Pending())
	l.Stop()
	assert.Equal(0, l.Len())
	assert.Equal(0, clk.Pending())
	assert.Equal(0, l.Hit("a").Count)
}

func TestBurstConcurrent(t *testing.T) {
	assert := assert.New(t)
	// real clock; the window is long enough to never expire during the test
	l := NewBurstLimiter(Config{Threshold: 5, Window: time.Hour}, nil)
	defer l.Stop()

	var exceeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.Hit("u1").Exceeded {
					exceeded.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	// every sixth hit trips, regardless of interleaving
	assert.Equal(int64(10), exceeded.Load())
	assert.Equal(0, l.Len())
}

func TestDefaultsApplied(t *testing.T) {
	l := NewBurstLimiter(Config{}, nil)
	defer l.Stop()
	assert.Equal(t, DefaultConfig(), l.Config())
}

// Per-key burst detection over fixed-length activity windows.
//
// A window opens on the first hit for a key and is removed either when its expiry timer fires (silently) or when a hit pushes the count over the threshold. Window state is not durable.
package ratelimit

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type Config struct {
	// Number of hits allowed within a single window. The hit that exceeds this count trips the limiter.
	Threshold int
	Window    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Threshold: 5,
		Window:    10 * time.Second,
	}
}

// Outcome of recording a single hit.
type Result struct {
	// Count within the current window, including this hit
	Count int
	// True if this hit exceeded the threshold. The window has already been removed.
	Exceeded bool
}

type window struct {
	count     int
	expiresAt time.Time
	gen       uint64
	timer     Timer
}

type BurstLimiter struct {
	config  Config
	clock   Clock
	windows *xsync.MapOf[string, *window]
	gen     atomic.Uint64
	stopped atomic.Bool
}

func NewBurstLimiter(config Config, clock Clock) *BurstLimiter {
	if config.Threshold <= 0 {
		config.Threshold = DefaultConfig().Threshold
	}
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &BurstLimiter{
		config:  config,
		clock:   clock,
		windows: xsync.NewMapOf[string, *window](),
	}
}

func (l *BurstLimiter) Config() Config {
	return l.config
}

// Records a hit for key.
//
// Counting, threshold check, expiry cancellation, and window removal happen inside a single per-key compute step, so an expiry can never interleave with a threshold crossing.
func (l *BurstLimiter) Hit(key string) Result {
	var res Result
	if l.stopped.Load() {
		return res
	}
	now := l.clock.Now()
	l.windows.Compute(key, func(old *window, loaded bool) (*window, bool) {
		if loaded && !now.Before(old.expiresAt) {
			// expiry timer is running late; treat the window as already gone
			old.timer.Stop()
			loaded = false
		}
		if !loaded {
			res = Result{Count: 1}
			return l.openWindow(key, now), false
		}
		next := *old
		next.count++
		res = Result{Count: next.count}
		if next.count > l.config.Threshold {
			old.timer.Stop()
			res.Exceeded = true
			return nil, true
		}
		return &next, false
	})
	return res
}

// must be called from inside a compute step for key
func (l *BurstLimiter) openWindow(key string, now time.Time) *window {
	gen := l.gen.Add(1)
	w := &window{
		count:     1,
		expiresAt: now.Add(l.config.Window),
		gen:       gen,
	}
	w.timer = l.clock.AfterFunc(l.config.Window, func() {
		l.expire(key, gen)
	})
	return w
}

// Removes the window for key, but only if it is still the window that scheduled this expiry.
func (l *BurstLimiter) expire(key string, gen uint64) {
	l.windows.Compute(key, func(old *window, loaded bool) (*window, bool) {
		if !loaded {
			return nil, true
		}
		if old.gen != gen {
			return old, false
		}
		return nil, true
	})
}

// Current count for key, or zero if no window is open.
func (l *BurstLimiter) Count(key string) int {
	w, ok := l.windows.Load(key)
	if !ok {
		return 0
	}
	if !l.clock.Now().Before(w.expiresAt) {
		return 0
	}
	return w.count
}

// Number of open windows.
func (l *BurstLimiter) Len() int {
	return l.windows.Size()
}

// Cancels all pending expiry timers and drops all windows. Subsequent hits are ignored.
func (l *BurstLimiter) Stop() {
	l.stopped.Store(true)
	l.windows.Range(func(key string, w *window) bool {
		l.windows.Compute(key, func(old *window, loaded bool) (*window, bool) {
			if loaded {
				old.timer.Stop()
			}
			return nil, true
		})
		return true
	})
}

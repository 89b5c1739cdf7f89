package timectrl

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the wall-clock time between simulation ticks.
const DefaultInterval = 15 * time.Millisecond

// DefaultFrame is the frame period of the headless loop, about 60 Hz.
const DefaultFrame = time.Second / 60

// SimClock exposes how far the simulation has advanced. Components that
// only read time depend on it rather than on a concrete controller.
type SimClock interface {
	// Elapsed returns the total frame time fed to the clock.
	Elapsed() time.Duration
	// Ticks returns the number of ticks fired so far.
	Ticks() uint64
}

// Mode describes how the headless loop produces frames.
type Mode int

const (
	// RealTime paces frames with a wall-clock ticker and feeds the measured
	// delta.
	RealTime Mode = iota
	// Accelerated feeds synthetic frames of fixed length as fast as the
	// loop can run.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// TimeController turns frame deltas into simulation ticks. A countdown is
// decremented by every frame; when it drops below zero it is reset to the
// interval and one tick fires. Long frames never fire more than one tick.
type TimeController struct {
	mu       sync.RWMutex
	Interval time.Duration
	Mode     Mode

	remaining time.Duration
	elapsed   time.Duration
	ticks     uint64

	listeners      []func(tick uint64)
	frameListeners []func(delta time.Duration)
}

// NewTimeController constructs a controller whose first tick fires once
// more than interval of frame time has been fed to it.
func NewTimeController(interval time.Duration, mode Mode) *TimeController {
	return &TimeController{
		Interval:  interval,
		Mode:      mode,
		remaining: interval,
	}
}

// Elapsed implements SimClock.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.elapsed
}

// Ticks implements SimClock.
func (tc *TimeController) Ticks() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.ticks
}

// Reset rewinds the clock and restarts the countdown.
func (tc *TimeController) Reset() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.elapsed = 0
	tc.ticks = 0
	tc.remaining = tc.Interval
}

// AddListener registers a callback invoked on every tick with the tick
// number, starting at 1.
func (tc *TimeController) AddListener(fn func(tick uint64)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// AddFrameListener registers a callback invoked after every frame, once
// any tick of that frame has run.
func (tc *TimeController) AddFrameListener(fn func(delta time.Duration)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.frameListeners = append(tc.frameListeners, fn)
}

// Advance feeds one frame of length delta and reports whether it fired a
// tick.
func (tc *TimeController) Advance(delta time.Duration) bool {
	tc.mu.Lock()
	tc.elapsed += delta
	tc.remaining -= delta
	fired := tc.remaining < 0
	var tick uint64
	if fired {
		tc.remaining = tc.Interval
		tc.ticks++
		tick = tc.ticks
	}
	listeners := append([]func(uint64){}, tc.listeners...)
	tc.mu.Unlock()

	if fired {
		for _, fn := range listeners {
			fn(tick)
		}
	}
	return fired
}

// Frame advances by delta and then notifies frame listeners.
func (tc *TimeController) Frame(delta time.Duration) bool {
	fired := tc.Advance(delta)

	tc.mu.RLock()
	frames := append([]func(time.Duration){}, tc.frameListeners...)
	tc.mu.RUnlock()
	for _, fn := range frames {
		fn(delta)
	}
	return fired
}

// Start runs the frame loop in a separate goroutine until ctx is cancelled
// or, when duration > 0, until that much frame time has been fed. It
// returns a channel that is closed when the loop finishes.
func (tc *TimeController) Start(ctx context.Context, frame, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		finished := func() bool {
			return duration > 0 && tc.Elapsed() >= duration
		}

		if tc.Mode == Accelerated {
			for !finished() {
				if ctx.Err() != nil {
					return
				}
				tc.Frame(frame)
			}
			return
		}

		ticker := time.NewTicker(frame)
		defer ticker.Stop()
		last := time.Now()
		for !finished() {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				tc.Frame(now.Sub(last))
				last = now
			}
		}
	}()
	return done
}

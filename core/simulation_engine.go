package core

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/neuromesh/internal/logging"
)

// TickStats describes one completed simulation step.
type TickStats struct {
	Tick uint64
	CommitStats
	Duration time.Duration
}

// TickMetricsRecorder receives a summary of every step.
type TickMetricsRecorder interface {
	RecordTick(TickStats)
}

// SimulationEngine advances a Network one discrete tick at a time.
type SimulationEngine struct {
	Network *Network

	rng           Rand
	tick          uint64
	tickListeners []func(TickStats)
	metrics       TickMetricsRecorder
	log           logging.Logger
}

// EngineOption customises SimulationEngine construction.
type EngineOption func(*SimulationEngine)

// WithRand sets the randomness source used for spontaneous firing and
// threshold drift. Seed it for reproducible runs.
func WithRand(r Rand) EngineOption {
	return func(se *SimulationEngine) {
		se.rng = r
	}
}

// WithSeed seeds a PCG source for reproducible runs.
func WithSeed(seed uint64) EngineOption {
	return func(se *SimulationEngine) {
		se.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithMetricsRecorder attaches an optional per-tick metrics recorder.
func WithMetricsRecorder(m TickMetricsRecorder) EngineOption {
	return func(se *SimulationEngine) {
		se.metrics = m
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(se *SimulationEngine) {
		se.log = l
	}
}

// NewSimulationEngine wraps nw. Without WithRand or WithSeed the engine
// seeds itself from the wall clock.
func NewSimulationEngine(nw *Network, opts ...EngineOption) *SimulationEngine {
	se := &SimulationEngine{
		Network: nw,
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(se)
	}
	if se.rng == nil {
		now := uint64(time.Now().UnixNano())
		se.rng = rand.New(rand.NewPCG(now, now>>1))
	}
	if se.log == nil {
		se.log = logging.Noop()
	}
	return se
}

// RegisterTickListener adds a callback invoked after every step.
func (se *SimulationEngine) RegisterTickListener(fn func(TickStats)) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Ticks returns the number of completed steps.
func (se *SimulationEngine) Ticks() uint64 { return se.tick }

// Step runs one tick. Every entity propagates from pre-tick state before
// any entity commits; the two passes are never merged.
func (se *SimulationEngine) Step(ctx context.Context) TickStats {
	start := time.Now()

	se.Network.Propagate()
	commit := se.Network.Commit(se.rng)

	se.tick++
	stats := TickStats{
		Tick:        se.tick,
		CommitStats: commit,
		Duration:    time.Since(start),
	}

	if stats.SpontaneousFirings > 0 {
		se.log.Debug(ctx, "spontaneous firing",
			logging.Uint64("tick", stats.Tick),
			logging.Int("count", stats.SpontaneousFirings),
		)
	}
	if se.metrics != nil {
		se.metrics.RecordTick(stats)
	}
	for _, fn := range se.tickListeners {
		fn(stats)
	}
	return stats
}

// Run executes up to ticks steps, stopping early if ctx is cancelled. It
// returns the stats of the last completed step.
func (se *SimulationEngine) Run(ctx context.Context, ticks int) TickStats {
	var last TickStats
	for i := 0; i < ticks; i++ {
		if ctx.Err() != nil {
			return last
		}
		last = se.Step(ctx)
	}
	return last
}

package api

import (
	"context"
	"sync/atomic"
)

// Lane selects which semaphore a request waits on. Ranking and review are
// cheap and use LaneFast; deep searches use LaneSlow.
type Lane int

const (
	LaneFast Lane = iota
	LaneSlow
)

func (l Lane) String() string {
	if l == LaneSlow {
		return "slow"
	}
	return "fast"
}

// lane is a counting semaphore with usage counters
type lane struct {
	sem    chan struct{}
	queued atomic.Int64
	active atomic.Int64
	total  atomic.Int64
}

func newLane(size int) *lane {
	return &lane{sem: make(chan struct{}, size)}
}

func (l *lane) acquire(ctx context.Context) error {
	l.queued.Add(1)
	defer l.queued.Add(-1)

	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lane) tryAcquire() bool {
	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

func (l *lane) release() {
	l.active.Add(-1)
	l.total.Add(1)
	<-l.sem
}

// WorkerPool bounds concurrent engine work with one semaphore per lane.
type WorkerPool struct {
	fast *lane
	slow *lane
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	MaxFastWorkers int // Max concurrent fast operations (default: 100)
	MaxSlowWorkers int // Max concurrent slow operations (default: 4)
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxFastWorkers: 100,
		MaxSlowWorkers: 4,
	}
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	def := DefaultPoolConfig()
	if config.MaxFastWorkers <= 0 {
		config.MaxFastWorkers = def.MaxFastWorkers
	}
	if config.MaxSlowWorkers <= 0 {
		config.MaxSlowWorkers = def.MaxSlowWorkers
	}
	return &WorkerPool{
		fast: newLane(config.MaxFastWorkers),
		slow: newLane(config.MaxSlowWorkers),
	}
}

func (p *WorkerPool) lane(l Lane) *lane {
	if l == LaneSlow {
		return p.slow
	}
	return p.fast
}

// Acquire waits for a slot in lane l. The returned function releases it
// and must be called exactly once.
func (p *WorkerPool) Acquire(ctx context.Context, l Lane) (func(), error) {
	ln := p.lane(l)
	if err := ln.acquire(ctx); err != nil {
		return nil, err
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			ln.release()
		}
	}, nil
}

// TryAcquire takes a slot in lane l without blocking. ok is false when the
// lane is full.
func (p *WorkerPool) TryAcquire(l Lane) (release func(), ok bool) {
	ln := p.lane(l)
	if !ln.tryAcquire() {
		return nil, false
	}
	return ln.release, true
}

// LaneStats is a snapshot of one lane.
type LaneStats struct {
	Active int64 `json:"active"`
	Queued int64 `json:"queued"`
	Total  int64 `json:"total"`
	Max    int   `json:"max"`
}

// PoolStats is a snapshot of both lanes.
type PoolStats struct {
	Fast LaneStats `json:"fast"`
	Slow LaneStats `json:"slow"`
}

func (l *lane) stats() LaneStats {
	return LaneStats{
		Active: l.active.Load(),
		Queued: l.queued.Load(),
		Total:  l.total.Load(),
		Max:    cap(l.sem),
	}
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{Fast: p.fast.stats(), Slow: p.slow.stats()}
}

package orchestrator

import (
	"context"
	"time"
)

// Policy controls polling cadence and bounds.
type Policy struct {
	// JobInterval is the sleep between polls of a goal or snapshot job.
	JobInterval time.Duration
	// PlanJobInterval is the sleep after each job check of a sequential
	// plan pass, or after each pass when Concurrency > 1.
	PlanJobInterval time.Duration
	// Timeout bounds the whole run. Zero means no bound.
	Timeout time.Duration
	// MaxPolls bounds the number of single-job polls or plan passes. Zero means no bound.
	MaxPolls int
	// Concurrency is the number of parallel status requests in a plan pass.
	Concurrency int
}

// DefaultPolicy returns the default cadence: 5s between
// polls of a single job, 2s after each job check of a plan, no bounds.
func DefaultPolicy() Policy {
	return Policy{
		JobInterval:     5 * time.Second,
		PlanJobInterval: 2 * time.Second,
		Concurrency:     1,
	}
}

// Clock suspends the poll loops.
type Clock interface {
	// Sleep waits for d or until ctx is done, whichever happens first.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on wall-clock time.
type RealClock struct{}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package wait provides context-aware sleeping and a bounded polling primitive
// shared by every wait condition in the acquisition pipeline.
package wait

import (
	"context"
	"errors"
	"time"
)

// ErrCeilingReached is returned by Poll when the condition never held within the ceiling.
var ErrCeilingReached = errors.New("poll ceiling reached")

// Options bounds a Poll.
type Options struct {
	// Interval is the pause between two checks.
	Interval time.Duration
	// Ceiling is the total time budget, measured on the wall clock from the
	// first check. At most Ceiling/Interval checks are made even when each is instant.
	Ceiling time.Duration

	now func() time.Time
}

func (o Options) clock() func() time.Time {
	if o.now == nil {
		return time.Now
	}
	return o.now
}

// checks returns how many times the condition may be evaluated.
func (o Options) checks() int {
	if o.Interval <= 0 || o.Ceiling <= 0 {
		return 1
	}
	n := int(o.Ceiling / o.Interval)
	if n < 1 {
		return 1
	}
	return n
}

// Condition reports whether the awaited state has been reached.
type Condition func(ctx context.Context) (bool, error)

// Poll evaluates cond until it returns true, the ceiling elapses, the check
// budget is spent, or ctx is done. It returns the number of checks made. A
// condition error aborts the poll and is returned as is.
func Poll(ctx context.Context, opts Options, cond Condition) (int, error) {
	now := opts.clock()
	deadline := now().Add(opts.Ceiling)
	limit := opts.checks()

	for i := 1; ; i++ {
		done, err := cond(ctx)
		if err != nil {
			return i, err
		}
		if done {
			return i, nil
		}

		remaining := deadline.Sub(now())
		if i >= limit || remaining <= 0 {
			return i, ErrCeilingReached
		}

		delay := opts.Interval
		if delay > remaining {
			delay = remaining
		}
		if err := Sleep(ctx, delay); err != nil {
			return i, err
		}
	}
}

// Sleep pauses for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

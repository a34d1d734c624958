package job

import (
	"context"
	"time"
)

// Crawl poll defaults, bounding a crawl to roughly two minutes.
const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 40
)

// Options controls Poll.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	// OnProgress is called after every pending check.
	OnProgress func(attempt int, progress string)
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Poll calls check until it reports a terminal status, the attempt budget runs
// out, or ctx is done. The first check runs immediately and Interval elapses
// between checks. A check error counts as a failure. Exhausting MaxAttempts
// yields Failed("timed-out") and cancellation yields Failed("cancelled");
// neither is returned as an error.
//
// When j is not nil its attempt counter and state are updated.
func Poll[T any](ctx context.Context, j *Job, check func(context.Context) (Status[T], error), opts Options) Status[T] {
	opts = opts.withDefaults()
	if j == nil {
		j = New("", "")
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(opts.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return finish(j, StateFailed, Failed[T](ReasonCancelled))
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return finish(j, StateFailed, Failed[T](ReasonCancelled))
		}

		j.Attempts = attempt
		st, err := check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return finish(j, StateFailed, Failed[T](ReasonCancelled))
			}
			return finish(j, StateFailed, Failed[T](err.Error()))
		}

		switch st.State {
		case StateSucceeded:
			return finish(j, StateSucceeded, st)
		case StateFailed, StateTimedOut:
			st.State = StateFailed
			return finish(j, StateFailed, st)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(attempt, st.Progress)
		}
	}
	return finish(j, StateTimedOut, Failed[T](ReasonTimedOut))
}

func finish[T any](j *Job, state State, st Status[T]) Status[T] {
	if !j.Terminal() {
		_ = j.Finish(state)
	}
	return st
}

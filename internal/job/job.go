// Package job tracks asynchronous external operations and drives them to a terminal state.
package job

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the type of external operation.
type Kind string

const (
	KindCrawl    Kind = "crawl"
	KindGenerate Kind = "generate"
)

// State is the lifecycle position of a job or a status report.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed-out"
)

// Reasons synthesized by Poll.
const (
	ReasonTimedOut  = "timed-out"
	ReasonCancelled = "cancelled"
)

var (
	// ErrTerminal is returned when finishing a job that already finished.
	ErrTerminal = errors.New("job already terminal")
	// ErrTimedOut classifies a poll that ran out of attempts.
	ErrTimedOut = errors.New("timed-out")
	// ErrCancelled classifies a poll stopped by its context.
	ErrCancelled = errors.New("cancelled")
)

// Job is one outstanding external operation. Transitions only move out of pending.
type Job struct {
	ID        string
	Kind      Kind
	State     State
	Attempts  int
	StartedAt time.Time
}

// New returns a pending job.
func New(id string, kind Kind) *Job {
	return &Job{
		ID:        id,
		Kind:      kind,
		State:     StatePending,
		StartedAt: time.Now().UTC(),
	}
}

// Terminal reports whether the job has left the pending state.
func (j *Job) Terminal() bool {
	return j.State != StatePending
}

// Finish moves the job into a terminal state.
func (j *Job) Finish(state State) error {
	if j.Terminal() {
		return fmt.Errorf("finish job %s as %s: %w", j.ID, state, ErrTerminal)
	}
	if state == StatePending {
		return fmt.Errorf("finish job %s: pending is not terminal", j.ID)
	}
	j.State = state
	return nil
}

// Status is one report from a job check. Result is set only when succeeded.
type Status[T any] struct {
	State    State
	Progress string
	Result   T
	Reason   string
}

// Pending reports an unfinished job.
func Pending[T any](progress string) Status[T] {
	return Status[T]{State: StatePending, Progress: progress}
}

// Succeeded reports a finished job carrying its result.
func Succeeded[T any](result T) Status[T] {
	return Status[T]{State: StateSucceeded, Result: result}
}

// Failed reports a job that will not succeed.
func Failed[T any](reason string) Status[T] {
	return Status[T]{State: StateFailed, Reason: reason}
}

// Err converts a failed status into an error. It returns nil otherwise.
func (s Status[T]) Err() error {
	if s.State != StateFailed {
		return nil
	}
	switch s.Reason {
	case ReasonTimedOut:
		return ErrTimedOut
	case ReasonCancelled:
		return ErrCancelled
	}
	return errors.New(s.Reason)
}

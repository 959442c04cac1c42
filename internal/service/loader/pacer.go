package loader

import (
	"context"
	"time"
)

// Pacer decides how long the loader waits between successful writes.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay waits the same duration every time.
type FixedDelay struct {
	Delay time.Duration
}

func (p FixedDelay) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay never waits.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}

// NewPacer returns NoDelay for a non-positive delay.
func NewPacer(delay time.Duration) Pacer {
	if delay <= 0 {
		return NoDelay{}
	}
	return FixedDelay{Delay: delay}
}

package walker

import (
	"context"
	"time"
)

// Pacer decides how long the walker rests between two entries.
type Pacer interface {
	Pause(ctx context.Context) error
}

type fixedDelay time.Duration

// FixedDelay waits the full d between entries, however long extraction took.
func FixedDelay(d time.Duration) Pacer { return fixedDelay(d) }

func (f fixedDelay) Pause(ctx context.Context) error {
	if f <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(f))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type noDelay struct{}

// NoDelay never waits. Used in tests and with the static backend's own limiter.
func NoDelay() Pacer { return noDelay{} }

func (noDelay) Pause(ctx context.Context) error { return ctx.Err() }

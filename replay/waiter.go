package replay

import (
	"context"
	"time"

	"github.com/derktes/rfsniffer/clock"
)

// Waiter blocks for a precise duration.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// Spin busy-waits by sampling its clock in a tight loop. It never yields to
// the scheduler, trading a CPU core for sub-millisecond accuracy that
// time.Sleep does not give.
type Spin struct {
	Clock clock.Clock
}

func (s Spin) Wait(ctx context.Context, d time.Duration) error {
	clk := s.Clock
	if clk == nil {
		clk = clock.Wall{}
	}
	done := ctx.Done()
	begin := clk.Now()
	for clk.Now().Sub(begin) < d {
		select {
		case <-done:
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Simulated advances a simulated clock by exactly the requested duration.
type Simulated struct {
	Clock *clock.Sim
}

func (s Simulated) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Clock.Advance(d)
	return nil
}

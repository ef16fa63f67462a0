// Package replay drives a transmitter pin from a stored pulse train.
package replay

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/derktes/rfsniffer/gpio"
	"github.com/derktes/rfsniffer/pulse"
)

type Config struct {
	// Waiter times the gaps between level changes; Spin on the wall clock
	// when nil.
	Waiter Waiter
	Logger *log.Logger
}

type Replayer struct {
	waiter Waiter
	logger *log.Logger
}

func New(cfg Config) *Replayer {
	r := &Replayer{waiter: cfg.Waiter, logger: cfg.Logger}
	if r.waiter == nil {
		r.waiter = Spin{}
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// Replay sets out to the first sample's level at once, then for each later
// sample waits its duration and sets its level. An aborted replay leaves the
// pin low. An empty train touches nothing.
func (r *Replayer) Replay(ctx context.Context, train pulse.Train, out gpio.Output) (err error) {
	if len(train) == 0 {
		return nil
	}
	defer func() {
		if err != nil {
			out.Set(false)
		}
	}()

	if err := out.Set(train[0].Level); err != nil {
		return errors.Wrap(err, "sample 0")
	}
	for i := 1; i < len(train); i++ {
		if err := r.waiter.Wait(ctx, train[i].Time()); err != nil {
			return errors.Wrapf(err, "replay interrupted at sample %d of %d", i, len(train))
		}
		if err := out.Set(train[i].Level); err != nil {
			return errors.Wrapf(err, "sample %d", i)
		}
	}
	r.logger.Debug("replayed", "samples", len(train), "seconds", train.Total())
	return nil
}

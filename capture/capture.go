// Package capture turns edge events from a receiver pin into a pulse train.
package capture

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/derktes/rfsniffer/gpio"
	"github.com/derktes/rfsniffer/pulse"
)

const (
	// DefaultEdgeWindow is how long one wait for an edge may last. Once a
	// signal has been seen, a window without edges ends the capture.
	DefaultEdgeWindow = 1000 * time.Millisecond

	// DefaultMinTransitions is the shortest buffer treated as a signal.
	// Shorter bursts followed by a quiet window are discarded as noise.
	DefaultMinTransitions = 5

	// DefaultIdleTimeout bounds the whole capture. It was 0.1s while edge
	// windows could outlast it.
	DefaultIdleTimeout = 5 * time.Second
)

// Config tunes a Capturer. Timing follows the wall clock, the same clock
// the pin waits on.
type Config struct {
	IdleTimeout    time.Duration
	EdgeWindow     time.Duration
	MinTransitions int
	Logger         *log.Logger
}

// Capturer records pulse trains. It is not safe for concurrent use; the pin
// it reads belongs to one capture at a time.
type Capturer struct {
	cfg Config
}

// New fills unset fields of cfg with the defaults.
func New(cfg Config) *Capturer {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.EdgeWindow <= 0 {
		cfg.EdgeWindow = DefaultEdgeWindow
	}
	if cfg.MinTransitions <= 0 {
		cfg.MinTransitions = DefaultMinTransitions
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Capturer{cfg: cfg}
}

// Capture waits for edges on in and returns the samples seen. It returns
// once a signal of at least MinTransitions edges is followed by a quiet edge
// window, or when IdleTimeout has passed since the call. A train shorter
// than two samples means nothing was captured.
//
// If ctx is cancelled the samples gathered so far are returned with the
// context's error. Errors from the pin are returned without samples.
func (c *Capturer) Capture(ctx context.Context, in gpio.Input) (pulse.Train, error) {
	var (
		start   = time.Now()
		last    = start
		stamp   time.Duration
		stamped bool
		train   pulse.Train
	)
	for {
		if err := ctx.Err(); err != nil {
			return train, err
		}
		remaining := c.cfg.IdleTimeout - time.Since(start)
		if remaining <= 0 {
			c.cfg.Logger.Debug("idle timeout", "transitions", len(train))
			return train, nil
		}
		wait := c.cfg.EdgeWindow
		if remaining < wait {
			wait = remaining
		}

		edge, ok, err := in.WaitForEdge(ctx, wait)
		if err != nil {
			if ctx.Err() != nil {
				return train, ctx.Err()
			}
			return nil, err
		}
		now := time.Now()
		if ok {
			d := now.Sub(last)
			if edge.Stamped && stamped && edge.Stamp >= stamp {
				d = edge.Stamp - stamp
			}
			train = append(train, pulse.Sample{Duration: d.Seconds(), Level: edge.Level})
			last, stamp, stamped = now, edge.Stamp, edge.Stamped
			continue
		}
		if wait < c.cfg.EdgeWindow {
			// the idle timeout cut this window short
			continue
		}
		if len(train) >= c.cfg.MinTransitions {
			return train, nil
		}
		if len(train) > 0 {
			c.cfg.Logger.Debug("discarding noise", "transitions", len(train))
		}
		train = train[:0]
		last, stamped = now, false
	}
}

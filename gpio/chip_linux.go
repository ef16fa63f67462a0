//go:build linux

package gpio

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
)

// edges buffered between the kernel event reader and WaitForEdge
const eventBuffer = 4096

type cdevChip struct {
	cfg   Config
	mu    sync.Mutex
	lines []*gpiocdev.Line
}

// Open returns the character-device backed chip named in cfg.
func Open(cfg Config) (Chip, error) {
	path := cfg.chip()
	if !filepath.IsAbs(path) {
		path = filepath.Join("/dev", path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(ErrHardwareUnavailable, "%s: %v", path, err)
	}
	return &cdevChip{cfg: cfg}, nil
}

func (c *cdevChip) request(pin int, opts ...gpiocdev.LineReqOption) (*gpiocdev.Line, error) {
	offset, err := c.cfg.Offset(pin)
	if err != nil {
		return nil, err
	}
	opts = append(opts, gpiocdev.WithConsumer(c.cfg.consumer()))
	l, err := gpiocdev.RequestLine(c.cfg.chip(), offset, opts...)
	if err != nil {
		return nil, errors.Wrapf(ErrHardwareUnavailable, "request %s line %d: %v", c.cfg.chip(), offset, err)
	}
	c.mu.Lock()
	c.lines = append(c.lines, l)
	c.mu.Unlock()
	return l, nil
}

func (c *cdevChip) Input(pin int, pull Pull) (Input, error) {
	in := &cdevInput{events: make(chan gpiocdev.LineEvent, eventBuffer)}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(in.handle),
	}
	switch pull {
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	}
	l, err := c.request(pin, opts...)
	if err != nil {
		return nil, err
	}
	in.line = l
	return in, nil
}

func (c *cdevChip) Output(pin int, initial bool) (Output, error) {
	l, err := c.request(pin, gpiocdev.AsOutput(bit(initial)))
	if err != nil {
		return nil, err
	}
	return &cdevOutput{line: l}, nil
}

func (c *cdevChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for _, l := range c.lines {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.lines = nil
	return first
}

type cdevInput struct {
	line   *gpiocdev.Line
	events chan gpiocdev.LineEvent
}

// handle runs on the library's event goroutine and must not block.
func (in *cdevInput) handle(evt gpiocdev.LineEvent) {
	select {
	case in.events <- evt:
	default:
	}
}

func (in *cdevInput) Read() (bool, error) {
	v, err := in.line.Value()
	if err != nil {
		return false, errors.Wrap(err, "read line")
	}
	return v != 0, nil
}

func (in *cdevInput) WaitForEdge(ctx context.Context, timeout time.Duration) (Edge, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case evt := <-in.events:
		return Edge{
			Level:   evt.Type == gpiocdev.LineEventRisingEdge,
			Stamp:   evt.Timestamp,
			Stamped: true,
		}, true, nil
	case <-timer.C:
		return Edge{}, false, nil
	case <-ctx.Done():
		return Edge{}, false, ctx.Err()
	}
}

// Lines are released by the chip.
func (in *cdevInput) Close() error { return nil }

type cdevOutput struct {
	line *gpiocdev.Line
}

func (out *cdevOutput) Set(level bool) error {
	return errors.Wrap(out.line.SetValue(bit(level)), "set line")
}

func (out *cdevOutput) Close() error { return nil }

func bit(level bool) int {
	if level {
		return 1
	}
	return 0
}

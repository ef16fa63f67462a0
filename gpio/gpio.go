// Package gpio abstracts the pins a receiver and a transmitter are wired to.
// The Linux implementation uses the GPIO character device; the virtual chip
// lets capture and replay run without hardware.
package gpio

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrHardwareUnavailable = errors.New("gpio hardware unavailable")
	ErrInvalidPin          = errors.New("invalid pin")
	ErrClosed              = errors.New("pin released")
)

// Pull selects the input bias.
type Pull int

const (
	PullNone Pull = iota
	PullDown
	PullUp
)

// Edge is one level change seen on an input. When Stamped is set, Stamp is a
// reading of the source's own clock and only differences between stamps are
// meaningful.
type Edge struct {
	Level   bool
	Stamp   time.Duration
	Stamped bool
}

// Input is a pin configured to report edges in both directions.
type Input interface {
	// Read returns the current level.
	Read() (bool, error)
	// WaitForEdge blocks until an edge arrives, timeout elapses or ctx is
	// done. The bool result is false on timeout.
	WaitForEdge(ctx context.Context, timeout time.Duration) (Edge, bool, error)
	Close() error
}

type Output interface {
	Set(level bool) error
	Close() error
}

// Chip hands out pins. Close releases every pin it handed out.
type Chip interface {
	Input(pin int, pull Pull) (Input, error)
	Output(pin int, initial bool) (Output, error)
	Close() error
}

// Numbering selects how pin numbers given to a Chip are interpreted.
type Numbering int

const (
	// Board numbers are physical positions on the 40-pin header.
	Board Numbering = iota
	// BCM numbers are the SoC line offsets.
	BCM
)

func (n Numbering) String() string {
	if n == BCM {
		return "bcm"
	}
	return "board"
}

// ParseNumbering accepts "board" or "bcm".
func ParseNumbering(s string) (Numbering, error) {
	switch strings.ToLower(s) {
	case "board":
		return Board, nil
	case "bcm":
		return BCM, nil
	default:
		return Board, errors.Errorf("unknown pin numbering %q (want board or bcm)", s)
	}
}

// DefaultChip is the character device of the Raspberry Pi header lines.
const DefaultChip = "gpiochip0"

// Config is passed explicitly to every backend.
type Config struct {
	Chip      string
	Numbering Numbering
	Consumer  string
}

func (c Config) chip() string {
	if c.Chip == "" {
		return DefaultChip
	}
	return c.Chip
}

func (c Config) consumer() string {
	if c.Consumer == "" {
		return "rfsniffer"
	}
	return c.Consumer
}

// DefaultPins returns the receiver and transmitter pins of the usual wiring
// in c's numbering.
func (c Config) DefaultPins() (rx, tx int) {
	if c.Numbering == BCM {
		return 27, 17
	}
	return 13, 11
}

// Offset translates pin into a line offset on the chip.
func (c Config) Offset(pin int) (int, error) {
	if c.Numbering == BCM {
		if pin < 0 || pin > 27 {
			return 0, errors.Wrapf(ErrInvalidPin, "bcm %d", pin)
		}
		return pin, nil
	}
	offset, ok := boardToBCM[pin]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidPin, "board pin %d is not a gpio", pin)
	}
	return offset, nil
}

// header position -> BCM line, 40-pin Raspberry Pi layout
var boardToBCM = map[int]int{
	3: 2, 5: 3, 7: 4, 8: 14, 10: 15, 11: 17, 12: 18, 13: 27,
	15: 22, 16: 23, 18: 24, 19: 10, 21: 9, 22: 25, 23: 11, 24: 8,
	26: 7, 27: 0, 28: 1, 29: 5, 31: 6, 32: 12, 33: 13, 35: 19,
	36: 16, 37: 26, 38: 20, 40: 21,
}

// Package protocol describes the timing grammars of the tri-state OOK
// protocols spoken by cheap 433MHz remotes.
package protocol

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Protocol is one timing grammar. PulseLength is the base unit in
// microseconds; every other field is a multiple of it.
type Protocol struct {
	PulseLength int
	SyncHigh    int
	SyncLow     int
	ZeroHigh    int
	ZeroLow     int
	OneHigh     int
	OneLow      int
}

const (
	// Count is the size of the catalog, including the unused index 0.
	Count = 8

	// DefaultSyncTolerance is the relative width of the window around a
	// protocol's nominal sync gap.
	DefaultSyncTolerance = 0.15

	// LegacySyncMinMicros and LegacySyncMaxMicros bound the hand-tuned sync
	// band that condensed captures of the third catalog entry.
	LegacySyncMinMicros = 2900
	LegacySyncMaxMicros = 7000
)

var ErrOutOfRange = errors.New("protocol index out of range")

// Index 0 means "no protocol selected".
var catalog = [Count]Protocol{
	{},
	{350, 1, 31, 1, 3, 3, 1},
	{650, 1, 10, 1, 2, 2, 1},
	{100, 30, 71, 4, 11, 9, 6},
	{380, 1, 6, 1, 3, 3, 1},
	{500, 6, 14, 1, 2, 2, 1},
	{200, 1, 10, 1, 5, 1, 1},
	{150, 2, 62, 1, 6, 6, 1},
}

// Lookup returns the catalog entry at index.
func Lookup(index int) (Protocol, error) {
	if index <= 0 || index >= Count {
		return Protocol{}, errors.Wrapf(ErrOutOfRange, "index %d (valid 1-%d)", index, Count-1)
	}
	return catalog[index], nil
}

// Indices lists the valid catalog indices in order.
func Indices() []int {
	out := make([]int, 0, Count-1)
	for i := 1; i < Count; i++ {
		out = append(out, i)
	}
	return out
}

// WithPulseLength returns a copy of p using a different base unit, for
// transmitters whose clock runs off the nominal value. Zero keeps p as is.
func (p Protocol) WithPulseLength(us int) Protocol {
	if us > 0 {
		p.PulseLength = us
	}
	return p
}

// SyncLowMicros is the nominal length of the sync gap.
func (p Protocol) SyncLowMicros() int64 {
	return int64(p.SyncLow) * int64(p.PulseLength)
}

// SyncBand is the window of sync gap lengths accepted for p.
func (p Protocol) SyncBand(tol float64) Band {
	return around(p.SyncLowMicros(), tol)
}

func (p Protocol) String() string {
	return fmt.Sprintf("pulse=%dus sync=%d/%d zero=%d/%d one=%d/%d",
		p.PulseLength, p.SyncHigh, p.SyncLow, p.ZeroHigh, p.ZeroLow, p.OneHigh, p.OneLow)
}

// Band is an open interval of durations in microseconds.
type Band struct {
	MinMicros int64
	MaxMicros int64
}

// LegacyBand is the hand-tuned sync band used before bands were derived from
// the catalog.
var LegacyBand = Band{LegacySyncMinMicros, LegacySyncMaxMicros}

// Contains reports whether us lies strictly between the bounds.
func (b Band) Contains(us int64) bool {
	return us > b.MinMicros && us < b.MaxMicros
}

func (b Band) Valid() bool {
	return b.MinMicros >= 0 && b.MaxMicros > b.MinMicros
}

func (b Band) String() string {
	return fmt.Sprintf("%d-%dus", b.MinMicros, b.MaxMicros)
}

func around(nominal int64, tol float64) Band {
	return Band{
		MinMicros: int64(math.Round(float64(nominal) * (1 - tol))),
		MaxMicros: int64(math.Round(float64(nominal) * (1 + tol))),
	}
}

// IsSyncAmplitude reports whether a duration of us microseconds is a sync gap
// for the protocol at index. A pulseLength of zero uses the catalog value.
func IsSyncAmplitude(us int64, pulseLength int, index int) (bool, error) {
	p, err := Lookup(index)
	if err != nil {
		return false, err
	}
	return p.WithPulseLength(pulseLength).SyncBand(DefaultSyncTolerance).Contains(us), nil
}

// SyncBandFor returns the default-tolerance sync band of the protocol at index.
func SyncBandFor(index int) (Band, error) {
	p, err := Lookup(index)
	if err != nil {
		return Band{}, err
	}
	return p.SyncBand(DefaultSyncTolerance), nil
}

// Package condense reduces a raw multi-repeat capture to one sync-to-sync
// repeat unit and re-expands it a fixed number of times.
package condense

import (
	"github.com/pkg/errors"

	"github.com/derktes/rfsniffer/protocol"
	"github.com/derktes/rfsniffer/pulse"
)

// DefaultRepeats is how many copies of the unit a condensed train carries.
const DefaultRepeats = 3

var ErrNoSyncFound = errors.New("fewer than two sync markers found")

// SyncIndices returns the positions of samples whose duration, truncated to
// microseconds, falls inside band.
func SyncIndices(t pulse.Train, band protocol.Band) []int {
	var idx []int
	for i, s := range t {
		if band.Contains(s.Micros()) {
			idx = append(idx, i)
		}
	}
	return idx
}

// SyncIndicesFor returns the positions of samples that are sync gaps for the
// catalog protocol at index.
func SyncIndicesFor(t pulse.Train, index int) ([]int, error) {
	if _, err := protocol.Lookup(index); err != nil {
		return nil, err
	}
	var idx []int
	for i, s := range t {
		ok, err := protocol.IsSyncAmplitude(s.Micros(), 0, index)
		if err != nil {
			return nil, err
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// Unit extracts the window between the last two sync markers, starting at
// the earlier marker. The final repeat of a transmission is the one least
// likely to be cut short at the head of the capture.
func Unit(t pulse.Train, band protocol.Band) (pulse.Train, error) {
	return window(t, SyncIndices(t, band), band.String())
}

func window(t pulse.Train, idx []int, where string) (pulse.Train, error) {
	if len(idx) < 2 {
		return nil, errors.Wrapf(ErrNoSyncFound, "%d markers in band %s", len(idx), where)
	}
	start, end := idx[len(idx)-2], idx[len(idx)-1]
	return t[start:end].Clone(), nil
}

// Condense returns the repeat unit of t concatenated repeats times. A
// repeats value below one uses DefaultRepeats.
func Condense(t pulse.Train, band protocol.Band, repeats int) (pulse.Train, error) {
	if repeats < 1 {
		repeats = DefaultRepeats
	}
	unit, err := Unit(t, band)
	if err != nil {
		return nil, err
	}
	return unit.Repeat(repeats), nil
}

// ForProtocol condenses t using the default sync band of a catalog entry.
func ForProtocol(t pulse.Train, index, repeats int) (pulse.Train, error) {
	if repeats < 1 {
		repeats = DefaultRepeats
	}
	idx, err := SyncIndicesFor(t, index)
	if err != nil {
		return nil, err
	}
	band, _ := protocol.SyncBandFor(index)
	unit, err := window(t, idx, band.String())
	if err != nil {
		return nil, errors.WithMessagef(err, "protocol %d", index)
	}
	return unit.Repeat(repeats), nil
}

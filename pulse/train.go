// Package pulse holds the captured waveform model shared by capture,
// condensing, storage and replay.
package pulse

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Sample is one transition of a captured waveform. Duration is the time in
// seconds that elapsed before the pin switched to Level.
type Sample struct {
	Duration float64
	Level    bool
}

// Train is an ordered sequence of samples. The first sample's level is the
// pin state at capture start.
type Train []Sample

var errInvalidSample = errors.New("invalid sample")

// Micros converts seconds to whole microseconds, rounding toward zero.
func Micros(seconds float64) int64 {
	return int64(seconds * 1e6)
}

// Seconds converts microseconds back to the canonical unit.
func Seconds(micros int64) float64 {
	return float64(micros) / 1e6
}

// Micros returns the sample duration in whole microseconds.
func (s Sample) Micros() int64 {
	return Micros(s.Duration)
}

// Time returns the duration as a time.Duration, rounded to the nanosecond.
func (s Sample) Time() time.Duration {
	return time.Duration(math.Round(s.Duration * 1e9))
}

func (s Sample) String() string {
	return fmt.Sprintf("(%v, %d)", s.Duration, LevelBit(s.Level))
}

// MarshalJSON encodes the sample as a [seconds, 0|1] pair.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{s.Duration, float64(LevelBit(s.Level))})
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "sample must be a [seconds, level] pair")
	}
	if len(pair) != 2 {
		return errors.Wrapf(errInvalidSample, "pair has %d elements", len(pair))
	}
	if pair[1] != 0 && pair[1] != 1 {
		return errors.Wrapf(errInvalidSample, "level %v is not 0 or 1", pair[1])
	}
	s.Duration = pair[0]
	s.Level = pair[1] == 1
	return nil
}

// Validate reports the first sample whose duration is negative or not finite.
func (t Train) Validate() error {
	for i, s := range t {
		if math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) || s.Duration < 0 {
			return errors.Wrapf(errInvalidSample, "sample %d has duration %v", i, s.Duration)
		}
	}
	return nil
}

// Clone returns a copy that shares no storage with t.
func (t Train) Clone() Train {
	if t == nil {
		return nil
	}
	out := make(Train, len(t))
	copy(out, t)
	return out
}

// Repeat concatenates n copies of t.
func (t Train) Repeat(n int) Train {
	if n <= 0 || len(t) == 0 {
		return Train{}
	}
	out := make(Train, 0, len(t)*n)
	for i := 0; i < n; i++ {
		out = append(out, t...)
	}
	return out
}

// Equal reports whether both trains have the same levels and durations that
// differ by at most tol seconds.
func (t Train) Equal(other Train, tol float64) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i].Level != other[i].Level {
			return false
		}
		if math.Abs(t[i].Duration-other[i].Duration) > tol {
			return false
		}
	}
	return true
}

// Total is the summed duration of all samples in seconds.
func (t Train) Total() float64 {
	var total float64
	for _, s := range t {
		total += s.Duration
	}
	return total
}

func (t Train) TimingsMicros() []int64 {
	out := make([]int64, len(t))
	for i, s := range t {
		out[i] = s.Micros()
	}
	return out
}

func (t Train) Levels() []bool {
	out := make([]bool, len(t))
	for i, s := range t {
		out[i] = s.Level
	}
	return out
}

func (t Train) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// LevelBit returns 1 for a high level and 0 for a low one.
func LevelBit(level bool) int {
	if level {
		return 1
	}
	return 0
}

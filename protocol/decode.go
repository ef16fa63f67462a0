package protocol

import (
	"strings"

	"github.com/derktes/rfsniffer/pulse"
)

// DefaultSymbolTolerance is the relative error accepted when matching data
// pulses. Receivers smear short pulses more than long gaps.
const DefaultSymbolTolerance = 0.35

// Symbol is one decoded high/low pair.
type Symbol byte

const (
	SymbolUnknown Symbol = '?'
	SymbolSync    Symbol = 'S'
	SymbolZero    Symbol = '0'
	SymbolOne     Symbol = '1'
)

// Symbols renders a decoded sequence as a compact string, e.g. "S0110".
func Symbols(syms []Symbol) string {
	var b strings.Builder
	for _, s := range syms {
		b.WriteByte(byte(s))
	}
	return b.String()
}

func matchUnits(us int64, units, pulseLength int, tol float64) bool {
	return around(int64(units)*int64(pulseLength), tol).Contains(us)
}

// Classify maps one high/low pair, in microseconds, onto the grammar of p.
func (p Protocol) Classify(highUs, lowUs int64, tol float64) Symbol {
	match := func(h, l int) bool {
		return matchUnits(highUs, h, p.PulseLength, tol) && matchUnits(lowUs, l, p.PulseLength, tol)
	}
	switch {
	case match(p.SyncHigh, p.SyncLow):
		return SymbolSync
	case match(p.ZeroHigh, p.ZeroLow):
		return SymbolZero
	case match(p.OneHigh, p.OneLow):
		return SymbolOne
	default:
		return SymbolUnknown
	}
}

type interval struct {
	high bool
	us   int64
}

// A sample records the level the pin switched to, so its duration was spent
// at the opposite level.
func intervals(t pulse.Train) []interval {
	out := make([]interval, 0, len(t))
	for _, s := range t {
		held := !s.Level
		us := s.Micros()
		if n := len(out); n > 0 && out[n-1].high == held {
			out[n-1].us += us
			continue
		}
		out = append(out, interval{high: held, us: us})
	}
	return out
}

// Decode classifies consecutive high/low pairs of t using p. Leading low time
// and a trailing unpaired high are ignored.
func Decode(t pulse.Train, p Protocol, tol float64) []Symbol {
	iv := intervals(t)
	for len(iv) > 0 && !iv[0].high {
		iv = iv[1:]
	}
	syms := make([]Symbol, 0, len(iv)/2)
	for i := 0; i+1 < len(iv); i += 2 {
		syms = append(syms, p.Classify(iv[i].us, iv[i+1].us, tol))
	}
	return syms
}

// SyncCount counts samples of t whose duration falls in b.
func SyncCount(t pulse.Train, b Band) int {
	n := 0
	for _, s := range t {
		if b.Contains(s.Micros()) {
			n++
		}
	}
	return n
}

// Detect picks the catalog protocol whose sync band matches the most samples
// of t. At least two matches are required; ties go to the lower index.
func Detect(t pulse.Train, tol float64) (int, bool) {
	best, bestCount := 0, 1
	for _, i := range Indices() {
		if n := SyncCount(t, catalog[i].SyncBand(tol)); n > bestCount {
			best, bestCount = i, n
		}
	}
	return best, best != 0
}

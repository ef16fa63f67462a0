package gpio

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/derktes/rfsniffer/clock"
)

// ScriptedEdge is an edge a virtual input produces After the previous one
// (or after the first WaitForEdge call, for the first edge).
type ScriptedEdge struct {
	After time.Duration
	Level bool
}

// Virtual is a Chip without hardware. Inputs replay a script of edges in real
// time; outputs record every level they are set to.
type Virtual struct {
	mu      sync.Mutex
	clock   clock.Clock
	inputs  map[int]*VirtualInput
	outputs map[int]*Recorder
}

// NewVirtual returns a chip whose recorders stamp transitions with c. A nil
// clock uses the wall clock.
func NewVirtual(c clock.Clock) *Virtual {
	if c == nil {
		c = clock.Wall{}
	}
	return &Virtual{
		clock:   c,
		inputs:  make(map[int]*VirtualInput),
		outputs: make(map[int]*Recorder),
	}
}

// Script prepares the input handed out for pin.
func (v *Virtual) Script(pin int, initial bool, edges ...ScriptedEdge) *VirtualInput {
	in := NewVirtualInput(initial, edges...)
	v.mu.Lock()
	v.inputs[pin] = in
	v.mu.Unlock()
	return in
}

func (v *Virtual) Input(pin int, pull Pull) (Input, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	in, ok := v.inputs[pin]
	if !ok {
		in = NewVirtualInput(pull == PullUp)
		v.inputs[pin] = in
	}
	return in, nil
}

func (v *Virtual) Output(pin int, initial bool) (Output, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec := &Recorder{clock: v.clock, initial: initial, level: initial}
	v.outputs[pin] = rec
	return rec, nil
}

// Recorder returns the output last handed out for pin, or nil.
func (v *Virtual) Recorder(pin int) *Recorder {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.outputs[pin]
}

func (v *Virtual) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, in := range v.inputs {
		in.Close()
	}
	for _, out := range v.outputs {
		out.Close()
	}
	return nil
}

// VirtualInput plays back scripted edges. Edge stamps are the scripted
// offsets, so durations derived from them are exact.
type VirtualInput struct {
	mu      sync.Mutex
	level   bool
	script  []ScriptedEdge
	next    int
	started bool
	origin  time.Time
	dueAt   time.Duration
	closed  bool
}

func NewVirtualInput(initial bool, edges ...ScriptedEdge) *VirtualInput {
	return &VirtualInput{level: initial, script: edges}
}

func (in *VirtualInput) Read() (bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return false, ErrClosed
	}
	return in.level, nil
}

func (in *VirtualInput) WaitForEdge(ctx context.Context, timeout time.Duration) (Edge, bool, error) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return Edge{}, false, ErrClosed
	}
	if !in.started {
		in.started = true
		in.origin = time.Now()
		if len(in.script) > 0 {
			in.dueAt = in.script[0].After
		}
	}
	wait, pending := timeout, in.next < len(in.script)
	if pending {
		if until := in.dueAt - time.Since(in.origin); until < wait {
			wait = until
		}
	}
	in.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Edge{}, false, ctx.Err()
		}
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if !pending || time.Since(in.origin) < in.dueAt {
		return Edge{}, false, nil
	}
	e := in.script[in.next]
	edge := Edge{Level: e.Level, Stamp: in.dueAt, Stamped: true}
	in.level = e.Level
	in.next++
	if in.next < len(in.script) {
		in.dueAt += in.script[in.next].After
	}
	return edge, true, nil
}

// Remaining is the number of scripted edges not yet delivered.
func (in *VirtualInput) Remaining() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.script) - in.next
}

func (in *VirtualInput) Close() error {
	in.mu.Lock()
	in.closed = true
	in.mu.Unlock()
	return nil
}

// Transition is one recorded Set call.
type Transition struct {
	At    time.Time
	Level bool
}

// Recorder is a virtual output.
type Recorder struct {
	mu      sync.Mutex
	clock   clock.Clock
	initial bool
	level   bool
	sets    []Transition
	closed  bool
}

func (r *Recorder) Set(level bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.Wrap(ErrClosed, "set")
	}
	r.level = level
	r.sets = append(r.sets, Transition{At: r.clock.Now(), Level: level})
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Initial is the level the output was configured with.
func (r *Recorder) Initial() bool { return r.initial }

// Level is the current output level.
func (r *Recorder) Level() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

func (r *Recorder) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.sets))
	copy(out, r.sets)
	return out
}

// Gaps returns the time between consecutive Set calls.
func (r *Recorder) Gaps() []time.Duration {
	ts := r.Transitions()
	if len(ts) < 2 {
		return nil
	}
	out := make([]time.Duration, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		out[i-1] = ts[i].At.Sub(ts[i-1].At)
	}
	return out
}

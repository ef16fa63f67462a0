package sniffer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/derktes/rfsniffer/clock"
	"github.com/derktes/rfsniffer/condense"
	"github.com/derktes/rfsniffer/gpio"
	"github.com/derktes/rfsniffer/protocol"
	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

var raw = func() pulse.Train {
	var t pulse.Train
	for i, us := range []float64{200, 300, 100, 3500, 200, 300, 100, 3500, 200, 300} {
		t = append(t, pulse.Sample{Duration: us / 1e6, Level: i%2 == 0})
	}
	return t
}()

func run(t *testing.T, o *options, db string, args ...string) (string, error) {
	t.Helper()
	return runContext(context.Background(), t, o, db, args...)
}

func runContext(ctx context.Context, t *testing.T, o *options, db string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(o)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

func seed(t *testing.T, buttons ...store.Button) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "buttons.db")
	err := store.With(context.Background(), db, func(st *store.Store) error {
		for _, b := range buttons {
			if err := st.Set(context.Background(), b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func lookup(t *testing.T, db, name string) (store.Button, error) {
	t.Helper()
	var b store.Button
	err := store.With(context.Background(), db, func(st *store.Store) error {
		var err error
		b, err = st.Lookup(context.Background(), name)
		return err
	})
	return b, err
}

func TestRecordWithoutSignal(t *testing.T) {
	db := seed(t)
	_, err := run(t, &options{}, db, "--sim", "record", "gate", "--timeout", "0.1")
	if !errors.Is(err, ErrNoSignal) {
		t.Fatalf("err = %v", err)
	}
	if _, err := lookup(t, db, "gate"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("empty capture was stored: %v", err)
	}
}

func TestRecordAndPlay(t *testing.T) {
	db := seed(t)
	sim := clock.NewSim(time.Unix(0, 0))
	chip := gpio.NewVirtual(sim)
	var edges []gpio.ScriptedEdge
	for i := 0; i < 8; i++ {
		edges = append(edges, gpio.ScriptedEdge{After: 300 * time.Microsecond, Level: i%2 == 0})
	}
	chip.Script(13, false, edges...)
	o := &options{hardware: chip, simClock: sim}

	if _, err := run(t, o, db, "record", "gate", "--timeout", "3"); err != nil {
		t.Fatal(err)
	}
	b, err := lookup(t, db, "gate")
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Train) != 8 || b.Protocol != 0 {
		t.Fatalf("stored %+v", b)
	}
	for i, s := range b.Train[1:] {
		if s.Micros() < 299 || s.Micros() > 300 || s.Level != (i%2 == 1) {
			t.Errorf("sample %d = %v", i+1, s)
		}
	}

	if _, err := run(t, &options{hardware: chip, simClock: sim}, db, "record", "gate"); !errors.Is(err, store.ErrDuplicateName) {
		t.Errorf("re-record without --overwrite: %v", err)
	}

	if _, err := run(t, &options{hardware: chip, simClock: sim}, db, "play", "gate"); err != nil {
		t.Fatal(err)
	}
	rec := chip.Recorder(11)
	if rec == nil {
		t.Fatal("transmitter pin never configured")
	}
	if n := len(rec.Transitions()); n != len(b.Train) {
		t.Errorf("%d transitions, want %d", n, len(b.Train))
	}
	for i, g := range rec.Gaps() {
		if want := b.Train[i+1].Time(); g != want {
			t.Errorf("gap %d = %v, want %v", i, g, want)
		}
	}
}

func TestPlayUnknownButtonTransmitsNothing(t *testing.T) {
	db := seed(t, store.Button{Name: "gate", Train: raw})
	chip := gpio.NewVirtual(nil)
	_, err := run(t, &options{hardware: chip}, db, "play", "gate", "garage")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if chip.Recorder(11) != nil {
		t.Error("transmitter touched before every name was found")
	}
}

func TestManageButtons(t *testing.T) {
	db := seed(t, store.Button{Name: "a", Train: raw}, store.Button{Name: "b", Train: raw[:2]})
	o := func() *options { return &options{} }

	if _, err := run(t, o(), db, "copy", "a", "b"); !errors.Is(err, store.ErrDuplicateName) {
		t.Errorf("copy onto b: %v", err)
	}
	if _, err := run(t, o(), db, "copy", "a", "c"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, o(), db, "rename", "c", "d"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, o(), db, "rename", "c", "e"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rename missing: %v", err)
	}
	if _, err := run(t, o(), db, "delete", "b", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete with a missing name: %v", err)
	}
	if _, err := lookup(t, db, "b"); err != nil {
		t.Errorf("b removed by a failed delete: %v", err)
	}
	if _, err := run(t, o(), db, "delete", "b"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, o(), db, "delete", "b"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete missing: %v", err)
	}

	out, err := run(t, o(), db, "dump")
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\nd\n" {
		t.Errorf("dump = %q", out)
	}
	d, err := lookup(t, db, "d")
	if err != nil || !d.Train.Equal(raw, 0) {
		t.Errorf("d = %v, %v", d.Train, err)
	}
}

func TestDumpVerbose(t *testing.T) {
	db := seed(t, store.Button{Name: "gate", Train: raw[:4]})
	out, err := run(t, &options{}, db, "dump", "-v")
	if err != nil {
		t.Fatal(err)
	}
	want := "gate\ntimings:\n200,300,100,3500,\nhigh/low:\n1,0,1,0,\n\n"
	if out != want {
		t.Errorf("dump -v =\n%q\nwant\n%q", out, want)
	}
}

func TestDumpCSV(t *testing.T) {
	db := seed(t, store.Button{Name: "gate", Train: raw[:2]})
	out, err := run(t, &options{}, db, "dump", "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	want := "button,index,micros,level\ngate,0,200,1\ngate,1,300,0\n"
	if out != want {
		t.Errorf("csv =\n%s\nwant\n%s", out, want)
	}
	if _, err := run(t, &options{}, db, "dump", "--format", "xml"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestCondense(t *testing.T) {
	db := seed(t, store.Button{Name: "gate", Train: raw})
	tests := []struct {
		name    string
		args    []string
		dst     string
		wantErr error
	}{
		{"explicit band", []string{"--sync-min", "3000", "--sync-max", "4000"}, "gate.short", nil},
		{"legacy band", []string{"--legacy-band", "--into", "gate.legacy"}, "gate.legacy", nil},
		{"out of range", []string{"--protocol", "9"}, "", protocol.ErrOutOfRange},
		{"no catalog match", nil, "", condense.ErrNoSyncFound},
		{"protocol without sync", []string{"--protocol", "1"}, "", condense.ErrNoSyncFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, &options{}, db, append([]string{"condense", "gate"}, tt.args...)...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			b, err := lookup(t, db, tt.dst)
			if err != nil {
				t.Fatal(err)
			}
			if want := raw[3:7].Repeat(3); !b.Train.Equal(want, 0) {
				t.Errorf("%s = %v, want %v", tt.dst, b.Train, want)
			}
		})
	}
}

func TestProtocols(t *testing.T) {
	out, err := run(t, &options{}, seed(t), "protocols")
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != protocol.Count {
		t.Errorf("%d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "9223-12477us") {
		t.Errorf("protocol 1 band missing:\n%s", out)
	}
}

func TestBadNumbering(t *testing.T) {
	if _, err := run(t, &options{}, seed(t), "--numbering", "wiringpi", "dump"); err == nil {
		t.Error("unknown numbering accepted")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := runContext(ctx, t, &options{}, seed(t), "--sim", "serve", "--addr", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("serve outlived its context")
	}
}

func TestRecordHelpNamesOldTimeout(t *testing.T) {
	out, err := run(t, &options{}, seed(t), "record", "--help")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "--timeout float") || !strings.Contains(out, "older releases defaulted to 0.1") {
		t.Errorf("record help:\n%s", out)
	}
}

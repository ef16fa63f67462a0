package condense

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/derktes/rfsniffer/protocol"
	"github.com/derktes/rfsniffer/pulse"
)

var band = protocol.Band{MinMicros: 3000, MaxMicros: 4000}

func raw() pulse.Train {
	return pulse.Train{
		{Duration: 0.0002, Level: true}, {Duration: 0.0003, Level: false}, {Duration: 0.0001, Level: true}, {Duration: 0.0035, Level: false},
		{Duration: 0.0002, Level: true}, {Duration: 0.0003, Level: false}, {Duration: 0.0001, Level: true}, {Duration: 0.0035, Level: false},
		{Duration: 0.0002, Level: true}, {Duration: 0.0003, Level: false},
	}
}

func TestCondenseScenario(t *testing.T) {
	tr := raw()
	idx := SyncIndices(tr, band)
	if len(idx) != 2 || idx[0] != 3 || idx[1] != 7 {
		t.Fatalf("sync indices = %v, want [3 7]", idx)
	}

	got, err := Condense(tr, band, DefaultRepeats)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12", len(got))
	}
	unit := tr[3:7]
	for i, s := range got {
		if s != unit[i%4] {
			t.Errorf("sample %d = %v, want %v", i, s, unit[i%4])
		}
	}
}

func TestCondenseUsesLastTwoMarkers(t *testing.T) {
	tr := pulse.Train{
		{Duration: 0.0035, Level: false}, {Duration: 0.0009, Level: true},
		{Duration: 0.0035, Level: false}, {Duration: 0.0001, Level: true}, {Duration: 0.0002, Level: false},
		{Duration: 0.0035, Level: false}, {Duration: 0.0004, Level: true},
	}
	unit, err := Unit(tr, band)
	if err != nil {
		t.Fatal(err)
	}
	want := tr[2:5]
	if !unit.Equal(want, 0) {
		t.Errorf("unit = %v, want %v", unit, want)
	}
	unit[0].Duration = 1
	if tr[2].Duration == 1 {
		t.Error("unit aliases the input train")
	}
}

func TestCondenseIdempotent(t *testing.T) {
	once, err := Condense(raw(), band, 3)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Condense(once, band, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !once.Equal(twice, 0) {
		t.Errorf("re-condensed %v, want %v", twice, once)
	}
}

func TestCondenseRepeats(t *testing.T) {
	got, err := Condense(raw(), band, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Errorf("len = %d, want 20", len(got))
	}
	got, _ = Condense(raw(), band, 0)
	if len(got) != 4*DefaultRepeats {
		t.Errorf("repeats 0 gave %d samples", len(got))
	}
}

func TestNoSyncFound(t *testing.T) {
	tests := []struct {
		name  string
		train pulse.Train
	}{
		{"empty", nil},
		{"one marker", pulse.Train{{Duration: 0.0002, Level: true}, {Duration: 0.0035, Level: false}, {Duration: 0.0002, Level: true}}},
		{"boundary is exclusive", pulse.Train{{Duration: 0.003, Level: true}, {Duration: 0.004, Level: false}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Condense(tt.train, band, 3); !errors.Is(err, ErrNoSyncFound) {
				t.Errorf("err = %v, want ErrNoSyncFound", err)
			}
		})
	}
}

func TestForProtocol(t *testing.T) {
	// protocol 2: 650us base, sync gap 10 units
	tr := pulse.Train{
		{Duration: 0.0065, Level: true}, {Duration: 0.00065, Level: false}, {Duration: 0.0013, Level: true},
		{Duration: 0.0065, Level: true}, {Duration: 0.0013, Level: false}, {Duration: 0.00065, Level: true},
		{Duration: 0.0065, Level: true},
	}
	got, err := ForProtocol(tr, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(append(tr[3:6].Clone(), tr[3:6]...), 0) {
		t.Errorf("got %v", got)
	}

	if _, err := ForProtocol(tr, 0, 3); !errors.Is(err, protocol.ErrOutOfRange) {
		t.Errorf("index 0 err = %v", err)
	}
	if _, err := ForProtocol(raw(), 1, 3); !errors.Is(err, ErrNoSyncFound) {
		t.Errorf("err = %v, want ErrNoSyncFound", err)
	}
}

func TestSyncIndicesForMatchesCatalogBand(t *testing.T) {
	tr := append(raw(), pulse.Train{
		{Duration: 0.0065, Level: true}, {Duration: 0.0108, Level: false}, {Duration: 0.0071, Level: true},
	}...)
	for _, i := range protocol.Indices() {
		band, err := protocol.SyncBandFor(i)
		if err != nil {
			t.Fatal(err)
		}
		got, err := SyncIndicesFor(tr, i)
		if err != nil {
			t.Fatal(err)
		}
		if want := SyncIndices(tr, band); !reflect.DeepEqual(got, want) {
			t.Errorf("protocol %d: %v, band %v gives %v", i, got, band, want)
		}
	}
	if _, err := SyncIndicesFor(tr, protocol.Count); !errors.Is(err, protocol.ErrOutOfRange) {
		t.Errorf("err = %v", err)
	}
}

package pulse

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestMicrosTruncates(t *testing.T) {
	tests := []struct {
		seconds float64
		want    int64
	}{
		{0.0035, 3500},
		{0.0000019, 1},
		{0.0000009, 0},
		{1.5, 1500000},
	}
	for _, tt := range tests {
		if got := Micros(tt.seconds); got != tt.want {
			t.Errorf("Micros(%v) = %d, want %d", tt.seconds, got, tt.want)
		}
	}
}

func TestSampleTime(t *testing.T) {
	s := Sample{Duration: 0.0002, Level: true}
	if got := s.Time(); got != 200*time.Microsecond {
		t.Errorf("Time() = %v, want 200µs", got)
	}
}

func TestRepeatCopies(t *testing.T) {
	unit := Train{{0.001, true}, {0.002, false}}
	got := unit.Repeat(3)
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	for i := range got {
		if got[i] != unit[i%2] {
			t.Errorf("sample %d = %v, want %v", i, got[i], unit[i%2])
		}
	}
	got[0].Duration = 9
	if unit[0].Duration == 9 {
		t.Error("Repeat shares storage with its receiver")
	}
	if n := len(unit.Repeat(0)); n != 0 {
		t.Errorf("Repeat(0) has %d samples", n)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := Train{{0.1, true}}
	b := a.Clone()
	b[0].Level = false
	if !a[0].Level {
		t.Error("Clone shares storage")
	}
	if Train(nil).Clone() != nil {
		t.Error("Clone of nil should stay nil")
	}
}

func TestEqualTolerance(t *testing.T) {
	a := Train{{0.0002, true}, {0.0003, false}}
	b := Train{{0.0002 + 1e-12, true}, {0.0003, false}}
	if !a.Equal(b, 1e-9) {
		t.Error("trains within tolerance reported unequal")
	}
	b[1].Level = true
	if a.Equal(b, 1e-9) {
		t.Error("trains with different levels reported equal")
	}
	if a.Equal(a[:1], 1e-9) {
		t.Error("trains with different lengths reported equal")
	}
}

func TestValidate(t *testing.T) {
	if err := (Train{{0, true}, {0.1, false}}).Validate(); err != nil {
		t.Errorf("valid train: %v", err)
	}
	for _, bad := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		if err := (Train{{0.1, true}, {bad, false}}).Validate(); err == nil {
			t.Errorf("duration %v accepted", bad)
		}
	}
}

func TestSampleJSONPair(t *testing.T) {
	data, err := json.Marshal(Train{{0.0002, true}, {0.0035, false}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[[0.0002,1],[0.0035,0]]` {
		t.Errorf("got %s", data)
	}

	var back Train
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(Train{{0.0002, true}, {0.0035, false}}, 0) {
		t.Errorf("decoded %v", back)
	}

	for _, bad := range []string{`[[0.1]]`, `[[0.1,2]]`, `[{"d":1}]`} {
		if err := json.Unmarshal([]byte(bad), &back); err == nil {
			t.Errorf("%s accepted", bad)
		}
	}
}

func TestTimingsAndLevels(t *testing.T) {
	tr := Train{{0.0002, true}, {0.0003, false}}
	us := tr.TimingsMicros()
	if us[0] != 200 || us[1] != 300 {
		t.Errorf("TimingsMicros = %v", us)
	}
	lv := tr.Levels()
	if !lv[0] || lv[1] {
		t.Errorf("Levels = %v", lv)
	}
	if math.Abs(tr.Total()-0.0005) > 1e-12 {
		t.Errorf("Total = %v", tr.Total())
	}
}

package audio

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestDBToLinear_UnityAtZero(t *testing.T) {
	if got := DBToLinear(0); got != 1.0 {
		t.Fatalf("DBToLinear(0) = %v, want 1.0", got)
	}
}

func TestDBToLinear_NonFinite(t *testing.T) {
	for _, in := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := DBToLinear(in); got != 1.0 {
			t.Errorf("DBToLinear(%v) = %v, want 1.0", in, got)
		}
	}
}

func TestDBToLinear_MonotonicThenSaturates(t *testing.T) {
	prev := DBToLinear(-60)
	for db := -59.0; db <= 20; db++ {
		cur := DBToLinear(db)
		if cur <= prev {
			t.Fatalf("DBToLinear not increasing at %v dB: %v <= %v", db, cur, prev)
		}
		prev = cur
	}

	for _, db := range []float64{20, 26, 40, 200} {
		if got := DBToLinear(db); math.Abs(got-MaxGain) > epsilon {
			t.Errorf("DBToLinear(%v) = %v, want saturation at %v", db, got, MaxGain)
		}
	}
}

func TestDBToLinear_KnownValues(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{-20, 0.1},
		{-6, 0.5011872336272722},
		{6, 1.9952623149688795},
		{-400, 1e-20},
	}
	for _, tt := range tests {
		got := DBToLinear(tt.db)
		if math.Abs(got-tt.want) > 1e-9*math.Max(1, tt.want) {
			t.Errorf("DBToLinear(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}

func TestLinearToDB_RoundTrip(t *testing.T) {
	capDB := 20 * math.Log10(MaxGain)
	for db := -80.0; db <= capDB; db += 2.5 {
		got := LinearToDB(DBToLinear(db))
		if math.Abs(got-db) > 1e-6 {
			t.Errorf("round trip %v dB -> %v dB", db, got)
		}
	}
}

func TestLinearToDB_Saturates(t *testing.T) {
	capDB := 20 * math.Log10(MaxGain)
	for _, db := range []float64{25, 60} {
		if got := LinearToDB(DBToLinear(db)); math.Abs(got-capDB) > 1e-6 {
			t.Errorf("LinearToDB(DBToLinear(%v)) = %v, want %v", db, got, capDB)
		}
	}
	if got := LinearToDB(1000); math.Abs(got-capDB) > 1e-6 {
		t.Errorf("LinearToDB(1000) = %v, want %v", got, capDB)
	}
	if got := LinearToDB(0); !math.IsInf(got, -1) {
		t.Errorf("LinearToDB(0) = %v, want -Inf", got)
	}
	if got := LinearToDB(-1); !math.IsInf(got, -1) {
		t.Errorf("LinearToDB(-1) = %v, want -Inf", got)
	}
}

func TestGain(t *testing.T) {
	g := NewGain()
	if g.Value() != 1 {
		t.Fatalf("new gain = %v, want 1", g.Value())
	}

	g.SetDB(-20)
	if math.Abs(g.Value()-0.1) > epsilon {
		t.Errorf("SetDB(-20) -> %v, want 0.1", g.Value())
	}
	if math.Abs(g.DB()+20) > 1e-6 {
		t.Errorf("DB() = %v, want -20", g.DB())
	}

	g.Set(50)
	if g.Value() != MaxGain {
		t.Errorf("Set(50) -> %v, want clamp to %v", g.Value(), MaxGain)
	}
	g.Set(-3)
	if g.Value() != 0 {
		t.Errorf("Set(-3) -> %v, want 0", g.Value())
	}

	g.SetDB(math.NaN())
	if g.Value() != 1 {
		t.Errorf("SetDB(NaN) -> %v, want 1", g.Value())
	}
}

func TestGain_Apply(t *testing.T) {
	g := NewGain()
	g.Set(2)

	in := []float32{0.25, -0.25, 0.8, -0.8}
	got := g.Apply(in)
	want := []float32{0.5, -0.5, 1, -1}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("Apply[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if in[0] != 0.25 {
		t.Error("Apply must not modify its input")
	}
}

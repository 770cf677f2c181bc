package classification

import (
	"math"
	"testing"
)

func TestClampConfidence(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"nan", math.NaN(), 0},
		{"negative", -12.5, 0},
		{"negative infinity", math.Inf(-1), 0},
		{"above range", 140, 100},
		{"positive infinity", math.Inf(1), 100},
		{"lower bound", 0, 0},
		{"upper bound", 100, 100},
		{"inside", 88.4, 88.4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampConfidence(tc.in); got != tc.want {
				t.Fatalf("ClampConfidence(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestModeEffectiveDefaultsToDemo(t *testing.T) {
	if ModeUnknown.Effective() != ModeDemo {
		t.Fatal("unknown mode should behave as demo")
	}
	if ModeDemo.Effective() != ModeDemo {
		t.Fatal("demo mode should stay demo")
	}
	if ModeLive.Effective() != ModeLive {
		t.Fatal("live mode should stay live")
	}
}

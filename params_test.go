package fpbloom

import (
	"math"
	"testing"
)

func TestEstimateFalsePositiveRate(t *testing.T) {
	// Test against known formula
	size := uint64(100000)
	k := 7
	items := uint64(5000)

	estimated := EstimateFalsePositiveRate(size, k, items)

	// Manual calculation: (1 - e^(-kn/m))^k
	m := float64(size)
	n := float64(items)
	kf := float64(k)
	expected := math.Pow(1-math.Exp(-kf*n/m), kf)

	if math.Abs(estimated-expected) > 0.0001 {
		t.Errorf("estimated=%f, expected=%f", estimated, expected)
	}
}

func TestEstimateFalsePositiveRateEdgeCases(t *testing.T) {
	// Test with 0 items
	if rate := EstimateFalsePositiveRate(100, 7, 0); rate != 0 {
		t.Errorf("expected 0 FP rate for 0 items, got %f", rate)
	}

	// Test with 0 bits
	if rate := EstimateFalsePositiveRate(0, 7, 1000); rate != 0 {
		t.Errorf("expected 0 FP rate for 0 bits, got %f", rate)
	}

	if rate := EstimateFalsePositiveRate(100, 0, 1000); rate != 0 {
		t.Errorf("expected 0 FP rate for k=0, got %f", rate)
	}

	// A single bit with one item set is always a hit.
	if rate := EstimateFalsePositiveRate(1, 1, 1000); rate < 0.999 {
		t.Errorf("expected FP rate near 1 for a saturated filter, got %f", rate)
	}
}

func TestOptimalHashCount(t *testing.T) {
	tests := []struct {
		size  uint64
		items uint64
		wantK int
	}{
		{100000, 10000, 7},
		{1000000, 10000, 69},
		{30000, 10000, 2},
		{1000, 10000, 1}, // clamped
		{1000, 0, 693},   // items defaults to 1
	}

	for _, tt := range tests {
		if k := OptimalHashCount(tt.size, tt.items); k != tt.wantK {
			t.Errorf("OptimalHashCount(%d, %d) = %d, want %d", tt.size, tt.items, k, tt.wantK)
		}
	}
}

func TestOptimalSize(t *testing.T) {
	if got := OptimalSize(10000, 0.01); got != 95851 {
		t.Errorf("OptimalSize(10000, 0.01) = %d, want 95851", got)
	}

	// Out-of-range rates are clamped rather than rejected.
	for _, p := range []float64{0, -0.1, 1, 2} {
		if got := OptimalSize(1000, p); got == 0 {
			t.Errorf("OptimalSize(1000, %v) = 0", p)
		}
	}

	if OptimalSize(0, 0.01) == 0 {
		t.Error("expected non-zero size for 0 items")
	}
}

package simulation

import (
	"math"
	"testing"
)

func TestNormalSource_Deterministic(t *testing.T) {
	a := newNormalSource(42)
	b := newNormalSource(42)
	for i := 0; i < 1000; i++ {
		if a.Norm() != b.Norm() {
			t.Fatalf("draw %d diverged for identical seeds", i)
		}
	}

	c := newNormalSource(43)
	same := true
	a = newNormalSource(42)
	for i := 0; i < 100; i++ {
		if a.Norm() != c.Norm() {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical draws")
	}
}

func TestNormalSource_Moments(t *testing.T) {
	src := newNormalSource(7)
	const n = 200000

	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		x := src.Norm()
		sum += x
		sumSq += x * x
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	if math.Abs(mean) > 0.02 {
		t.Errorf("mean: got %v, want ~0", mean)
	}
	if math.Abs(variance-1) > 0.02 {
		t.Errorf("variance: got %v, want ~1", variance)
	}
}

func TestTrialSeed_Distinct(t *testing.T) {
	seen := make(map[int64]int)
	for trial := 0; trial < 10000; trial++ {
		s := trialSeed(42, trial)
		if prev, dup := seen[s]; dup {
			t.Fatalf("trials %d and %d share seed %d", prev, trial, s)
		}
		seen[s] = trial
	}
}

func TestShockGenerator_AppliesFactor(t *testing.T) {
	chol := [][]float64{
		{1, 0},
		{0.5, 0.8660254037844386},
	}
	gen := newShockGenerator(chol, 11)
	src := newNormalSource(11)

	for day := 0; day < 50; day++ {
		got := gen.Next()
		z0 := src.Norm()
		z1 := src.Norm()
		want0 := chol[0][0] * z0
		want1 := chol[1][0]*z0 + chol[1][1]*z1
		if math.Abs(got[0]-want0) > 1e-15 || math.Abs(got[1]-want1) > 1e-15 {
			t.Fatalf("day %d: got (%v, %v), want (%v, %v)", day, got[0], got[1], want0, want1)
		}
	}
}

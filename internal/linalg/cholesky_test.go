package linalg

import (
	"errors"
	"math"
	"testing"
)

// reconstruct computes l·lᵗ.
func reconstruct(l [][]float64) [][]float64 {
	n := len(l)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				out[i][j] += l[i][k] * l[j][k]
			}
		}
	}
	return out
}

func matricesClose(t *testing.T, got, want [][]float64, tol float64) {
	t.Helper()
	for i := range want {
		for j := range want[i] {
			if math.Abs(got[i][j]-want[i][j]) > tol {
				t.Errorf("entry (%d,%d): got %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestCholesky_KnownFactor(t *testing.T) {
	// Classic worked example: a = L·Lᵗ with L = [[2,0,0],[6,1,0],[-8,5,3]].
	a := [][]float64{
		{4, 12, -16},
		{12, 37, -43},
		{-16, -43, 98},
	}
	want := [][]float64{
		{2, 0, 0},
		{6, 1, 0},
		{-8, 5, 3},
	}

	l, err := Cholesky(a)
	if err != nil {
		t.Fatalf("Cholesky failed: %v", err)
	}
	matricesClose(t, l, want, 1e-12)
}

func TestCholesky_ReconstructsInput(t *testing.T) {
	a := [][]float64{
		{0.0004, 0.0001, 0.00005},
		{0.0001, 0.0009, 0.0002},
		{0.00005, 0.0002, 0.0016},
	}

	l, err := Cholesky(a)
	if err != nil {
		t.Fatalf("Cholesky failed: %v", err)
	}
	matricesClose(t, reconstruct(l), a, 1e-15)

	// Strictly lower triangular: entries above the diagonal are zero.
	for i := range l {
		for j := i + 1; j < len(l); j++ {
			if l[i][j] != 0 {
				t.Errorf("entry (%d,%d) above diagonal: got %v, want 0", i, j, l[i][j])
			}
		}
	}
}

func TestCholesky_RejectsNonPositiveDefinite(t *testing.T) {
	// Perfectly correlated pair: second row duplicates the first.
	a := [][]float64{
		{0.0004, 0.0004},
		{0.0004, 0.0004},
	}

	_, err := Cholesky(a)
	if !errors.Is(err, ErrNotPositiveDefinite) {
		t.Fatalf("expected ErrNotPositiveDefinite, got %v", err)
	}
}

func TestFactor_RegularizesSingularMatrix(t *testing.T) {
	// Duplicate assets are the common real-world trigger; one diagonal
	// bump of RegularizationEpsilon must rescue the factorization.
	a := [][]float64{
		{0.0004, 0.0004},
		{0.0004, 0.0004},
	}

	l, err := Factor(a)
	if err != nil {
		t.Fatalf("Factor failed: %v", err)
	}

	got := reconstruct(l)
	want := [][]float64{
		{0.0004 + RegularizationEpsilon, 0.0004},
		{0.0004, 0.0004 + RegularizationEpsilon},
	}
	matricesClose(t, got, want, 1e-12)
}

func TestFactor_ZeroMatrixRegularizes(t *testing.T) {
	// A zero-volatility asset contributes an all-zero row; the factor must
	// still exist so the run can proceed (the simulator scales diffusion by
	// the unregularized variance, keeping the path flat).
	l, err := Factor([][]float64{{0}})
	if err != nil {
		t.Fatalf("Factor failed: %v", err)
	}
	want := math.Sqrt(RegularizationEpsilon)
	if math.Abs(l[0][0]-want) > 1e-15 {
		t.Errorf("l[0][0]: got %v, want %v", l[0][0], want)
	}
}

func TestFactor_FailsBeyondRegularization(t *testing.T) {
	// Strongly negative eigenvalue: one epsilon cannot repair it.
	a := [][]float64{
		{1, 2},
		{2, 1},
	}

	_, err := Factor(a)
	if !errors.Is(err, ErrNotPositiveDefinite) {
		t.Fatalf("expected ErrNotPositiveDefinite, got %v", err)
	}
}

func TestLowerMulVec(t *testing.T) {
	l := [][]float64{
		{2, 0},
		{3, 4},
	}
	x := []float64{1, 2}

	got := LowerMulVec(l, x, nil)
	if got[0] != 2 || got[1] != 11 {
		t.Errorf("LowerMulVec: got %v, want [2 11]", got)
	}

	// Reuse destination buffer.
	dst := make([]float64, 2)
	got = LowerMulVec(l, x, dst)
	if &got[0] != &dst[0] {
		t.Error("expected result written into provided buffer")
	}

	full := MulVec(l, x, nil)
	if full[0] != got[0] || full[1] != got[1] {
		t.Errorf("MulVec disagrees with LowerMulVec: %v vs %v", full, got)
	}
}

// Package linalg implements the small set of dense matrix operations the
// simulation engine needs: Cholesky factorization of a covariance matrix
// and lower-triangular matrix-vector products. Matrices are row-major
// [][]float64 slices; all functions leave their inputs unmodified.
package linalg

import (
	"errors"
	"fmt"
	"math"
)

// RegularizationEpsilon is added to every diagonal entry when a
// factorization fails, restoring positive-definiteness for matrices that
// are singular only through rounding (near-duplicate assets). A single
// retry is attempted; a matrix that still fails is degenerate.
const RegularizationEpsilon = 1e-6

// ErrNotPositiveDefinite is returned when a matrix cannot be factorized
// even after one regularization attempt. It signals a statistical
// degeneracy (perfectly collinear or duplicate series), not missing data.
var ErrNotPositiveDefinite = errors.New("matrix not positive definite")

// Cholesky computes the lower-triangular factor L with L·Lᵗ = a using the
// Cholesky–Banachiewicz row-by-row scheme. Every diagonal residual must be
// strictly positive; otherwise ErrNotPositiveDefinite is returned.
func Cholesky(a [][]float64) ([][]float64, error) {
	n := len(a)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrNotPositiveDefinite)
	}
	for i, row := range a {
		if len(row) != n {
			return nil, fmt.Errorf("matrix not square: row %d has %d columns, want %d", i, len(row), n)
		}
	}

	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := 0.0
			for k := 0; k < j; k++ {
				sum += l[i][k] * l[j][k]
			}
			if i == j {
				residual := a[i][i] - sum
				if residual <= 0 || math.IsNaN(residual) {
					return nil, fmt.Errorf("%w: diagonal residual %v at row %d",
						ErrNotPositiveDefinite, residual, i)
				}
				l[i][j] = math.Sqrt(residual)
			} else {
				l[i][j] = (a[i][j] - sum) / l[j][j]
			}
		}
	}
	return l, nil
}

// Factor factorizes a covariance matrix, regularizing once on failure:
// RegularizationEpsilon is added to every diagonal entry and the
// factorization retried. A second failure returns ErrNotPositiveDefinite.
func Factor(cov [][]float64) ([][]float64, error) {
	l, err := Cholesky(cov)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrNotPositiveDefinite) {
		return nil, err
	}

	regularized := make([][]float64, len(cov))
	for i, row := range cov {
		regularized[i] = make([]float64, len(row))
		copy(regularized[i], row)
		regularized[i][i] += RegularizationEpsilon
	}

	l, err = Cholesky(regularized)
	if err != nil {
		return nil, fmt.Errorf("factorization failed after regularization: %w", err)
	}
	return l, nil
}

// MulVec computes y = a·x for a square matrix. The result is written into
// dst when it has the right length, avoiding an allocation in hot loops;
// otherwise a fresh slice is returned.
func MulVec(a [][]float64, x, dst []float64) []float64 {
	n := len(a)
	if len(dst) != n {
		dst = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		row := a[i]
		for j := 0; j < n; j++ {
			sum += row[j] * x[j]
		}
		dst[i] = sum
	}
	return dst
}

// LowerMulVec computes y = l·x exploiting lower-triangular structure.
func LowerMulVec(l [][]float64, x, dst []float64) []float64 {
	n := len(l)
	if len(dst) != n {
		dst = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		sum := 0.0
		row := l[i]
		for j := 0; j <= i; j++ {
			sum += row[j] * x[j]
		}
		dst[i] = sum
	}
	return dst
}

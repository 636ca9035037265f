package solver

import (
	"math"
	"math/cmplx"

	"github.com/edalab/phasornet/internal/consts"
	"github.com/edalab/phasornet/pkg/value"
)

// solveDense performs complex Gaussian elimination with partial pivoting by
// magnitude. A pivot below the epsilon (or non-finite) is the primary
// detector for floating nodes, conflicting ideal voltage sources and
// zero-impedance pathologies. The input matrix and RHS are not modified.
func solveDense(a [][]complex128, b []complex128) ([]complex128, error) {
	n := len(b)
	m := copyMatrix(a)
	rhs := append([]complex128(nil), b...)

	for k := 0; k < n; k++ {
		// Select the remaining row with the largest |m[i][k]|.
		pivot := k
		best := cmplx.Abs(m[k][k])
		for i := k + 1; i < n; i++ {
			if mag := cmplx.Abs(m[i][k]); mag > best {
				best, pivot = mag, i
			}
		}
		if math.IsNaN(best) || math.IsInf(best, 0) || best < consts.PivotEpsilon {
			return nil, ErrSingular
		}
		if pivot != k {
			m[k], m[pivot] = m[pivot], m[k]
			rhs[k], rhs[pivot] = rhs[pivot], rhs[k]
		}

		for i := k + 1; i < n; i++ {
			if m[i][k] == 0 {
				continue
			}
			f := m[i][k] / m[k][k]
			m[i][k] = 0
			for j := k + 1; j < n; j++ {
				m[i][j] -= f * m[k][j]
			}
			rhs[i] -= f * rhs[k]
		}
	}

	x := make([]complex128, n)
	for i := n - 1; i >= 0; i-- {
		sum := rhs[i]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}

	// Catches degeneracies the pivot check alone can miss, e.g. a NaN that
	// entered through an unparseable value or a 0-impedance/0-frequency mix.
	for _, xi := range x {
		if !value.IsFinite(xi) {
			return nil, ErrNonFinite
		}
	}
	return x, nil
}

package solver

import (
	"fmt"

	"github.com/edp1096/sparse"

	"github.com/edalab/phasornet/pkg/value"
)

// solveSparse solves the assembled system through the sparse LU package.
// It maps the package's factorization failures onto ErrSingular so both
// backends present the same error taxonomy.
func solveSparse(a [][]complex128, b []complex128) ([]complex128, error) {
	n := len(b)

	config := &sparse.Configuration{
		Real:           true,
		Complex:        true,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}
	mat, err := sparse.Create(int64(n), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}
	defer mat.Destroy()

	// The factorizer needs the full element structure up front; entries are
	// created on access, zeros included.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			e := mat.GetElement(int64(i+1), int64(j+1))
			e.Real += real(a[i][j])
			e.Imag += imag(a[i][j])
		}
	}

	// Interleaved complex RHS, 1-based: rhs[2k] / rhs[2k+1] for unknown k.
	rhs := make([]float64, 2*(n+1))
	for i := 0; i < n; i++ {
		rhs[2*(i+1)] = real(b[i])
		rhs[2*(i+1)+1] = imag(b[i])
	}

	if err := mat.Factor(); err != nil {
		return nil, fmt.Errorf("%w (sparse backend: %v)", ErrSingular, err)
	}
	sol, _, err := mat.SolveComplex(rhs, nil)
	if err != nil {
		return nil, fmt.Errorf("sparse solve failed: %w", err)
	}

	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(sol[2*(i+1)], sol[2*(i+1)+1])
	}
	for _, xi := range x {
		if !value.IsFinite(xi) {
			return nil, ErrNonFinite
		}
	}
	return x, nil
}

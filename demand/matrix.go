// Package demand holds the communication demand between cores: how much
// bandwidth each flow needs and the latency it must meet.
package demand

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// A Matrix is a dense square matrix indexed by core. It cannot be changed once
// a Demand is built, so it can be shared between placement states.
type Matrix struct {
	n int
	d *mat.Dense
}

func newMatrix(n int) *Matrix {
	if n <= 0 {
		panic(fmt.Sprintf("invalid matrix size %d", n))
	}

	return &Matrix{
		n: n,
		d: mat.NewDense(n, n, nil),
	}
}

// Size returns the number of rows, which is the number of cores.
func (m *Matrix) Size() int {
	return m.n
}

// At returns the value for the flow from core i to core j.
func (m *Matrix) At(i, j int) float64 {
	return m.d.At(i, j)
}

// Sum returns the sum of all entries.
func (m *Matrix) Sum() float64 {
	return mat.Sum(m.d)
}

// NonZeros returns the number of non-zero entries.
func (m *Matrix) NonZeros() int {
	count := 0

	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if m.d.At(i, j) != 0 {
				count++
			}
		}
	}

	return count
}

// Dense returns a copy of the underlying matrix.
func (m *Matrix) Dense() *mat.Dense {
	return mat.DenseCopyOf(m.d)
}

// ForEachNonZero calls fn for every non-zero entry in row-major order.
func (m *Matrix) ForEachNonZero(fn func(i, j int, v float64)) {
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if v := m.d.At(i, j); v != 0 {
				fn(i, j, v)
			}
		}
	}
}

// ForEachIncident calls fn once for every non-zero entry whose row or column
// is one of the given cores. An entry between two of the given cores is
// visited only once.
func (m *Matrix) ForEachIncident(cores []int, fn func(i, j int, v float64)) {
	mustBeDistinct(cores)

	for _, c := range cores {
		for k := 0; k < m.n; k++ {
			if v := m.d.At(c, k); v != 0 {
				fn(c, k, v)
			}

			if contains(cores, k) {
				continue
			}

			if v := m.d.At(k, c); v != 0 {
				fn(k, c, v)
			}
		}
	}
}

func contains(cores []int, k int) bool {
	for _, c := range cores {
		if c == k {
			return true
		}
	}

	return false
}

func mustBeDistinct(cores []int) {
	for i := range cores {
		for j := i + 1; j < len(cores); j++ {
			if cores[i] == cores[j] {
				panic(fmt.Sprintf("core %d listed twice", cores[i]))
			}
		}
	}
}

package demand

import (
	"fmt"
	"math"
)

// An Edge is one demand between two cores. Core indices start from 0.
// Bandwidth is a whole number so that link loads add and subtract exactly.
type Edge struct {
	From      int
	To        int
	Bandwidth float64
	Latency   float64
}

// Demand is the bandwidth and latency requirement of every core pair.
type Demand struct {
	Bandwidth *Matrix
	Latency   *Matrix
}

// New builds the demand matrices from a list of edges. When the same pair
// appears more than once, the last edge wins.
func New(numCores int, edges []Edge) (*Demand, error) {
	if numCores <= 0 {
		return nil, fmt.Errorf("invalid number of cores %d", numCores)
	}

	d := &Demand{
		Bandwidth: newMatrix(numCores),
		Latency:   newMatrix(numCores),
	}

	for _, e := range edges {
		if e.From < 0 || e.From >= numCores || e.To < 0 || e.To >= numCores {
			return nil, fmt.Errorf(
				"edge %d->%d refers to a core outside of [0, %d)",
				e.From, e.To, numCores)
		}

		if e.Bandwidth < 0 || e.Latency < 0 {
			return nil, fmt.Errorf(
				"edge %d->%d has negative bandwidth or latency", e.From, e.To)
		}

		if e.Bandwidth != math.Trunc(e.Bandwidth) {
			return nil, fmt.Errorf(
				"edge %d->%d has fractional bandwidth %g", e.From, e.To, e.Bandwidth)
		}

		d.Bandwidth.d.Set(e.From, e.To, e.Bandwidth)
		d.Latency.d.Set(e.From, e.To, e.Latency)
	}

	return d, nil
}

// NumCores returns the number of cores.
func (d *Demand) NumCores() int {
	return d.Bandwidth.n
}

// Communicates checks if there is traffic in either direction between two
// cores.
func (d *Demand) Communicates(i, j int) bool {
	return d.Bandwidth.At(i, j) != 0 || d.Bandwidth.At(j, i) != 0
}

// Edges lists every pair with a bandwidth or latency requirement, in row-major
// order.
func (d *Demand) Edges() []Edge {
	var edges []Edge

	n := d.NumCores()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			bw, lat := d.Bandwidth.At(i, j), d.Latency.At(i, j)
			if bw == 0 && lat == 0 {
				continue
			}

			edges = append(edges, Edge{
				From:      i,
				To:        j,
				Bandwidth: bw,
				Latency:   lat,
			})
		}
	}

	return edges
}

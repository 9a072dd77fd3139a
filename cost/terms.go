package cost

import (
	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/noc/mesh"
)

func hops(positions mesh.Positions, i, j int) float64 {
	return float64(mesh.Hops(positions.Position(i), positions.Position(j)))
}

// Compaction is the bandwidth-weighted hop count summed over all flows.
func Compaction(d *demand.Demand, positions mesh.Positions) float64 {
	sum := 0.0

	d.Bandwidth.ForEachNonZero(func(i, j int, bw float64) {
		sum += bw * hops(positions, i, j)
	})

	return sum
}

// Slack is the latency headroom summed over all flows with a latency
// requirement. Negative values mean requirements are violated.
func Slack(
	d *demand.Demand,
	positions mesh.Positions,
	linkLatency float64,
) float64 {
	sum := 0.0

	d.Latency.ForEachNonZero(func(i, j int, lat float64) {
		sum += lat - hops(positions, i, j)*linkLatency
	})

	return sum
}

// Proximity is the negative distance summed over every pair of cores that do
// not communicate in either direction.
func Proximity(d *demand.Demand, positions mesh.Positions) float64 {
	sum := 0.0

	n := d.NumCores()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d.Communicates(i, j) {
				continue
			}

			sum -= hops(positions, i, j)
		}
	}

	return sum
}

func incidentCompaction(
	d *demand.Demand,
	positions mesh.Positions,
	cores []int,
) float64 {
	sum := 0.0

	d.Bandwidth.ForEachIncident(cores, func(i, j int, bw float64) {
		sum += bw * hops(positions, i, j)
	})

	return sum
}

func incidentSlack(
	d *demand.Demand,
	positions mesh.Positions,
	linkLatency float64,
	cores []int,
) float64 {
	sum := 0.0

	d.Latency.ForEachIncident(cores, func(i, j int, lat float64) {
		sum += lat - hops(positions, i, j)*linkLatency
	})

	return sum
}

// incidentProximity walks every unordered pair with at least one core in the
// list, once.
func incidentProximity(
	d *demand.Demand,
	positions mesh.Positions,
	cores []int,
) float64 {
	sum := 0.0

	n := d.NumCores()
	for idx, c := range cores {
		for k := 0; k < n; k++ {
			if k == c || listedBefore(cores, idx, k) {
				continue
			}

			if d.Communicates(c, k) {
				continue
			}

			sum -= hops(positions, c, k)
		}
	}

	return sum
}

// listedBefore checks if k appears in cores before position idx. The pair
// (cores[j], cores[idx]) with j < idx was already visited from cores[j].
func listedBefore(cores []int, idx, k int) bool {
	for j := 0; j < idx; j++ {
		if cores[j] == k {
			return true
		}
	}

	return false
}

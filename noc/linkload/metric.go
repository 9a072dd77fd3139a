package linkload

import (
	"fmt"
	"math"
	"strings"
)

// Metric selects how link loads are folded into the utilization cost. A run
// uses one metric from beginning to end.
type Metric int

const (
	// SquaredLoad sums the square of each link's load, normalized by the link
	// bandwidth. Heavily loaded links dominate.
	SquaredLoad Metric = iota

	// Overload sums the part of each link's load that exceeds the link
	// bandwidth.
	Overload
)

func (m Metric) String() string {
	switch m {
	case SquaredLoad:
		return "squared"
	case Overload:
		return "overload"
	default:
		return "unknown"
	}
}

// ParseMetric converts a metric name into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "squared":
		return SquaredLoad, nil
	case "overload":
		return Overload, nil
	default:
		return 0, fmt.Errorf("unknown utilization metric %q", s)
	}
}

func (m Metric) linkCost(load, capacity float64) float64 {
	switch m {
	case SquaredLoad:
		if capacity > 0 {
			load /= capacity
		}

		return load * load
	case Overload:
		return math.Max(0, load-capacity)
	default:
		panic(fmt.Sprintf("unknown metric %d", m))
	}
}

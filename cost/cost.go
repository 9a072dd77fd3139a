// Package cost implements the objective that the placement search minimizes.
//
// The total cost is
//
//	alpha*compaction + (1-alpha)*(beta*slack + gamma*proximity + theta*utilization)
//
// Compaction, slack and proximity only depend on core positions and can be
// maintained incrementally as single cores move. Utilization depends on the
// load of every link and is always read from the link-load model.
package cost

import (
	"fmt"

	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/noc/linkload"
	"github.com/sarchlab/meshplace/noc/mesh"
)

// Op tells UpdateCost whether to take contributions away or add them back.
type Op int

// The two update directions.
const (
	Remove Op = iota
	Add
)

func (o Op) String() string {
	switch o {
	case Remove:
		return "remove"
	case Add:
		return "add"
	default:
		return "unknown"
	}
}

// Weights are the coefficients of the objective.
type Weights struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
	Theta float64 `json:"theta" yaml:"theta"`
}

// DefaultWeights returns alpha=1, beta=1, gamma=0.2, theta=0.04.
func DefaultWeights() Weights {
	return Weights{Alpha: 1, Beta: 1, Gamma: 0.2, Theta: 0.04}
}

// A Breakdown is the value of every term of the objective.
type Breakdown struct {
	Total       float64 `json:"total"`
	Compaction  float64 `json:"compaction"`
	Dilation    float64 `json:"dilation"`
	Slack       float64 `json:"slack"`
	Proximity   float64 `json:"proximity"`
	Utilization float64 `json:"utilization"`
}

// Model keeps the current value of the objective.
type Model struct {
	weights     Weights
	demand      *demand.Demand
	linkLatency float64

	compaction  float64
	slack       float64
	proximity   float64
	utilization float64
	dilation    float64
	total       float64
}

// NewModel creates a cost model. InitCost must be called before the cost is
// read.
func NewModel(w Weights, d *demand.Demand, linkLatency float64) *Model {
	return &Model{
		weights:     w,
		demand:      d,
		linkLatency: linkLatency,
	}
}

// Weights returns the weights of the objective.
func (m *Model) Weights() Weights {
	return m.weights
}

// InitCost recomputes every term from scratch.
func (m *Model) InitCost(positions mesh.Positions, network *linkload.Network) {
	m.mustMatch(positions)

	m.compaction = Compaction(m.demand, positions)
	m.slack = Slack(m.demand, positions, m.linkLatency)
	m.proximity = Proximity(m.demand, positions)
	m.CalculateCost(network)
}

// CalculateCost reads the utilization from the network and combines the
// terms into the total.
func (m *Model) CalculateCost(network *linkload.Network) {
	m.utilization = network.Utilization()
	m.dilation = m.weights.Beta*m.slack +
		m.weights.Gamma*m.proximity +
		m.weights.Theta*m.utilization
	m.total = m.weights.Alpha*m.compaction + (1-m.weights.Alpha)*m.dilation
}

// UpdateCost removes or adds the compaction, slack and proximity
// contributions of everything that involves the given cores, at their current
// positions. A flow or pair between two of the given cores counts once. The
// total is not recombined until CalculateCost is called.
func (m *Model) UpdateCost(positions mesh.Positions, op Op, cores ...int) {
	if len(cores) == 0 {
		panic("no core to update")
	}

	sign := 1.0
	switch op {
	case Remove:
		sign = -1
	case Add:
	default:
		panic(fmt.Sprintf("unknown op %d", op))
	}

	m.compaction += sign * incidentCompaction(m.demand, positions, cores)
	m.slack += sign * incidentSlack(m.demand, positions, m.linkLatency, cores)
	m.proximity += sign * incidentProximity(m.demand, positions, cores)
}

// Cost returns the total.
func (m *Model) Cost() float64 {
	return m.total
}

// Breakdown returns the value of every term.
func (m *Model) Breakdown() Breakdown {
	return Breakdown{
		Total:       m.total,
		Compaction:  m.compaction,
		Dilation:    m.dilation,
		Slack:       m.slack,
		Proximity:   m.proximity,
		Utilization: m.utilization,
	}
}

// Clone returns an independent copy that shares the demand.
func (m *Model) Clone() *Model {
	c := *m
	return &c
}

func (m *Model) mustMatch(positions mesh.Positions) {
	if positions.NumCores() != m.demand.NumCores() {
		panic(fmt.Sprintf("%d positions for %d cores",
			positions.NumCores(), m.demand.NumCores()))
	}
}

// Package placement maintains a placement of cores on the mesh together with
// the link loads and the cost it induces.
package placement

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/sarchlab/meshplace/cost"
	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/noc/linkload"
	"github.com/sarchlab/meshplace/noc/mesh"
)

// RandomSource provides the random numbers used to generate moves.
// *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	// IntN returns a number in [0, n).
	IntN(n int) int

	// Float64 returns a number in [0, 1).
	Float64() float64
}

// ErrIllegalInitialState is returned when a placement violates a latency
// requirement.
var ErrIllegalInitialState = errors.New("illegal initial state")

// A LatencyViolation is a flow whose route is slower than required.
type LatencyViolation struct {
	From     int
	To       int
	Required float64
	Achieved float64
}

func (v LatencyViolation) Error() string {
	return fmt.Sprintf("flow %d->%d needs latency %g but takes %g",
		v.From, v.To, v.Required, v.Achieved)
}

// State is a placement that can be changed one move at a time while the cost
// is kept up to date.
type State struct {
	demand        *demand.Demand
	linkLatency   float64
	linkBandwidth float64

	layout  *mesh.Layout
	network *linkload.Network
	cost    *cost.Model

	random   RandomSource
	lastMove Move
	hasMoved bool

	log logr.Logger
}

// NumCores returns the number of cores.
func (s *State) NumCores() int {
	return s.layout.NumCores()
}

// Demand returns the traffic requirements.
func (s *State) Demand() *demand.Demand {
	return s.demand
}

// LinkLatency returns the latency of a single hop.
func (s *State) LinkLatency() float64 {
	return s.linkLatency
}

// LinkBandwidth returns the capacity of a single link.
func (s *State) LinkBandwidth() float64 {
	return s.linkBandwidth
}

// Cost returns the current total cost.
func (s *State) Cost() float64 {
	return s.cost.Cost()
}

// Breakdown returns the value of every cost term.
func (s *State) Breakdown() cost.Breakdown {
	return s.cost.Breakdown()
}

// Weights returns the weights of the objective.
func (s *State) Weights() cost.Weights {
	return s.cost.Weights()
}

// Positions returns a copy of the position of every core.
func (s *State) Positions() []mesh.Coordinate {
	return s.layout.Positions()
}

// Layout returns the placement. It must not be modified.
func (s *State) Layout() *mesh.Layout {
	return s.layout
}

// Network returns the link loads. It must not be modified.
func (s *State) Network() *linkload.Network {
	return s.network
}

// UseRandomSource replaces the random source, so that a clone can explore
// apart from the state it was cloned from.
func (s *State) UseRandomSource(r RandomSource) {
	s.random = r
}

// LastMove returns the most recently applied move.
func (s *State) LastMove() (Move, bool) {
	return s.lastMove, s.hasMoved
}

// GenerateNewState picks a random core and a random tile and moves the core
// there. If the tile hosts another core, the two cores swap.
func (s *State) GenerateNewState() Move {
	m := s.ProposeMove()
	s.Apply(m)

	return m
}

// ProposeMove picks a random move without applying it.
func (s *State) ProposeMove() Move {
	core := s.random.IntN(s.layout.NumCores())
	to := mesh.Coordinate{
		X: s.random.IntN(s.layout.Cols()),
		Y: s.random.IntN(s.layout.Rows()),
	}

	return s.moveTo(core, to)
}

func (s *State) moveTo(core int, to mesh.Coordinate) Move {
	from := s.layout.Position(core)
	other := s.layout.CoreIndex(to)

	if other == mesh.NoCore || other == core {
		return Move{Kind: Relocate, Core: core, Other: mesh.NoCore, From: from, To: to}
	}

	return Move{Kind: Swap, Core: core, Other: other, From: from, To: to}
}

// Apply performs a move. The move must match the current placement.
func (s *State) Apply(m Move) {
	s.moveMustMatch(m)

	switch m.Kind {
	case Relocate:
		s.relocate(m.Core, m.To)
	case Swap:
		s.swap(m.Core, m.Other)
	default:
		log.Panicf("unknown move kind %s", m.Kind)
	}

	s.lastMove = m
	s.hasMoved = true

	s.log.V(2).Info("move applied", "move", m.String(), "cost", s.Cost())
}

// Undo reverts the last move.
func (s *State) Undo() {
	if !s.hasMoved {
		panic("no move to undo")
	}

	s.Apply(s.lastMove.Inverse())
	s.hasMoved = false
}

func (s *State) moveMustMatch(m Move) {
	if m.Core < 0 || m.Core >= s.layout.NumCores() {
		log.Panicf("core %d does not exist", m.Core)
	}

	if s.layout.Position(m.Core) != m.From {
		log.Panicf("core %d is at %s, not %s",
			m.Core, s.layout.Position(m.Core), m.From)
	}

	if m.Kind == Swap && s.layout.CoreIndex(m.To) != m.Other {
		log.Panicf("core %d is not at %s", m.Other, m.To)
	}
}

func (s *State) relocate(core int, to mesh.Coordinate) {
	if s.layout.Position(core) == to {
		return
	}

	bw := s.demand.Bandwidth

	s.cost.UpdateCost(s.layout, cost.Remove, core)
	s.network.RemoveAllConnections(bw, s.layout, core)

	s.layout.Relocate(core, to)

	s.network.AddAllConnections(bw, s.layout, core)
	s.cost.UpdateCost(s.layout, cost.Add, core)
	s.cost.CalculateCost(s.network)
}

func (s *State) swap(a, b int) {
	bw := s.demand.Bandwidth

	s.network.RemoveAllConnections(bw, s.layout, a, b)
	s.layout.Swap(a, b)
	s.network.AddAllConnections(bw, s.layout, a, b)

	s.cost.InitCost(s.layout, s.network)
}

// IsLegal checks every latency requirement against the current placement.
// The returned error wraps ErrIllegalInitialState together with every
// LatencyViolation, which can be listed with Violations.
func (s *State) IsLegal() error {
	violations := s.LatencyViolations()
	if len(violations) == 0 {
		return nil
	}

	var err error
	for _, v := range violations {
		err = multierr.Append(err, v)
	}

	return fmt.Errorf("%w: %w", ErrIllegalInitialState, err)
}

// Violations lists the latency violations carried by an error returned from
// IsLegal or Builder.Build.
func Violations(err error) []LatencyViolation {
	var out []LatencyViolation

	switch e := err.(type) {
	case nil:
	case LatencyViolation:
		out = append(out, e)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			out = append(out, Violations(inner)...)
		}
	case interface{ Unwrap() error }:
		out = append(out, Violations(e.Unwrap())...)
	}

	return out
}

// LatencyViolations lists the flows that cannot meet their latency
// requirement at the current placement.
func (s *State) LatencyViolations() []LatencyViolation {
	var out []LatencyViolation

	s.demand.Latency.ForEachNonZero(func(i, j int, lat float64) {
		hops := mesh.Hops(s.layout.Position(i), s.layout.Position(j))

		achieved := float64(hops) * s.linkLatency
		if achieved > lat {
			out = append(out, LatencyViolation{
				From:     i,
				To:       j,
				Required: lat,
				Achieved: achieved,
			})
		}
	})

	return out
}

// LinksWithinCapacity checks if every link carries at most the link
// bandwidth.
func (s *State) LinksWithinCapacity() bool {
	return s.network.IsLegal(s.linkBandwidth)
}

// VerifyCost compares the maintained cost with a computation from scratch.
// Each term may differ by at most the given tolerance relative to its
// magnitude.
func (s *State) VerifyCost(tolerance float64) error {
	network := linkload.NewNetwork(s.layout.Rows(), s.layout.Cols(),
		s.linkBandwidth, s.network.Metric())
	network.Update(s.demand.Bandwidth, s.layout)

	fresh := cost.NewModel(s.cost.Weights(), s.demand, s.linkLatency)
	fresh.InitCost(s.layout, network)

	want, got := fresh.Breakdown(), s.cost.Breakdown()

	var err error
	check := func(name string, want, got float64) {
		if !withinTolerance(want, got, tolerance) {
			err = multierr.Append(err,
				fmt.Errorf("%s is %g, expected %g", name, got, want))
		}
	}

	check("total", want.Total, got.Total)
	check("compaction", want.Compaction, got.Compaction)
	check("slack", want.Slack, got.Slack)
	check("proximity", want.Proximity, got.Proximity)
	check("utilization", want.Utilization, got.Utilization)

	return err
}

func withinTolerance(want, got, tolerance float64) bool {
	return math.Abs(want-got) <= tolerance*math.Max(1, math.Abs(want))
}

// Clone returns an independent copy that shares the demand and the random
// source.
func (s *State) Clone() *State {
	c := *s
	c.layout = s.layout.Clone()
	c.network = s.network.Clone()
	c.cost = s.cost.Clone()

	return &c
}

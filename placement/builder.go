package placement

import (
	"math/rand/v2"

	"github.com/go-logr/logr"

	"github.com/sarchlab/meshplace/cost"
	"github.com/sarchlab/meshplace/instance"
	"github.com/sarchlab/meshplace/noc/linkload"
	"github.com/sarchlab/meshplace/noc/mesh"
)

// Builder can be used to build a State.
type Builder struct {
	weights          cost.Weights
	linkLatency      float64
	hasLinkLatency   bool
	linkBandwidth    float64
	hasLinkBandwidth bool
	metric           linkload.Metric
	random           RandomSource
	log              logr.Logger
}

// MakeBuilder creates a builder with the default weights and the squared
// load utilization metric.
func MakeBuilder() Builder {
	return Builder{
		weights: cost.DefaultWeights(),
		metric:  linkload.SquaredLoad,
		log:     logr.Discard(),
	}
}

// WithWeights sets the weights of the objective.
func (b Builder) WithWeights(w cost.Weights) Builder {
	b.weights = w
	return b
}

// WithLinkLatency overrides the link latency of the instance.
func (b Builder) WithLinkLatency(latency float64) Builder {
	b.linkLatency = latency
	b.hasLinkLatency = true

	return b
}

// WithLinkBandwidth overrides the link bandwidth of the instance.
func (b Builder) WithLinkBandwidth(bandwidth float64) Builder {
	b.linkBandwidth = bandwidth
	b.hasLinkBandwidth = true

	return b
}

// WithUtilizationMetric sets how link loads are folded into the utilization
// term.
func (b Builder) WithUtilizationMetric(m linkload.Metric) Builder {
	b.metric = m
	return b
}

// WithRandomSource sets the random source used to generate moves.
func (b Builder) WithRandomSource(r RandomSource) Builder {
	b.random = r
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logr.Logger) Builder {
	b.log = l
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.weights.Alpha < 0 || b.weights.Alpha > 1 {
		panic("alpha must be in [0, 1]")
	}

	if b.hasLinkLatency && b.linkLatency < 0 {
		panic("link latency cannot be negative")
	}

	if b.hasLinkBandwidth && b.linkBandwidth < 0 {
		panic("link bandwidth cannot be negative")
	}

	if b.metric != linkload.SquaredLoad && b.metric != linkload.Overload {
		panic("unknown utilization metric")
	}
}

// Build creates a state at the initial placement of the instance. It returns
// an error wrapping ErrIllegalInitialState if the placement cannot meet a
// latency requirement.
func (b Builder) Build(inst *instance.Instance) (*State, error) {
	b.parametersMustBeValid()

	layout, err := mesh.NewLayout(inst.Rows, inst.Cols, inst.Positions)
	if err != nil {
		return nil, err
	}

	s := &State{
		demand:        inst.Demand,
		linkLatency:   inst.LinkLatency,
		linkBandwidth: inst.LinkBandwidth,
		layout:        layout,
		random:        b.random,
		log:           b.log,
	}

	if b.hasLinkLatency {
		s.linkLatency = b.linkLatency
	}

	if b.hasLinkBandwidth {
		s.linkBandwidth = b.linkBandwidth
	}

	if s.random == nil {
		s.random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s.network = linkload.NewNetwork(inst.Rows, inst.Cols, s.linkBandwidth, b.metric)
	s.network.Update(s.demand.Bandwidth, s.layout)

	if err := s.IsLegal(); err != nil {
		return nil, err
	}

	if !s.LinksWithinCapacity() {
		peak := s.network.PeakLink()
		s.log.Info("initial placement overloads a link",
			"from", peak.From.String(), "dir", peak.Dir.String(),
			"load", peak.Bandwidth, "capacity", s.linkBandwidth)
	}

	s.cost = cost.NewModel(b.weights, s.demand, s.linkLatency)
	s.cost.InitCost(s.layout, s.network)

	return s, nil
}

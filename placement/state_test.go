package placement

import (
	"errors"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/meshplace/cost"
	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/instance"
	"github.com/sarchlab/meshplace/noc/linkload"
	"github.com/sarchlab/meshplace/noc/mesh"
)

func ringInstance(positions ...mesh.Coordinate) *instance.Instance {
	d, err := demand.New(4, []demand.Edge{
		{From: 0, To: 1, Bandwidth: 20, Latency: 10},
		{From: 1, To: 2, Bandwidth: 30, Latency: 20},
		{From: 2, To: 3, Bandwidth: 40, Latency: 20},
		{From: 3, To: 0, Bandwidth: 10, Latency: 10},
	})
	Expect(err).NotTo(HaveOccurred())

	return &instance.Instance{
		LinkBandwidth: 100,
		LinkLatency:   10,
		Rows:          4,
		Cols:          4,
		Positions:     positions,
		Demand:        d,
	}
}

func compactRing() *instance.Instance {
	return ringInstance(
		mesh.Coordinate{X: 0, Y: 0},
		mesh.Coordinate{X: 1, Y: 0},
		mesh.Coordinate{X: 1, Y: 1},
		mesh.Coordinate{X: 0, Y: 1},
	)
}

var _ = Describe("Builder", func() {
	It("should build a legal state", func() {
		s, err := MakeBuilder().Build(compactRing())

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Breakdown().Compaction).To(Equal(100.0))
		Expect(s.Cost()).To(Equal(100.0))
		Expect(s.LinksWithinCapacity()).To(BeTrue())
		Expect(s.VerifyCost(1e-9)).To(Succeed())
	})

	It("should reject a placement that violates latency", func() {
		inst := ringInstance(
			mesh.Coordinate{X: 0, Y: 0},
			mesh.Coordinate{X: 3, Y: 3},
			mesh.Coordinate{X: 2, Y: 1},
			mesh.Coordinate{X: 0, Y: 3},
		)

		_, err := MakeBuilder().Build(inst)

		Expect(errors.Is(err, ErrIllegalInitialState)).To(BeTrue())

		violations := Violations(err)
		Expect(violations).To(ConsistOf(
			LatencyViolation{From: 0, To: 1, Required: 10, Achieved: 60},
			LatencyViolation{From: 1, To: 2, Required: 20, Achieved: 30},
			LatencyViolation{From: 2, To: 3, Required: 20, Achieved: 40},
			LatencyViolation{From: 3, To: 0, Required: 10, Achieved: 30},
		))
	})

	It("should list a single violation", func() {
		inst := ringInstance(
			mesh.Coordinate{X: 0, Y: 0},
			mesh.Coordinate{X: 1, Y: 0},
			mesh.Coordinate{X: 1, Y: 1},
			mesh.Coordinate{X: 3, Y: 1},
		)

		_, err := MakeBuilder().Build(inst)

		Expect(err).To(MatchError(ErrIllegalInitialState))
		Expect(Violations(err)).To(Equal([]LatencyViolation{
			{From: 3, To: 0, Required: 10, Achieved: 40},
		}))
	})

	It("should use the overrides", func() {
		s, err := MakeBuilder().
			WithLinkLatency(5).
			WithLinkBandwidth(10).
			WithUtilizationMetric(linkload.Overload).
			WithWeights(cost.Weights{Alpha: 0, Beta: 0, Gamma: 0, Theta: 1}).
			Build(compactRing())

		Expect(err).NotTo(HaveOccurred())
		Expect(s.LinkLatency()).To(Equal(5.0))
		Expect(s.LinkBandwidth()).To(Equal(10.0))
		Expect(s.LinksWithinCapacity()).To(BeFalse())
		// Every flow takes one link: 10 + 20 + 30 over capacity.
		Expect(s.Cost()).To(Equal(60.0))
	})

	It("should panic on invalid weights", func() {
		b := MakeBuilder().WithWeights(cost.Weights{Alpha: 2})

		Expect(func() { _, _ = b.Build(compactRing()) }).To(Panic())
	})

	It("should panic on a negative link latency", func() {
		b := MakeBuilder().WithLinkLatency(-1)

		Expect(func() { _, _ = b.Build(compactRing()) }).To(Panic())
	})
})

var _ = Describe("State", func() {
	var (
		mockCtrl *gomock.Controller
		random   *MockRandomSource
		s        *State
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		random = NewMockRandomSource(mockCtrl)

		var err error
		s, err = MakeBuilder().
			WithWeights(cost.Weights{Alpha: 0.5, Beta: 1, Gamma: 0.2, Theta: 0.04}).
			WithRandomSource(random).
			Build(compactRing())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectPick := func(core, x, y int) {
		gomock.InOrder(
			random.EXPECT().IntN(4).Return(core),
			random.EXPECT().IntN(4).Return(x),
			random.EXPECT().IntN(4).Return(y),
		)
	}

	It("should relocate a core to an empty tile", func() {
		expectPick(0, 2, 2)

		m := s.GenerateNewState()

		Expect(m).To(Equal(Move{
			Kind:  Relocate,
			Core:  0,
			Other: mesh.NoCore,
			From:  mesh.Coordinate{X: 0, Y: 0},
			To:    mesh.Coordinate{X: 2, Y: 2},
		}))
		Expect(s.Layout().Position(0)).To(Equal(mesh.Coordinate{X: 2, Y: 2}))
		Expect(s.Layout().HasCore(mesh.Coordinate{X: 0, Y: 0})).To(BeFalse())
		Expect(s.VerifyCost(1e-9)).To(Succeed())
	})

	It("should swap with the core on an occupied tile", func() {
		expectPick(0, 1, 1)

		m := s.GenerateNewState()

		Expect(m.Kind).To(Equal(Swap))
		Expect(m.Other).To(Equal(2))
		Expect(s.Layout().Position(0)).To(Equal(mesh.Coordinate{X: 1, Y: 1}))
		Expect(s.Layout().Position(2)).To(Equal(mesh.Coordinate{X: 0, Y: 0}))
		Expect(s.VerifyCost(1e-9)).To(Succeed())
	})

	It("should not change anything when the core stays", func() {
		expectPick(1, 1, 0)
		before := s.Breakdown()

		m := s.GenerateNewState()

		Expect(m.IsNoop()).To(BeTrue())
		Expect(s.Breakdown()).To(Equal(before))
	})

	It("should undo a relocation", func() {
		expectPick(3, 3, 3)
		before := s.Breakdown()
		positions := s.Positions()

		s.GenerateNewState()
		Expect(s.Cost()).NotTo(Equal(before.Total))

		s.Undo()

		Expect(s.Positions()).To(Equal(positions))
		Expect(s.Breakdown().Total).To(BeNumerically("~", before.Total, 1e-9))
		Expect(s.VerifyCost(1e-9)).To(Succeed())
	})

	It("should undo a swap", func() {
		expectPick(1, 0, 1)
		positions := s.Positions()
		before := s.Cost()

		m := s.GenerateNewState()
		Expect(m.Kind).To(Equal(Swap))

		s.Undo()

		Expect(s.Positions()).To(Equal(positions))
		Expect(s.Cost()).To(BeNumerically("~", before, 1e-9))
	})

	It("should panic when undoing twice", func() {
		expectPick(3, 3, 3)
		s.GenerateNewState()
		s.Undo()

		Expect(func() { s.Undo() }).To(Panic())
	})

	It("should restore the placement after swapping twice", func() {
		positions := s.Positions()
		before := s.Breakdown()
		links := s.Network().Links()
		tiles := occupancy(s.Layout())

		m := Move{
			Kind:  Swap,
			Core:  0,
			Other: 3,
			From:  positions[0],
			To:    positions[3],
		}
		s.Apply(m)
		s.Apply(Move{Kind: Swap, Core: 0, Other: 3, From: positions[3], To: positions[0]})

		Expect(s.Positions()).To(Equal(positions))
		Expect(occupancy(s.Layout())).To(Equal(tiles))
		Expect(s.Network().Links()).To(Equal(links))
		Expect(s.Breakdown()).To(Equal(before))
	})

	It("should panic on a move that does not match the placement", func() {
		m := Move{
			Kind:  Relocate,
			Core:  0,
			Other: mesh.NoCore,
			From:  mesh.Coordinate{X: 3, Y: 3},
			To:    mesh.Coordinate{X: 2, Y: 2},
		}

		Expect(func() { s.Apply(m) }).To(Panic())
	})

	It("should keep clones independent", func() {
		clone := s.Clone()
		expectPick(0, 3, 3)

		clone.GenerateNewState()

		Expect(s.Layout().Position(0)).To(Equal(mesh.Coordinate{X: 0, Y: 0}))
		Expect(clone.Layout().Position(0)).To(Equal(mesh.Coordinate{X: 3, Y: 3}))
		Expect(s.VerifyCost(1e-9)).To(Succeed())
		Expect(clone.VerifyCost(1e-9)).To(Succeed())
	})
})

var _ = Describe("Random walk", func() {
	for _, metric := range []linkload.Metric{linkload.SquaredLoad, linkload.Overload} {
		It("should keep the cost equal to a full computation with "+metric.String(), func() {
			inst := walkInstance()
			s, err := MakeBuilder().
				WithWeights(cost.Weights{Alpha: 0.3, Beta: 1, Gamma: 0.2, Theta: 0.04}).
				WithUtilizationMetric(metric).
				WithRandomSource(rand.New(rand.NewPCG(7, 11))).
				Build(inst)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 500; i++ {
				s.GenerateNewState()

				if i%3 == 0 {
					s.Undo()
				}

				s.Layout().MustBeConsistent()
				Expect(s.VerifyCost(1e-9)).To(Succeed(), "after move %d", i)
			}
		})
	}
})

// looseLatency returns no requirement or one that the initial placement
// meets at 10 per hop, as no two tiles of a 4x5 mesh are more than 7 hops
// apart.
func looseLatency(r *rand.Rand) float64 {
	if r.IntN(3) == 0 {
		return 0
	}

	return float64(70 + 10*r.IntN(4))
}

// occupancy lists the core on every tile of the layout, row by row.
func occupancy(l *mesh.Layout) []int {
	var cores []int

	for y := 0; y < l.Rows(); y++ {
		for x := 0; x < l.Cols(); x++ {
			pos := mesh.Coordinate{X: x, Y: y}
			if l.HasCore(pos) {
				cores = append(cores, l.CoreIndex(pos))
			} else {
				cores = append(cores, mesh.NoCore)
			}
		}
	}

	return cores
}

func walkInstance() *instance.Instance {
	r := rand.New(rand.NewPCG(1, 2))

	var edges []demand.Edge
	for i := 0; i < 40; i++ {
		from, to := r.IntN(12), r.IntN(12)
		if from == to {
			continue
		}

		edges = append(edges, demand.Edge{
			From:      from,
			To:        to,
			Bandwidth: float64(1 + r.IntN(50)),
			Latency:   looseLatency(r),
		})
	}

	d, err := demand.New(12, edges)
	Expect(err).NotTo(HaveOccurred())

	positions := make([]mesh.Coordinate, 12)
	for i := range positions {
		positions[i] = mesh.Coordinate{X: i % 5, Y: i / 5}
	}

	return &instance.Instance{
		LinkBandwidth: 60,
		LinkLatency:   10,
		Rows:          4,
		Cols:          5,
		Positions:     positions,
		Demand:        d,
	}
}

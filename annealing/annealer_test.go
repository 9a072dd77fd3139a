package annealing

import (
	"context"
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/hooking"
	"github.com/sarchlab/meshplace/instance"
	"github.com/sarchlab/meshplace/noc/mesh"
	"github.com/sarchlab/meshplace/placement"
)

// lineInstance puts two cores with one flow on a 1x3 mesh.
func lineInstance(second int) *instance.Instance {
	d, err := demand.New(2, []demand.Edge{{From: 0, To: 1, Bandwidth: 10}})
	Expect(err).NotTo(HaveOccurred())

	return &instance.Instance{
		LinkBandwidth: 100,
		LinkLatency:   1,
		Rows:          1,
		Cols:          3,
		Positions:     []mesh.Coordinate{{X: 0, Y: 0}, {X: second, Y: 0}},
		Demand:        d,
	}
}

func gridInstance() *instance.Instance {
	r := rand.New(rand.NewPCG(3, 5))

	var edges []demand.Edge
	for i := 0; i < 30; i++ {
		from, to := r.IntN(10), r.IntN(10)
		if from != to {
			edges = append(edges, demand.Edge{
				From:      from,
				To:        to,
				Bandwidth: float64(1 + r.IntN(40)),
			})
		}
	}

	d, err := demand.New(10, edges)
	Expect(err).NotTo(HaveOccurred())

	positions := make([]mesh.Coordinate, 10)
	for i := range positions {
		positions[i] = mesh.Coordinate{X: i % 5, Y: i / 5}
	}

	return &instance.Instance{
		LinkBandwidth: 50,
		LinkLatency:   1,
		Rows:          5,
		Cols:          5,
		Positions:     positions,
		Demand:        d,
	}
}

func quickConfig() Config {
	return Config{
		StartTemperature:         100,
		EndTemperature:           1,
		CoolingRate:              0.7,
		IterationsPerTemperature: 80,
		MaxConsecutiveRejections: 40,
		MaxAcceptsPerTemperature: 30,
	}
}

type positionCounter struct {
	counts map[*hooking.HookPos]int
	steps  []Step
}

func (c *positionCounter) Func(ctx hooking.HookCtx) {
	c.counts[ctx.Pos]++
	c.steps = append(c.steps, ctx.Item.(Step))
}

var _ = Describe("Config", func() {
	It("should default to the classic schedule", func() {
		c := DefaultConfig()

		Expect(c.StartTemperature).To(Equal(1000.0))
		Expect(c.EndTemperature).To(Equal(0.1))
		Expect(c.CoolingRate).To(Equal(0.9))
		Expect(c.IterationsPerTemperature).To(Equal(400))
		Expect(c.MaxConsecutiveRejections).To(Equal(200))
		Expect(c.MaxAcceptsPerTemperature).To(Equal(100))
		Expect(c.Validate()).To(Succeed())
	})

	It("should count the temperatures of the schedule", func() {
		// 1000 * 0.9^87 is about 0.1036 and 1000 * 0.9^88 is about 0.0932.
		Expect(DefaultConfig().NumTemperatures()).To(Equal(88))
		Expect(quickConfig().NumTemperatures()).To(Equal(13))
	})

	It("should reject a schedule that never ends", func() {
		c := DefaultConfig()
		c.CoolingRate = 1
		c.IterationsPerTemperature = 0

		err := c.Validate()

		Expect(err).To(MatchError(ContainSubstring("cooling rate")))
		Expect(err).To(MatchError(ContainSubstring("iterations")))
	})

	It("should panic when building with an invalid schedule", func() {
		state, err := placement.MakeBuilder().Build(lineInstance(1))
		Expect(err).NotTo(HaveOccurred())

		b := MakeBuilder().WithConfig(Config{})

		Expect(func() { b.Build(state) }).To(Panic())
	})
})

var _ = Describe("Annealer", func() {
	var (
		mockCtrl *gomock.Controller
		random   *MockRandomSource
		counter  *positionCounter
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		random = NewMockRandomSource(mockCtrl)
		counter = &positionCounter{counts: make(map[*hooking.HookPos]int)}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	build := func(inst *instance.Instance, c Config) *Annealer {
		state, err := placement.MakeBuilder().
			WithRandomSource(random).
			Build(inst)
		Expect(err).NotTo(HaveOccurred())

		return MakeBuilder().
			WithConfig(c).
			WithRandomSource(random).
			WithHook(counter).
			Build(state)
	}

	oneTemperature := Config{
		StartTemperature:         1,
		EndTemperature:           0.5,
		CoolingRate:              0.4,
		IterationsPerTemperature: 5,
		MaxConsecutiveRejections: 1,
		MaxAcceptsPerTemperature: 1,
	}

	It("should roll back after too many rejections", func() {
		a := build(lineInstance(1), oneTemperature)

		random.EXPECT().IntN(2).Return(1)
		random.EXPECT().IntN(3).Return(2)
		random.EXPECT().IntN(1).Return(0)
		random.EXPECT().Float64().Return(0.999)

		res, err := a.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats).To(Equal(Stats{
			Temperatures: 1,
			Trials:       1,
			Rejected:     1,
			Rollbacks:    1,
		}))
		Expect(res.Best.Total).To(Equal(10.0))
		Expect(res.Positions[1]).To(Equal(mesh.Coordinate{X: 1, Y: 0}))
		Expect(counter.counts[HookPosMoveRejected]).To(Equal(1))
		Expect(counter.counts[HookPosRollback]).To(Equal(1))
		Expect(counter.counts[HookPosTemperatureStart]).To(Equal(1))
		Expect(counter.counts[HookPosTemperatureEnd]).To(Equal(1))
	})

	It("should always accept an improvement", func() {
		a := build(lineInstance(2), oneTemperature)

		random.EXPECT().IntN(2).Return(1)
		random.EXPECT().IntN(3).Return(1)
		random.EXPECT().IntN(1).Return(0)

		res, err := a.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Initial.Total).To(Equal(20.0))
		Expect(res.Best.Total).To(Equal(10.0))
		Expect(res.Stats.Accepted).To(Equal(1))
		Expect(res.Stats.Improvements).To(Equal(1))
		Expect(counter.counts[HookPosNewBest]).To(Equal(1))

		accepted := counter.steps[1]
		Expect(accepted.Delta).To(Equal(-10.0))
		Expect(accepted.Move.Kind).To(Equal(placement.Relocate))
	})

	It("should accept a worse move by chance", func() {
		c := oneTemperature
		c.StartTemperature = 100
		c.EndTemperature = 50
		a := build(lineInstance(1), c)

		random.EXPECT().IntN(2).Return(1)
		random.EXPECT().IntN(3).Return(2)
		random.EXPECT().IntN(1).Return(0)
		// exp(-10/100) is about 0.905.
		random.EXPECT().Float64().Return(0.5)

		res, err := a.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.Accepted).To(Equal(1))
		Expect(a.State().Cost()).To(Equal(20.0))
		Expect(res.Best.Total).To(Equal(10.0))
		Expect(counter.counts[HookPosNewBest]).To(Equal(0))
	})

	It("should stop when the context is cancelled", func() {
		a := build(lineInstance(1), DefaultConfig())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := a.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Stats.Trials).To(Equal(0))
		Expect(res.Best.Total).To(Equal(10.0))
	})
})

var _ = Describe("Search", func() {
	It("should never return worse than the initial placement", func() {
		r := rand.New(rand.NewPCG(42, 0))
		state, err := placement.MakeBuilder().
			WithRandomSource(r).
			Build(gridInstance())
		Expect(err).NotTo(HaveOccurred())

		counter := &positionCounter{counts: make(map[*hooking.HookPos]int)}
		a := MakeBuilder().
			WithConfig(quickConfig()).
			WithRandomSource(r).
			WithHook(counter).
			Build(state)

		res, err := a.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Best.Total).To(BeNumerically("<=", res.Initial.Total))
		Expect(res.State.VerifyCost(1e-9)).To(Succeed())
		Expect(a.State().VerifyCost(1e-9)).To(Succeed())
		Expect(res.Stats.Accepted + res.Stats.Rejected).To(Equal(res.Stats.Trials))
		Expect(counter.counts[HookPosTemperatureStart]).To(Equal(res.Stats.Temperatures))
		Expect(counter.counts[HookPosMoveAccepted]).To(Equal(res.Stats.Accepted))
		Expect(counter.counts[HookPosNewBest]).To(Equal(res.Stats.Improvements))

		for _, s := range counter.steps {
			Expect(s.Best.Total).To(BeNumerically("<=", res.Initial.Total))
		}

		res.State.Layout().MustBeConsistent()
	})
})

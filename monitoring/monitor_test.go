package monitoring

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/meshplace/annealing"
	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/instance"
	"github.com/sarchlab/meshplace/noc/mesh"
	"github.com/sarchlab/meshplace/placement"
)

func squareInstance() *instance.Instance {
	d, err := demand.New(4, []demand.Edge{
		{From: 0, To: 1, Bandwidth: 10},
		{From: 1, To: 2, Bandwidth: 10},
		{From: 2, To: 3, Bandwidth: 10, Latency: 5},
	})
	Expect(err).NotTo(HaveOccurred())

	return &instance.Instance{
		LinkBandwidth: 100,
		LinkLatency:   1,
		Rows:          3,
		Cols:          3,
		Positions: []mesh.Coordinate{
			{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}, {X: 2, Y: 0},
		},
		Demand: d,
	}
}

func schedule() annealing.Config {
	return annealing.Config{
		StartTemperature:         10,
		EndTemperature:           1,
		CoolingRate:              0.5,
		IterationsPerTemperature: 20,
		MaxConsecutiveRejections: 10,
		MaxAcceptsPerTemperature: 10,
	}
}

func get(h http.Handler, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		handler http.Handler
		result  annealing.Result
	)

	BeforeEach(func() {
		m = NewMonitor().WithSchedule(schedule())
		handler = m.Handler()

		r := rand.New(rand.NewPCG(1, 2))
		state, err := placement.MakeBuilder().
			WithRandomSource(r).
			Build(squareInstance())
		Expect(err).NotTo(HaveOccurred())

		a := annealing.MakeBuilder().
			WithConfig(schedule()).
			WithRandomSource(r).
			WithRun(3).
			WithHook(m).
			Build(state)

		result, err = a.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should keep a snapshot of every run", func() {
		s, ok := m.Snapshot(3)

		Expect(ok).To(BeTrue())
		Expect(s.Run).To(Equal(3))
		Expect(s.Rows).To(Equal(3))
		Expect(s.Cols).To(Equal(3))
		Expect(s.Positions).To(HaveLen(4))
		Expect(s.Best.Total).To(Equal(result.Best.Total))
		Expect(s.Links).NotTo(BeEmpty())

		_, ok = m.Snapshot(0)
		Expect(ok).To(BeFalse())
	})

	It("should not alias the snapshot", func() {
		s, _ := m.Snapshot(3)
		s.Positions[0] = mesh.Coordinate{X: 9, Y: 9}

		again, _ := m.Snapshot(3)
		Expect(again.Positions[0]).NotTo(Equal(mesh.Coordinate{X: 9, Y: 9}))
	})

	It("should list runs", func() {
		rec := get(handler, "/api/runs")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var runs []runSummary
		Expect(json.Unmarshal(rec.Body.Bytes(), &runs)).To(Succeed())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Run).To(Equal(3))
		Expect(runs[0].Round).To(Equal(result.Stats.Temperatures - 1))
	})

	It("should serve the details of a run", func() {
		rec := get(handler, "/api/run/3")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var s Snapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &s)).To(Succeed())
		Expect(s.Positions).To(HaveLen(4))
	})

	It("should return 404 for an unknown run", func() {
		Expect(get(handler, "/api/run/7").Code).To(Equal(http.StatusNotFound))
		Expect(get(handler, "/api/run/7/links").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should serve a field of a run", func() {
		rec := get(handler, "/api/run/3/field/Current")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should serve the links of a run", func() {
		rec := get(handler, "/api/run/3/links")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var links []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &links)).To(Succeed())
		// 3x3 mesh has 12 edges in each direction
		Expect(links).To(HaveLen(24))
	})

	It("should track progress", func() {
		m.CompleteRun(3)

		rec := get(handler, "/api/progress")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var bars []progressRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("run 3"))
		Expect(bars[0].Total).To(Equal(uint64(4)))
		Expect(bars[0].Finished).To(Equal(uint64(4)))
		Expect(bars[0].ID).NotTo(BeEmpty())
	})

	It("should serve the resource usage", func() {
		rec := get(handler, "/api/resource")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the web page", func() {
		rec := get(handler, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve metrics when a handler is given", func() {
		Expect(get(handler, "/metrics").Code).To(Equal(http.StatusNotFound))

		m.WithMetricsHandler(http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			}))

		rec := get(m.Handler(), "/metrics")
		Expect(rec.Body.String()).To(Equal("ok"))
	})

	It("should start and stop the server", func() {
		url, err := m.WithPortNumber(0).StartServer()
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(url + "/api/runs")
		Expect(err).NotTo(HaveOccurred())
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(rsp.Body.Close()).To(Succeed())

		Expect(m.Stop(context.Background())).To(Succeed())
	})

	It("should refuse to open a browser before serving", func() {
		Expect(m.OpenInBrowser()).To(HaveOccurred())
	})
})

var _ = Describe("ProgressBar", func() {
	It("should count finished steps", func() {
		b := &ProgressBar{Total: 5}

		b.IncrementFinished(2)
		b.IncrementFinished(1)
		Expect(b.response().Finished).To(Equal(uint64(3)))

		b.Complete()
		Expect(b.response().Finished).To(Equal(uint64(5)))
	})
})

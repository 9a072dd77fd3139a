// Package metrics exports the progress of searches as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sarchlab/meshplace/annealing"
	"github.com/sarchlab/meshplace/hooking"
)

// Collector is a hook that keeps Prometheus metrics of every search it is
// attached to. It is safe for concurrent use by parallel searches.
type Collector struct {
	gatherer prometheus.Gatherer

	Moves        *prometheus.CounterVec
	Rollbacks    *prometheus.CounterVec
	Improvements *prometheus.CounterVec
	Temperatures *prometheus.CounterVec

	Cost        *prometheus.GaugeVec
	BestCost    *prometheus.GaugeVec
	Temperature *prometheus.GaugeVec
}

// NewCollector registers the metrics against the registerer, defaulting to
// the global registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}

	var err error

	c.Moves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshplace_moves_total",
		Help: "Moves tried, labeled by run and outcome.",
	}, []string{"run", "outcome"}), "meshplace_moves_total")
	if err != nil {
		return nil, err
	}

	c.Rollbacks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshplace_rollbacks_total",
		Help: "Rollbacks to the best placement after too many rejections.",
	}, []string{"run"}), "meshplace_rollbacks_total")
	if err != nil {
		return nil, err
	}

	c.Improvements, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshplace_improvements_total",
		Help: "Times a new best placement was found.",
	}, []string{"run"}), "meshplace_improvements_total")
	if err != nil {
		return nil, err
	}

	c.Temperatures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meshplace_temperatures_total",
		Help: "Temperature steps completed.",
	}, []string{"run"}), "meshplace_temperatures_total")
	if err != nil {
		return nil, err
	}

	c.Cost, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meshplace_cost",
		Help: "Current value of every cost term, labeled by run and term.",
	}, []string{"run", "term"}), "meshplace_cost")
	if err != nil {
		return nil, err
	}

	c.BestCost, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meshplace_best_cost",
		Help: "Lowest total cost found so far.",
	}, []string{"run"}), "meshplace_best_cost")
	if err != nil {
		return nil, err
	}

	c.Temperature, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meshplace_temperature",
		Help: "Current temperature.",
	}, []string{"run"}), "meshplace_temperature")
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Func updates the metrics from an annealing step.
func (c *Collector) Func(ctx hooking.HookCtx) {
	step, ok := ctx.Item.(annealing.Step)
	if !ok {
		return
	}

	run := strconv.Itoa(step.Run)

	switch ctx.Pos {
	case annealing.HookPosTemperatureStart:
		c.Temperature.WithLabelValues(run).Set(step.Temperature)
		c.setCost(run, step)
	case annealing.HookPosMoveAccepted:
		c.Moves.WithLabelValues(run, "accepted").Inc()
	case annealing.HookPosMoveRejected:
		c.Moves.WithLabelValues(run, "rejected").Inc()
	case annealing.HookPosNewBest:
		c.Improvements.WithLabelValues(run).Inc()
		c.BestCost.WithLabelValues(run).Set(step.Best.Total)
	case annealing.HookPosRollback:
		c.Rollbacks.WithLabelValues(run).Inc()
	case annealing.HookPosTemperatureEnd:
		c.Temperatures.WithLabelValues(run).Inc()
		c.setCost(run, step)
	}
}

func (c *Collector) setCost(run string, step annealing.Step) {
	b := step.Current

	c.Cost.WithLabelValues(run, "total").Set(b.Total)
	c.Cost.WithLabelValues(run, "compaction").Set(b.Compaction)
	c.Cost.WithLabelValues(run, "dilation").Set(b.Dilation)
	c.Cost.WithLabelValues(run, "slack").Set(b.Slack)
	c.Cost.WithLabelValues(run, "proximity").Set(b.Proximity)
	c.Cost.WithLabelValues(run, "utilization").Set(b.Utilization)
	c.BestCost.WithLabelValues(run).Set(step.Best.Total)
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](
	reg prometheus.Registerer,
	collector T,
	name string,
) (T, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}

			var zero T

			return zero, fmt.Errorf(
				"collector %s already registered with incompatible type", name)
		}

		var zero T

		return zero, err
	}

	return collector, nil
}

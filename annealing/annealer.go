// Package annealing searches for a low cost placement with simulated
// annealing.
package annealing

import (
	"context"
	"math"

	"github.com/go-logr/logr"

	"github.com/sarchlab/meshplace/cost"
	"github.com/sarchlab/meshplace/hooking"
	"github.com/sarchlab/meshplace/noc/mesh"
	"github.com/sarchlab/meshplace/placement"
)

// Hook positions of an Annealer. The item of every hook is a Step.
var (
	HookPosTemperatureStart = &hooking.HookPos{Name: "TemperatureStart"}
	HookPosMoveAccepted     = &hooking.HookPos{Name: "MoveAccepted"}
	HookPosMoveRejected     = &hooking.HookPos{Name: "MoveRejected"}
	HookPosNewBest          = &hooking.HookPos{Name: "NewBest"}
	HookPosRollback         = &hooking.HookPos{Name: "Rollback"}
	HookPosTemperatureEnd   = &hooking.HookPos{Name: "TemperatureEnd"}
)

// A Step describes where a search is when a hook is invoked.
type Step struct {
	Run         int
	Temperature float64
	// Round counts temperatures from 0.
	Round int
	// Trial counts moves within the temperature from 0.
	Trial int

	Move  placement.Move
	Delta float64

	Current cost.Breakdown
	Best    cost.Breakdown

	// Accepted and Rejected count moves within the temperature.
	Accepted              int
	Rejected              int
	ConsecutiveRejections int

	// State is the current placement. Hooks must not modify it nor keep it
	// after returning.
	State *placement.State
}

// Stats counts what happened during a search.
type Stats struct {
	Temperatures int `json:"temperatures"`
	Trials       int `json:"trials"`
	Accepted     int `json:"accepted"`
	Rejected     int `json:"rejected"`
	Improvements int `json:"improvements"`
	Rollbacks    int `json:"rollbacks"`
}

// Result is the outcome of a search.
type Result struct {
	Run       int
	Initial   cost.Breakdown
	Best      cost.Breakdown
	Positions []mesh.Coordinate
	Stats     Stats

	// State is the best placement found.
	State *placement.State
}

// Annealer runs a search on a placement state.
type Annealer struct {
	hooking.HookableBase

	run    int
	config Config
	random placement.RandomSource
	log    logr.Logger

	state *placement.State
	best  *placement.State
	stats Stats
}

// State returns the placement the annealer is currently working on.
func (a *Annealer) State() *placement.State {
	return a.state
}

// Best returns the best placement found so far.
func (a *Annealer) Best() *placement.State {
	return a.best
}

// Run performs the search. If the context is cancelled, it stops between
// two moves and returns the best placement found so far together with the
// context error.
func (a *Annealer) Run(ctx context.Context) (Result, error) {
	initial := a.state.Breakdown()

	var err error

	temp := a.config.StartTemperature
	for round := 0; temp > a.config.EndTemperature; round++ {
		err = a.runTemperature(ctx, round, temp)
		a.stats.Temperatures++

		if err != nil {
			break
		}

		temp *= a.config.CoolingRate
	}

	a.log.Info("search finished",
		"run", a.run,
		"initial", initial.Total,
		"best", a.best.Cost(),
		"temperatures", a.stats.Temperatures,
		"accepted", a.stats.Accepted,
		"rollbacks", a.stats.Rollbacks)

	return Result{
		Run:       a.run,
		Initial:   initial,
		Best:      a.best.Breakdown(),
		Positions: a.best.Positions(),
		Stats:     a.stats,
		State:     a.best,
	}, err
}

func (a *Annealer) runTemperature(
	ctx context.Context,
	round int,
	temp float64,
) error {
	step := Step{Run: a.run, Temperature: temp, Round: round}
	a.invoke(HookPosTemperatureStart, &step)

	for trial := 0; trial < a.config.IterationsPerTemperature; trial++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		step.Trial = trial
		if a.try(&step) {
			break
		}
	}

	a.invoke(HookPosTemperatureEnd, &step)

	a.log.V(1).Info("temperature done",
		"run", a.run,
		"round", round,
		"temperature", temp,
		"accepted", step.Accepted,
		"rejected", step.Rejected,
		"cost", a.state.Cost(),
		"best", a.best.Cost())

	return nil
}

// try performs one move and decides whether to keep it. It returns true when
// the temperature step should end.
func (a *Annealer) try(step *Step) bool {
	before := a.state.Cost()
	step.Move = a.state.GenerateNewState()
	step.Delta = a.state.Cost() - before
	a.stats.Trials++

	if a.accept(step.Delta, step.Temperature) {
		step.Accepted++
		step.ConsecutiveRejections = 0
		a.stats.Accepted++
		a.invoke(HookPosMoveAccepted, step)

		if a.state.Cost() < a.best.Cost() {
			a.best = a.state.Clone()
			a.stats.Improvements++
			a.invoke(HookPosNewBest, step)
		}

		return step.Accepted >= a.config.MaxAcceptsPerTemperature
	}

	a.state.Undo()
	step.Rejected++
	step.ConsecutiveRejections++
	a.stats.Rejected++
	a.invoke(HookPosMoveRejected, step)

	if step.ConsecutiveRejections >= a.config.MaxConsecutiveRejections {
		a.state = a.best.Clone()
		a.stats.Rollbacks++
		a.invoke(HookPosRollback, step)

		return true
	}

	return false
}

// accept applies the Metropolis criterion.
func (a *Annealer) accept(delta, temp float64) bool {
	if delta <= 0 {
		return true
	}

	return a.random.Float64() < math.Exp(-delta/temp)
}

func (a *Annealer) invoke(pos *hooking.HookPos, step *Step) {
	if a.NumHooks() == 0 {
		return
	}

	step.Current = a.state.Breakdown()
	step.Best = a.best.Breakdown()
	step.State = a.state

	a.InvokeHook(hooking.HookCtx{
		Domain: a,
		Pos:    pos,
		Item:   *step,
	})
}

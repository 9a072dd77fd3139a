package recording

import (
	"github.com/rs/xid"

	"github.com/sarchlab/meshplace/annealing"
	"github.com/sarchlab/meshplace/hooking"
)

// Table names written by a TrajectoryRecorder.
const (
	TableMoves        = "moves"
	TableTemperatures = "temperatures"
	TablePlacements   = "placements"
)

type moveEntry struct {
	Session     string
	Run         int
	Round       int
	Trial       int
	Temperature float64
	Event       string
	Kind        string
	Core        int
	Other       int
	FromX       int
	FromY       int
	ToX         int
	ToY         int
	Delta       float64
	Cost        float64
	Best        float64
}

type temperatureEntry struct {
	Session     string
	Run         int
	Round       int
	Temperature float64
	Accepted    int
	Rejected    int
	Cost        float64
	Compaction  float64
	Dilation    float64
	Slack       float64
	Proximity   float64
	Utilization float64
	Best        float64
}

type placementEntry struct {
	Session string
	Run     int
	Core    int
	X       int
	Y       int
	Cost    float64
}

// A TrajectoryRecorder is a hook that stores every temperature step and,
// optionally, every move of a search.
type TrajectoryRecorder struct {
	recorder    DataRecorder
	session     string
	recordMoves bool
}

// NewTrajectoryRecorder creates the tables and returns the hook. Moves are
// only stored when recordMoves is set, as there are far more of them than
// temperature steps.
func NewTrajectoryRecorder(
	recorder DataRecorder,
	recordMoves bool,
) *TrajectoryRecorder {
	r := &TrajectoryRecorder{
		recorder:    recorder,
		session:     xid.New().String(),
		recordMoves: recordMoves,
	}

	recorder.CreateTable(TableMoves, moveEntry{})
	recorder.CreateTable(TableTemperatures, temperatureEntry{})
	recorder.CreateTable(TablePlacements, placementEntry{})

	return r
}

// Session returns the identifier written into every row by this recorder.
func (r *TrajectoryRecorder) Session() string {
	return r.session
}

// Func records an annealing step.
func (r *TrajectoryRecorder) Func(ctx hooking.HookCtx) {
	step, ok := ctx.Item.(annealing.Step)
	if !ok {
		return
	}

	switch ctx.Pos {
	case annealing.HookPosTemperatureEnd:
		r.recordTemperature(step)
	case annealing.HookPosMoveAccepted,
		annealing.HookPosMoveRejected,
		annealing.HookPosRollback:
		if r.recordMoves {
			r.recordMove(ctx.Pos.Name, step)
		}
	}
}

func (r *TrajectoryRecorder) recordTemperature(step annealing.Step) {
	c := step.Current

	r.recorder.InsertData(TableTemperatures, temperatureEntry{
		Session:     r.session,
		Run:         step.Run,
		Round:       step.Round,
		Temperature: step.Temperature,
		Accepted:    step.Accepted,
		Rejected:    step.Rejected,
		Cost:        c.Total,
		Compaction:  c.Compaction,
		Dilation:    c.Dilation,
		Slack:       c.Slack,
		Proximity:   c.Proximity,
		Utilization: c.Utilization,
		Best:        step.Best.Total,
	})
}

func (r *TrajectoryRecorder) recordMove(event string, step annealing.Step) {
	m := step.Move

	r.recorder.InsertData(TableMoves, moveEntry{
		Session:     r.session,
		Run:         step.Run,
		Round:       step.Round,
		Trial:       step.Trial,
		Temperature: step.Temperature,
		Event:       event,
		Kind:        m.Kind.String(),
		Core:        m.Core,
		Other:       m.Other,
		FromX:       m.From.X,
		FromY:       m.From.Y,
		ToX:         m.To.X,
		ToY:         m.To.Y,
		Delta:       step.Delta,
		Cost:        step.Current.Total,
		Best:        step.Best.Total,
	})
}

// RecordResult stores the best placement of a search.
func (r *TrajectoryRecorder) RecordResult(res annealing.Result) {
	for core, pos := range res.Positions {
		r.recorder.InsertData(TablePlacements, placementEntry{
			Session: r.session,
			Run:     res.Run,
			Core:    core,
			X:       pos.X,
			Y:       pos.Y,
			Cost:    res.Best.Total,
		})
	}
}

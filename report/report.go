// Package report prints the progress and outcome of a placement search as
// text.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/sarchlab/meshplace/annealing"
	"github.com/sarchlab/meshplace/cost"
	"github.com/sarchlab/meshplace/hooking"
	"github.com/sarchlab/meshplace/noc/linkload"
	"github.com/sarchlab/meshplace/noc/mesh"
	"github.com/sarchlab/meshplace/placement"
)

var costColumns = []string{
	"cost", "compaction", "dilation", "slack", "proximity", "utilization",
}

// PrintCost prints the terms of a breakdown as fixed-width columns without a
// line break.
func PrintCost(w io.Writer, b cost.Breakdown) {
	fmt.Fprintf(w, "%12.3f%12.3f%12.3f%12.3f%12.3f%12.3f",
		b.Total, b.Compaction, b.Dilation, b.Slack, b.Proximity, b.Utilization)
}

// InitTable prints the header of the per-temperature table.
func InitTable(w io.Writer) {
	fmt.Fprintf(w, "#%4s%12s%8s%8s", "run", "temperature", "accepts", "rejects")

	for _, c := range costColumns {
		fmt.Fprintf(w, "%12s", c)
	}

	fmt.Fprintln(w)
}

// PrintRow prints one line of the per-temperature table.
func PrintRow(w io.Writer, step annealing.Step) {
	fmt.Fprintf(w, "%5d%12.3f%8d%8d",
		step.Run, step.Temperature, step.Accepted, step.Rejected)
	PrintCost(w, step.Current)
	fmt.Fprintln(w)
}

// PrintSummary prints the terms of a breakdown on two lines.
func PrintSummary(w io.Writer, b cost.Breakdown) {
	fmt.Fprintf(w, "Cost: %.3f\tCompaction: %.3f\tDilation: %.3f\n",
		b.Total, b.Compaction, b.Dilation)
	fmt.Fprintf(w, "Slack: %.3f\tProximity: %.3f\tUtilization: %.3f\n",
		b.Slack, b.Proximity, b.Utilization)
}

var (
	coreColor       = color.New(color.FgGreen, color.Bold)
	pseudonodeColor = color.New(color.FgYellow)
	emptyColor      = color.New(color.Faint)
)

// PrintDiagram draws the mesh. Cores are numbered from 1, tiles that only
// forward traffic are drawn as '+' and unused tiles as '.'.
func PrintDiagram(w io.Writer, layout *mesh.Layout, network *linkload.Network) {
	pseudonodes := make(map[mesh.Coordinate]bool)
	for _, p := range network.Pseudonodes(layout) {
		pseudonodes[p] = true
	}

	width := len(fmt.Sprint(layout.NumCores())) + 1

	for y := 0; y < layout.Rows(); y++ {
		for x := 0; x < layout.Cols(); x++ {
			pos := mesh.Coordinate{X: x, Y: y}

			switch {
			case layout.HasCore(pos):
				coreColor.Fprintf(w, "%*d", width, layout.CoreIndex(pos)+1)
			case pseudonodes[pos]:
				pseudonodeColor.Fprintf(w, "%*s", width, "+")
			default:
				emptyColor.Fprintf(w, "%*s", width, ".")
			}
		}

		fmt.Fprintln(w)
	}
}

// PrintLinks prints the most loaded link and the load distribution.
func PrintLinks(w io.Writer, network *linkload.Network) {
	peak := network.PeakLink()
	stats := network.Stats()

	fmt.Fprintf(w, "Peak link: %s %s carries %.3f of %.3f in %d connections\n",
		peak.From, peak.Dir, peak.Bandwidth, network.LinkBandwidth(),
		peak.Connections)
	fmt.Fprintf(w, "Link load: mean %.3f\tstddev %.3f\tactive %d/%d\n",
		stats.Mean, stats.StdDev, stats.ActiveLinks, stats.TotalLinks)
}

// PrintState prints the summary, the diagram and the link loads of a state.
func PrintState(w io.Writer, s *placement.State) {
	PrintSummary(w, s.Breakdown())
	PrintDiagram(w, s.Layout(), s.Network())
	PrintLinks(w, s.Network())
}

// PrintViolations lists the flows that miss their latency requirement. Cores
// are numbered from 1 as in the instance file.
func PrintViolations(w io.Writer, violations []placement.LatencyViolation) {
	for _, v := range violations {
		fmt.Fprintf(w, "# flow %d->%d needs latency %g but takes %g\n",
			v.From+1, v.To+1, v.Required, v.Achieved)
	}
}

// PrintQuiet prints the parameters and the final cost of a search on a single
// line.
func PrintQuiet(
	w io.Writer,
	seed uint64,
	weights cost.Weights,
	schedule annealing.Config,
	b cost.Breakdown,
) {
	fields := []string{
		fmt.Sprint(seed),
		formatParam(weights.Alpha),
		formatParam(weights.Beta),
		formatParam(weights.Gamma),
		formatParam(weights.Theta),
		formatParam(schedule.StartTemperature),
		formatParam(schedule.EndTemperature),
		formatParam(schedule.CoolingRate),
	}

	for _, v := range []float64{
		b.Total, b.Compaction, b.Dilation, b.Slack, b.Proximity, b.Utilization,
	} {
		fields = append(fields, fmt.Sprintf("%.3f", v))
	}

	fmt.Fprintln(w, strings.Join(fields, " "))
}

func formatParam(v float64) string {
	return fmt.Sprintf("%g", v)
}

// TablePrinter is a hook that prints a table row at the end of every
// temperature. It may be shared by parallel runs.
type TablePrinter struct {
	lock sync.Mutex
	w    io.Writer
}

// NewTablePrinter creates a TablePrinter that writes to w.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{w: w}
}

// Func prints the row.
func (p *TablePrinter) Func(ctx hooking.HookCtx) {
	if ctx.Pos != annealing.HookPosTemperatureEnd {
		return
	}

	step, ok := ctx.Item.(annealing.Step)
	if !ok {
		return
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	PrintRow(p.w, step)
}

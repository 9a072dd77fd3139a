package instance

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/noc/mesh"
)

type yamlEdge struct {
	From      int     `yaml:"from"`
	To        int     `yaml:"to"`
	Bandwidth int     `yaml:"bandwidth"`
	Latency   float64 `yaml:"latency"`
}

type yamlInstance struct {
	LinkBandwidth float64           `yaml:"linkBandwidth"`
	LinkLatency   float64           `yaml:"linkLatency"`
	Rows          int               `yaml:"rows"`
	Cols          int               `yaml:"cols"`
	Cores         []mesh.Coordinate `yaml:"cores"`
	Edges         []yamlEdge        `yaml:"edges"`
}

// ParseYAML reads an instance written in YAML. It carries the same fields as
// the text format and core numbers in edges also start from 1.
//
//	linkBandwidth: 100
//	linkLatency: 10
//	rows: 4
//	cols: 4
//	cores:
//	  - {x: 0, y: 0}
//	  - {x: 3, y: 3}
//	edges:
//	  - {from: 1, to: 2, bandwidth: 20, latency: 10}
func ParseYAML(r io.Reader) (*Instance, error) {
	var y yamlInstance

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&y); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	if len(y.Cores) > y.Rows*y.Cols {
		return nil, unreadable("%d cores do not fit a %dx%d mesh",
			len(y.Cores), y.Rows, y.Cols)
	}

	edges := make([]demand.Edge, 0, len(y.Edges))
	for _, e := range y.Edges {
		edges = append(edges, demand.Edge{
			From:      e.From - 1,
			To:        e.To - 1,
			Bandwidth: float64(e.Bandwidth),
			Latency:   e.Latency,
		})
	}

	return build(y.LinkBandwidth, y.LinkLatency, y.Rows, y.Cols, y.Cores, edges)
}

// WriteYAML writes an instance in YAML with the cores at the given positions.
func WriteYAML(w io.Writer, inst *Instance, positions []mesh.Coordinate) error {
	if len(positions) != inst.NumCores() {
		return fmt.Errorf("%d positions for %d cores",
			len(positions), inst.NumCores())
	}

	y := yamlInstance{
		LinkBandwidth: inst.LinkBandwidth,
		LinkLatency:   inst.LinkLatency,
		Rows:          inst.Rows,
		Cols:          inst.Cols,
		Cores:         positions,
	}

	for _, e := range inst.Demand.Edges() {
		y.Edges = append(y.Edges, yamlEdge{
			From:      e.From + 1,
			To:        e.To + 1,
			Bandwidth: int(e.Bandwidth),
			Latency:   e.Latency,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(y); err != nil {
		return err
	}

	return enc.Close()
}

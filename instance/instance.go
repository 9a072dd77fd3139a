// Package instance loads and writes placement problems.
//
// The text format is a whitespace separated token stream:
//
//	<linkBandwidth> <linkLatency>
//	<rows> <cols> <numCores>
//	<x> <y>                    one pair per core
//	<from> <to> <bw> <lat>     one demand edge per line until the end
//
// Core numbers in demand edges start from 1.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/noc/mesh"
)

// ErrUnreadable is returned when an instance cannot be opened or parsed.
var ErrUnreadable = errors.New("instance unreadable")

// An Instance is a placement problem together with its initial placement.
type Instance struct {
	LinkBandwidth float64
	LinkLatency   float64
	Rows          int
	Cols          int
	Positions     []mesh.Coordinate
	Demand        *demand.Demand
}

// NumCores returns the number of cores.
func (inst *Instance) NumCores() int {
	return len(inst.Positions)
}

// Load reads an instance file. Files ending with .yaml or .yml are read as
// YAML, everything else with the text format.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return Parse(f)
	}
}

func build(
	linkBandwidth, linkLatency float64,
	rows, cols int,
	positions []mesh.Coordinate,
	edges []demand.Edge,
) (*Instance, error) {
	if rows <= 0 || cols <= 0 {
		return nil, unreadable("invalid mesh size %dx%d", rows, cols)
	}

	if len(positions) == 0 {
		return nil, unreadable("no core")
	}

	if linkBandwidth < 0 || linkLatency < 0 {
		return nil, unreadable("negative link bandwidth or latency")
	}

	if _, err := mesh.NewLayout(rows, cols, positions); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	d, err := demand.New(len(positions), edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	return &Instance{
		LinkBandwidth: linkBandwidth,
		LinkLatency:   linkLatency,
		Rows:          rows,
		Cols:          cols,
		Positions:     positions,
		Demand:        d,
	}, nil
}

func unreadable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnreadable, fmt.Sprintf(format, args...))
}

// Save writes an instance with the cores at the given positions into a file,
// choosing the format by the file extension in the same way as Load.
func Save(path string, inst *Instance, positions []mesh.Coordinate) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = WriteYAML(f, inst, positions)
	default:
		err = Write(f, inst, positions)
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	return err
}

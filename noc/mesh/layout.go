package mesh

import (
	"fmt"
	"log"
)

// A Layout is the placement of every core on a grid. It is the only owner of
// both the grid and the per-core positions, so the two are always the inverse
// of each other.
type Layout struct {
	grid      *Grid
	positions []Coordinate
}

// NewLayout places the cores at the given positions. It fails if a position is
// outside of the mesh or used twice.
func NewLayout(rows, cols int, positions []Coordinate) (*Layout, error) {
	l := &Layout{
		grid:      NewGrid(rows, cols),
		positions: make([]Coordinate, len(positions)),
	}

	for i, pos := range positions {
		if !l.grid.Contains(pos) {
			return nil, fmt.Errorf(
				"core %d at %s is outside of the %dx%d mesh", i, pos, rows, cols)
		}

		if l.grid.HasCore(pos) {
			return nil, fmt.Errorf(
				"core %d and core %d are both at %s",
				l.grid.CoreIndex(pos), i, pos)
		}

		l.grid.AddCore(pos, i)
		l.positions[i] = pos
	}

	return l, nil
}

// NumCores returns the number of cores.
func (l *Layout) NumCores() int {
	return len(l.positions)
}

// Position returns where a core is.
func (l *Layout) Position(core int) Coordinate {
	return l.positions[core]
}

// Positions returns a copy of all core positions, indexed by core.
func (l *Layout) Positions() []Coordinate {
	out := make([]Coordinate, len(l.positions))
	copy(out, l.positions)

	return out
}

// Rows returns the number of mesh rows.
func (l *Layout) Rows() int {
	return l.grid.Rows()
}

// Cols returns the number of mesh columns.
func (l *Layout) Cols() int {
	return l.grid.Cols()
}

// HasCore checks if a tile is occupied.
func (l *Layout) HasCore(pos Coordinate) bool {
	return l.grid.HasCore(pos)
}

// CoreIndex returns the core on a tile, or NoCore.
func (l *Layout) CoreIndex(pos Coordinate) int {
	return l.grid.CoreIndex(pos)
}

// Relocate moves a core to an empty tile. Moving a core onto the tile it
// already occupies does nothing.
func (l *Layout) Relocate(core int, to Coordinate) {
	from := l.positions[core]
	if from == to {
		return
	}

	if l.grid.HasCore(to) {
		log.Panicf("cannot relocate core %d to %s, occupied by core %d",
			core, to, l.grid.CoreIndex(to))
	}

	l.grid.RemoveCore(from)
	l.grid.AddCore(to, core)
	l.positions[core] = to
}

// Swap exchanges the tiles of two cores.
func (l *Layout) Swap(a, b int) {
	if a == b {
		log.Panicf("cannot swap core %d with itself", a)
	}

	posA, posB := l.positions[a], l.positions[b]

	l.grid.RemoveCore(posA)
	l.grid.RemoveCore(posB)
	l.grid.AddCore(posB, a)
	l.grid.AddCore(posA, b)

	l.positions[a], l.positions[b] = posB, posA
}

// MustBeConsistent panics if the grid and the positions disagree.
func (l *Layout) MustBeConsistent() {
	occupied := 0

	for core, pos := range l.positions {
		if got := l.grid.CoreIndex(pos); got != core {
			log.Panicf("core %d is at %s but the grid holds %d", core, pos, got)
		}
	}

	for id := 0; id < l.grid.NumTiles(); id++ {
		core := l.grid.CoreIndex(l.grid.TileAt(id))
		if core == NoCore {
			continue
		}

		occupied++

		if core >= len(l.positions) || l.positions[core] != l.grid.TileAt(id) {
			log.Panicf("tile %s holds core %d which is not placed there",
				l.grid.TileAt(id), core)
		}
	}

	if occupied != len(l.positions) {
		log.Panicf("%d tiles occupied by %d cores", occupied, len(l.positions))
	}
}

// Clone returns an independent copy.
func (l *Layout) Clone() *Layout {
	return &Layout{
		grid:      l.grid.Clone(),
		positions: l.Positions(),
	}
}

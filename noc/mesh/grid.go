package mesh

import (
	"fmt"
	"log"
)

// Occupancy tells which core, if any, sits on a tile.
type Occupancy interface {
	HasCore(pos Coordinate) bool
	CoreIndex(pos Coordinate) int
}

// A Grid records the core that occupies each tile of a rows x cols mesh.
type Grid struct {
	rows, cols int
	cells      []int
}

// NewGrid creates an empty grid.
func NewGrid(rows, cols int) *Grid {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("invalid mesh size %dx%d", rows, cols))
	}

	g := &Grid{
		rows:  rows,
		cols:  cols,
		cells: make([]int, rows*cols),
	}

	for i := range g.cells {
		g.cells[i] = NoCore
	}

	return g
}

// Rows returns the number of rows.
func (g *Grid) Rows() int {
	return g.rows
}

// Cols returns the number of columns.
func (g *Grid) Cols() int {
	return g.cols
}

// NumTiles returns rows * cols.
func (g *Grid) NumTiles() int {
	return len(g.cells)
}

// Contains checks if the coordinate is inside the mesh.
func (g *Grid) Contains(pos Coordinate) bool {
	return pos.X >= 0 && pos.X < g.cols && pos.Y >= 0 && pos.Y < g.rows
}

// TileID returns the row-major index of the tile.
func (g *Grid) TileID(pos Coordinate) int {
	g.mustContain(pos)
	return pos.Y*g.cols + pos.X
}

// TileAt converts a row-major index back to a coordinate.
func (g *Grid) TileAt(id int) Coordinate {
	return Coordinate{X: id % g.cols, Y: id / g.cols}
}

// AddCore places a core on an empty tile.
func (g *Grid) AddCore(pos Coordinate, core int) {
	id := g.TileID(pos)
	if g.cells[id] != NoCore {
		log.Panicf("tile %s is already occupied by core %d", pos, g.cells[id])
	}

	if core < 0 {
		log.Panicf("invalid core index %d", core)
	}

	g.cells[id] = core
}

// RemoveCore clears an occupied tile.
func (g *Grid) RemoveCore(pos Coordinate) {
	id := g.TileID(pos)
	if g.cells[id] == NoCore {
		log.Panicf("tile %s has no core to remove", pos)
	}

	g.cells[id] = NoCore
}

// HasCore checks if a tile is occupied.
func (g *Grid) HasCore(pos Coordinate) bool {
	return g.cells[g.TileID(pos)] != NoCore
}

// CoreIndex returns the core on the tile, or NoCore.
func (g *Grid) CoreIndex(pos Coordinate) int {
	return g.cells[g.TileID(pos)]
}

// Clone returns an independent copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		rows:  g.rows,
		cols:  g.cols,
		cells: make([]int, len(g.cells)),
	}
	copy(c.cells, g.cells)

	return c
}

func (g *Grid) mustContain(pos Coordinate) {
	if !g.Contains(pos) {
		log.Panicf("tile %s is outside of the %dx%d mesh", pos, g.rows, g.cols)
	}
}

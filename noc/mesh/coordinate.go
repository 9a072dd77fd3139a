// Package mesh describes the 2-D mesh that cores are placed on: tile
// coordinates, XY routes between tiles, and the occupancy of every tile.
package mesh

import "fmt"

// NoCore marks a tile that does not host a core.
const NoCore = -1

// A Coordinate is the position of a tile. X is the column and Y is the row.
type Coordinate struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// String returns the coordinate in the (x,y) form.
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Hops returns the Manhattan distance between two tiles.
func Hops(a, b Coordinate) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// Positions gives read access to where each core is placed.
type Positions interface {
	NumCores() int
	Position(core int) Coordinate
}

package mesh

// Direction is one of the four output ports of a tile router.
type Direction int

// The four compass directions. Top is the row above (smaller Y), left is the
// column to the left (smaller X).
const (
	Top Direction = iota
	Right
	Bottom
	Left
	NumDirections
)

var directionNames = [...]string{"top", "right", "bottom", "left"}

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return "invalid"
	}

	return directionNames[d]
}

// Opposite returns the direction that points back.
func (d Direction) Opposite() Direction {
	return (d + 2) % NumDirections
}

// Step returns the neighbor of c in direction d. The result may be outside of
// the mesh.
func (c Coordinate) Step(d Direction) Coordinate {
	switch d {
	case Top:
		return Coordinate{X: c.X, Y: c.Y - 1}
	case Bottom:
		return Coordinate{X: c.X, Y: c.Y + 1}
	case Left:
		return Coordinate{X: c.X - 1, Y: c.Y}
	case Right:
		return Coordinate{X: c.X + 1, Y: c.Y}
	default:
		panic("invalid direction")
	}
}

// A Hop is one traversal of a directed link, leaving From through Dir.
type Hop struct {
	From Coordinate
	Dir  Direction
}

// To returns the tile that the hop arrives at.
func (h Hop) To() Coordinate {
	return h.From.Step(h.Dir)
}

// NextHop finds the output direction that a flit at cur takes toward dst. All
// the columns are traversed before the rows, so the only turns that can happen
// are from a horizontal link onto a vertical one. The second return value is
// false once cur == dst.
func NextHop(cur, dst Coordinate) (Direction, bool) {
	switch {
	case dst.X < cur.X:
		return Left, true
	case dst.X > cur.X:
		return Right, true
	case dst.Y < cur.Y:
		return Top, true
	case dst.Y > cur.Y:
		return Bottom, true
	default:
		return 0, false
	}
}

// Route decomposes the path from one tile to another into hops. The same pair
// of tiles always produces the same hops.
func Route(from, to Coordinate) []Hop {
	hops := make([]Hop, 0, Hops(from, to))

	cur := from
	for {
		dir, ok := NextHop(cur, to)
		if !ok {
			return hops
		}

		hops = append(hops, Hop{From: cur, Dir: dir})
		cur = cur.Step(dir)
	}
}

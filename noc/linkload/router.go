package linkload

import (
	"log"

	"github.com/sarchlab/meshplace/noc/mesh"
)

// A Turn is the way a flow passes through a tile that is neither its source
// nor its destination. The name is the side it enters from followed by the
// side it leaves through. Only horizontal-to-vertical turns exist because
// columns are always routed before rows.
type Turn int

// All the transit types a router can see.
const (
	TopBottom Turn = iota
	BottomTop
	LeftRight
	RightLeft
	LeftBottom
	LeftTop
	RightBottom
	RightTop
	NumTurns
)

var turnNames = [...]string{
	"top-bottom", "bottom-top", "left-right", "right-left",
	"left-bottom", "left-top", "right-bottom", "right-top",
}

func (t Turn) String() string {
	if t < 0 || t >= NumTurns {
		return "invalid"
	}

	return turnNames[t]
}

// turnOf classifies a transit that arrived travelling in direction `in` and
// leaves in direction `out`.
func turnOf(in, out mesh.Direction) Turn {
	enter := in.Opposite()

	switch {
	case enter == mesh.Top && out == mesh.Bottom:
		return TopBottom
	case enter == mesh.Bottom && out == mesh.Top:
		return BottomTop
	case enter == mesh.Left && out == mesh.Right:
		return LeftRight
	case enter == mesh.Right && out == mesh.Left:
		return RightLeft
	case enter == mesh.Left && out == mesh.Bottom:
		return LeftBottom
	case enter == mesh.Left && out == mesh.Top:
		return LeftTop
	case enter == mesh.Right && out == mesh.Bottom:
		return RightBottom
	case enter == mesh.Right && out == mesh.Top:
		return RightTop
	}

	log.Panicf("turn from %s to %s is not allowed", enter, out)

	return NumTurns
}

// A Router counts the flows that pass through a tile.
type Router struct {
	turns [NumTurns]int
}

// Turn returns how many flows take a given turn at this router.
func (r Router) Turn(t Turn) int {
	return r.turns[t]
}

// Transits returns the number of flows passing through.
func (r Router) Transits() int {
	sum := 0
	for _, c := range r.turns {
		sum += c
	}

	return sum
}

func (r *Router) changeTurn(t Turn, delta int) {
	r.turns[t] += delta
	if r.turns[t] < 0 {
		log.Panicf("negative %s turn count", t)
	}
}

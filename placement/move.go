package placement

import (
	"fmt"

	"github.com/sarchlab/meshplace/noc/mesh"
)

// MoveKind tells how a move changes the placement.
type MoveKind int

// The kinds of moves.
const (
	// Relocate moves one core to an empty tile.
	Relocate MoveKind = iota

	// Swap exchanges the tiles of two cores.
	Swap
)

func (k MoveKind) String() string {
	switch k {
	case Relocate:
		return "relocate"
	case Swap:
		return "swap"
	default:
		return fmt.Sprintf("MoveKind(%d)", int(k))
	}
}

// A Move is a single change to the placement.
//
// For a relocation, Core moves from From to To and Other is mesh.NoCore. For
// a swap, Core leaves From for To and Other leaves To for From.
type Move struct {
	Kind  MoveKind
	Core  int
	Other int
	From  mesh.Coordinate
	To    mesh.Coordinate
}

// Inverse returns the move that restores the placement before m.
func (m Move) Inverse() Move {
	inv := m
	inv.From, inv.To = m.To, m.From

	return inv
}

// IsNoop checks if the move leaves the placement unchanged.
func (m Move) IsNoop() bool {
	return m.Kind == Relocate && m.From == m.To
}

func (m Move) String() string {
	if m.Kind == Swap {
		return fmt.Sprintf("swap core %d at %s with core %d at %s",
			m.Core, m.From, m.Other, m.To)
	}

	return fmt.Sprintf("relocate core %d from %s to %s", m.Core, m.From, m.To)
}

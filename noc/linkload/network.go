// Package linkload estimates how much traffic crosses every link of the mesh
// when each demand is routed along its XY path.
package linkload

import (
	"log"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/meshplace/demand"
	"github.com/sarchlab/meshplace/noc/mesh"
)

// A Link is the accumulated load of one directed edge between two adjacent
// tiles.
type Link struct {
	Connections int     `json:"connections"`
	Bandwidth   float64 `json:"bandwidth"`
}

// LinkLoad identifies a link together with its load.
type LinkLoad struct {
	From mesh.Coordinate `json:"from"`
	Dir  mesh.Direction  `json:"dir"`
	Link
}

// LoadStats summarizes the load over every link that exists in the mesh.
type LoadStats struct {
	Mean        float64
	StdDev      float64
	Max         float64
	ActiveLinks int
	TotalLinks  int
}

// Network keeps the load of every directed link and the transit counts of
// every router.
type Network struct {
	rows, cols    int
	linkBandwidth float64
	metric        Metric

	links   []Link
	routers []Router
}

// NewNetwork creates a network without any connection.
func NewNetwork(
	rows, cols int,
	linkBandwidth float64,
	metric Metric,
) *Network {
	if rows <= 0 || cols <= 0 {
		log.Panicf("invalid mesh size %dx%d", rows, cols)
	}

	return &Network{
		rows:          rows,
		cols:          cols,
		linkBandwidth: linkBandwidth,
		metric:        metric,
		links:         make([]Link, rows*cols*int(mesh.NumDirections)),
		routers:       make([]Router, rows*cols),
	}
}

// Metric returns the utilization metric of the network.
func (n *Network) Metric() Metric {
	return n.metric
}

// LinkBandwidth returns the capacity of a single link.
func (n *Network) LinkBandwidth() float64 {
	return n.linkBandwidth
}

// AddConnection routes a flow of the given bandwidth from one tile to another.
// Bandwidth must be a whole number, which keeps every link load exact.
func (n *Network) AddConnection(from, to mesh.Coordinate, bw float64) {
	n.route(from, to, bw, 1)
}

// RemoveConnection takes away a flow that was added with AddConnection.
func (n *Network) RemoveConnection(from, to mesh.Coordinate, bw float64) {
	n.route(from, to, bw, -1)
}

func (n *Network) route(from, to mesh.Coordinate, bw float64, sign int) {
	if bw != math.Trunc(bw) {
		log.Panicf("bandwidth %g is not a whole number", bw)
	}

	hops := mesh.Route(from, to)

	for i, hop := range hops {
		link := &n.links[n.linkID(hop.From, hop.Dir)]
		link.Connections += sign

		switch {
		case link.Connections < 0:
			log.Panicf("link %s-%s has no connection to remove",
				hop.From, hop.Dir)
		case link.Connections == 0:
			link.Bandwidth = 0
		default:
			link.Bandwidth += float64(sign) * bw
		}

		if i > 0 {
			turn := turnOf(hops[i-1].Dir, hop.Dir)
			n.routers[n.tileID(hop.From)].changeTurn(turn, sign)
		}
	}
}

// AddAllConnections adds every flow that starts or ends at one of the given
// cores. A flow between two of the cores is added once.
func (n *Network) AddAllConnections(
	bandwidth *demand.Matrix,
	positions mesh.Positions,
	cores ...int,
) {
	bandwidth.ForEachIncident(cores, func(i, j int, bw float64) {
		n.AddConnection(positions.Position(i), positions.Position(j), bw)
	})
}

// RemoveAllConnections removes every flow that starts or ends at one of the
// given cores. A flow between two of the cores is removed once.
func (n *Network) RemoveAllConnections(
	bandwidth *demand.Matrix,
	positions mesh.Positions,
	cores ...int,
) {
	bandwidth.ForEachIncident(cores, func(i, j int, bw float64) {
		n.RemoveConnection(positions.Position(i), positions.Position(j), bw)
	})
}

// Update clears the network and routes every flow again.
func (n *Network) Update(bandwidth *demand.Matrix, positions mesh.Positions) {
	n.Reset()

	bandwidth.ForEachNonZero(func(i, j int, bw float64) {
		n.AddConnection(positions.Position(i), positions.Position(j), bw)
	})
}

// Reset removes all connections.
func (n *Network) Reset() {
	for i := range n.links {
		n.links[i] = Link{}
	}

	for i := range n.routers {
		n.routers[i] = Router{}
	}
}

// Utilization folds the load of every link into a single cost with the
// network's metric.
func (n *Network) Utilization() float64 {
	sum := 0.0

	for _, l := range n.links {
		if l.Connections == 0 {
			continue
		}

		sum += n.metric.linkCost(l.Bandwidth, n.linkBandwidth)
	}

	return sum
}

// IsLegal checks that no link carries more than the given capacity.
func (n *Network) IsLegal(capacity float64) bool {
	for _, l := range n.links {
		if l.Bandwidth > capacity {
			return false
		}
	}

	return true
}

// Link returns the load of the link leaving a tile in a direction.
func (n *Network) Link(from mesh.Coordinate, dir mesh.Direction) Link {
	return n.links[n.linkID(from, dir)]
}

// Links lists every link that exists in the mesh, in tile order.
func (n *Network) Links() []LinkLoad {
	var out []LinkLoad

	n.forEachExistingLink(func(from mesh.Coordinate, dir mesh.Direction, l Link) {
		out = append(out, LinkLoad{From: from, Dir: dir, Link: l})
	})

	return out
}

// PeakLink returns the most loaded link. Ties go to the first link in tile
// order.
func (n *Network) PeakLink() LinkLoad {
	peak := LinkLoad{Dir: mesh.NumDirections}

	n.forEachExistingLink(func(from mesh.Coordinate, dir mesh.Direction, l Link) {
		if peak.Dir == mesh.NumDirections || l.Bandwidth > peak.Bandwidth {
			peak = LinkLoad{From: from, Dir: dir, Link: l}
		}
	})

	return peak
}

// Stats summarizes the load distribution over the links of the mesh.
func (n *Network) Stats() LoadStats {
	var loads []float64

	s := LoadStats{}
	n.forEachExistingLink(func(_ mesh.Coordinate, _ mesh.Direction, l Link) {
		loads = append(loads, l.Bandwidth)
		if l.Connections > 0 {
			s.ActiveLinks++
		}

		if l.Bandwidth > s.Max {
			s.Max = l.Bandwidth
		}
	})

	s.TotalLinks = len(loads)
	if len(loads) == 0 {
		return s
	}

	s.Mean = stat.Mean(loads, nil)
	if len(loads) > 1 {
		s.StdDev = stat.PopStdDev(loads, nil)
	}

	return s
}

// Router returns the transit counters of a tile.
func (n *Network) Router(pos mesh.Coordinate) Router {
	return n.routers[n.tileID(pos)]
}

// Pseudonodes lists the tiles that forward traffic without hosting a core.
func (n *Network) Pseudonodes(occupancy mesh.Occupancy) []mesh.Coordinate {
	var out []mesh.Coordinate

	for id, r := range n.routers {
		pos := mesh.Coordinate{X: id % n.cols, Y: id / n.cols}
		if r.Transits() > 0 && !occupancy.HasCore(pos) {
			out = append(out, pos)
		}
	}

	return out
}

// Clone returns an independent copy.
func (n *Network) Clone() *Network {
	c := *n
	c.links = make([]Link, len(n.links))
	copy(c.links, n.links)
	c.routers = make([]Router, len(n.routers))
	copy(c.routers, n.routers)

	return &c
}

func (n *Network) forEachExistingLink(
	fn func(from mesh.Coordinate, dir mesh.Direction, l Link),
) {
	for y := 0; y < n.rows; y++ {
		for x := 0; x < n.cols; x++ {
			from := mesh.Coordinate{X: x, Y: y}
			for dir := mesh.Top; dir < mesh.NumDirections; dir++ {
				if !n.contains(from.Step(dir)) {
					continue
				}

				fn(from, dir, n.links[n.linkID(from, dir)])
			}
		}
	}
}

func (n *Network) contains(pos mesh.Coordinate) bool {
	return pos.X >= 0 && pos.X < n.cols && pos.Y >= 0 && pos.Y < n.rows
}

func (n *Network) tileID(pos mesh.Coordinate) int {
	if !n.contains(pos) {
		log.Panicf("tile %s is outside of the %dx%d mesh", pos, n.rows, n.cols)
	}

	return pos.Y*n.cols + pos.X
}

func (n *Network) linkID(from mesh.Coordinate, dir mesh.Direction) int {
	if !n.contains(from.Step(dir)) {
		log.Panicf("no %s link at %s", dir, from)
	}

	return n.tileID(from)*int(mesh.NumDirections) + int(dir)
}

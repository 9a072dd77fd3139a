package mesh_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/meshplace/noc/mesh"
)

var _ = Describe("Routing", func() {
	It("should count hops", func() {
		Expect(mesh.Hops(mesh.Coordinate{X: 0, Y: 0}, mesh.Coordinate{X: 3, Y: 3})).
			To(Equal(6))
		Expect(mesh.Hops(mesh.Coordinate{X: 3, Y: 3}, mesh.Coordinate{X: 2, Y: 1})).
			To(Equal(3))
		Expect(mesh.Hops(mesh.Coordinate{X: 2, Y: 1}, mesh.Coordinate{X: 2, Y: 1})).
			To(Equal(0))
	})

	It("should route columns before rows", func() {
		hops := mesh.Route(mesh.Coordinate{X: 0, Y: 2}, mesh.Coordinate{X: 2, Y: 0})

		Expect(hops).To(Equal([]mesh.Hop{
			{From: mesh.Coordinate{X: 0, Y: 2}, Dir: mesh.Right},
			{From: mesh.Coordinate{X: 1, Y: 2}, Dir: mesh.Right},
			{From: mesh.Coordinate{X: 2, Y: 2}, Dir: mesh.Top},
			{From: mesh.Coordinate{X: 2, Y: 1}, Dir: mesh.Top},
		}))
		Expect(hops[len(hops)-1].To()).To(Equal(mesh.Coordinate{X: 2, Y: 0}))
	})

	It("should produce an empty route to the same tile", func() {
		Expect(mesh.Route(mesh.Coordinate{X: 1, Y: 1}, mesh.Coordinate{X: 1, Y: 1})).
			To(BeEmpty())
	})

	It("should have as many hops as the Manhattan distance", func() {
		for x1 := 0; x1 < 4; x1++ {
			for y1 := 0; y1 < 3; y1++ {
				for x2 := 0; x2 < 4; x2++ {
					for y2 := 0; y2 < 3; y2++ {
						a := mesh.Coordinate{X: x1, Y: y1}
						b := mesh.Coordinate{X: x2, Y: y2}
						Expect(mesh.Route(a, b)).To(HaveLen(mesh.Hops(a, b)))
					}
				}
			}
		}
	})

	It("should give opposite directions", func() {
		Expect(mesh.Top.Opposite()).To(Equal(mesh.Bottom))
		Expect(mesh.Left.Opposite()).To(Equal(mesh.Right))
		Expect(mesh.Right.String()).To(Equal("right"))
	})
})

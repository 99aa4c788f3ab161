package meshnoc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/meshnoc"
)

var _ = Describe("ComputeRoute", func() {
	It("returns a single Local hop when source equals destination", func() {
		route := meshnoc.ComputeRoute(meshnoc.Coord{X: 1, Y: 1}, meshnoc.Coord{X: 1, Y: 1})
		Expect(route).To(Equal(meshnoc.Route{{X: 1, Y: 1, Port: meshnoc.Local}}))
	})

	It("routes X then Y on a 3x3 mesh from (0,0) to (2,1)", func() {
		route := meshnoc.ComputeRoute(meshnoc.Coord{X: 0, Y: 0}, meshnoc.Coord{X: 2, Y: 1})
		Expect(route).To(Equal(meshnoc.Route{
			{X: 0, Y: 0, Port: meshnoc.East},
			{X: 1, Y: 0, Port: meshnoc.East},
			{X: 2, Y: 0, Port: meshnoc.South},
			{X: 2, Y: 1, Port: meshnoc.Local},
		}))
	})

	It("routes west and north when the destination is behind in both axes", func() {
		route := meshnoc.ComputeRoute(meshnoc.Coord{X: 2, Y: 2}, meshnoc.Coord{X: 0, Y: 0})
		Expect(route).To(Equal(meshnoc.Route{
			{X: 2, Y: 2, Port: meshnoc.West},
			{X: 1, Y: 2, Port: meshnoc.West},
			{X: 0, Y: 2, Port: meshnoc.North},
			{X: 0, Y: 1, Port: meshnoc.North},
			{X: 0, Y: 0, Port: meshnoc.Local},
		}))
	})
})

var _ = Describe("Distance", func() {
	It("computes Manhattan distance", func() {
		Expect(meshnoc.Distance(meshnoc.Coord{X: 0, Y: 0}, meshnoc.Coord{X: 2, Y: 1})).To(Equal(3))
		Expect(meshnoc.Distance(meshnoc.Coord{X: 1, Y: 1}, meshnoc.Coord{X: 1, Y: 1})).To(Equal(0))
	})
})

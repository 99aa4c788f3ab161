package coherentfabric_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/coherentfabric"
	"github.com/sarchlab/vpsim/memnode"
	"github.com/sarchlab/vpsim/meshnoc"
)

type stubPort struct {
	calls int
	last  *memnode.Payload
}

func (s *stubPort) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	s.calls++
	s.last = p
	p.Status = memnode.OK
	return memnode.OK
}

var _ = Describe("Interconnect routing", func() {
	It("routes a downstream address-mapped command to the owning home", func() {
		ic := coherentfabric.New(nil)
		home := &stubPort{}
		Expect(ic.RegisterHomeOutput(coherentfabric.NewMemRange(0x1000, 0x2000), 1, meshnoc.Coord{}, home)).To(Succeed())

		p := &memnode.Payload{Command: memnode.GetS, Address: 0x1500, InitiatorID: 5}
		var delay memnode.Timestamp
		status := ic.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(home.calls).To(Equal(1))
	})

	It("rejects an address with no home or memory-mapped range", func() {
		ic := coherentfabric.New(nil)
		p := &memnode.Payload{Command: memnode.Read, Address: 0x9999}
		var delay memnode.Timestamp
		status := ic.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.AddressError))
	})

	It("rejects a home range that overlaps an already-registered one", func() {
		ic := coherentfabric.New(nil)
		Expect(ic.RegisterHomeOutput(coherentfabric.NewMemRange(0, 0x1000), 1, meshnoc.Coord{}, &stubPort{})).To(Succeed())
		err := ic.RegisterHomeOutput(coherentfabric.NewMemRange(0x800, 0x1800), 2, meshnoc.Coord{}, &stubPort{})
		Expect(err).To(HaveOccurred())
		var cfgErr *coherentfabric.ConfigError
		Expect(err).To(BeAssignableToTypeOf(cfgErr))
	})

	It("routes an id-targeted upstream command to the named cache", func() {
		ic := coherentfabric.New(nil)
		cache := &stubPort{}
		ic.RegisterCacheOutput(7, meshnoc.Coord{}, cache)

		p := &memnode.Payload{Command: memnode.FwdGetS, Address: 0x10, InitiatorID: 1, TargetIDs: memnode.NewNodeSet(7)}
		var delay memnode.Timestamp
		status := ic.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(cache.calls).To(Equal(1))
	})

	It("rejects an upstream command naming an unregistered target", func() {
		ic := coherentfabric.New(nil)
		p := &memnode.Payload{Command: memnode.PutI, Address: 0x10, TargetIDs: memnode.NewNodeSet(99)}
		var delay memnode.Timestamp
		status := ic.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.AddressError))
	})

	It("broadcasts a targetless Invalidate to every registered cache", func() {
		ic := coherentfabric.New(nil)
		c1, c2 := &stubPort{}, &stubPort{}
		ic.RegisterCacheOutput(1, meshnoc.Coord{}, c1)
		ic.RegisterCacheOutput(2, meshnoc.Coord{}, c2)

		p := &memnode.Payload{Command: memnode.Invalidate, Address: 0x10}
		var delay memnode.Timestamp
		ic.Transport(p, &delay, 0)
		Expect(c1.calls).To(Equal(1))
		Expect(c2.calls).To(Equal(1))
	})

	It("panics when a coherent command reaches the upstream path without targets", func() {
		ic := coherentfabric.New(nil)
		p := &memnode.Payload{Command: memnode.InvS, Address: 0x10}
		var delay memnode.Timestamp
		Expect(func() { ic.Transport(p, &delay, 0) }).To(Panic())
	})

	It("always routes FwdGetS/FwdGetM upstream by id despite being classified downstream", func() {
		ic := coherentfabric.New(nil)
		cache := &stubPort{}
		ic.RegisterCacheOutput(3, meshnoc.Coord{}, cache)

		p := &memnode.Payload{Command: memnode.FwdGetM, Address: 0x10, TargetIDs: memnode.NewNodeSet(3)}
		var delay memnode.Timestamp
		status := ic.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(cache.calls).To(Equal(1))
	})

	It("stripes interleaved addresses round-robin across registered controllers", func() {
		ic := coherentfabric.New(nil)
		ctrl0, ctrl1 := &stubPort{}, &stubPort{}
		ic.SetInterleave(0, 0x10000, 64, []coherentfabric.Port{ctrl0, ctrl1})

		var delay memnode.Timestamp
		ic.Transport(&memnode.Payload{Command: memnode.Read, Address: 0}, &delay, 0)
		ic.Transport(&memnode.Payload{Command: memnode.Read, Address: 64}, &delay, 0)
		ic.Transport(&memnode.Payload{Command: memnode.Read, Address: 128}, &delay, 0)

		Expect(ctrl0.calls).To(Equal(2))
		Expect(ctrl1.calls).To(Equal(1))
	})

	It("adds mesh latency to an address-routed request when a mesh is wired", func() {
		mesh := meshnoc.NewMesh(meshnoc.Config{IsMesh: true, MeshX: 2, MeshY: 2, RouterLatency: 1, LinkLatency: 1})
		ic := coherentfabric.New(mesh)
		home := &stubPort{}
		ic.RegisterHomeOutput(coherentfabric.NewMemRange(0, 0x1000), 1, meshnoc.Coord{X: 1, Y: 1}, home)
		ic.RegisterCacheOutput(2, meshnoc.Coord{X: 0, Y: 0}, &stubPort{})

		p := &memnode.Payload{Command: memnode.GetS, Address: 0x10, InitiatorID: 2}
		var delay memnode.Timestamp
		ic.Transport(p, &delay, 0)
		Expect(delay).To(BeNumerically(">", 0))
	})
})

package cachectl_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

func noncoherentConfig() cachectl.Config {
	return cachectl.Config{
		LineSize:          64,
		TotalSize:         128,
		Associativity:     2,
		ReplacementPolicy: memline.LRU,
		WritePolicy:       cachectl.WriteBack,
		AllocationPolicy:  cachectl.WriteAllocate,
		IsCoherent:        false,
		DataSupport:       true,
	}
}

var _ = Describe("NonCoherent engine", func() {
	var backing *recordingPort
	var ctrl *cachectl.Controller

	BeforeEach(func() {
		backing = newRecordingPort()
		ctrl = cachectl.New(noncoherentConfig(), backing, nil)
	})

	It("fetches from the backing store on a cold read miss, then hits", func() {
		var delay memnode.Timestamp
		p := &memnode.Payload{Command: memnode.Read, Address: 0x1000, Length: 8, Data: make([]byte, 8)}
		status := ctrl.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(backing.countOf(memnode.Read)).To(Equal(1))
		Expect(ctrl.Stats().Misses).To(Equal(uint64(1)))

		p2 := &memnode.Payload{Command: memnode.Read, Address: 0x1000, Length: 8, Data: make([]byte, 8)}
		ctrl.Transport(p2, &delay, 0)
		Expect(ctrl.Stats().Hits).To(Equal(uint64(1)))
		Expect(backing.countOf(memnode.Read)).To(Equal(1), "a hit must not re-fetch")
	})

	It("turns a write hit into a Modified line without touching the backing store", func() {
		var delay memnode.Timestamp
		ctrl.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x2000, Length: 8, Data: []byte("12345678")}, &delay, 0)
		calls := len(backing.calls)

		ctrl.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x2000, Length: 8, Data: []byte("abcdefgh")}, &delay, 0)
		Expect(len(backing.calls)).To(Equal(calls), "a write hit under write-back must not forward downstream")
	})

	It("writes back a dirty victim when a conflicting miss evicts it", func() {
		small := noncoherentConfig()
		small.Associativity = 1
		small.TotalSize = 64
		direct := cachectl.New(small, backing, nil)

		var delay memnode.Timestamp
		direct.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x0, Length: 8, Data: []byte("aaaaaaaa")}, &delay, 0)
		Expect(backing.countOf(memnode.Write)).To(Equal(0))

		// A different tag mapping to the same (only) set forces eviction of
		// the dirty line installed above.
		direct.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x10000, Length: 8, Data: []byte("bbbbbbbb")}, &delay, 0)
		Expect(backing.countOf(memnode.Write)).To(Equal(1))
		Expect(direct.Stats().WriteBacks).To(Equal(uint64(1)))
	})

	It("dispatches both Invalidate and BackInvalidate to the same invalidation path", func() {
		var delay memnode.Timestamp
		ctrl.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x3000, Length: 8, Data: []byte("aaaaaaaa")}, &delay, 0)

		status := ctrl.Transport(&memnode.Payload{Command: memnode.BackInvalidate, Address: 0x3000}, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(ctrl.Stats().RealInvalidations).To(Equal(uint64(1)))
		Expect(backing.countOf(memnode.Write)).To(Equal(1), "the dirty line must be written back on invalidation")
	})

	It("never allocates a local line for a Read under InclusionOfHigher: Exclusive", func() {
		cfg := noncoherentConfig()
		cfg.InclusionOfHigher = cachectl.Exclusive
		excl := cachectl.New(cfg, backing, nil)

		var delay memnode.Timestamp
		req := func() *memnode.Payload {
			return &memnode.Payload{Command: memnode.Read, Address: 0x4000, Length: 8, Data: make([]byte, 8), RequesterID: 1}
		}
		excl.Transport(req(), &delay, 0)
		excl.Transport(req(), &delay, 0)

		Expect(backing.countOf(memnode.Read)).To(Equal(2), "a bypassed line is re-fetched on every access, never cached")
		Expect(excl.Stats().Misses).To(Equal(uint64(2)))
		Expect(excl.Stats().Hits).To(Equal(uint64(0)))
	})
})

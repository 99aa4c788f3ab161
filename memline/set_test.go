package memline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

var _ = Describe("CacheSet", func() {
	It("misses on an empty set and installs via SetNewLine", func() {
		s := memline.NewCacheSet(2, 64, memline.LRU, true)

		hit, line := s.Access(0xAAAA)
		Expect(hit).To(BeFalse())

		s.SetNewLine(line, 0x1000, 0xAAAA, memline.Shared)
		Expect(line.IsValid()).To(BeTrue())
		Expect(line.Tag).To(Equal(uint64(0xAAAA)))

		hit, hitLine := s.Access(0xAAAA)
		Expect(hit).To(BeTrue())
		Expect(hitLine.BaseAddress).To(Equal(memnode.Address(0x1000)))
	})

	It("evicts the LRU slot under the LRU policy", func() {
		s := memline.NewCacheSet(2, 64, memline.LRU, false)

		_, l0 := s.Access(1)
		s.SetNewLine(l0, 0, 1, memline.Shared)
		_, l1 := s.Access(2)
		s.SetNewLine(l1, 0x100, 2, memline.Shared)

		// touch tag 1 again, making tag 2 the LRU victim
		hit, hot := s.Access(1)
		Expect(hit).To(BeTrue())
		Expect(hot.Tag).To(Equal(uint64(1)))

		_, victim := s.Access(3)
		Expect(victim.Tag).To(Equal(uint64(2)))
	})

	It("evicts in insertion order under the FIFO policy", func() {
		s := memline.NewCacheSet(2, 64, memline.FIFO, false)

		_, l0 := s.Access(1)
		s.SetNewLine(l0, 0, 1, memline.Shared)
		_, l1 := s.Access(2)
		s.SetNewLine(l1, 0x100, 2, memline.Shared)

		// re-accessing tag 1 does not change FIFO order
		s.Access(1)

		_, victim := s.Access(3)
		Expect(victim.Tag).To(Equal(uint64(1)))
	})

	It("prefers untouched slots during MRU warm-up, then evicts the MRU slot", func() {
		s := memline.NewCacheSet(3, 64, memline.MRU, false)

		_, l0 := s.Access(1)
		s.SetNewLine(l0, 0, 1, memline.Shared)

		// warm-up: associativity-1 slots remain untouched, so the next two
		// misses land on fresh slots rather than evicting tag 1.
		_, victim := s.Access(2)
		Expect(victim.Tag).To(Equal(uint64(0)))
		Expect(victim.IsValid()).To(BeFalse())
		s.SetNewLine(victim, 0x100, 2, memline.Shared)

		_, victim = s.Access(3)
		Expect(victim.IsValid()).To(BeFalse())
		s.SetNewLine(victim, 0x200, 3, memline.Shared)

		// every slot has now been touched: the victim is the most recently
		// used line, tag 3.
		_, victim = s.Access(4)
		Expect(victim.Tag).To(Equal(uint64(3)))
	})

	It("invalidates a slot without disturbing replacement order", func() {
		s := memline.NewCacheSet(1, 64, memline.LRU, false)
		_, line := s.Access(1)
		s.SetNewLine(line, 0, 1, memline.Modified)

		s.Invalidate(line)
		Expect(line.IsValid()).To(BeFalse())
		Expect(line.Tag).To(Equal(uint64(0)))
	})
})

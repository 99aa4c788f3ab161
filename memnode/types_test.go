package memnode_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/memnode"
)

var _ = Describe("Command.IsDownstream", func() {
	DescribeTable("classifies every command",
		func(cmd memnode.Command, downstream bool) {
			Expect(cmd.IsDownstream()).To(Equal(downstream))
		},
		Entry("Read", memnode.Read, true),
		Entry("Write", memnode.Write, true),
		Entry("GetS", memnode.GetS, true),
		Entry("GetM", memnode.GetM, true),
		Entry("PutS", memnode.PutS, true),
		Entry("PutM", memnode.PutM, true),
		Entry("Evict", memnode.Evict, true),
		Entry("FwdGetS", memnode.FwdGetS, true),
		Entry("FwdGetM", memnode.FwdGetM, true),
		Entry("PutI", memnode.PutI, false),
		Entry("InvS", memnode.InvS, false),
		Entry("InvM", memnode.InvM, false),
		Entry("ReadBack", memnode.ReadBack, false),
		Entry("Invalidate", memnode.Invalidate, false),
		Entry("BackInvalidate", memnode.BackInvalidate, false),
	)
})

var _ = Describe("NodeSet", func() {
	It("adds, removes and tests membership", func() {
		s := memnode.NewNodeSet(1, 2, 3)
		Expect(s.Contains(2)).To(BeTrue())
		s.Remove(2)
		Expect(s.Contains(2)).To(BeFalse())
		s.Add(4)
		Expect(s.Contains(4)).To(BeTrue())
		Expect(s.Slice()).To(ConsistOf(memnode.NodeId(1), memnode.NodeId(3), memnode.NodeId(4)))
	})

	It("clones independently of the original", func() {
		s := memnode.NewNodeSet(1)
		c := s.Clone()
		c.Add(2)
		Expect(s.Contains(2)).To(BeFalse())
		Expect(c.Contains(2)).To(BeTrue())
	})
})

var _ = Describe("Payload.HasTargets", func() {
	It("is false for a nil or empty target set", func() {
		p := &memnode.Payload{}
		Expect(p.HasTargets()).To(BeFalse())
		p.TargetIDs = memnode.NewNodeSet()
		Expect(p.HasTargets()).To(BeFalse())
	})

	It("is true once a target is named", func() {
		p := &memnode.Payload{TargetIDs: memnode.NewNodeSet(7)}
		Expect(p.HasTargets()).To(BeTrue())
	})
})

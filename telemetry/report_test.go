package telemetry_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/coherentfabric"
	"github.com/sarchlab/vpsim/memnode"
	"github.com/sarchlab/vpsim/telemetry"
)

var _ = Describe("WriteCacheReport", func() {
	It("prints every counter in the documented vocabulary", func() {
		s := cachectl.Statistics{
			Reads: 10, Writes: 4, Hits: 9, Misses: 5,
			WriteBacks: 2, Evictions: 3, EvictBacks: 1,
			RealInvalidations: 6, TotalInvalidations: 7, BackInvalidations: 1,
			CountGetS: 5, CountGetM: 4, CountPutS: 1, CountPutM: 2, CountPutI: 3,
			CountFwdGetS: 1, CountFwdGetM: 1,
		}
		var buf bytes.Buffer
		telemetry.WriteCacheReport(&buf, "l1", s)
		out := buf.String()

		Expect(out).To(ContainSubstring("cache l1:"))
		Expect(out).To(ContainSubstring("reads=10 writes=4 hits=9 misses=5"))
		Expect(out).To(ContainSubstring("write_backs=2 evictions=3 evict_backs=1"))
		Expect(out).To(ContainSubstring("real_invalidations=6 total_invalidations=7 back_invalidations=1"))
		Expect(out).To(ContainSubstring("GetS=5 GetM=4 PutS=1 PutM=2 PutI=3 FwdGetS=1 FwdGetM=1"))
	})
})

var _ = Describe("WriteInterconnectReport", func() {
	It("prints totals plus the per-port and per-node breakdown", func() {
		s := coherentfabric.Stats{
			TotalDistance: 12, TotalLatency: 340, Packets: 6,
			TotalCoherentCountOut: 9,
			MMappedReadCountOut:   map[int]uint64{0: 3},
			MMappedWriteCountOut:  map[int]uint64{0: 1, 1: 2},
			HomeReadCountOut:      map[memnode.NodeId]uint64{7: 2},
			HomeWriteCountOut:     map[memnode.NodeId]uint64{7: 1},
			HomeCoherentCountOut:  map[memnode.NodeId]uint64{7: 3},
			CacheInvalCountOut:    map[memnode.NodeId]uint64{3: 4},
		}
		var buf bytes.Buffer
		telemetry.WriteInterconnectReport(&buf, s)
		out := buf.String()

		Expect(out).To(ContainSubstring("interconnect:"))
		Expect(out).To(ContainSubstring("total_distance=12 total_latency_ns=340 packets=6"))
		Expect(out).To(ContainSubstring("total_coherent=9"))
		Expect(out).To(ContainSubstring("mmapped_port[0]: reads=3 writes=1"))
		Expect(out).To(ContainSubstring("mmapped_port[1]: reads=0 writes=2"))
		Expect(out).To(ContainSubstring("home[7]: coherent=3 reads=2 writes=1"))
		Expect(out).To(ContainSubstring("cache[3]: invalidations=4"))
	})

	It("handles an empty stats set without error", func() {
		var buf bytes.Buffer
		Expect(func() { telemetry.WriteInterconnectReport(&buf, coherentfabric.Stats{}) }).NotTo(Panic())
		Expect(buf.String()).To(ContainSubstring("interconnect:"))
	})
})

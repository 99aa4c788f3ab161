package telemetry

import (
	"fmt"
	"io"
	"sort"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/coherentfabric"
	"github.com/sarchlab/vpsim/memnode"
)

// WriteCacheReport prints one cache's counters in the per-counter vocabulary
// of §6: misses, hits, reads, writes, write_backs, the three invalidation
// counters, evictions, evict_backs, and one line per coherence command kind.
// Values are written as strings, nanoseconds and bytes both unitless
// integers in this representation (§6: "as strings in the reporting
// stream").
func WriteCacheReport(w io.Writer, name string, s cachectl.Statistics) {
	fmt.Fprintf(w, "cache %s:\n", name)
	fmt.Fprintf(w, "  reads=%d writes=%d hits=%d misses=%d\n", s.Reads, s.Writes, s.Hits, s.Misses)
	fmt.Fprintf(w, "  write_backs=%d evictions=%d evict_backs=%d\n", s.WriteBacks, s.Evictions, s.EvictBacks)
	fmt.Fprintf(w, "  real_invalidations=%d total_invalidations=%d back_invalidations=%d\n",
		s.RealInvalidations, s.TotalInvalidations, s.BackInvalidations)
	fmt.Fprintf(w, "  GetS=%d GetM=%d PutS=%d PutM=%d PutI=%d FwdGetS=%d FwdGetM=%d\n",
		s.CountGetS, s.CountGetM, s.CountPutS, s.CountPutM, s.CountPutI, s.CountFwdGetS, s.CountFwdGetM)
}

// WriteInterconnectReport prints the fabric's totals plus the per-port/
// per-initiator breakdown supplemented from original_source/ (SPEC_FULL.md
// §4).
func WriteInterconnectReport(w io.Writer, s coherentfabric.Stats) {
	fmt.Fprintf(w, "interconnect:\n")
	fmt.Fprintf(w, "  total_distance=%d total_latency_ns=%d packets=%d\n", s.TotalDistance, s.TotalLatency, s.Packets)
	fmt.Fprintf(w, "  total_coherent=%d\n", s.TotalCoherentCountOut)

	portIdxs := make([]int, 0, len(s.MMappedReadCountOut)+len(s.MMappedWriteCountOut))
	seen := map[int]bool{}
	for idx := range s.MMappedReadCountOut {
		if !seen[idx] {
			seen[idx] = true
			portIdxs = append(portIdxs, idx)
		}
	}
	for idx := range s.MMappedWriteCountOut {
		if !seen[idx] {
			seen[idx] = true
			portIdxs = append(portIdxs, idx)
		}
	}
	sort.Ints(portIdxs)
	for _, idx := range portIdxs {
		fmt.Fprintf(w, "  mmapped_port[%d]: reads=%d writes=%d\n", idx, s.MMappedReadCountOut[idx], s.MMappedWriteCountOut[idx])
	}

	ids := make([]uint32, 0, len(s.HomeCoherentCountOut))
	for id := range s.HomeCoherentCountOut {
		ids = append(ids, uint32(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		nid := memnode.NodeId(id)
		fmt.Fprintf(w, "  home[%d]: coherent=%d reads=%d writes=%d\n", id,
			s.HomeCoherentCountOut[nid], s.HomeReadCountOut[nid], s.HomeWriteCountOut[nid])
	}

	invIDs := make([]uint32, 0, len(s.CacheInvalCountOut))
	for id := range s.CacheInvalCountOut {
		invIDs = append(invIDs, uint32(id))
	}
	sort.Slice(invIDs, func(i, j int) bool { return invIDs[i] < invIDs[j] })
	for _, id := range invIDs {
		fmt.Fprintf(w, "  cache[%d]: invalidations=%d\n", id, s.CacheInvalCountOut[memnode.NodeId(id)])
	}
}

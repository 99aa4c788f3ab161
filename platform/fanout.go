package platform

import (
	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/memnode"
)

// fanoutPort dispatches a payload to one or more directly-wired children by
// NodeId. It stands in for the coherent interconnect's id-mapped routing
// (§4.3 rule 2) on the non-coherent side, where a cache can still have
// several direct parents (an L2 shared by several non-coherent L1s) even
// though there is no fabric to route through: an empty target set
// broadcasts, matching the non-coherent "broadcast is legal" rule the
// coherent fabric enforces only for itself.
type fanoutPort struct {
	children map[memnode.NodeId]cachectl.Port
}

func newFanoutPort() *fanoutPort {
	return &fanoutPort{children: make(map[memnode.NodeId]cachectl.Port)}
}

func (f *fanoutPort) add(id memnode.NodeId, p cachectl.Port) { f.children[id] = p }

func (f *fanoutPort) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	if !p.HasTargets() {
		var last memnode.Status = memnode.OK
		for _, child := range f.children {
			last = child.Transport(p, delay, timestamp)
		}
		return last
	}
	var last memnode.Status = memnode.OK
	for _, id := range p.TargetIDs.Slice() {
		child, ok := f.children[id]
		if !ok {
			p.Status = memnode.AddressError
			return memnode.AddressError
		}
		last = child.Transport(p, delay, timestamp)
	}
	return last
}

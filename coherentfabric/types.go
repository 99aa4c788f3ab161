// Package coherentfabric implements CoherentInterconnect (§4.3): the
// routing fabric between caches, home nodes, and memory-mapped backing
// stores, optionally timed by a meshnoc.Mesh.
package coherentfabric

import "github.com/sarchlab/vpsim/memnode"

// Port is the transport boundary every routable endpoint implements —
// structurally identical to cachectl.Port, so a *cachectl.Controller
// satisfies it without this package importing cachectl.
type Port interface {
	Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status
}

// PortFunc adapts a function to Port.
type PortFunc func(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status

// Transport implements Port.
func (f PortFunc) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	return f(p, delay, timestamp)
}

// memRange is a contiguous, half-open byte address range [Base, Last).
type memRange struct {
	Base, Last memnode.Address
}

func (r memRange) contains(addr memnode.Address) bool { return addr >= r.Base && addr < r.Last }

func (r memRange) overlaps(o memRange) bool { return r.Base < o.Last && o.Base < r.Last }

// homePort is a home-output port: an address range plus the home's own id
// (§4.3: "for each home-output port, a contiguous range plus the home's id").
type homePort struct {
	memRange
	id   memnode.NodeId
	port Port
}

// memMappedPort is a plain memory-mapped-out port (leaf backing store):
// an address range with no associated coherence identity.
type memMappedPort struct {
	memRange
	port Port
}

// interleaveGroup stripes one configured RAM range across several
// registered memory controllers (§4.3 Interleaving).
type interleaveGroup struct {
	memRange
	length      uint64
	controllers []Port
}

func (g interleaveGroup) controllerFor(addr memnode.Address) Port {
	if g.length == 0 || len(g.controllers) == 0 {
		return nil
	}
	idx := int((uint64(addr-g.Base) / g.length)) % len(g.controllers)
	return g.controllers[idx]
}

// Stats is the per-interconnect counter set of §6 plus the per-port/
// per-initiator breakdown supplemented from original_source/'s
// CoherenceInterconnect.hpp (SPEC_FULL.md §4).
type Stats struct {
	TotalDistance int64
	TotalLatency  int64
	Packets       int64

	MMappedReadCountOut  map[int]uint64
	MMappedWriteCountOut map[int]uint64

	CacheInvalCountOut    map[memnode.NodeId]uint64
	HomeReadCountOut      map[memnode.NodeId]uint64
	HomeWriteCountOut     map[memnode.NodeId]uint64
	HomeCoherentCountOut  map[memnode.NodeId]uint64
	TotalCoherentCountOut uint64
}

func newStats() Stats {
	return Stats{
		MMappedReadCountOut:   make(map[int]uint64),
		MMappedWriteCountOut:  make(map[int]uint64),
		CacheInvalCountOut:    make(map[memnode.NodeId]uint64),
		HomeReadCountOut:      make(map[memnode.NodeId]uint64),
		HomeWriteCountOut:     make(map[memnode.NodeId]uint64),
		HomeCoherentCountOut:  make(map[memnode.NodeId]uint64),
	}
}

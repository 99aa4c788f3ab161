package platform

import (
	"github.com/sarchlab/vpsim/memnode"
)

// backingStore is a leaf memory-mapped port backed by a flat byte slab with
// a fixed per-access latency. It plays the role akita/v4/mem/idealmemcontroller
// plays in a ticked simulation — "ideal" fixed-latency memory behind a
// range — but speaks the core's own synchronous Port/Transport shape rather
// than idealmemcontroller's buffered-port/event-driven one, since every
// transport call here must run to completion without yielding to an engine
// (see DESIGN.md for why idealmemcontroller itself was not wired directly).
type backingStore struct {
	base    memnode.Address
	size    uint64
	latency int64
	mem     []byte

	reads, writes uint64
}

func newBackingStore(base memnode.Address, size uint64, latencyNs int64) *backingStore {
	return &backingStore{base: base, size: size, latency: latencyNs, mem: make([]byte, size)}
}

// Transport implements coherentfabric.Port / cachectl.Port.
func (b *backingStore) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	*delay += memnode.Timestamp(b.latency)

	off := uint64(p.Address - b.base)
	length := p.Length
	if length == 0 {
		length = 1
	}
	if off+length > b.size {
		p.Status = memnode.AddressError
		return memnode.AddressError
	}

	switch p.Command {
	case memnode.Read, memnode.GetS, memnode.GetM:
		b.reads++
		p.Data = append(p.Data[:0], b.mem[off:off+length]...)
	case memnode.Write, memnode.PutS, memnode.PutM, memnode.Evict:
		b.writes++
		if len(p.Data) > 0 {
			copy(b.mem[off:off+length], p.Data)
		}
	default:
		p.Status = memnode.CommandError
		return memnode.CommandError
	}

	p.Status = memnode.OK
	return memnode.OK
}

// Stats reports the backing store's own read/write counters, supplementing
// the per-port breakdown the coherent interconnect already tracks
// (SPEC_FULL.md §4).
func (b *backingStore) Stats() (reads, writes uint64) { return b.reads, b.writes }

package coherentfabric

import (
	"fmt"

	"github.com/sarchlab/vpsim/memnode"
	"github.com/sarchlab/vpsim/meshnoc"
)

// ConfigError reports a user configuration mistake detected at elaboration
// (§7 kind 1): overlapping address ranges, an unknown port mapping, or a
// coherence command missing required target_ids.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "coherentfabric: " + e.Reason }

// Interconnect is the CoherentInterconnect of §4.3. Ports are registered
// once at elaboration; Transport is the single runtime operation callers
// drive requests through.
type Interconnect struct {
	cachePorts map[memnode.NodeId]Port
	homes      []homePort
	memMapped  []memMappedPort
	interleave *interleaveGroup

	coords map[memnode.NodeId]meshnoc.Coord
	mesh   *meshnoc.Mesh

	stats Stats
}

// New builds an empty Interconnect. mesh may be nil, in which case routing
// still works but no NoC latency is added (§4.4: "active only when
// is_mesh = true").
func New(mesh *meshnoc.Mesh) *Interconnect {
	return &Interconnect{
		cachePorts: make(map[memnode.NodeId]Port),
		coords:     make(map[memnode.NodeId]meshnoc.Coord),
		mesh:       mesh,
		stats:      newStats(),
	}
}

// Stats returns a snapshot of the interconnect's statistics, including the
// mesh's distance/latency/packet totals if a mesh is wired.
func (ic *Interconnect) Stats() Stats {
	s := ic.stats
	if ic.mesh != nil {
		ms := ic.mesh.Stats()
		s.TotalDistance = ms.TotalDistance
		s.TotalLatency = ms.TotalLatency
		s.Packets = ms.Packets
	}
	return s
}

// RegisterCacheOutput wires a cache-output port, reachable by id-mapped
// delivery (§4.3 rule 2/3).
func (ic *Interconnect) RegisterCacheOutput(id memnode.NodeId, coord meshnoc.Coord, port Port) {
	ic.cachePorts[id] = port
	ic.coords[id] = coord
}

// RegisterHomeOutput wires a home-output port: an address range, the home's
// own id, and a coordinate for mesh timing.
func (ic *Interconnect) RegisterHomeOutput(rng memRange, id memnode.NodeId, coord meshnoc.Coord, port Port) error {
	for _, h := range ic.homes {
		if h.overlaps(rng) {
			return &ConfigError{Reason: fmt.Sprintf("home range %v overlaps already-registered range %v", rng, h.memRange)}
		}
	}
	for _, m := range ic.memMapped {
		if m.overlaps(rng) {
			return &ConfigError{Reason: fmt.Sprintf("home range %v overlaps memory-mapped range %v", rng, m.memRange)}
		}
	}
	ic.homes = append(ic.homes, homePort{memRange: rng, id: id, port: port})
	ic.coords[id] = coord
	return nil
}

// RegisterMemMappedOutput wires a plain memory-mapped-out leaf (no
// coherence identity).
func (ic *Interconnect) RegisterMemMappedOutput(rng memRange, port Port) error {
	for _, h := range ic.homes {
		if h.overlaps(rng) {
			return &ConfigError{Reason: fmt.Sprintf("memory-mapped range %v overlaps home range %v", rng, h.memRange)}
		}
	}
	for _, m := range ic.memMapped {
		if m.overlaps(rng) {
			return &ConfigError{Reason: fmt.Sprintf("memory-mapped range %v overlaps already-registered range %v", rng, m.memRange)}
		}
	}
	ic.memMapped = append(ic.memMapped, memMappedPort{memRange: rng, port: port})
	return nil
}

// SetInterleave configures RAM striping across controllers per §4.3
// Interleaving: addresses in [base, last) are distributed round-robin in
// length-sized chunks across the given controllers.
func (ic *Interconnect) SetInterleave(base, last memnode.Address, length uint64, controllers []Port) {
	ic.interleave = &interleaveGroup{memRange: memRange{Base: base, Last: last}, length: length, controllers: controllers}
}

// NewMemRange is a convenience constructor for the half-open address range
// callers pass to RegisterHomeOutput/RegisterMemMappedOutput/SetInterleave.
func NewMemRange(base, last memnode.Address) memRange { return memRange{Base: base, Last: last} }

// Transport implements §4.3's routing rules.
func (ic *Interconnect) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	if p.Command.IsDownstream() && !p.HasTargets() {
		return ic.routeDownstream(p, delay, timestamp)
	}
	return ic.routeUpstream(p, delay, timestamp)
}

// routeDownstream handles commands targeting a home or memory-mapped range
// by address (§4.3 rule 2/3): Read/Write/GetS/GetM/PutS/PutM/Evict.
func (ic *Interconnect) routeDownstream(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	for _, h := range ic.homes {
		if h.contains(p.Address) {
			ic.stats.HomeCoherentCountOut[h.id]++
			ic.stats.TotalCoherentCountOut++
			ic.route(p, delay, timestamp, p.InitiatorID, []memnode.NodeId{h.id}, h.port)
			return h.port.Transport(p, delay, timestamp)
		}
	}
	if ic.interleave != nil && ic.interleave.contains(p.Address) {
		ctrl := ic.interleave.controllerFor(p.Address)
		if ctrl == nil {
			p.Status = memnode.AddressError
			return memnode.AddressError
		}
		ic.countMMapped(p, -1)
		return ctrl.Transport(p, delay, timestamp)
	}
	for i, m := range ic.memMapped {
		if m.contains(p.Address) {
			ic.countMMapped(p, i)
			return m.port.Transport(p, delay, timestamp)
		}
	}
	p.Status = memnode.AddressError
	return memnode.AddressError
}

func (ic *Interconnect) countMMapped(p *memnode.Payload, portIdx int) {
	if p.Command == memnode.Read {
		ic.stats.MMappedReadCountOut[portIdx]++
	} else {
		ic.stats.MMappedWriteCountOut[portIdx]++
	}
}

// routeUpstream handles commands targeting caches by id (§4.3 rule 2/4):
// FwdGetS/FwdGetM/PutI/InvS/InvM/ReadBack/Invalidate, and the downstream
// commands that explicitly name targets (cache-bound GetS/GetM replies are
// never targeted; this path only ever serves the upstream vocabulary).
func (ic *Interconnect) routeUpstream(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	if !p.HasTargets() {
		// Broadcast semantics (§4.3 rule 4): only legal in a non-coherent
		// fabric. A coherent command reaching here without targets is a
		// protocol violation.
		if p.Command == memnode.Invalidate || p.Command == memnode.BackInvalidate {
			return ic.broadcast(p, delay, timestamp)
		}
		panic(&ConfigError{Reason: fmt.Sprintf("coherent command %s routed upstream without target_ids", p.Command)})
	}

	targets := p.TargetIDs.Slice()
	var last memnode.Status = memnode.OK
	for _, id := range targets {
		port, ok := ic.cachePorts[id]
		if !ok {
			p.Status = memnode.AddressError
			return memnode.AddressError
		}
		if p.Command == memnode.PutI || p.Command == memnode.InvS || p.Command == memnode.InvM {
			ic.stats.CacheInvalCountOut[id]++
		}
		ic.route(p, delay, timestamp, ic.homeOrSourceCoordID(p), targets, port)
		last = port.Transport(p, delay, timestamp)
	}
	return last
}

func (ic *Interconnect) broadcast(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	var last memnode.Status = memnode.OK
	ids := make([]memnode.NodeId, 0, len(ic.cachePorts))
	for id := range ic.cachePorts {
		ids = append(ids, id)
	}
	ic.route(p, delay, timestamp, ic.homeOrSourceCoordID(p), ids, nil)
	for _, port := range ic.cachePorts {
		last = port.Transport(p, delay, timestamp)
	}
	return last
}

// homeOrSourceCoordID picks the coordinate key representing where an
// upstream message originates: the payload's InitiatorID, whether or not
// ToHome is set (a home or L2 puts its own id in InitiatorID on the
// messages it issues).
func (ic *Interconnect) homeOrSourceCoordID(p *memnode.Payload) memnode.NodeId {
	if p.ToHome {
		return p.InitiatorID
	}
	return p.InitiatorID
}

// route asks the mesh (if configured) to add NoC latency for this hop. It
// is best-effort: a message whose source or any target lacks a registered
// coordinate skips mesh timing rather than failing the transport.
func (ic *Interconnect) route(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp, srcID memnode.NodeId, targetIDs []memnode.NodeId, _ Port) {
	if ic.mesh == nil {
		return
	}
	src, ok := ic.coords[srcID]
	if !ok {
		return
	}
	dsts := make([]meshnoc.Coord, 0, len(targetIDs))
	for _, id := range targetIDs {
		if c, ok := ic.coords[id]; ok {
			dsts = append(dsts, c)
		}
	}
	if len(dsts) == 0 {
		return
	}
	ic.mesh.Forward(p, delay, timestamp, src, dsts)
}

package meshnoc

import "github.com/sarchlab/vpsim/memnode"

// Stats accumulates the per-interconnect totals spec §6 asks the mesh to
// contribute: total_distance, total_latency, packets.
type Stats struct {
	TotalDistance int64
	TotalLatency  int64
	Packets       int64
}

// Mesh is the MeshNoC timing model of §4.4, active only when cfg.IsMesh.
// It is stateless between calls in sub-mode A (no contention) and keeps a
// windowed contention state in sub-mode B.
type Mesh struct {
	cfg   Config
	stats Stats

	window *window // nil until the first packet of a run arrives
	nextID int64
}

// NewMesh builds a Mesh from the given configuration.
func NewMesh(cfg Config) *Mesh {
	return &Mesh{cfg: cfg}
}

// Config returns the mesh's configuration.
func (m *Mesh) Config() Config { return m.cfg }

// Stats returns a snapshot of the mesh's accumulated totals.
func (m *Mesh) Stats() Stats { return m.stats }

// Forward computes the latency for routing p from src to dsts (more than
// one destination only for a broadcast) and adds it to *delay. It is a
// no-op, returning OK immediately, when the mesh is not enabled.
func (m *Mesh) Forward(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp, src Coord, dsts []Coord) memnode.Status {
	if !m.cfg.IsMesh {
		return memnode.OK
	}
	if !m.cfg.InRange(src) {
		return memnode.AddressError
	}
	for _, d := range dsts {
		if !m.cfg.InRange(d) {
			return memnode.AddressError
		}
	}

	if m.cfg.WithContention {
		return m.forwardWithContention(p, delay, timestamp, src, dsts)
	}
	return m.forwardNoContention(p, delay, timestamp, src, dsts)
}

// forwardNoContention implements §4.4 sub-mode A.
func (m *Mesh) forwardNoContention(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp, src Coord, dsts []Coord) memnode.Status {
	dist := maxDistance(src, dsts)
	latency := int64(dist)*m.cfg.RouterLatency + int64(dist+1)*m.cfg.LinkLatency

	m.stats.TotalDistance += int64(dist)
	m.stats.TotalLatency += latency
	m.stats.Packets++

	*delay += memnode.Timestamp(latency)
	p.Status = memnode.OK
	return memnode.OK
}

package meshnoc

import (
	"fmt"

	"github.com/sarchlab/vpsim/memnode"
)

// packet is one flit in flight during the windowed contention model (§4.4
// sub-mode B). A multi-flit transaction decomposes into one packet per
// flit, sharing a route and carrying sequential IDs.
type packet struct {
	id      int64
	route   Route
	arrival memnode.Timestamp
	wait    memnode.Timestamp
	// chargedAgainst remembers which predecessor packet ID the per-queue
	// wait formula was last charged against along this packet's route, so
	// repeated convergence with the same predecessor along a shared
	// sub-path is not double-counted (§9 Design Notes, NoC output-buffer
	// maps). Zero means none yet; packet IDs start at 1.
	chargedAgainst int64
}

// portKey identifies one router output port for buffer bookkeeping.
type portKey struct {
	X, Y int
	Port Port
}

// window is the contention-interval's live state: every packet admitted so
// far, and the insertion-ordered packet-ID queue at every router port the
// packets have crossed (§3 Lifecycle: "windowed... cleared whenever a
// packet arrives in a new contention interval").
type window struct {
	start, end memnode.Timestamp
	order      []int64
	byID       map[int64]*packet
	ports      map[portKey][]int64
}

func newWindow(start memnode.Timestamp, interval int64) *window {
	return &window{
		start: start,
		end:   start + memnode.Timestamp(interval),
		byID:  make(map[int64]*packet),
		ports: make(map[portKey][]int64),
	}
}

func (w *window) admit(p *packet) {
	w.order = append(w.order, p.id)
	w.byID[p.id] = p
	for _, h := range p.route {
		k := portKey{h.X, h.Y, h.Port}
		w.ports[k] = append(w.ports[k], p.id)
	}
}

// forwardWithContention implements §4.4 sub-mode B's flit decomposition and
// windowing. The packet(s) this transaction decomposes into are admitted to
// the live window (finalizing and folding in the prior window first, if the
// arrival timestamp falls outside it); the returned delay is the
// no-contention estimate for this transaction, since the windowed
// contention latencies for packets still in an open window are not yet
// knowable synchronously — they are only determined when the window later
// closes. Finalized contention totals accumulate into Stats, satisfying the
// "contention window closure" property of §8 independently of the
// per-transport return value (see DESIGN.md).
func (m *Mesh) forwardWithContention(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp, src Coord, dsts []Coord) memnode.Status {
	dataLen := p.Length
	if dataLen == 0 {
		dataLen = 1
	}
	flitSize := uint64(m.cfg.FlitSize)
	if flitSize == 0 {
		flitSize = 1
	}
	nFlits := int((dataLen + flitSize - 1) / flitSize)
	if nFlits == 0 {
		nFlits = 1
	}

	for _, d := range dsts {
		route := ComputeRoute(src, d)
		for i := 0; i < nFlits; i++ {
			m.admitPacket(route, timestamp)
		}
	}

	// The synchronous estimate comes from forwardNoContention; its own Stats
	// update is discarded so Stats holds finalized-window totals only.
	finalized := m.stats
	st := m.forwardNoContention(p, delay, timestamp, src, dsts)
	m.stats = finalized
	return st
}

// admitPacket places one flit into the live window, finalizing the prior
// window first if the arrival falls outside it (§4.4 windowing rule).
func (m *Mesh) admitPacket(route Route, ts memnode.Timestamp) {
	if m.window == nil {
		m.window = newWindow(ts, m.cfg.ContentionInterval)
	} else if ts > m.window.end || ts < m.window.start {
		m.finalizeWindow()
		m.window = newWindow(ts, m.cfg.ContentionInterval)
	}

	m.nextID++
	pkt := &packet{id: m.nextID, route: route, arrival: ts}
	m.window.admit(pkt)
}

// finalizeWindow runs ComputePacketLatency over every packet in the current
// window and folds the total into Stats.
func (m *Mesh) finalizeWindow() {
	if m.window == nil || len(m.window.order) == 0 {
		return
	}
	w := m.window
	depth := w.effectiveDepth(m.cfg)

	for _, id := range w.order {
		pkt := w.byID[id]
		pkt.wait = m.computePacketWait(w, pkt, depth)

		hops := len(pkt.route) - 1
		if hops < 0 {
			hops = 0
		}
		latency := int64(hops)*m.cfg.RouterLatency + int64(hops+1)*m.cfg.LinkLatency + int64(pkt.wait)

		m.stats.TotalDistance += int64(hops)
		m.stats.TotalLatency += latency
		m.stats.Packets++
	}
}

func (w *window) effectiveDepth(cfg Config) int { return cfg.effectiveBufferDepth() }

// computePacketWait implements the per-window finalization rule of §4.4:
// for every router-port the packet traverses, determine its queueing wait
// against its immediate predecessor in that port's buffer, then add any
// head-of-line blocking delay from the predecessor's next hop.
func (m *Mesh) computePacketWait(w *window, pkt *packet, depth int) memnode.Timestamp {
	var total memnode.Timestamp

	for hopIdx, h := range pkt.route {
		key := portKey{h.X, h.Y, h.Port}
		queue := w.ports[key]
		pos := indexOf(queue, pkt.id)
		if pos <= 0 {
			continue // head of the port's buffer: zero wait
		}
		prevID := queue[pos-1]
		prev := w.byID[prevID]

		if pkt.chargedAgainst != prevID {
			// First convergence with this predecessor along the route (a
			// different predecessor than last time): charge the per-queue
			// wait formula. queue_size is the number of packets actually
			// queued at this port as of this packet's own convergence
			// (pos+1), not the static buffer_size config parameter.
			queueSize := pos + 1
			divisor := float64(queueSize) / float64(maxInt(1, m.cfg.VirtualChannels))
			var drain int64
			if divisor > 0 {
				drain = int64(float64(m.cfg.ContentionInterval) / divisor)
			}
			wait := int64(prev.wait) + m.cfg.RouterLatency + m.cfg.LinkLatency - drain
			if wait < 0 {
				wait = 0
			}
			total += memnode.Timestamp(wait)
		}
		pkt.chargedAgainst = prevID

		// Head-of-line blocking: only relevant if this is not our final hop.
		if hopIdx < len(pkt.route)-1 {
			next := pkt.route[hopIdx+1]
			nextKey := portKey{next.X, next.Y, next.Port}
			nextQueue := w.ports[nextKey]
			prevPos := indexOf(nextQueue, prevID)
			if prevPos >= depth && depth > 0 {
				slot := prevPos - depth + 1
				if slot >= 0 && slot < len(nextQueue) {
					blockerID := nextQueue[slot]
					if blocker, ok := w.byID[blockerID]; ok {
						total += blocker.wait
					}
				}
			}
		}
	}
	return total
}

func (k portKey) string() string {
	return fmt.Sprintf("%d,%d,%s", k.X, k.Y, k.Port)
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Flush finalizes any still-open window, for use at end-of-run reporting so
// the last window's packets are folded into Stats.
func (m *Mesh) Flush() {
	m.finalizeWindow()
	m.window = nil
}

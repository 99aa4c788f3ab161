package cachectl

import (
	"math/bits"

	"github.com/sarchlab/vpsim/directory"
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// Port is the abstract up-port/down-port transport boundary every
// CacheController dispatches coherence commands through (§4.2). It is the
// same primitive named in §6: every port in the core implements it.
type Port interface {
	Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status
}

// PortFunc adapts a function to the Port interface, for wiring a
// controller directly to a test double or to a small inline forwarder
// without declaring a named type.
type PortFunc func(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status

// Transport implements Port.
func (f PortFunc) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	return f(p, delay, timestamp)
}

// Statistics is the per-cache counter set reported in §6: misses, hits,
// reads, writes, write_backs, real/total/back invalidations, evictions,
// evict_backs, and one counter per coherence command kind.
type Statistics struct {
	Reads, Writes           uint64
	Hits, Misses            uint64
	WriteBacks              uint64
	Evictions, EvictBacks   uint64
	RealInvalidations       uint64
	TotalInvalidations      uint64
	BackInvalidations       uint64

	CountPutS, CountPutM   uint64
	CountPutI              uint64
	CountGetS, CountGetM   uint64
	CountFwdGetS           uint64
	CountFwdGetM           uint64
}

// Controller is the CacheController of §4.2: a CacheSet array, an optional
// DirectoryTable (home role only, or as a local sharer directory at L2),
// and a role selector dispatching through the engine matching that role.
type Controller struct {
	cfg   Config
	role  Role
	sets  []*memline.CacheSet
	dir   *directory.Table // authoritative at Home, local-sharer tracking at L2
	stats Statistics

	down Port // toward the next level down / interconnect
	up   Port // toward upper-level caches, via the interconnect

	observers []memline.EvictionObserver

	// exclusiveSharers tracks, for the non-coherent engine's
	// InclusionOfHigher == Exclusive case, which requesters hold a line
	// that was served without ever being allocated locally (§4.2.1 step 9's
	// documented exception). Keyed by line base address, mirroring the
	// original's address-keyed Sharers map rather than a per-line field,
	// since no local line exists to hold it.
	exclusiveSharers map[memnode.Address]*memnode.NodeSet

	indexBits, offsetBits int
	indexMask, offsetMask uint64
}

// New builds a Controller for the given configuration. down/up may be nil
// at construction and wired later with SetDownPort/SetUpPort once the
// surrounding interconnect exists (construction-time and wiring-time are
// split the way Akita builders separate Build() from PlugIn()).
func New(cfg Config, down, up Port) *Controller {
	numSets := cfg.NumSets()
	if numSets <= 0 {
		numSets = 1
	}
	c := &Controller{
		cfg:  cfg,
		role: cfg.role(),
		sets: make([]*memline.CacheSet, numSets),
		down: down,
		up:   up,
	}
	for i := range c.sets {
		c.sets[i] = memline.NewCacheSet(cfg.Associativity, cfg.LineSize, cfg.ReplacementPolicy, cfg.DataSupport)
	}
	if cfg.IsHome || cfg.Level == L2 {
		c.dir = directory.NewTable()
	}
	c.offsetBits = bits.Len(uint(cfg.LineSize - 1))
	c.indexBits = bits.Len(uint(numSets - 1))
	c.offsetMask = (uint64(1) << c.offsetBits) - 1
	c.indexMask = (uint64(1) << c.indexBits) - 1
	return c
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config { return c.cfg }

// Stats returns a snapshot of the controller's statistics.
func (c *Controller) Stats() Statistics { return c.stats }

// SetDownPort wires (or rewires) the downstream port.
func (c *Controller) SetDownPort(p Port) { c.down = p }

// SetUpPort wires (or rewires) the upstream port.
func (c *Controller) SetUpPort(p Port) { c.up = p }

// AddEvictionObserver registers an observer notified on line repurposing.
// This is the generational-index-free alternative to the original's
// `void*` eviction callback (§9 Design Notes): observers are plain
// interfaces invoked synchronously, never handed a raw pointer into line
// storage beyond the call's duration.
func (c *Controller) AddEvictionObserver(o memline.EvictionObserver) {
	c.observers = append(c.observers, o)
}

func (c *Controller) notifyEviction(line memline.CacheLine) {
	for _, o := range c.observers {
		o.OnEviction(line)
	}
}

// trackExclusiveSharer records id as holding baseAddr without a local
// allocation, for the non-coherent exclusive-with-higher Read bypass.
func (c *Controller) trackExclusiveSharer(baseAddr memnode.Address, id memnode.NodeId) {
	if id == memnode.NodeNone {
		return
	}
	if c.exclusiveSharers == nil {
		c.exclusiveSharers = make(map[memnode.Address]*memnode.NodeSet)
	}
	sharers, ok := c.exclusiveSharers[baseAddr]
	if !ok {
		sharers = memnode.NewNodeSet()
		c.exclusiveSharers[baseAddr] = sharers
	}
	sharers.Add(id)
}

// split decomposes an address into tag/index/offset using line_size and
// number_of_sets (§4.2.1 step 1).
func (c *Controller) split(addr memnode.Address) (tag uint64, index int, offset int) {
	a := uint64(addr)
	offset = int(a & c.offsetMask)
	index = int((a >> c.offsetBits) & c.indexMask)
	tag = a >> (c.offsetBits + c.indexBits)
	return
}

func (c *Controller) lineBaseAddress(tag uint64, index int) memnode.Address {
	return memnode.Address((tag << (c.offsetBits + c.indexBits)) | (uint64(index) << c.offsetBits))
}

func (c *Controller) setFor(index int) *memline.CacheSet {
	return c.sets[index%len(c.sets)]
}

// Transport is the single uniform operation of §4.2: it derives the
// request kind from payload.Command, then dispatches to the access engine
// matching the controller's role.
func (c *Controller) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	*delay += memnode.Timestamp(c.cfg.Latency)
	switch c.role {
	case RoleNonCoherent:
		return c.transportNonCoherent(p, delay, timestamp)
	case RolePrivate:
		return c.transportPrivate(p, delay, timestamp)
	case RoleIntermediate:
		return c.transportIntermediate(p, delay, timestamp)
	case RoleHome:
		return c.transportHome(p, delay, timestamp)
	default:
		return memnode.GenericError
	}
}

// sendDown forwards p on the downstream port, requiring one to be wired.
func (c *Controller) sendDown(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	if c.down == nil {
		fatal(c.cfg.ID, p.Address, p.Command, memline.Invalid, "no downstream port wired")
	}
	return c.down.Transport(p, delay, timestamp)
}

// sendUp forwards p on the upstream port, requiring one to be wired.
func (c *Controller) sendUp(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	if c.up == nil {
		fatal(c.cfg.ID, p.Address, p.Command, memline.Invalid, "no upstream port wired")
	}
	return c.up.Transport(p, delay, timestamp)
}

func copyIntoLine(line *memline.CacheLine, offset int, data []byte) {
	if line.Data == nil || len(data) == 0 {
		return
	}
	n := copy(line.Data[offset:], data)
	_ = n
}

func copyFromLine(line *memline.CacheLine, offset int, size int) []byte {
	if line.Data == nil {
		return make([]byte, size)
	}
	out := make([]byte, size)
	copy(out, line.Data[offset:offset+size])
	return out
}

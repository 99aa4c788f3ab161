// Package memline provides the generic set-associative cache storage:
// CacheLine records and the CacheSet that groups them under a replacement
// policy. It has no notion of coherence protocol; cachectl builds the MSI
// state machine on top of the plain Invalid/Shared/Modified state a line
// carries here.
package memline

import "github.com/sarchlab/vpsim/memnode"

// State is the MSI state carried by every CacheLine. The coherence engines
// in cachectl interpret its meaning; memline only enforces the structural
// invariants of §3 (alignment, uniqueness).
type State int

const (
	Invalid State = iota
	Shared
	Modified
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "I"
	case Shared:
		return "S"
	case Modified:
		return "M"
	default:
		return "?"
	}
}

// ReplacementPolicy selects which set-associative replacement discipline a
// CacheSet uses.
type ReplacementPolicy int

const (
	LRU ReplacementPolicy = iota
	MRU
	FIFO
)

// EvictionObserver is notified when a line is repurposed for a new address.
// This replaces the original C++ CacheBase's `void*` eviction callback
// (§9 Design Notes): rather than handing out a raw pointer into line
// storage, a controller registers itself here and is called back with the
// evicted line's pre-repurposing snapshot.
type EvictionObserver interface {
	OnEviction(line CacheLine)
}

// CacheLine is a line record: base address, tag, coherence state, optional
// data buffer, replacement metadata. Lines are in-place slots; there is no
// heap churn on allocation (§3 Lifecycle).
type CacheLine struct {
	BaseAddress memnode.Address
	Tag         uint64
	State       State
	Data        []byte // present iff the owning CacheSet was built with data tracking

	// Sharers tracks, for a non-coherent cache under an inclusive/exclusive
	// relationship with the level above it, which upper-level node ids hold
	// (or held) a copy of this line. Coherent engines keep their own
	// directory-backed sharer tracking instead (cachectl, directory); this
	// field exists only to support the non-coherent engine's back-
	// invalidation and Evict bookkeeping (§4.2.1 steps 6 and Evict).
	Sharers memnode.NodeSet

	// replacement metadata: meaning depends on the owning CacheSet's policy.
	// For LRU/MRU it is a dense rank in [0, associativity). For FIFO it is
	// unused on hits; the set keeps a separate victim pointer.
	rank int

	// index is this line's slot index within its CacheSet, fixed for the
	// lifetime of the simulation (lines are in-place slots).
	index int
}

// IsValid reports whether the line currently holds a live address.
func (l *CacheLine) IsValid() bool { return l.State != Invalid }

package memline

import "github.com/sarchlab/vpsim/memnode"

// CacheSet is a fixed-associativity group of CacheLines sharing one
// replacement policy. At most one line per tag may be in a non-Invalid
// state at a time (§3 CacheSet invariant).
type CacheSet struct {
	lines         []CacheLine
	associativity int
	policy        ReplacementPolicy
	dataSupport   bool
	lineSize      int

	// fifoPtr is the FIFO victim pointer, advanced modulo associativity on
	// each miss (§4.1).
	fifoPtr int

	// touched counts how many distinct slots have been accessed at least
	// once, used by the MRU warm-up rule (§4.1).
	touched      int
	everTouched  []bool
}

// NewCacheSet builds an empty CacheSet. dataSupport mirrors the owning
// controller's data-tracking configuration (§3: "data is present iff the
// controller was constructed with data tracking").
func NewCacheSet(associativity int, lineSize int, policy ReplacementPolicy, dataSupport bool) *CacheSet {
	lines := make([]CacheLine, associativity)
	for i := range lines {
		lines[i].rank = i
		lines[i].index = i
		lines[i].State = Invalid
		lines[i].Sharers = memnode.NewNodeSet()
		if dataSupport {
			lines[i].Data = make([]byte, lineSize)
		}
	}
	return &CacheSet{
		lines:         lines,
		associativity: associativity,
		policy:        policy,
		dataSupport:   dataSupport,
		lineSize:      lineSize,
		everTouched:   make([]bool, associativity),
	}
}

// Associativity returns the number of ways in the set.
func (s *CacheSet) Associativity() int { return s.associativity }

// Lines returns a copy of the backing slots for diagnostics and directory
// scans (e.g. inclusion/exclusion invariant checks in tests). Changing the
// returned values does not affect the set; LineAt gives in-place access.
func (s *CacheSet) Lines() []CacheLine {
	out := make([]CacheLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// LineAt returns a pointer to the slot at the given index for direct
// inspection/mutation by the coherence engines (which need to flip State
// in place without reallocating the line).
func (s *CacheSet) LineAt(i int) *CacheLine { return &s.lines[i] }

// Access implements §4.1: search for a valid slot whose tag matches; on a
// hit, update replacement metadata and return it. On a miss, return the
// selected victim without installing anything (the caller decides whether
// and how to repurpose it).
func (s *CacheSet) Access(tag uint64) (hit bool, line *CacheLine) {
	for i := range s.lines {
		l := &s.lines[i]
		if l.State != Invalid && l.Tag == tag {
			s.touch(i)
			return true, l
		}
	}
	return false, s.victim()
}

// victim selects the replacement candidate per the configured policy.
func (s *CacheSet) victim() *CacheLine {
	switch s.policy {
	case FIFO:
		return &s.lines[s.fifoPtr]
	case MRU:
		if s.touched < s.associativity {
			// Warm-up: prefer an untouched slot, lowest index first.
			for i := range s.lines {
				if !s.everTouched[i] {
					return &s.lines[i]
				}
			}
		}
		return s.rankSlot(s.associativity - 1)
	default: // LRU
		return s.rankSlot(s.associativity - 1)
	}
}

// rankSlot returns the unique slot currently holding the given rank,
// breaking ties (only possible during initialization) by lowest index.
func (s *CacheSet) rankSlot(rank int) *CacheLine {
	best := -1
	for i := range s.lines {
		if s.lines[i].rank == rank && (best == -1 || i < best) {
			best = i
		}
	}
	return &s.lines[best]
}

// touch updates replacement metadata after an access (hit or miss-then-
// install) to slot i, per the LRU/MRU promotion rules of §4.1. FIFO does
// not use rank for ordering on hits.
func (s *CacheSet) touch(i int) {
	if !s.everTouched[i] {
		s.everTouched[i] = true
		s.touched++
	}
	switch s.policy {
	case LRU:
		old := s.lines[i].rank
		for j := range s.lines {
			if j != i && s.lines[j].rank < old {
				s.lines[j].rank++
			}
		}
		s.lines[i].rank = 0
	case MRU:
		old := s.lines[i].rank
		top := s.associativity - 1
		for j := range s.lines {
			if j != i && s.lines[j].rank > old {
				s.lines[j].rank--
			}
		}
		s.lines[i].rank = top
	case FIFO:
		// unused on hits
	}
}

// SetNewLine transitions the given slot to a new address/tag, per §3's
// setNewLine(addr, tag). The previous occupant is the victim the caller
// has already handled (write-back, eviction notice, etc.) before calling
// this. For FIFO, the victim pointer advances here, modulo associativity,
// exactly once per miss.
func (s *CacheSet) SetNewLine(line *CacheLine, baseAddress memnode.Address, tag uint64, state State) {
	line.BaseAddress = baseAddress
	line.Tag = tag
	line.State = state
	line.Sharers = memnode.NewNodeSet()
	if s.dataSupport && line.Data == nil {
		line.Data = make([]byte, s.lineSize)
	}
	s.touch(line.index)
	if s.policy == FIFO {
		s.fifoPtr = (line.index + 1) % s.associativity
	}
}

// Invalidate marks the given slot Invalid without touching replacement
// ordering, used for coherence invalidations that must not look like a use.
func (s *CacheSet) Invalidate(line *CacheLine) {
	line.State = Invalid
	line.Tag = 0
	line.BaseAddress = 0
	line.Sharers = memnode.NewNodeSet()
}

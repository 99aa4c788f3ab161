// Package directory provides the per-home DirectoryTable mapping line
// addresses to their coherence state, owner, and sharer set (§3).
package directory

import (
	"fmt"

	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// Entry is a DirectoryEntry (§3). Invariants:
//
//	Invalid  => Owner == memnode.NodeNone, Sharers empty
//	Shared   => Owner == memnode.NodeNone, Sharers non-empty
//	Modified => Owner != memnode.NodeNone, Sharers empty
type Entry struct {
	State   memline.State
	Owner   memnode.NodeId
	Sharers memnode.NodeSet
}

// Validate checks the structural invariant of §3 / §8 "Directory
// consistency". It is called after every directory mutation by the home
// engine; a violation is a protocol error (§7 kind 3).
func (e *Entry) Validate() error {
	switch e.State {
	case memline.Invalid:
		if e.Owner != memnode.NodeNone || len(e.Sharers) != 0 {
			return fmt.Errorf("directory: Invalid entry must have no owner and no sharers, got owner=%v sharers=%v", e.Owner, e.Sharers)
		}
	case memline.Shared:
		if e.Owner != memnode.NodeNone || len(e.Sharers) == 0 {
			return fmt.Errorf("directory: Shared entry must have no owner and at least one sharer, got owner=%v sharers=%v", e.Owner, e.Sharers)
		}
	case memline.Modified:
		if e.Owner == memnode.NodeNone || len(e.Sharers) != 0 {
			return fmt.Errorf("directory: Modified entry must have an owner and no sharers, got owner=%v sharers=%v", e.Owner, e.Sharers)
		}
	}
	return nil
}

// newEntry returns an Invalid entry with an empty sharer set.
func newEntry() *Entry {
	return &Entry{State: memline.Invalid, Owner: memnode.NodeNone, Sharers: memnode.NewNodeSet()}
}

// Table is a per-home mapping from line address to Entry. Entries are
// created lazily on first reference and never evicted (§3 Lifecycle); the
// implementer may compact, which this map-backed implementation does not
// need to since working sets here are bounded by the address space
// actually touched during a run, not by cache capacity.
type Table struct {
	entries map[memnode.Address]*Entry
}

// NewTable builds an empty directory table.
func NewTable() *Table {
	return &Table{entries: make(map[memnode.Address]*Entry)}
}

// Lookup returns the entry for addr, creating it lazily as Invalid/∅ if
// absent (§4.2.4: "the directory entry is created if absent").
func (t *Table) Lookup(addr memnode.Address) *Entry {
	e, ok := t.entries[addr]
	if !ok {
		e = newEntry()
		t.entries[addr] = e
	}
	return e
}

// Peek returns the entry for addr without creating one, for read-only
// inspection (tests, statistics) that must not perturb lifecycle.
func (t *Table) Peek(addr memnode.Address) (*Entry, bool) {
	e, ok := t.entries[addr]
	return e, ok
}

// Len returns the number of addresses with a directory entry.
func (t *Table) Len() int { return len(t.entries) }

// ForEach iterates all entries. Iteration order is unspecified (§9 Design
// Notes: "iteration order is not relied upon").
func (t *Table) ForEach(f func(addr memnode.Address, e *Entry)) {
	for addr, e := range t.entries {
		f(addr, e)
	}
}

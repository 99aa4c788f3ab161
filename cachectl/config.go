// Package cachectl implements CacheController: the composition of a
// CacheSet array, an optional DirectoryTable, and a role-selected access
// engine, dispatching coherence commands through an abstract up-port/
// down-port pair (§4.2). Per §9's "tagged variants at construction" note,
// one engine implementation exists per role (NonCoherent, Private,
// Intermediate, Home) rather than a single method dispatching on runtime
// flags.
package cachectl

import (
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// WritePolicy selects how writes propagate to the next level.
type WritePolicy int

const (
	WriteBack WritePolicy = iota
	WriteThrough
)

// AllocationPolicy selects whether a write miss allocates a line.
type AllocationPolicy int

const (
	WriteAllocate AllocationPolicy = iota
	WriteAround
)

// InclusionPolicy describes the relationship required between this cache
// and an adjacent level.
type InclusionPolicy int

const (
	NINE InclusionPolicy = iota
	Inclusive
	Exclusive
)

// Level is the position of a cache in the hierarchy.
type Level int

const (
	L1 Level = iota
	L2
	LLC
)

// Role selects which of the four access engines a Controller dispatches
// through. It is fixed at construction (§9 Design Notes: "tagged variants
// at construction" instead of runtime is_home/level if-chains).
type Role int

const (
	RoleNonCoherent Role = iota
	RolePrivate         // L1, coherent
	RoleIntermediate    // L2, coherent
	RoleHome            // LLC / directory, coherent
)

// Config parameterizes a Controller exactly per spec §4.2 / §6.
type Config struct {
	ID memnode.NodeId

	LineSize      int
	TotalSize     int
	Associativity int

	ReplacementPolicy memline.ReplacementPolicy
	WritePolicy       WritePolicy
	AllocationPolicy  AllocationPolicy

	InclusionOfHigher InclusionPolicy
	InclusionOfLower  InclusionPolicy

	IsCoherent  bool
	IsHome      bool
	Level       Level
	DataSupport bool

	Latency int64 // fixed per-access delay in ns, added on every transport
}

// NumSets derives the number of sets from size/associativity/line size.
func (c Config) NumSets() int {
	if c.Associativity <= 0 || c.LineSize <= 0 {
		return 0
	}
	return c.TotalSize / (c.Associativity * c.LineSize)
}

// role derives the dispatch role from the configuration, per the table in
// §4.2: IsCoherent=false => NonCoherent; IsHome => Home; Level==L1 => Private;
// otherwise Intermediate.
func (c Config) role() Role {
	if !c.IsCoherent {
		return RoleNonCoherent
	}
	if c.IsHome {
		return RoleHome
	}
	if c.Level == L1 {
		return RolePrivate
	}
	return RoleIntermediate
}

// Package meshnoc implements the MeshNoC timing model of §4.4: per-packet
// latency computation on top of a 2D mesh, either as a plain distance-based
// estimate or under a windowed contention model with head-of-line blocking.
package meshnoc

import "fmt"

// Coord is a router's (x, y) position on the mesh.
type Coord struct {
	X, Y int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Port names a router's output side. Every route ends with a local (L) port
// at its destination router (§3 Mesh state invariant).
type Port int

const (
	North Port = iota
	South
	East
	West
	Local
)

func (p Port) String() string {
	switch p {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	case Local:
		return "L"
	default:
		return "?"
	}
}

// Hop is one (x, y, port) triple in a Route.
type Hop struct {
	X, Y int
	Port Port
}

// Route is an ordered sequence of hops a packet traverses, always ending in
// a Local port at the destination router (§3).
type Route []Hop

// Config parameterizes a Mesh exactly per spec §6's NoC configuration table.
type Config struct {
	IsMesh bool
	MeshX  int
	MeshY  int

	RouterLatency int64
	LinkLatency   int64

	WithContention     bool
	ContentionInterval int64
	VirtualChannels    int
	BufferSize         int
	FlitSize           int
}

// effectiveBufferDepth is buffer_size * virtual_channels, the HOL-blocking
// threshold named in §9 Design Notes.
func (c Config) effectiveBufferDepth() int { return c.BufferSize * c.VirtualChannels }

// InRange reports whether coordinate c lies within the configured mesh.
func (c Config) InRange(coord Coord) bool {
	return coord.X >= 0 && coord.X < c.MeshX && coord.Y >= 0 && coord.Y < c.MeshY
}

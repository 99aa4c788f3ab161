// Package platform elaborates a config.Platform description into a wired
// set of cachectl.Controllers, a coherentfabric.Interconnect, an optional
// meshnoc.Mesh, and leaf backing stores — the builder step spec.md leaves
// to the embedding simulator, grounded on the teacher's construction-time/
// wiring-time split (cachectl.New takes nil ports, wired after) and on
// akita/v4's own Build()-then-PlugIn() builder idiom (sarchlab-zeonica's
// config.DeviceBuilder).
package platform

import (
	"fmt"
	"sort"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/coherentfabric"
	"github.com/sarchlab/vpsim/internal/config"
	"github.com/sarchlab/vpsim/memnode"
	"github.com/sarchlab/vpsim/meshnoc"
)

// ElaborationError reports a user configuration mistake found only once the
// full cache/memory set is known: an undefined down/up reference, an
// unknown policy or level string, or an inverted memory-controller range
// (§7 kind 1). Address-range collisions (SPEC_FULL.md §4) are reported as
// the interconnect's coherentfabric.ConfigError, wrapped with the cache or
// memory-controller name.
type ElaborationError struct {
	Reason string
}

func (e *ElaborationError) Error() string { return "platform: " + e.Reason }

// Platform is a fully wired instance: every controller reachable by name,
// and the fabric and mesh behind them.
type Platform struct {
	Caches  map[string]*cachectl.Controller
	order   []string // elaboration order, for deterministic Stats() iteration
	Backing map[string]*backingStore

	Interconnect *coherentfabric.Interconnect
	Mesh         *meshnoc.Mesh
}

// Elaborate builds a Platform from a validated config.Platform.
func Elaborate(cfg *config.Platform) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}

	p := &Platform{
		Caches:  make(map[string]*cachectl.Controller, len(cfg.Caches)),
		Backing: make(map[string]*backingStore, len(cfg.MemoryControllers)),
	}

	mesh := buildMesh(cfg.Mesh)
	p.Mesh = mesh
	p.Interconnect = coherentfabric.New(mesh)

	for _, mc := range cfg.MemoryControllers {
		if mc.Last <= mc.Base {
			return nil, &ElaborationError{Reason: fmt.Sprintf("memory controller %q: last must be > base", mc.Name)}
		}
		p.Backing[mc.Name] = newBackingStore(memnode.Address(mc.Base), mc.Last-mc.Base, mc.LatencyN)
	}

	if err := p.wireInterleave(cfg); err != nil {
		return nil, err
	}

	if err := p.buildControllers(cfg); err != nil {
		return nil, err
	}
	if err := p.registerRanges(cfg); err != nil {
		return nil, err
	}
	if err := p.wirePorts(cfg); err != nil {
		return nil, err
	}
	if err := p.registerMemoryControllers(cfg); err != nil {
		return nil, err
	}

	return p, nil
}

func buildMesh(mc config.MeshConfig) *meshnoc.Mesh {
	return meshnoc.NewMesh(meshnoc.Config{
		IsMesh:             mc.IsMesh,
		MeshX:              mc.MeshX,
		MeshY:              mc.MeshY,
		RouterLatency:      mc.RouterLatency,
		LinkLatency:        mc.LinkLatency,
		WithContention:     mc.WithContention,
		ContentionInterval: mc.ContentionInterval,
		VirtualChannels:    mc.VirtualChannels,
		BufferSize:         mc.BufferSize,
		FlitSize:           mc.FlitSize,
	})
}

// wireInterleave registers RAM striping across the memory controllers named
// in cfg.MemoryControllers, when the mesh config carries an interleave
// length and RAM range (§4.3 Interleaving).
func (p *Platform) wireInterleave(cfg *config.Platform) error {
	m := cfg.Mesh
	if m.InterleaveLength == 0 || len(cfg.MemoryControllers) < 2 {
		return nil
	}
	names := make([]string, 0, len(cfg.MemoryControllers))
	for _, mc := range cfg.MemoryControllers {
		names = append(names, mc.Name)
	}
	sort.Strings(names)
	ports := make([]coherentfabric.Port, 0, len(names))
	for _, n := range names {
		ports = append(ports, p.Backing[n])
	}
	p.Interconnect.SetInterleave(memnode.Address(m.RamBaseAddress), memnode.Address(m.RamLastAddress), m.InterleaveLength, ports)
	return nil
}

// registerMemoryControllers wires every backing store not already absorbed
// into the interleave group, and not wired directly behind a home, as a
// plain memory-mapped-out port. A home-backed store is reached through the
// home's own registered range.
func (p *Platform) registerMemoryControllers(cfg *config.Platform) error {
	interleaved := cfg.Mesh.InterleaveLength != 0 && len(cfg.MemoryControllers) >= 2
	if interleaved {
		return nil
	}
	homeBacked := make(map[cachectl.Port]bool)
	for _, cc := range cfg.Caches {
		if cc.IsCoherent && cc.IsHome {
			if down, err := p.resolveDirect(cc.Down); err == nil && down != nil {
				homeBacked[down] = true
			}
		}
	}
	for _, mc := range cfg.MemoryControllers {
		store := p.Backing[mc.Name]
		if homeBacked[store] {
			continue
		}
		rng := coherentfabric.NewMemRange(memnode.Address(mc.Base), memnode.Address(mc.Last))
		if err := p.Interconnect.RegisterMemMappedOutput(rng, store); err != nil {
			return fmt.Errorf("platform: memory controller %q: %w", mc.Name, err)
		}
	}
	return nil
}

func (p *Platform) buildControllers(cfg *config.Platform) error {
	for i, cc := range cfg.Caches {
		repl, err := parseReplPolicy(cc.ReplPolicy)
		if err != nil {
			return &ElaborationError{Reason: fmt.Sprintf("cache %q: %v", cc.Name, err)}
		}
		wp, err := parseWritePolicy(cc.WritingPolicy)
		if err != nil {
			return &ElaborationError{Reason: fmt.Sprintf("cache %q: %v", cc.Name, err)}
		}
		ap, err := parseAllocationPolicy(cc.AllocationPolicy)
		if err != nil {
			return &ElaborationError{Reason: fmt.Sprintf("cache %q: %v", cc.Name, err)}
		}
		incHi, err := parseInclusionPolicy(cc.InclusionHigher)
		if err != nil {
			return &ElaborationError{Reason: fmt.Sprintf("cache %q: %v", cc.Name, err)}
		}
		incLo, err := parseInclusionPolicy(cc.InclusionLower)
		if err != nil {
			return &ElaborationError{Reason: fmt.Sprintf("cache %q: %v", cc.Name, err)}
		}
		level, err := parseLevel(cc.Level)
		if err != nil {
			return &ElaborationError{Reason: fmt.Sprintf("cache %q: %v", cc.Name, err)}
		}

		id := cc.ID
		if id == 0 {
			id = uint32(i + 1)
		}

		ctlCfg := cachectl.Config{
			ID:                memnode.NodeId(id),
			LineSize:          cc.LineSize,
			TotalSize:         cc.TotalSize,
			Associativity:     cc.Associativity,
			ReplacementPolicy: repl,
			WritePolicy:       wp,
			AllocationPolicy:  ap,
			InclusionOfHigher: incHi,
			InclusionOfLower:  incLo,
			IsCoherent:        cc.IsCoherent,
			IsHome:            cc.IsHome,
			Level:             level,
			DataSupport:       cc.DataSupport,
			Latency:           cc.Latency,
		}
		p.Caches[cc.Name] = cachectl.New(ctlCfg, nil, nil)
		p.order = append(p.order, cc.Name)
	}
	return nil
}

func (p *Platform) registerRanges(cfg *config.Platform) error {
	for _, cc := range cfg.Caches {
		if !cc.IsCoherent {
			continue
		}
		ctl := p.Caches[cc.Name]
		coord := meshnoc.Coord{X: cc.CoordX, Y: cc.CoordY}
		if cc.IsHome {
			rng := coherentfabric.NewMemRange(memnode.Address(cc.HomeBase), memnode.Address(cc.HomeLast))
			if err := p.Interconnect.RegisterHomeOutput(rng, ctl.Config().ID, coord, ctl); err != nil {
				return fmt.Errorf("platform: cache %q: %w", cc.Name, err)
			}
		} else {
			p.Interconnect.RegisterCacheOutput(ctl.Config().ID, coord, ctl)
		}
	}
	return nil
}

// resolveDirect looks up a Down/Up reference against both the cache set and
// the backing-store set, the cross-reference check config.Validate defers
// until the complete set is known (SPEC_FULL.md §4).
func (p *Platform) resolveDirect(name string) (cachectl.Port, error) {
	if name == "" {
		return nil, nil
	}
	if ctl, ok := p.Caches[name]; ok {
		return ctl, nil
	}
	if store, ok := p.Backing[name]; ok {
		return store, nil
	}
	if name == "ram" && len(p.Backing) == 1 {
		for _, store := range p.Backing {
			return store, nil
		}
	}
	return nil, &ElaborationError{Reason: fmt.Sprintf("undefined down/up reference %q", name)}
}

func (p *Platform) wirePorts(cfg *config.Platform) error {
	for _, cc := range cfg.Caches {
		ctl := p.Caches[cc.Name]

		if cc.IsCoherent {
			ctl.SetUpPort(p.Interconnect)
			if cc.IsHome {
				down, err := p.resolveDirect(cc.Down)
				if err != nil {
					return err
				}
				ctl.SetDownPort(down)
			} else {
				// Routed by address through the interconnect; the named
				// down reference must still exist.
				if _, err := p.resolveDirect(cc.Down); err != nil {
					return err
				}
				ctl.SetDownPort(p.Interconnect)
			}
			continue
		}

		down, err := p.resolveDirect(cc.Down)
		if err != nil {
			return err
		}
		ctl.SetDownPort(down)

		if len(cc.Up) > 0 {
			fan := newFanoutPort()
			for _, upName := range cc.Up {
				upCtl, ok := p.Caches[upName]
				if !ok {
					return &ElaborationError{Reason: fmt.Sprintf("cache %q: undefined up reference %q", cc.Name, upName)}
				}
				fan.add(upCtl.Config().ID, upCtl)
			}
			ctl.SetUpPort(fan)
		}
	}
	return nil
}

// Stats returns every controller's statistics keyed by cache name. The
// result is a map, so iterating it does not follow elaboration order.
func (p *Platform) Stats() map[string]cachectl.Statistics {
	out := make(map[string]cachectl.Statistics, len(p.order))
	for _, name := range p.order {
		out[name] = p.Caches[name].Stats()
	}
	return out
}

// InterconnectStats returns the fabric's (and mesh's, if wired) statistics.
func (p *Platform) InterconnectStats() coherentfabric.Stats { return p.Interconnect.Stats() }

// Flush finalizes any open mesh contention window, for use at end-of-run
// reporting (§4.4 sub-mode B).
func (p *Platform) Flush() {
	if p.Mesh != nil {
		p.Mesh.Flush()
	}
}

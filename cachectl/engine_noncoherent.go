package cachectl

import (
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// transportNonCoherent implements §4.2.1: Read/Write/Invalidate/Evict/
// ReadBack under is_coherent = false.
func (c *Controller) transportNonCoherent(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	switch p.Command {
	case memnode.Read, memnode.Write:
		return c.ncAccess(p, delay, timestamp)
	case memnode.Invalidate, memnode.BackInvalidate:
		return c.ncInvalidate(p, delay, timestamp)
	case memnode.Evict:
		return c.ncEvict(p, delay, timestamp)
	case memnode.ReadBack:
		return c.ncReadBack(p, delay, timestamp)
	default:
		p.Status = memnode.CommandError
		return memnode.CommandError
	}
}

// ncAccess handles Read and Write, including cross-line spanning (step 8)
// and the miss-handling sequence of steps 4-10.
func (c *Controller) ncAccess(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	remaining := p.Length
	if remaining == 0 {
		remaining = 1
	}
	addr := p.Address
	var out []byte
	first := true
	for remaining > 0 {
		_, index, offset := c.split(addr)
		accessSize := remaining
		if max := uint64(c.cfg.LineSize - offset); accessSize > max {
			accessSize = max
		}

		data, status := c.ncAccessOneLine(p, addr, index, offset, int(accessSize), delay, timestamp, first)
		if status != memnode.OK {
			return status
		}
		if p.Command == memnode.Read {
			out = append(out, data...)
		}

		addr += memnode.Address(accessSize)
		remaining -= accessSize
		first = false
	}
	if p.Command == memnode.Read && p.Data != nil {
		copy(p.Data, out)
	}
	p.Status = memnode.OK
	return memnode.OK
}

func (c *Controller) ncAccessOneLine(p *memnode.Payload, addr memnode.Address, index, offset, size int, delay *memnode.Timestamp, timestamp memnode.Timestamp, isFirstLine bool) ([]byte, memnode.Status) {
	tag, _, _ := c.split(addr)
	set := c.setFor(index)
	hit, line := set.Access(tag)
	base := c.lineBaseAddress(tag, index)

	if isFirstLine {
		if p.Command == memnode.Read {
			c.stats.Reads++
		} else {
			c.stats.Writes++
		}
		if hit {
			c.stats.Hits++
		} else {
			c.stats.Misses++
		}
	}

	// Exclusive-with-higher bypass (§4.2.1 step 9): a Read miss is served
	// straight from below without ever allocating a local slot; the
	// requester is tracked against the address instead of the line's own
	// sharer set, since no line is installed.
	if !hit && p.Command == memnode.Read && c.cfg.InclusionOfHigher == Exclusive {
		data, st := c.ncForwardRead(base, delay, timestamp)
		if st != memnode.OK {
			return nil, st
		}
		c.trackExclusiveSharer(base, p.RequesterID)
		out := make([]byte, size)
		copy(out, data[offset:offset+size])
		return out, memnode.OK
	}

	if !hit {
		c.ncHandleMiss(line, addr, tag, delay, timestamp)
	}

	allocate := p.Command == memnode.Read || c.cfg.AllocationPolicy == WriteAllocate
	if !hit && allocate {
		set.SetNewLine(line, base, tag, memline.Shared)
	}

	switch p.Command {
	case memnode.Read:
		if !hit && !allocate {
			fatal(c.cfg.ID, addr, p.Command, line.State, "read miss without allocation")
		}
		if line.Sharers == nil {
			line.Sharers = memnode.NewNodeSet()
		}
		if p.RequesterID != memnode.NodeNone {
			line.Sharers.Add(p.RequesterID)
		}
		if !hit {
			data, st := c.ncForwardRead(base, delay, timestamp)
			if st != memnode.OK {
				return nil, st
			}
			copyIntoLine(line, 0, data)
			line.State = memline.Shared
		} else if c.cfg.InclusionOfHigher == Exclusive {
			// The higher cache now holds the only copy; this level does
			// not keep one behind it.
			line.State = memline.Invalid
		}
		return copyFromLine(line, offset, size), memnode.OK

	case memnode.Write:
		if c.cfg.WritePolicy == WriteThrough {
			fwd := &memnode.Payload{Command: memnode.Write, Address: addr, Length: uint64(size), Data: sliceOrZero(p.Data, size), InitiatorID: p.InitiatorID}
			if st := c.sendDown(fwd, delay, timestamp); st != memnode.OK {
				return nil, st
			}
			if hit {
				copyIntoLine(line, offset, sliceOrZero(p.Data, size))
			}
			return nil, memnode.OK
		}
		// write-back
		if !allocate {
			fwd := &memnode.Payload{Command: memnode.Write, Address: addr, Length: uint64(size), Data: sliceOrZero(p.Data, size), InitiatorID: p.InitiatorID}
			st := c.sendDown(fwd, delay, timestamp)
			return nil, st
		}
		copyIntoLine(line, offset, sliceOrZero(p.Data, size))
		line.State = memline.Modified
		if c.cfg.InclusionOfLower == Inclusive {
			fwd := &memnode.Payload{Command: memnode.Write, Address: line.BaseAddress, Length: uint64(c.cfg.LineSize), Data: line.Data, InitiatorID: p.InitiatorID}
			c.sendDown(fwd, delay, timestamp)
		}
		return nil, memnode.OK
	}
	return nil, memnode.CommandError
}

// ncForwardRead fetches a full line's worth of data from the next level
// down (§4.2.1 step 9's ForwardRead on a Read miss).
func (c *Controller) ncForwardRead(base memnode.Address, delay *memnode.Timestamp, timestamp memnode.Timestamp) ([]byte, memnode.Status) {
	buf := make([]byte, c.cfg.LineSize)
	req := &memnode.Payload{Command: memnode.Read, Address: base, Length: uint64(c.cfg.LineSize), Data: buf}
	st := c.sendDown(req, delay, timestamp)
	return buf, st
}

// ncHandleMiss implements steps 4-6: write-back a dirty victim, evict a
// clean shared victim under an exclusive-with-lower policy, and back-
// invalidate sharers of a victim under an inclusive-with-higher policy.
func (c *Controller) ncHandleMiss(line *memline.CacheLine, addr memnode.Address, tag uint64, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	if line.State == memline.Modified && c.cfg.WritePolicy == WriteBack {
		fwd := &memnode.Payload{Command: memnode.Write, Address: line.BaseAddress, Length: uint64(c.cfg.LineSize), Data: line.Data}
		c.sendDown(fwd, delay, timestamp)
		c.stats.WriteBacks++
	}
	if c.cfg.InclusionOfLower == Exclusive && line.State == memline.Shared {
		fwd := &memnode.Payload{Command: memnode.Evict, Address: line.BaseAddress, Length: uint64(c.cfg.LineSize), Data: line.Data}
		c.sendDown(fwd, delay, timestamp)
		c.stats.Evictions++
	}
	if c.cfg.InclusionOfHigher == Inclusive && len(line.Sharers) > 0 {
		for _, sharer := range line.Sharers.Slice() {
			inv := &memnode.Payload{Command: memnode.BackInvalidate, Address: line.BaseAddress, TargetIDs: memnode.NewNodeSet(sharer)}
			c.sendUp(inv, delay, timestamp)
		}
		line.Sharers = memnode.NewNodeSet()
		c.stats.BackInvalidations++
	}
	if line.IsValid() {
		c.notifyEviction(*line)
	}
}

// ncInvalidate handles Invalidate: write back if Modified, mark Invalid.
// Non-allocating.
func (c *Controller) ncInvalidate(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	tag, index, _ := c.split(p.Address)
	set := c.setFor(index)
	hit, line := set.Access(tag)
	c.stats.TotalInvalidations++
	if hit {
		c.stats.RealInvalidations++
		if line.State == memline.Modified {
			fwd := &memnode.Payload{Command: memnode.Write, Address: line.BaseAddress, Length: uint64(c.cfg.LineSize), Data: line.Data}
			c.sendDown(fwd, delay, timestamp)
			c.stats.WriteBacks++
		}
		set.Invalidate(line)
	}
	p.Status = memnode.OK
	return memnode.OK
}

// ncEvict handles Evict from a higher exclusive cache: copy payload into
// the local line, remove the requester from sharers, set Shared if sharers
// remain, else Invalid. Non-allocating; a hit must have been Modified.
func (c *Controller) ncEvict(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	tag, index, _ := c.split(p.Address)
	set := c.setFor(index)
	hit, line := set.Access(tag)
	if hit {
		if line.State != memline.Modified {
			fatal(c.cfg.ID, p.Address, p.Command, line.State, "Evict hit a line that was not Modified")
		}
		copyIntoLine(line, 0, p.Data)
		if line.Sharers != nil {
			line.Sharers.Remove(p.RequesterID)
		}
		if len(line.Sharers) > 0 {
			line.State = memline.Shared
		} else {
			line.State = memline.Invalid
		}
	}
	p.Status = memnode.OK
	return memnode.OK
}

// ncReadBack asks the upper cache to resupply a line in exclusive
// hierarchies; at this (lower) level it is a pass-through read of the
// current line contents, non-allocating on miss.
func (c *Controller) ncReadBack(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	tag, index, _ := c.split(p.Address)
	set := c.setFor(index)
	hit, line := set.Access(tag)
	if !hit {
		p.Status = memnode.AddressError
		return memnode.AddressError
	}
	if p.Data != nil {
		copy(p.Data, line.Data)
	}
	p.Status = memnode.OK
	return memnode.OK
}

func sliceOrZero(b []byte, size int) []byte {
	if b == nil {
		return make([]byte, size)
	}
	if len(b) >= size {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

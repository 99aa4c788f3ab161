package cachectl

import (
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// transportPrivate implements the L1 (private, coherent) engine of §4.2.2
// against a private MSI cache: it serves the Read/Write the ISS emits
// (issuing GetS/GetM/PutS/PutM downstream as the state machine requires)
// and the FwdGetS/FwdGetM/PutI the home sends; any other command returns
// CommandError. Transport is synchronous and blocking (§5): a
// forwarded request's response data is written directly back into the
// same Payload the caller passed, with no separate reply message.
func (c *Controller) transportPrivate(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	switch p.Command {
	case memnode.Read, memnode.Write:
		return c.l1LocalAccess(p, delay, timestamp)
	case memnode.FwdGetS:
		return c.l1OnFwdGetS(p)
	case memnode.FwdGetM:
		return c.l1OnFwdGetM(p)
	case memnode.PutI:
		return c.l1OnPutI(p)
	default:
		p.Status = memnode.CommandError
		return memnode.CommandError
	}
}

func (c *Controller) l1LocalAccess(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	size := int(p.Length)
	if size == 0 || size > c.cfg.LineSize {
		size = c.cfg.LineSize
	}
	tag, index, offset := c.split(p.Address)
	set := c.setFor(index)
	found, line := set.Access(tag)

	if !found && line.IsValid() {
		c.l1Replace(line, delay, timestamp)
	}

	if p.Command == memnode.Read {
		c.stats.Reads++
	} else {
		c.stats.Writes++
	}

	if !found {
		// I-state transitions: fetch from home before the request can
		// proceed, then install the line.
		c.stats.Misses++
		buf := make([]byte, c.cfg.LineSize)
		if p.Command == memnode.Read {
			req := &memnode.Payload{Command: memnode.GetS, Address: c.lineBaseAddress(tag, index), Length: uint64(c.cfg.LineSize), Data: buf, InitiatorID: c.cfg.ID, RequesterID: c.cfg.ID}
			if st := c.sendDown(req, delay, timestamp); st != memnode.OK {
				p.Status = st
				return st
			}
			c.stats.CountGetS++
			set.SetNewLine(line, c.lineBaseAddress(tag, index), tag, memline.Shared)
			copy(line.Data, buf)
		} else {
			req := &memnode.Payload{Command: memnode.GetM, Address: c.lineBaseAddress(tag, index), Length: uint64(c.cfg.LineSize), Data: buf, InitiatorID: c.cfg.ID, RequesterID: c.cfg.ID}
			if st := c.sendDown(req, delay, timestamp); st != memnode.OK {
				p.Status = st
				return st
			}
			c.stats.CountGetM++
			set.SetNewLine(line, c.lineBaseAddress(tag, index), tag, memline.Modified)
			copy(line.Data, buf)
		}
	} else if p.Command == memnode.Write && line.State == memline.Shared {
		// S + Write: SendGetM, -> M.
		c.stats.Misses++
		buf := make([]byte, c.cfg.LineSize)
		req := &memnode.Payload{Command: memnode.GetM, Address: line.BaseAddress, Length: uint64(c.cfg.LineSize), Data: buf, InitiatorID: c.cfg.ID, RequesterID: c.cfg.ID}
		if st := c.sendDown(req, delay, timestamp); st != memnode.OK {
			p.Status = st
			return st
		}
		c.stats.CountGetM++
		line.State = memline.Modified
	} else {
		// Hit-counting convention: Read is a hit whenever found; Write is
		// a hit only when the line is already Modified.
		if p.Command == memnode.Read || line.State == memline.Modified {
			c.stats.Hits++
		} else {
			c.stats.Misses++
		}
	}

	if p.Command == memnode.Read {
		if p.Data != nil {
			copy(p.Data, copyFromLine(line, offset, size))
		}
	} else {
		copyIntoLine(line, offset, sliceOrZero(p.Data, size))
	}
	p.Status = memnode.OK
	return memnode.OK
}

// l1Replace implements the Replace transitions of the L1 MSI table: S ->
// SendPutS, M -> SendPutM (with data); either way the line frame is
// repurposed only after the writeback/acknowledgment is sent.
func (c *Controller) l1Replace(line *memline.CacheLine, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	switch line.State {
	case memline.Shared:
		req := &memnode.Payload{Command: memnode.PutS, Address: line.BaseAddress, InitiatorID: c.cfg.ID, RequesterID: c.cfg.ID}
		c.sendDown(req, delay, timestamp)
		c.stats.CountPutS++
	case memline.Modified:
		req := &memnode.Payload{Command: memnode.PutM, Address: line.BaseAddress, Length: uint64(c.cfg.LineSize), Data: line.Data, InitiatorID: c.cfg.ID, RequesterID: c.cfg.ID}
		c.sendDown(req, delay, timestamp)
		c.stats.CountPutM++
		c.stats.WriteBacks++
	}
	c.notifyEviction(*line)
	line.State = memline.Invalid
}

// l1OnFwdGetS responds to a home-issued forwarded read snoop: the line's
// data is copied into the snoop payload and the line ends Shared (a
// Modified line is demoted; a Shared line stays Shared).
func (c *Controller) l1OnFwdGetS(p *memnode.Payload) memnode.Status {
	tag, index, _ := c.split(p.Address)
	set := c.setFor(index)
	found, line := set.Access(tag)
	if !found || line.State == memline.Invalid {
		fatal(c.cfg.ID, p.Address, p.Command, memline.Invalid, "FwdGetS snooped a line not present at L1")
	}
	c.stats.CountFwdGetS++
	if p.Data != nil {
		copy(p.Data, line.Data)
	}
	line.State = memline.Shared
	p.Status = memnode.OK
	return memnode.OK
}

// l1OnFwdGetM responds to a home-issued forwarded write snoop: supply data
// and invalidate.
func (c *Controller) l1OnFwdGetM(p *memnode.Payload) memnode.Status {
	tag, index, _ := c.split(p.Address)
	set := c.setFor(index)
	found, line := set.Access(tag)
	if !found || line.State == memline.Invalid {
		fatal(c.cfg.ID, p.Address, p.Command, memline.Invalid, "FwdGetM snooped a line not present at L1")
	}
	c.stats.CountFwdGetM++
	if p.Data != nil {
		copy(p.Data, line.Data)
	}
	set.Invalidate(line)
	p.Status = memnode.OK
	return memnode.OK
}

// l1OnPutI invalidates a sharer copy on home instruction.
func (c *Controller) l1OnPutI(p *memnode.Payload) memnode.Status {
	tag, index, _ := c.split(p.Address)
	set := c.setFor(index)
	found, line := set.Access(tag)
	c.stats.TotalInvalidations++
	if !found || line.State == memline.Invalid {
		fatal(c.cfg.ID, p.Address, p.Command, memline.Invalid, "PutI targeted a line not present at L1")
	}
	c.stats.RealInvalidations++
	c.stats.CountPutI++
	set.Invalidate(line)
	p.Status = memnode.OK
	return memnode.OK
}

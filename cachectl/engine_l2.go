package cachectl

import (
	"github.com/sarchlab/vpsim/directory"
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// transportIntermediate implements the L2 (intermediate, coherent) engine
// of §4.2.3: Read/Write served as at L1, GetS/GetM/PutS/PutM/PutI issued by
// the L1s above it, and FwdGetS/FwdGetM arriving from the home below it.
// Any other command returns CommandError. The L2 keeps a local directory
// tracking which upstream L1(s) hold the line, and is itself a private
// consumer of the cache (home) below it, fetching via GetS/GetM rather
// than a home's direct Read of the backing store.
func (c *Controller) transportIntermediate(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	switch p.Command {
	case memnode.GetS, memnode.GetM, memnode.PutS, memnode.PutM, memnode.PutI:
		return c.l2FromAbove(p, delay, timestamp)
	case memnode.FwdGetS, memnode.FwdGetM:
		return c.l2FromBelow(p, delay, timestamp)
	case memnode.Read, memnode.Write:
		return c.l1LocalAccess(p, delay, timestamp)
	default:
		p.Status = memnode.CommandError
		return memnode.CommandError
	}
}

// l2CachesLocally reports whether this L2 keeps its own copy of lines its
// L1 children hold, per its inclusion relationship to the level above it.
func (c *Controller) l2CachesLocally() bool { return c.cfg.InclusionOfHigher != Exclusive }

// l2Fetch obtains the line's current contents from the real home below,
// acting as an L1 would (GetS for a read-intent fetch).
func (c *Controller) l2Fetch(addr memnode.Address, forWrite bool, delay *memnode.Timestamp, timestamp memnode.Timestamp) []byte {
	buf := make([]byte, c.cfg.LineSize)
	cmd := memnode.GetS
	if forWrite {
		cmd = memnode.GetM
	}
	req := &memnode.Payload{Command: cmd, Address: addr, Length: uint64(c.cfg.LineSize), Data: buf, InitiatorID: c.cfg.ID, RequesterID: c.cfg.ID}
	c.sendDown(req, delay, timestamp)
	if cmd == memnode.GetS {
		c.stats.CountGetS++
	} else {
		c.stats.CountGetM++
	}
	return buf
}

func (c *Controller) l2LocalCopy(addr memnode.Address) ([]byte, bool) {
	if !c.l2CachesLocally() {
		return nil, false
	}
	tag, index, _ := c.split(addr)
	found, line := c.setFor(index).Access(tag)
	if !found {
		return nil, false
	}
	return copyFromLine(line, 0, c.cfg.LineSize), true
}

func (c *Controller) l2InstallLocal(addr memnode.Address, data []byte, state memline.State) {
	if !c.l2CachesLocally() {
		return
	}
	tag, index, _ := c.split(addr)
	set := c.setFor(index)
	_, line := set.Access(tag)
	base := c.lineBaseAddress(tag, index)
	set.SetNewLine(line, base, tag, state)
	copyIntoLine(line, 0, data)
}

// l2FromAbove handles GetS/GetM/PutS/PutM/PutI issued by an L1 child,
// mirroring the home directory state machine of §4.2.4 but fetching
// through the coherence protocol rather than a direct memory read.
func (c *Controller) l2FromAbove(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	id := p.RequesterID
	if id == memnode.NodeNone {
		id = p.InitiatorID
	}
	entry := c.dir.Lookup(p.Address)

	switch p.Command {
	case memnode.GetS:
		c.stats.CountGetS++
		c.l2GetS(entry, p, id, delay, timestamp)
	case memnode.GetM:
		c.stats.CountGetM++
		c.l2GetM(entry, p, id, delay, timestamp)
	case memnode.PutS:
		c.stats.CountPutS++
		if entry.State == memline.Shared {
			entry.Sharers.Remove(id)
			if len(entry.Sharers) == 0 {
				if !c.l2CachesLocally() {
					fwd := &memnode.Payload{Command: memnode.PutS, Address: p.Address, InitiatorID: c.cfg.ID}
					c.sendDown(fwd, delay, timestamp)
				}
				entry.State = memline.Invalid
			}
		}
	case memnode.PutM:
		c.stats.CountPutM++
		if entry.State != memline.Modified || entry.Owner != id {
			fatal(c.cfg.ID, p.Address, p.Command, entry.State, "PutM from a non-owner at L2")
		}
		c.l2InstallLocal(p.Address, p.Data, memline.Modified)
		if c.cfg.InclusionOfLower == Inclusive {
			fwd := &memnode.Payload{Command: memnode.PutM, Address: p.Address, Length: uint64(c.cfg.LineSize), Data: p.Data, InitiatorID: c.cfg.ID}
			c.sendDown(fwd, delay, timestamp)
		}
		entry.State = memline.Invalid
		entry.Owner = memnode.NodeNone
	case memnode.PutI:
		c.stats.CountPutI++
		for _, sharer := range entry.Sharers.Clone().Slice() {
			inv := &memnode.Payload{Command: memnode.PutI, Address: p.Address, TargetIDs: memnode.NewNodeSet(sharer), InitiatorID: c.cfg.ID}
			c.sendUp(inv, delay, timestamp)
		}
		entry.State = memline.Invalid
		entry.Owner = memnode.NodeNone
		entry.Sharers = memnode.NewNodeSet()
	}
	if err := entry.Validate(); err != nil {
		fatal(c.cfg.ID, p.Address, p.Command, entry.State, err.Error())
	}
	p.Status = memnode.OK
	return memnode.OK
}

func (c *Controller) l2GetS(entry *directory.Entry, p *memnode.Payload, id memnode.NodeId, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	switch entry.State {
	case memline.Invalid:
		data := c.l2Fetch(p.Address, false, delay, timestamp)
		c.l2InstallLocal(p.Address, data, memline.Shared)
		if p.Data != nil {
			copy(p.Data, data)
		}
		entry.State = memline.Shared
		entry.Sharers = memnode.NewNodeSet(id)
	case memline.Shared:
		if data, ok := c.l2LocalCopy(p.Address); ok {
			if p.Data != nil {
				copy(p.Data, data)
			}
		} else {
			data := c.l2Fetch(p.Address, false, delay, timestamp)
			if p.Data != nil {
				copy(p.Data, data)
			}
		}
		entry.Sharers.Add(id)
	case memline.Modified:
		oldOwner := entry.Owner
		fwd := &memnode.Payload{Command: memnode.FwdGetS, Address: p.Address, Length: uint64(c.cfg.LineSize), Data: make([]byte, c.cfg.LineSize), TargetIDs: memnode.NewNodeSet(oldOwner), InitiatorID: c.cfg.ID}
		c.sendUp(fwd, delay, timestamp)
		c.stats.CountFwdGetS++
		c.l2InstallLocal(p.Address, fwd.Data, memline.Shared)
		if p.Data != nil {
			copy(p.Data, fwd.Data)
		}
		entry.State = memline.Shared
		entry.Owner = memnode.NodeNone
		entry.Sharers = memnode.NewNodeSet(id, oldOwner)
	}
}

func (c *Controller) l2GetM(entry *directory.Entry, p *memnode.Payload, id memnode.NodeId, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	switch entry.State {
	case memline.Invalid:
		data := c.l2Fetch(p.Address, true, delay, timestamp)
		if p.Data != nil {
			copy(p.Data, data)
		}
		entry.State = memline.Modified
		entry.Owner = id
		entry.Sharers = memnode.NewNodeSet()
	case memline.Shared:
		for _, sharer := range entry.Sharers.Clone().Slice() {
			if sharer == id {
				continue
			}
			inv := &memnode.Payload{Command: memnode.PutI, Address: p.Address, TargetIDs: memnode.NewNodeSet(sharer), InitiatorID: c.cfg.ID}
			c.sendUp(inv, delay, timestamp)
			c.stats.CountPutI++
		}
		data, ok := c.l2LocalCopy(p.Address)
		if !ok {
			data = c.l2Fetch(p.Address, true, delay, timestamp)
		}
		if p.Data != nil {
			copy(p.Data, data)
		}
		entry.State = memline.Modified
		entry.Owner = id
		entry.Sharers = memnode.NewNodeSet()
	case memline.Modified:
		if entry.Owner == id {
			return
		}
		fwd := &memnode.Payload{Command: memnode.FwdGetM, Address: p.Address, Length: uint64(c.cfg.LineSize), Data: make([]byte, c.cfg.LineSize), TargetIDs: memnode.NewNodeSet(entry.Owner), InitiatorID: c.cfg.ID}
		c.sendUp(fwd, delay, timestamp)
		c.stats.CountFwdGetM++
		if p.Data != nil {
			copy(p.Data, fwd.Data)
		}
		entry.Owner = id
	}
}

// l2FromBelow handles FwdGetS/FwdGetM arriving from the real home: the L2
// must locate whichever of its L1 children (or its own local copy) holds
// the line and supply the data, then reflect the resulting state in both
// its local directory and its own cache slot.
func (c *Controller) l2FromBelow(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	entry, ok := c.dirPeekOrFatal(p)
	if !ok {
		return memnode.GenericError
	}
	switch p.Command {
	case memnode.FwdGetS:
		c.stats.CountFwdGetS++
		if entry.Owner != memnode.NodeNone {
			fwd := &memnode.Payload{Command: memnode.FwdGetS, Address: p.Address, Length: uint64(c.cfg.LineSize), Data: make([]byte, c.cfg.LineSize), TargetIDs: memnode.NewNodeSet(entry.Owner), InitiatorID: c.cfg.ID}
			c.sendUp(fwd, delay, timestamp)
			if p.Data != nil {
				copy(p.Data, fwd.Data)
			}
			c.l2InstallLocal(p.Address, fwd.Data, memline.Shared)
			entry.Sharers = memnode.NewNodeSet(entry.Owner)
			entry.Owner = memnode.NodeNone
			entry.State = memline.Shared
		} else if data, ok := c.l2LocalCopy(p.Address); ok {
			if p.Data != nil {
				copy(p.Data, data)
			}
		}
	case memnode.FwdGetM:
		c.stats.CountFwdGetM++
		owner := entry.Owner
		if owner == memnode.NodeNone {
			for _, s := range entry.Sharers.Slice() {
				owner = s
				break
			}
		}
		if owner != memnode.NodeNone {
			fwd := &memnode.Payload{Command: memnode.FwdGetM, Address: p.Address, Length: uint64(c.cfg.LineSize), Data: make([]byte, c.cfg.LineSize), TargetIDs: memnode.NewNodeSet(owner), InitiatorID: c.cfg.ID}
			c.sendUp(fwd, delay, timestamp)
			if p.Data != nil {
				copy(p.Data, fwd.Data)
			}
		}
		for _, s := range entry.Sharers.Clone().Slice() {
			if s == owner {
				continue
			}
			inv := &memnode.Payload{Command: memnode.PutI, Address: p.Address, TargetIDs: memnode.NewNodeSet(s), InitiatorID: c.cfg.ID}
			c.sendUp(inv, delay, timestamp)
		}
		entry.State = memline.Invalid
		entry.Owner = memnode.NodeNone
		entry.Sharers = memnode.NewNodeSet()
		tag, index, _ := c.split(p.Address)
		if found, line := c.setFor(index).Access(tag); found {
			c.setFor(index).Invalidate(line)
			_ = line
		}
	}
	p.Status = memnode.OK
	return memnode.OK
}

func (c *Controller) dirPeekOrFatal(p *memnode.Payload) (*directory.Entry, bool) {
	entry, ok := c.dir.Peek(p.Address)
	if !ok {
		fatal(c.cfg.ID, p.Address, p.Command, memline.Invalid, "forward arrived for an address with no local directory entry")
		return nil, false
	}
	return entry, true
}

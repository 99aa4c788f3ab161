package cachectl

import (
	"github.com/sarchlab/vpsim/directory"
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// transportHome implements the Home/LLC (directory) engine of §4.2.4: it
// handles all coherence commands authoritatively. On every request naming
// an address, the directory entry is created if absent (directory.Table
// does this lazily), then one of the GetS/GetM/PutS/PutM/PutI branches
// executes.
func (c *Controller) transportHome(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	id := p.RequesterID
	if id == memnode.NodeNone {
		id = p.InitiatorID
	}
	entry := c.dir.Lookup(p.Address)

	switch p.Command {
	case memnode.GetS:
		c.stats.CountGetS++
		c.homeGetS(entry, p, id, delay, timestamp)
	case memnode.GetM:
		c.stats.CountGetM++
		c.homeGetM(entry, p, id, delay, timestamp)
	case memnode.PutS:
		c.stats.CountPutS++
		c.homePutS(entry, p, id, delay, timestamp)
	case memnode.PutM:
		c.stats.CountPutM++
		c.homePutM(entry, p, id, delay, timestamp)
	case memnode.PutI:
		c.stats.CountPutI++
		c.homePutI(entry, p, delay, timestamp)
	default:
		p.Status = memnode.CommandError
		return memnode.CommandError
	}
	if err := entry.Validate(); err != nil {
		fatal(c.cfg.ID, p.Address, p.Command, entry.State, err.Error())
	}
	p.Status = memnode.OK
	return memnode.OK
}

// homeForwardRead fetches a line's current contents from the memory-mapped
// backing store below the home (§4.2.4's "fetch from memory").
func (c *Controller) homeForwardRead(addr memnode.Address, delay *memnode.Timestamp, timestamp memnode.Timestamp) []byte {
	buf := make([]byte, c.cfg.LineSize)
	req := &memnode.Payload{Command: memnode.Read, Address: addr, Length: uint64(c.cfg.LineSize), Data: buf, InitiatorID: c.cfg.ID}
	c.sendDown(req, delay, timestamp)
	return buf
}

func (c *Controller) homeExclusiveHigher() bool { return c.cfg.InclusionOfHigher == Exclusive }

// homeGetS implements §4.2.4 GetS.
func (c *Controller) homeGetS(entry *directory.Entry, p *memnode.Payload, id memnode.NodeId, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	switch entry.State {
	case memline.Invalid:
		data := c.homeForwardRead(p.Address, delay, timestamp)
		if p.Data != nil {
			copy(p.Data, data)
		}
		entry.State = memline.Shared
		entry.Owner = memnode.NodeNone
		entry.Sharers = memnode.NewNodeSet(id)

	case memline.Shared:
		// Serve from local cache/memory; no live owner to snoop.
		data := c.homeLocalOrFetch(p.Address, delay, timestamp)
		if p.Data != nil {
			copy(p.Data, data)
		}
		entry.Sharers.Add(id)

	case memline.Modified:
		oldOwner := entry.Owner
		fwd := &memnode.Payload{Command: memnode.FwdGetS, Address: p.Address, Length: uint64(c.cfg.LineSize), Data: make([]byte, c.cfg.LineSize), TargetIDs: memnode.NewNodeSet(oldOwner), InitiatorID: c.cfg.ID}
		c.sendUp(fwd, delay, timestamp)
		c.stats.CountFwdGetS++
		if p.Data != nil {
			copy(p.Data, fwd.Data)
		}
		entry.State = memline.Shared
		entry.Owner = memnode.NodeNone
		entry.Sharers = memnode.NewNodeSet(id, oldOwner)
	}
}

// homeGetM implements §4.2.4 GetM.
func (c *Controller) homeGetM(entry *directory.Entry, p *memnode.Payload, id memnode.NodeId, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	switch entry.State {
	case memline.Invalid:
		data := c.homeForwardRead(p.Address, delay, timestamp)
		if p.Data != nil {
			copy(p.Data, data)
		}
		entry.State = memline.Modified
		entry.Owner = id
		entry.Sharers = memnode.NewNodeSet()

	case memline.Shared:
		data := c.homeLocalOrFetch(p.Address, delay, timestamp)
		for _, sharer := range entry.Sharers.Clone().Slice() {
			if sharer == id {
				continue
			}
			inv := &memnode.Payload{Command: memnode.PutI, Address: p.Address, TargetIDs: memnode.NewNodeSet(sharer), InitiatorID: c.cfg.ID}
			c.sendUp(inv, delay, timestamp)
			c.stats.CountPutI++
		}
		if p.Data != nil {
			copy(p.Data, data)
		}
		entry.State = memline.Modified
		entry.Owner = id
		entry.Sharers = memnode.NewNodeSet()

	case memline.Modified:
		if entry.Owner == id {
			// A GetM from the current owner is a no-op at the directory
			// (§8 Boundary behaviors).
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

// homePutS implements §4.2.4 PutS.
func (c *Controller) homePutS(entry *directory.Entry, p *memnode.Payload, id memnode.NodeId, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	if entry.State != memline.Shared {
		return
	}
	entry.Sharers.Remove(id)
	if len(entry.Sharers) == 0 {
		if !c.homeCachesLocally(p.Address) {
			fwd := &memnode.Payload{Command: memnode.PutS, Address: p.Address, InitiatorID: c.cfg.ID}
			c.sendDown(fwd, delay, timestamp)
		}
		entry.State = memline.Invalid
		entry.Owner = memnode.NodeNone
	}
}

// homePutM implements §4.2.4 PutM: asserts owner == id, entry -> Invalid,
// and the line data becomes the authoritative (local or backing) copy.
func (c *Controller) homePutM(entry *directory.Entry, p *memnode.Payload, id memnode.NodeId, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	if entry.State != memline.Modified || entry.Owner != id {
		fatal(c.cfg.ID, p.Address, p.Command, entry.State, "PutM from a non-owner")
	}
	c.installHomeLine(p.Address, p.Data)
	if !c.homeCachesLocally(p.Address) {
		wb := &memnode.Payload{Command: memnode.Write, Address: p.Address, Length: uint64(c.cfg.LineSize), Data: p.Data, InitiatorID: c.cfg.ID}
		c.sendDown(wb, delay, timestamp)
	}
	entry.State = memline.Invalid
	entry.Owner = memnode.NodeNone
}

// homePutI implements §4.2.4 PutI: sharers are invalidated via SendPutI.
func (c *Controller) homePutI(entry *directory.Entry, p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) {
	for _, sharer := range entry.Sharers.Clone().Slice() {
		inv := &memnode.Payload{Command: memnode.PutI, Address: p.Address, TargetIDs: memnode.NewNodeSet(sharer), InitiatorID: c.cfg.ID}
		c.sendUp(inv, delay, timestamp)
		c.stats.CountPutI++
	}
	if entry.State == memline.Modified && entry.Owner != memnode.NodeNone {
		inv := &memnode.Payload{Command: memnode.PutI, Address: p.Address, TargetIDs: memnode.NewNodeSet(entry.Owner), InitiatorID: c.cfg.ID}
		c.sendUp(inv, delay, timestamp)
		c.stats.CountPutI++
	}
	entry.State = memline.Invalid
	entry.Owner = memnode.NodeNone
	entry.Sharers = memnode.NewNodeSet()
}

// homeCachesLocally reports whether this home keeps its own data slot for
// addr, i.e. it is not operating as a cache-less directory-plus-forwarder
// (§4.2.4: "In exclusive-with-higher caches, GetS/GetM on a miss do not
// allocate a local slot").
func (c *Controller) homeCachesLocally(addr memnode.Address) bool {
	return !c.homeExclusiveHigher()
}

// homeLocalOrFetch returns the home's own cached copy of the line if it
// keeps one, otherwise re-fetches from the backing store.
func (c *Controller) homeLocalOrFetch(addr memnode.Address, delay *memnode.Timestamp, timestamp memnode.Timestamp) []byte {
	if !c.homeCachesLocally(addr) {
		return c.homeForwardRead(addr, delay, timestamp)
	}
	tag, index, _ := c.split(addr)
	set := c.setFor(index)
	found, line := set.Access(tag)
	if found {
		return copyFromLine(line, 0, c.cfg.LineSize)
	}
	data := c.homeForwardRead(addr, delay, timestamp)
	base := c.lineBaseAddress(tag, index)
	set.SetNewLine(line, base, tag, memline.Shared)
	copy(line.Data, data)
	return data
}

// installHomeLine writes a dirty writeback into the home's own cache slot
// (if it keeps one) so subsequent GetS/GetM are served without re-fetching.
func (c *Controller) installHomeLine(addr memnode.Address, data []byte) {
	if !c.homeCachesLocally(addr) {
		return
	}
	tag, index, _ := c.split(addr)
	set := c.setFor(index)
	_, line := set.Access(tag)
	base := c.lineBaseAddress(tag, index)
	set.SetNewLine(line, base, tag, memline.Modified)
	copyIntoLine(line, 0, data)
}

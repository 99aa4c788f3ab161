package cachectl

import (
	"fmt"

	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

// ProtocolError reports a fatal MSI protocol violation (§4.2.5, §7 kind 3):
// an illegal incoming state that a correct upstream never produces. The
// core does not retry or recover from these; the caller is expected to let
// the panic propagate and abort the simulation with this diagnostic.
type ProtocolError struct {
	Cache   memnode.NodeId
	Address memnode.Address
	Command memnode.Command
	State   memline.State
	Reason  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation at cache %v, addr %#x, command %s, state %s: %s",
		e.Cache, uint64(e.Address), e.Command, e.State, e.Reason)
}

// fatal raises a ProtocolError. The memory core has no retry loops; a
// correct upstream never triggers this, so the implementation asserts
// early rather than continuing with corrupt state (§4.2.5, §7).
func fatal(cache memnode.NodeId, addr memnode.Address, cmd memnode.Command, state memline.State, reason string) {
	panic(&ProtocolError{Cache: cache, Address: addr, Command: cmd, State: state, Reason: reason})
}

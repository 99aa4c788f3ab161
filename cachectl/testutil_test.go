package cachectl_test

import (
	"github.com/sarchlab/vpsim/memnode"
)

// recordingPort counts calls by command and optionally backs them with a
// flat byte slab, standing in for a backing store or an upper-level cache
// in tests that only care about what crossed the port, not how the far
// side actually implements coherence.
type recordingPort struct {
	calls []memnode.Payload
	mem   map[memnode.Address][]byte
	resp  func(p *memnode.Payload)
}

func newRecordingPort() *recordingPort {
	return &recordingPort{mem: make(map[memnode.Address][]byte)}
}

func (r *recordingPort) Transport(p *memnode.Payload, delay *memnode.Timestamp, timestamp memnode.Timestamp) memnode.Status {
	r.calls = append(r.calls, *p)
	if r.resp != nil {
		r.resp(p)
	}
	if p.Data != nil {
		switch p.Command {
		case memnode.Write, memnode.PutM, memnode.Evict:
			buf := make([]byte, len(p.Data))
			copy(buf, p.Data)
			r.mem[p.Address] = buf
		case memnode.Read, memnode.GetS, memnode.GetM, memnode.FwdGetS, memnode.FwdGetM:
			if existing, ok := r.mem[p.Address]; ok {
				copy(p.Data, existing)
			}
		}
	}
	p.Status = memnode.OK
	return memnode.OK
}

func (r *recordingPort) countOf(cmd memnode.Command) int {
	n := 0
	for _, c := range r.calls {
		if c.Command == cmd {
			n++
		}
	}
	return n
}

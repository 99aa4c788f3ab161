package cachectl_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

func l1Config() cachectl.Config {
	return cachectl.Config{
		ID:                1,
		LineSize:          64,
		TotalSize:         64,
		Associativity:     1,
		ReplacementPolicy: memline.LRU,
		WritePolicy:       cachectl.WriteBack,
		AllocationPolicy:  cachectl.WriteAllocate,
		IsCoherent:        true,
		IsHome:            false,
		Level:             cachectl.L1,
		DataSupport:       true,
	}
}

var _ = Describe("Private (L1) engine", func() {
	var home *recordingPort
	var l1 *cachectl.Controller

	BeforeEach(func() {
		home = newRecordingPort()
		l1 = cachectl.New(l1Config(), home, nil)
	})

	It("sends GetS on a cold read miss and installs the line Shared", func() {
		var delay memnode.Timestamp
		p := &memnode.Payload{Command: memnode.Read, Address: 0x100, Length: 8, Data: make([]byte, 8)}
		status := l1.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(home.countOf(memnode.GetS)).To(Equal(1))
		Expect(l1.Stats().CountGetS).To(Equal(uint64(1)))
		Expect(l1.Stats().Misses).To(Equal(uint64(1)))
	})

	It("sends GetM on a cold write miss and installs the line Modified", func() {
		var delay memnode.Timestamp
		p := &memnode.Payload{Command: memnode.Write, Address: 0x200, Length: 8, Data: []byte("aaaaaaaa")}
		l1.Transport(p, &delay, 0)
		Expect(home.countOf(memnode.GetM)).To(Equal(1))

		// A subsequent write hit on the now-Modified line needs no upgrade.
		l1.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x200, Length: 8, Data: []byte("bbbbbbbb")}, &delay, 0)
		Expect(home.countOf(memnode.GetM)).To(Equal(1))
		Expect(l1.Stats().Hits).To(Equal(uint64(1)))
	})

	It("upgrades a Shared line to Modified via GetM on a write", func() {
		var delay memnode.Timestamp
		l1.Transport(&memnode.Payload{Command: memnode.Read, Address: 0x300, Length: 8, Data: make([]byte, 8)}, &delay, 0)
		Expect(home.countOf(memnode.GetS)).To(Equal(1))

		l1.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x300, Length: 8, Data: []byte("aaaaaaaa")}, &delay, 0)
		Expect(home.countOf(memnode.GetM)).To(Equal(1))
	})

	It("evicts via PutM with data when a dirty line is replaced", func() {
		var delay memnode.Timestamp
		l1.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x400, Length: 8, Data: []byte("aaaaaaaa")}, &delay, 0)

		// A conflicting address (single-way, single-set cache) forces a
		// replacement of the dirty line just installed.
		l1.Transport(&memnode.Payload{Command: memnode.Read, Address: 0x40000, Length: 8, Data: make([]byte, 8)}, &delay, 0)

		Expect(home.countOf(memnode.PutM)).To(Equal(1))
		Expect(l1.Stats().WriteBacks).To(Equal(uint64(1)))
	})

	It("responds to a FwdGetS snoop by supplying data and demoting to Shared", func() {
		var delay memnode.Timestamp
		l1.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x500, Length: 8, Data: []byte("aaaaaaaa")}, &delay, 0)

		snoop := &memnode.Payload{Command: memnode.FwdGetS, Address: 0x500, Data: make([]byte, 64)}
		status := l1.Transport(snoop, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(l1.Stats().CountFwdGetS).To(Equal(uint64(1)))
		Expect(snoop.Data[:8]).To(Equal([]byte("aaaaaaaa")))
	})

	It("responds to a FwdGetM snoop by supplying data and invalidating", func() {
		var delay memnode.Timestamp
		l1.Transport(&memnode.Payload{Command: memnode.Write, Address: 0x600, Length: 8, Data: []byte("aaaaaaaa")}, &delay, 0)

		snoop := &memnode.Payload{Command: memnode.FwdGetM, Address: 0x600, Data: make([]byte, 64)}
		l1.Transport(snoop, &delay, 0)
		Expect(l1.Stats().CountFwdGetM).To(Equal(uint64(1)))

		// The line is now Invalid, so the next access is a cold miss again.
		l1.Transport(&memnode.Payload{Command: memnode.Read, Address: 0x600, Length: 8, Data: make([]byte, 8)}, &delay, 0)
		Expect(home.countOf(memnode.GetS)).To(Equal(1))
	})

	It("invalidates on PutI", func() {
		var delay memnode.Timestamp
		l1.Transport(&memnode.Payload{Command: memnode.Read, Address: 0x700, Length: 8, Data: make([]byte, 8)}, &delay, 0)

		status := l1.Transport(&memnode.Payload{Command: memnode.PutI, Address: 0x700}, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(l1.Stats().CountPutI).To(Equal(uint64(1)))
	})
})

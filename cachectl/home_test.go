package cachectl_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/memline"
	"github.com/sarchlab/vpsim/memnode"
)

func homeConfig() cachectl.Config {
	return cachectl.Config{
		ID:                99,
		LineSize:          64,
		TotalSize:         64,
		Associativity:     1,
		ReplacementPolicy: memline.LRU,
		WritePolicy:       cachectl.WriteBack,
		AllocationPolicy:  cachectl.WriteAllocate,
		IsCoherent:        true,
		IsHome:            true,
		Level:             cachectl.LLC,
		DataSupport:       true,
	}
}

var _ = Describe("Home engine", func() {
	var backing, cacheSide *recordingPort
	var home *cachectl.Controller

	BeforeEach(func() {
		backing = newRecordingPort()
		cacheSide = newRecordingPort()
		home = cachectl.New(homeConfig(), backing, cacheSide)
	})

	It("serves a GetS from Invalid by fetching from the backing store", func() {
		var delay memnode.Timestamp
		p := &memnode.Payload{Command: memnode.GetS, Address: 0x1000, RequesterID: 1, Data: make([]byte, 64)}
		status := home.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(backing.countOf(memnode.Read)).To(Equal(1))
	})

	It("serves a GetM from Invalid with no sharers afterward", func() {
		var delay memnode.Timestamp
		p := &memnode.Payload{Command: memnode.GetM, Address: 0x2000, RequesterID: 1, Data: make([]byte, 64)}
		status := home.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(backing.countOf(memnode.Read)).To(Equal(1))
	})

	It("forwards GetS to the current owner when the line is Modified", func() {
		var delay memnode.Timestamp
		home.Transport(&memnode.Payload{Command: memnode.GetM, Address: 0x3000, RequesterID: 1, Data: make([]byte, 64)}, &delay, 0)

		p := &memnode.Payload{Command: memnode.GetS, Address: 0x3000, RequesterID: 2, Data: make([]byte, 64)}
		status := home.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(cacheSide.countOf(memnode.FwdGetS)).To(Equal(1))
		Expect(home.Stats().CountFwdGetS).To(Equal(uint64(1)))
	})

	It("forwards GetM and transfers ownership when another requester already holds Modified", func() {
		var delay memnode.Timestamp
		home.Transport(&memnode.Payload{Command: memnode.GetM, Address: 0x4000, RequesterID: 1, Data: make([]byte, 64)}, &delay, 0)

		p := &memnode.Payload{Command: memnode.GetM, Address: 0x4000, RequesterID: 2, Data: make([]byte, 64)}
		status := home.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(cacheSide.countOf(memnode.FwdGetM)).To(Equal(1))
	})

	It("treats a GetM from the current owner as a no-op", func() {
		var delay memnode.Timestamp
		home.Transport(&memnode.Payload{Command: memnode.GetM, Address: 0x5000, RequesterID: 1, Data: make([]byte, 64)}, &delay, 0)

		p := &memnode.Payload{Command: memnode.GetM, Address: 0x5000, RequesterID: 1, Data: make([]byte, 64)}
		status := home.Transport(p, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(cacheSide.countOf(memnode.FwdGetM)).To(Equal(0))
	})

	It("invalidates remaining sharers on PutI and resets the directory entry", func() {
		var delay memnode.Timestamp
		home.Transport(&memnode.Payload{Command: memnode.GetS, Address: 0x6000, RequesterID: 1, Data: make([]byte, 64)}, &delay, 0)
		home.Transport(&memnode.Payload{Command: memnode.GetS, Address: 0x6000, RequesterID: 2, Data: make([]byte, 64)}, &delay, 0)

		status := home.Transport(&memnode.Payload{Command: memnode.PutI, Address: 0x6000, RequesterID: 1}, &delay, 0)
		Expect(status).To(Equal(memnode.OK))
		Expect(cacheSide.countOf(memnode.PutI)).To(Equal(2))
	})
})

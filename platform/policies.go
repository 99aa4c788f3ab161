package platform

import (
	"fmt"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/memline"
)

func parseReplPolicy(s string) (memline.ReplacementPolicy, error) {
	switch s {
	case "", "LRU":
		return memline.LRU, nil
	case "MRU":
		return memline.MRU, nil
	case "FIFO":
		return memline.FIFO, nil
	default:
		return 0, fmt.Errorf("unknown repl_policy %q", s)
	}
}

func parseWritePolicy(s string) (cachectl.WritePolicy, error) {
	switch s {
	case "", "WBack":
		return cachectl.WriteBack, nil
	case "WThrough":
		return cachectl.WriteThrough, nil
	default:
		return 0, fmt.Errorf("unknown writing_policy %q", s)
	}
}

func parseAllocationPolicy(s string) (cachectl.AllocationPolicy, error) {
	switch s {
	case "", "WAllocate":
		return cachectl.WriteAllocate, nil
	case "WAround":
		return cachectl.WriteAround, nil
	default:
		return 0, fmt.Errorf("unknown allocation_policy %q", s)
	}
}

func parseInclusionPolicy(s string) (cachectl.InclusionPolicy, error) {
	switch s {
	case "", "NINE":
		return cachectl.NINE, nil
	case "Inclusive":
		return cachectl.Inclusive, nil
	case "Exclusive":
		return cachectl.Exclusive, nil
	default:
		return 0, fmt.Errorf("unknown inclusion policy %q", s)
	}
}

func parseLevel(s string) (cachectl.Level, error) {
	switch s {
	case "1", "":
		return cachectl.L1, nil
	case "2":
		return cachectl.L2, nil
	case "LLC":
		return cachectl.LLC, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

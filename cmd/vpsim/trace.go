package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/vpsim/memnode"
)

// traceOp is one line of a recorded memory trace: an initiator cache name,
// a Read or Write, an address, and a length in bytes.
type traceOp struct {
	Cache   string
	Command memnode.Command
	Address memnode.Address
	Length  uint64
}

// loadTrace parses a plain-text trace: one "<cache> R|W <hex-address>
// <length>" operation per line, blank lines and lines starting with '#'
// ignored.
func loadTrace(path string) ([]traceOp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer f.Close()

	var ops []traceOp
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("trace:%d: expected 4 fields, got %d", lineNo, len(fields))
		}
		var cmd memnode.Command
		switch strings.ToUpper(fields[1]) {
		case "R":
			cmd = memnode.Read
		case "W":
			cmd = memnode.Write
		default:
			return nil, fmt.Errorf("trace:%d: unknown op %q", lineNo, fields[1])
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("trace:%d: bad address: %w", lineNo, err)
		}
		length, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace:%d: bad length: %w", lineNo, err)
		}
		ops = append(ops, traceOp{Cache: fields[0], Command: cmd, Address: memnode.Address(addr), Length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return ops, nil
}

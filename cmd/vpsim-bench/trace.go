package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/vpsim/memnode"
)

type traceOp struct {
	cache   string
	command memnode.Command
	address memnode.Address
	length  uint64
}

// loadTrace parses the same plain-text trace format cmd/vpsim uses: one
// "<cache> R|W <hex-address> <length>" operation per line.
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
		ops = append(ops, traceOp{cache: fields[0], command: cmd, address: memnode.Address(addr), length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return ops, nil
}

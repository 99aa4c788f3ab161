// Package main provides a banner entry point for vpsim.
// vpsim is a configurable multi-level cache timing core with full MSI
// directory coherence and a mesh NoC timing model.
//
// For the full CLI, use: go run ./cmd/vpsim
package main

import "fmt"

func main() {
	fmt.Println("vpsim - memory-hierarchy timing core")
	fmt.Println("")
	fmt.Println("Usage: vpsim run --config <platform.yaml> --trace <trace.txt>")
	fmt.Println("       vpsim stats --report <report.yaml>")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/vpsim' for the full CLI.")
}

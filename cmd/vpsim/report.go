package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/vpsim/cachectl"
	"github.com/sarchlab/vpsim/coherentfabric"
	"gopkg.in/yaml.v3"
)

// runReport is the serialized record a "run" leaves behind for a later
// "stats" invocation to print, the same Load/Save round-trip shape as
// internal/config.Platform.
type runReport struct {
	TotalDelayNs  int64                          `yaml:"total_delay_ns"`
	Caches        map[string]cachectl.Statistics `yaml:"caches"`
	Interconnect  coherentfabric.Stats           `yaml:"interconnect"`
}

func saveReport(path string, r *runReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

func loadReport(path string) (*runReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	var r runReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: parse %s: %w", path, err)
	}
	return &r, nil
}

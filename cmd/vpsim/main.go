// Command vpsim elaborates a cache-hierarchy/mesh platform from a YAML
// description and replays a recorded memory trace against it, reporting
// the per-cache and per-interconnect statistics of §6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vpsim/internal/config"
	"github.com/sarchlab/vpsim/memnode"
	"github.com/sarchlab/vpsim/platform"
	"github.com/sarchlab/vpsim/telemetry"
)

var (
	configPath string
	tracePath  string
	reportPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "vpsim",
	Short: "Memory-hierarchy timing core for a virtual-platform simulator",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Elaborate a platform and replay a memory trace against it",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPlatform(configPath, tracePath, reportPath)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a previously saved run report",
	RunE: func(_ *cobra.Command, _ []string) error {
		report, err := loadReport(reportPath)
		if err != nil {
			return err
		}
		printReport(os.Stdout, report)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the platform YAML description (required)")
	runCmd.Flags().StringVarP(&tracePath, "trace", "t", "", "path to the memory trace file (required)")
	runCmd.Flags().StringVarP(&reportPath, "report", "r", "", "path to write the run report (optional)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	runCmd.MarkFlagRequired("config")
	runCmd.MarkFlagRequired("trace")

	statsCmd.Flags().StringVarP(&reportPath, "report", "r", "", "path to a run report produced by \"run --report\" (required)")
	statsCmd.MarkFlagRequired("report")

	rootCmd.AddCommand(runCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func runPlatform(configPath, tracePath, reportPath string) error {
	log, err := telemetry.NewLogger(logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	p, err := platform.Elaborate(cfg)
	if err != nil {
		return fmt.Errorf("elaborate: %w", err)
	}
	log.Infow("elaborated platform", "caches", len(p.Caches), "memory_controllers", len(p.Backing))

	ops, err := loadTrace(tracePath)
	if err != nil {
		return err
	}

	var total memnode.Timestamp
	for i, op := range ops {
		ctl, ok := p.Caches[op.Cache]
		if !ok {
			return fmt.Errorf("trace op %d: unknown cache %q", i, op.Cache)
		}
		payload := &memnode.Payload{
			Command:     op.Command,
			Address:     op.Address,
			Length:      op.Length,
			Data:        make([]byte, op.Length),
			InitiatorID: ctl.Config().ID,
			RequesterID: ctl.Config().ID,
		}
		var delay memnode.Timestamp
		status := ctl.Transport(payload, &delay, total)
		total += delay
		if status != memnode.OK {
			log.Warnw("trace op failed", "index", i, "cache", op.Cache, "status", status.String())
		}
	}
	p.Flush()

	report := &runReport{
		TotalDelayNs: int64(total),
		Caches:       p.Stats(),
		Interconnect: p.InterconnectStats(),
	}

	printReport(os.Stdout, report)

	if reportPath != "" {
		if err := saveReport(reportPath, report); err != nil {
			return err
		}
	}
	return nil
}

func printReport(w *os.File, r *runReport) {
	fmt.Fprintf(w, "total_delay_ns=%d\n", r.TotalDelayNs)
	for name, s := range r.Caches {
		telemetry.WriteCacheReport(w, name, s)
	}
	telemetry.WriteInterconnectReport(w, r.Interconnect)
}

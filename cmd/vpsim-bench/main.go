// Command vpsim-bench replays a batch of independent (platform config,
// trace) pairs concurrently, each owning its own platform.Platform instance
// (SPEC_FULL.md §2: a Platform is not safe for concurrent use by itself,
// but independent instances replay in parallel without coordination).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/vpsim/internal/config"
	"github.com/sarchlab/vpsim/memnode"
	"github.com/sarchlab/vpsim/platform"
)

// job is one platform/trace pair, given as "config.yaml=trace.txt".
type job struct {
	configPath string
	tracePath  string
}

func parseJobs(spec string) ([]job, error) {
	var jobs []job
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			return nil, fmt.Errorf("job %q: expected config.yaml=trace.txt", part)
		}
		jobs = append(jobs, job{configPath: pair[0], tracePath: pair[1]})
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs given")
	}
	return jobs, nil
}

func runJob(j job) (memnode.Timestamp, error) {
	cfg, err := config.Load(j.configPath)
	if err != nil {
		return 0, err
	}
	p, err := platform.Elaborate(cfg)
	if err != nil {
		return 0, fmt.Errorf("elaborate %s: %w", j.configPath, err)
	}

	ops, err := loadTrace(j.tracePath)
	if err != nil {
		return 0, err
	}

	var total memnode.Timestamp
	for i, op := range ops {
		ctl, ok := p.Caches[op.cache]
		if !ok {
			return 0, fmt.Errorf("%s: trace op %d: unknown cache %q", j.tracePath, i, op.cache)
		}
		payload := &memnode.Payload{
			Command:     op.command,
			Address:     op.address,
			Length:      op.length,
			Data:        make([]byte, op.length),
			InitiatorID: ctl.Config().ID,
			RequesterID: ctl.Config().ID,
		}
		var delay memnode.Timestamp
		ctl.Transport(payload, &delay, total)
		total += delay
	}
	p.Flush()
	return total, nil
}

func main() {
	jobsSpec := flag.String("jobs", "", "comma-separated config.yaml=trace.txt pairs")
	flag.Parse()

	jobs, err := parseJobs(*jobsSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	totals := make([]memnode.Timestamp, len(jobs))
	var g errgroup.Group
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			total, err := runJob(j)
			if err != nil {
				return err
			}
			totals[i] = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	for i, j := range jobs {
		fmt.Printf("%s: total_delay_ns=%d\n", j.configPath, totals[i])
	}
}

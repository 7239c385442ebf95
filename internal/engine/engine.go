package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the runtime configuration for a probe run. Per-request
// knobs (timeout, pacing, user agent) live on the stage implementations.
type Config struct {
	InputFile   string
	Concurrency int
}

// Stages holds the injectable stage implementations for a probe run.
type Stages struct {
	Loader HostLoader
	Prober HostProber
}

// ProgressReporter is called by the engine to report progress.
type ProgressReporter interface {
	Stage(num, total int, msg string)
	Detail(msg string)
	Warn(msg string)
	StartBar(total int, label string)
	Tick()
	FinishBar()
}

const totalStages = 3

// Run executes the probe pipeline: load hosts, dispatch probes across
// the worker pool, summarize. Only load-time failures abort the run;
// per-host probe errors are warned and the batch continues.
func Run(ctx context.Context, cfg Config, stages Stages, progress ProgressReporter) (*RunResult, error) {
	result := &RunResult{
		InputFile: cfg.InputFile,
		StartedAt: time.Now(),
	}

	// Stage 1: load and normalize target hosts.
	progress.Stage(1, totalStages, fmt.Sprintf("Loading hosts from %s...", cfg.InputFile))
	hosts, err := stages.Loader.Load(cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("load hosts: %w", err)
	}
	result.Hosts = hosts
	progress.Detail(fmt.Sprintf("Loaded %d unique hosts", len(hosts)))

	// Stage 2: probe every host across the pool.
	progress.Stage(2, totalStages, fmt.Sprintf("Probing %d hosts (%d workers)...", len(hosts), cfg.Concurrency))
	progress.StartBar(len(hosts), "Probing hosts")

	hostErrors := 0
	results := ProbeAll(ctx, hosts, stages.Prober, cfg.Concurrency, func(oc HostOutcome) {
		progress.Tick()
		if oc.Err != nil {
			hostErrors++
			progress.Warn(fmt.Sprintf("%s: %s", oc.Host, oc.Err))
			return
		}
		if len(oc.Results) > 0 {
			progress.Detail(fmt.Sprintf("%s: %d URLs", oc.Host, len(oc.Results)))
		} else {
			progress.Detail(fmt.Sprintf("%s: no response", oc.Host))
		}
	})
	progress.FinishBar()
	result.Results = results

	if err := ctx.Err(); err != nil {
		slog.Debug("probe batch interrupted", "error", err)
	}

	// Stage 3: aggregate.
	progress.Stage(3, totalStages, "Summarizing results...")
	result.HostCounts, result.StatusCounts = Summarize(results)

	result.CompletedAt = time.Now()
	result.DurationSecs = result.CompletedAt.Sub(result.StartedAt).Seconds()
	result.Summary = buildRunSummary(result, hostErrors)

	return result, nil
}

func buildRunSummary(result *RunResult, hostErrors int) RunSummary {
	summary := RunSummary{
		HostsProbed:    len(result.Hosts),
		HostErrors:     hostErrors,
		URLsDiscovered: len(result.Results),
		HostsWithURLs:  len(result.HostCounts),
	}

	for status, n := range result.StatusCounts {
		if status >= 200 && status < 400 {
			summary.Successful += n
		}
	}

	for _, row := range SortedHostCounts(result.HostCounts) {
		summary.TopHost = row.Host
		summary.TopHostURLs = row.Count
		break
	}

	return summary
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulnverified/cubamap/internal/engine"
	"github.com/vulnverified/cubamap/internal/loader"
	"github.com/vulnverified/cubamap/internal/output"
	"github.com/vulnverified/cubamap/internal/probe"
	"github.com/vulnverified/cubamap/internal/wordlist"
)

func newProbeCmd() *cobra.Command {
	var (
		jsonOutput  bool
		noColor     bool
		silent      bool
		verbose     bool
		concurrency int
		timeout     time.Duration
		pacing      time.Duration
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "probe <hosts.csv>",
		Short: "Probe hosts for live URLs across the path list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Respect NO_COLOR env var.
			if _, ok := os.LookupEnv("NO_COLOR"); ok {
				noColor = true
			}
			setupLogging(verbose)

			ctx, cancel := signalContext()
			defer cancel()

			cfg := engine.Config{
				InputFile:   args[0],
				Concurrency: concurrency,
			}
			checker := probe.NewChecker(timeout, probe.DefaultUserAgent)
			stages := engine.Stages{
				Loader: loader.Loader{},
				Prober: probe.NewProber(checker, pacing, wordlist.ProbePaths()),
			}

			showProgress := !jsonOutput && !silent
			progress := output.NewProgress(os.Stderr, verbose, !showProgress)

			if showProgress {
				output.WriteHeader(os.Stderr, noColor)
			}

			result, err := engine.Run(ctx, cfg, stages, progress)
			if err != nil {
				return err
			}

			if showProgress {
				progress.Complete()
			}

			if jsonOutput {
				return output.WriteJSON(os.Stdout, result)
			}

			hostsPath, err := output.WriteHostList(outDir, result.StartedAt, result.Hosts)
			if err != nil {
				return fmt.Errorf("write host list: %w", err)
			}
			paths, err := output.WriteReports(outDir, result)
			if err != nil {
				return fmt.Errorf("write reports: %w", err)
			}

			output.WriteTable(os.Stdout, result, noColor)
			output.WriteRunSummary(os.Stdout, result, paths, hostsPath, noColor)

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output structured JSON to stdout, skip report files")
	cmd.Flags().IntVar(&concurrency, "concurrency", 10, "Max hosts probed at once")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")
	cmd.Flags().DurationVar(&pacing, "pacing", 100*time.Millisecond, "Delay between requests to one host")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", "discovery_results", "Directory for report files")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable terminal colors")
	cmd.Flags().BoolVar(&silent, "silent", false, "Results only, no progress")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose per-host progress")

	return cmd
}

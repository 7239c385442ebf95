package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulnverified/cubamap/internal/engine"
	"github.com/vulnverified/cubamap/internal/output"
	"github.com/vulnverified/cubamap/internal/recon"
)

// tldPause spaces out the crt.sh queries between TLDs; enumPause spaces
// out the wordlist runs between base domains.
const (
	tldPause  = 2 * time.Second
	enumPause = 1 * time.Second
)

func newDiscoverCmd() *cobra.Command {
	var (
		jsonOutput bool
		noColor    bool
		silent     bool
		verbose    bool
		axfr       bool
		tlds       []string
		outDir     string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Collect candidate domains from CT logs and passive DNS",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Respect NO_COLOR env var.
			if _, ok := os.LookupEnv("NO_COLOR"); ok {
				noColor = true
			}
			setupLogging(verbose)

			ctx, cancel := signalContext()
			defer cancel()

			userAgent := fmt.Sprintf("cubamap/%s (+https://github.com/vulnverified/cubamap)", version)

			showProgress := !jsonOutput && !silent
			progress := output.NewProgress(os.Stderr, verbose, !showProgress)

			resolver := recon.NewResolver()
			stages := engine.DiscoverStages{
				Collector: &recon.Collector{
					UserAgent: userAgent,
					Progress:  progress,
				},
				Enumerator: recon.NewEnumerator(resolver),
				Zone:       recon.NewZoneChecker(resolver),
			}

			cfg := engine.DiscoverConfig{
				TLDs:      tlds,
				AXFR:      axfr,
				TLDPause:  tldPause,
				EnumPause: enumPause,
			}

			if showProgress {
				output.WriteHeader(os.Stderr, noColor)
			}

			result, err := engine.Discover(ctx, cfg, stages, progress)
			if err != nil {
				return err
			}

			if showProgress {
				progress.Complete()
			}

			if jsonOutput {
				return output.WriteJSON(os.Stdout, result)
			}

			domainsPath, err := output.WriteDomainList(outDir, result.StartedAt, result.Domains)
			if err != nil {
				return fmt.Errorf("write domain list: %w", err)
			}
			var subsPath string
			if len(result.Subdomains) > 0 {
				subsPath, err = output.WriteSubdomainList(outDir, result.StartedAt, result.Subdomains)
				if err != nil {
					return fmt.Errorf("write subdomain list: %w", err)
				}
			}

			output.WriteDiscoverSummary(os.Stdout, result, domainsPath, subsPath, noColor)

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output structured JSON to stdout, skip report files")
	cmd.Flags().StringSliceVar(&tlds, "tld", []string{"gov.cu", "gob.cu"}, "TLD suffixes to search")
	cmd.Flags().BoolVar(&axfr, "axfr", false, "Attempt DNS zone transfers against base domains")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Directory for domain list files")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable terminal colors")
	cmd.Flags().BoolVar(&silent, "silent", false, "Results only, no progress")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose per-source progress")

	return cmd
}

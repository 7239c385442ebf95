package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vulnverified/cubamap/internal/output"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	output.Version = version

	rootCmd := &cobra.Command{
		Use:   "cubamap",
		Short: "Map Cuban government web infrastructure",
		Long: "Discovery and probing for the .gov.cu / .gob.cu web space: certificate transparency " +
			"and passive DNS collection, wordlist subdomain enumeration, and concurrent HTTP(S) " +
			"probing across a curated path list.",
	}

	rootCmd.AddCommand(newDiscoverCmd(), newProbeCmd())

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("cubamap {{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on the first Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

// setupLogging routes slog diagnostics to stderr. Absorbed per-attempt
// failures only surface at debug level.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vulnverified/cubamap/internal/engine"
)

// Version is set via ldflags at build time.
var Version = "dev"

// WriteHeader prints the cubamap banner.
func WriteHeader(w io.Writer, noColor bool) {
	if noColor {
		fmt.Fprintf(w, "cubamap %s — https://github.com/vulnverified/cubamap\n\n", Version)
	} else {
		fmt.Fprintf(w, "\033[1mcubamap %s\033[0m — https://github.com/vulnverified/cubamap\n\n", Version)
	}
}

// WriteRunSummary prints the post-probe summary and the report files written.
func WriteRunSummary(w io.Writer, result *engine.RunResult, paths *ReportPaths, hostsPath string, noColor bool) {
	s := result.Summary

	fmt.Fprintln(w)
	if s.URLsDiscovered == 0 {
		fmt.Fprintf(w, "No URLs discovered across %d hosts.\n", s.HostsProbed)
	} else if noColor {
		fmt.Fprintf(w, "Input: %s (%d hosts, %d errors)\n", result.InputFile, s.HostsProbed, s.HostErrors)
		fmt.Fprintf(w, "URLs discovered: %d across %d hosts\n", s.URLsDiscovered, s.HostsWithURLs)
		fmt.Fprintf(w, "Successful (2xx/3xx): %d\n", s.Successful)
		fmt.Fprintf(w, "Most productive: %s (%d URLs)\n", s.TopHost, s.TopHostURLs)
	} else {
		fmt.Fprintf(w, "\033[1mInput:\033[0m %s (%d hosts, %d errors)\n", result.InputFile, s.HostsProbed, s.HostErrors)
		fmt.Fprintf(w, "\033[1mURLs discovered:\033[0m %d across %d hosts\n", s.URLsDiscovered, s.HostsWithURLs)
		fmt.Fprintf(w, "\033[1mSuccessful (2xx/3xx):\033[0m %d\n", s.Successful)
		fmt.Fprintf(w, "\033[1mMost productive:\033[0m %s (%d URLs)\n", s.TopHost, s.TopHostURLs)
	}

	var files []string
	if hostsPath != "" {
		files = append(files, hostsPath)
	}
	if paths != nil {
		files = append(files, paths.Results)
		if paths.DomainSummary != "" {
			files = append(files, paths.DomainSummary, paths.StatusSummary)
		}
	}
	writeSavedFiles(w, files, noColor)
}

// WriteDiscoverSummary prints the post-discovery summary and the files written.
func WriteDiscoverSummary(w io.Writer, result *engine.DiscoverResult, domainsPath, subsPath string, noColor bool) {
	s := result.Summary

	fmt.Fprintln(w)
	if noColor {
		fmt.Fprintf(w, "TLDs: %s\n", strings.Join(result.TLDs, ", "))
		fmt.Fprintf(w, "Domains: %d discovered (%d base domains)\n", s.DomainsFound, s.BaseDomains)
		fmt.Fprintf(w, "Subdomains: %d resolved\n", s.SubdomainsFound)
	} else {
		fmt.Fprintf(w, "\033[1mTLDs:\033[0m %s\n", strings.Join(result.TLDs, ", "))
		fmt.Fprintf(w, "\033[1mDomains:\033[0m %d discovered (%d base domains)\n", s.DomainsFound, s.BaseDomains)
		fmt.Fprintf(w, "\033[1mSubdomains:\033[0m %d resolved\n", s.SubdomainsFound)
	}

	if s.ZoneTransferCount > 0 {
		fmt.Fprintln(w)
		vulnerableNS := 0
		for _, zt := range result.ZoneTransfers {
			if zt.Success {
				vulnerableNS++
			}
		}
		if noColor {
			fmt.Fprintf(w, "! Zone transfer enabled (%d of %d nameservers vulnerable)\n", vulnerableNS, len(result.ZoneTransfers))
		} else {
			fmt.Fprintf(w, "\033[33m!\033[0m Zone transfer enabled (%d of %d nameservers vulnerable)\n", vulnerableNS, len(result.ZoneTransfers))
		}
		for _, zt := range result.ZoneTransfers {
			if zt.Success {
				fmt.Fprintf(w, "  %s (%d records)\n", zt.Nameserver, zt.Records)
			}
		}
	}

	var files []string
	if domainsPath != "" {
		files = append(files, domainsPath)
	}
	if subsPath != "" {
		files = append(files, subsPath)
	}
	writeSavedFiles(w, files, noColor)
}

func writeSavedFiles(w io.Writer, files []string, noColor bool) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintln(w)
	if noColor {
		fmt.Fprintln(w, "Saved:")
	} else {
		fmt.Fprintln(w, "\033[1mSaved:\033[0m")
	}
	for _, f := range files {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/vulnverified/cubamap/internal/engine"
)

// fileTimestamp names report files after the run start time.
const fileTimestamp = "20060102_150405"

// ReportPaths lists the files a probe run produced. Summary paths are
// empty when the run discovered nothing.
type ReportPaths struct {
	Results       string
	DomainSummary string
	StatusSummary string
}

// WriteReports writes the probe result files under dir: the full URL
// list plus per-domain and per-status summaries. The URL list is always
// written, headers included, even when the run found nothing.
func WriteReports(dir string, result *engine.RunResult) (*ReportPaths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	stamp := result.StartedAt.Format(fileTimestamp)
	paths := &ReportPaths{
		Results: filepath.Join(dir, "discovered_urls_"+stamp+".csv"),
	}

	if err := writeCSV(paths.Results, &result.Results); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}
	if len(result.Results) == 0 {
		return paths, nil
	}

	base := strings.TrimSuffix(paths.Results, ".csv")

	paths.DomainSummary = base + "_domain_summary.csv"
	hostCounts := engine.SortedHostCounts(result.HostCounts)
	if err := writeCSV(paths.DomainSummary, &hostCounts); err != nil {
		return nil, fmt.Errorf("write domain summary: %w", err)
	}

	paths.StatusSummary = base + "_status_summary.csv"
	statusCounts := engine.SortedStatusCounts(result.StatusCounts)
	if err := writeCSV(paths.StatusSummary, &statusCounts); err != nil {
		return nil, fmt.Errorf("write status summary: %w", err)
	}

	return paths, nil
}

// WriteHostList writes the cleaned host list loaded from the input file,
// sorted, one "Domain" column.
func WriteHostList(dir string, started time.Time, hosts []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, "cleaned_domains_"+started.Format(fileTimestamp)+".csv")
	sorted := append([]string(nil), hosts...)
	sort.Strings(sorted)

	if err := writeSingleColumn(path, "Domain", sorted); err != nil {
		return "", fmt.Errorf("write host list: %w", err)
	}
	return path, nil
}

// WriteDomainList writes the discovered domain names, one "Domain" column.
func WriteDomainList(dir string, started time.Time, domains []engine.DomainRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	names := make([]string, 0, len(domains))
	for _, d := range domains {
		names = append(names, d.Name)
	}
	sort.Strings(names)

	path := filepath.Join(dir, "cuban_domains_"+started.Format(fileTimestamp)+".csv")
	if err := writeSingleColumn(path, "Domain", names); err != nil {
		return "", fmt.Errorf("write domain list: %w", err)
	}
	return path, nil
}

// WriteSubdomainList writes the resolved subdomain records.
func WriteSubdomainList(dir string, started time.Time, records []engine.SubdomainRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, "cuban_subdomains_"+started.Format(fileTimestamp)+".csv")
	if err := writeCSV(path, &records); err != nil {
		return "", fmt.Errorf("write subdomain list: %w", err)
	}
	return path, nil
}

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSingleColumn(path, header string, values []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.Write([]string{header})
	for _, v := range values {
		w.Write([]string{v})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

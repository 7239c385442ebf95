// Package engine orchestrates the cubamap discovery and probing pipelines.
package engine

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Timestamp is a time.Time that marshals as "2006-01-02 15:04:05" in both
// CSV and JSON output.
type Timestamp struct {
	time.Time
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp{Time: time.Now()}
}

// MarshalCSV implements the gocsv field marshaller.
func (t Timestamp) MarshalCSV() (string, error) {
	return t.Format(timestampLayout), nil
}

// UnmarshalCSV implements the gocsv field unmarshaller.
func (t *Timestamp) UnmarshalCSV(s string) error {
	parsed, err := time.Parse(timestampLayout, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(timestampLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(timestampLayout, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ProbeResult is one completed HTTP exchange against a candidate URL.
// Host is taken from the final URL after redirects, not the host the
// probe was dispatched for. Field order is the CSV column order.
type ProbeResult struct {
	Host          string    `json:"domain" csv:"domain"`
	URL           string    `json:"url" csv:"url"`
	StatusCode    int       `json:"status_code" csv:"status_code"`
	FinalURL      string    `json:"final_url" csv:"final_url"`
	Title         string    `json:"title,omitempty" csv:"title"`
	ContentLength int       `json:"content_length" csv:"content_length"`
	Server        string    `json:"server" csv:"server"`
	ContentType   string    `json:"content_type" csv:"content_type"`
	DiscoveredAt  Timestamp `json:"discovery_time" csv:"discovery_time"`
}

// HostOutcome pairs one dispatched host with everything its probe produced.
// Err is set when the probe task itself failed; Results is then empty.
type HostOutcome struct {
	Host    string
	Results []ProbeResult
	Err     error
}

// RunResult is the top-level output of a probe run.
type RunResult struct {
	InputFile    string         `json:"input_file"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at"`
	DurationSecs float64        `json:"duration_secs"`
	Hosts        []string       `json:"hosts"`
	Results      []ProbeResult  `json:"results"`
	HostCounts   map[string]int `json:"host_counts"`
	StatusCounts map[int]int    `json:"status_counts"`
	Summary      RunSummary     `json:"summary"`
}

// RunSummary provides aggregate counts for a probe run.
type RunSummary struct {
	HostsProbed    int    `json:"hosts_probed"`
	HostErrors     int    `json:"host_errors"`
	URLsDiscovered int    `json:"urls_discovered"`
	HostsWithURLs  int    `json:"hosts_with_urls"`
	Successful     int    `json:"successful_2xx_3xx"`
	TopHost        string `json:"top_host,omitempty"`
	TopHostURLs    int    `json:"top_host_urls,omitempty"`
}

// HostCount is one row of the host summary table.
type HostCount struct {
	Host  string `csv:"Domain"`
	Count int    `csv:"URLs_Discovered"`
}

// StatusCount is one row of the status code summary table.
type StatusCount struct {
	Status int `csv:"Status_Code"`
	Count  int `csv:"Count"`
}

// Summarize derives the two summary tables from a flat result set:
// resolved host -> result count and status code -> result count.
// Pure; empty or nil input yields two empty maps.
func Summarize(results []ProbeResult) (map[string]int, map[int]int) {
	hostCounts := make(map[string]int)
	statusCounts := make(map[int]int)
	for _, r := range results {
		hostCounts[r.Host]++
		statusCounts[r.StatusCode]++
	}
	return hostCounts, statusCounts
}

// SortedHostCounts flattens a host count map into rows sorted by count
// descending, then host ascending for deterministic output.
func SortedHostCounts(counts map[string]int) []HostCount {
	rows := make([]HostCount, 0, len(counts))
	for host, n := range counts {
		rows = append(rows, HostCount{Host: host, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Host < rows[j].Host
	})
	return rows
}

// SortedStatusCounts flattens a status count map into rows sorted by
// status code ascending.
func SortedStatusCounts(counts map[int]int) []StatusCount {
	rows := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		rows = append(rows, StatusCount{Status: status, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Status < rows[j].Status
	})
	return rows
}

// DomainRecord is a domain name discovered by one or more passive sources.
type DomainRecord struct {
	Name    string   `json:"name"`
	Sources []string `json:"sources"`
}

// SubdomainRecord is a resolved subdomain found by an active method.
// One record per (host, IP) pair, matching the subdomain CSV layout.
type SubdomainRecord struct {
	Host   string `json:"domain" csv:"domain"`
	IP     string `json:"ip" csv:"ip"`
	Method string `json:"method" csv:"method"`
}

// ZoneTransfer is the outcome of an AXFR attempt against one nameserver.
type ZoneTransfer struct {
	Nameserver string `json:"nameserver"`
	Success    bool   `json:"success"`
	Records    int    `json:"records,omitempty"`
}

// DiscoverResult is the top-level output of a discovery run.
type DiscoverResult struct {
	TLDs          []string          `json:"tlds"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   time.Time         `json:"completed_at"`
	DurationSecs  float64           `json:"duration_secs"`
	Domains       []DomainRecord    `json:"domains"`
	BaseDomains   []string          `json:"base_domains"`
	Subdomains    []SubdomainRecord `json:"subdomains,omitempty"`
	ZoneTransfers []ZoneTransfer    `json:"zone_transfers,omitempty"`
	Warnings      []string          `json:"warnings,omitempty"`
	Summary       DiscoverSummary   `json:"summary"`
}

// DiscoverSummary provides aggregate counts for a discovery run.
type DiscoverSummary struct {
	DomainsFound      int `json:"domains_found"`
	BaseDomains       int `json:"base_domains"`
	SubdomainsFound   int `json:"subdomains_found"`
	ZoneTransferCount int `json:"zone_transfers"`
}

// HostLoader reads and normalizes the probe target list.
type HostLoader interface {
	Load(path string) ([]string, error)
}

// HostProber probes one host across the fixed path list and protocols.
type HostProber interface {
	Probe(ctx context.Context, host string) ([]ProbeResult, error)
}

// DomainCollector gathers candidate domains under a TLD suffix from
// passive sources. Partial results with warnings are expected.
type DomainCollector interface {
	Collect(ctx context.Context, tld string) ([]DomainRecord, []SubdomainRecord, error)
}

// SubdomainEnumerator expands one base domain via wordlist DNS lookups.
type SubdomainEnumerator interface {
	Enumerate(ctx context.Context, base string) ([]SubdomainRecord, error)
}

// ZoneChecker attempts DNS zone transfers for a base domain.
type ZoneChecker interface {
	CheckZone(ctx context.Context, base string) ([]ZoneTransfer, []SubdomainRecord, error)
}

// WarningProvider is an optional interface stage implementations can
// satisfy to report non-fatal warnings after a run.
type WarningProvider interface {
	GetWarnings() []string
}

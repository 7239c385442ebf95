package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vulnverified/cubamap/internal/engine"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rows
}

func sampleRunResult() *engine.RunResult {
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	results := []engine.ProbeResult{
		{
			Host:          "portal.gov.cu",
			URL:           "https://portal.gov.cu/",
			StatusCode:    200,
			FinalURL:      "https://portal.gov.cu/inicio",
			Title:         "Portal del Gobierno",
			ContentLength: 4096,
			Server:        "nginx",
			ContentType:   "text/html",
			DiscoveredAt:  engine.Timestamp{Time: started},
		},
		{
			Host:         "portal.gov.cu",
			URL:          "https://portal.gov.cu/tramites",
			StatusCode:   301,
			FinalURL:     "https://portal.gov.cu/tramites/",
			Server:       "nginx",
			ContentType:  "text/html",
			DiscoveredAt: engine.Timestamp{Time: started},
		},
		{
			Host:         "onat.gob.cu",
			URL:          "http://onat.gob.cu/",
			StatusCode:   200,
			FinalURL:     "http://onat.gob.cu/",
			Server:       "Apache",
			ContentType:  "text/html",
			DiscoveredAt: engine.Timestamp{Time: started},
		},
	}

	result := &engine.RunResult{
		InputFile: "hosts.csv",
		StartedAt: started,
		Results:   results,
	}
	result.HostCounts, result.StatusCounts = engine.Summarize(results)
	return result
}

func TestWriteReports_FullSet(t *testing.T) {
	dir := t.TempDir()
	result := sampleRunResult()

	paths, err := WriteReports(dir, result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantResults := filepath.Join(dir, "discovered_urls_20250314_092653.csv")
	if paths.Results != wantResults {
		t.Errorf("results path = %q, want %q", paths.Results, wantResults)
	}

	rows := readCSV(t, paths.Results)
	if len(rows) != 4 {
		t.Fatalf("result rows = %d, want header + 3", len(rows))
	}
	head := strings.Join(rows[0], ",")
	if head != "domain,url,status_code,final_url,title,content_length,server,content_type,discovery_time" {
		t.Errorf("unexpected header: %s", head)
	}
	if rows[1][0] != "portal.gov.cu" || rows[1][2] != "200" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[1][8] != "2025-03-14 09:26:53" {
		t.Errorf("discovery time = %q, want formatted timestamp", rows[1][8])
	}

	domainRows := readCSV(t, paths.DomainSummary)
	if len(domainRows) != 3 {
		t.Fatalf("domain summary rows = %d, want header + 2", len(domainRows))
	}
	if strings.Join(domainRows[0], ",") != "Domain,URLs_Discovered" {
		t.Errorf("unexpected domain summary header: %v", domainRows[0])
	}
	// Sorted by count descending.
	if domainRows[1][0] != "portal.gov.cu" || domainRows[1][1] != "2" {
		t.Errorf("unexpected top domain row: %v", domainRows[1])
	}

	statusRows := readCSV(t, paths.StatusSummary)
	if strings.Join(statusRows[0], ",") != "Status_Code,Count" {
		t.Errorf("unexpected status summary header: %v", statusRows[0])
	}
	// Sorted by status code ascending.
	if statusRows[1][0] != "200" || statusRows[1][1] != "2" {
		t.Errorf("unexpected first status row: %v", statusRows[1])
	}
	if statusRows[2][0] != "301" {
		t.Errorf("unexpected second status row: %v", statusRows[2])
	}
}

func TestWriteReports_NoResults_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	result := &engine.RunResult{
		InputFile: "hosts.csv",
		StartedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	result.HostCounts, result.StatusCounts = engine.Summarize(nil)

	paths, err := WriteReports(dir, result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readCSV(t, paths.Results)
	if len(rows) != 1 {
		t.Fatalf("result rows = %d, want the header only", len(rows))
	}

	if paths.DomainSummary != "" || paths.StatusSummary != "" {
		t.Errorf("summary files written for an empty run: %+v", paths)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("files in dir = %d, want 1", len(entries))
	}
}

func TestWriteHostList_SortedWithHeader(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	path, err := WriteHostList(dir, started, []string{"zeta.gov.cu", "alfa.gov.cu"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "cleaned_domains_20250314_092653.csv" {
		t.Errorf("unexpected file name: %s", path)
	}

	rows := readCSV(t, path)
	want := [][]string{{"Domain"}, {"alfa.gov.cu"}, {"zeta.gov.cu"}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i][0] != want[i][0] {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestWriteDomainList(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	path, err := WriteDomainList(dir, started, []engine.DomainRecord{
		{Name: "minsap.gob.cu", Sources: []string{"crt.sh"}},
		{Name: "aduana.gob.cu", Sources: []string{"otx"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 || rows[0][0] != "Domain" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if rows[1][0] != "aduana.gob.cu" || rows[2][0] != "minsap.gob.cu" {
		t.Errorf("domains not sorted: %v", rows)
	}
}

func TestWriteSubdomainList(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	path, err := WriteSubdomainList(dir, started, []engine.SubdomainRecord{
		{Host: "www.minsap.gob.cu", IP: "10.0.0.1", Method: "dns_enum"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if strings.Join(rows[0], ",") != "domain,ip,method" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if strings.Join(rows[1], ",") != "www.minsap.gob.cu,10.0.0.1,dns_enum" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

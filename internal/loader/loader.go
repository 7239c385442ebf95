// Package loader reads probe target lists from delimited files.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrNoHosts is returned when a file parses cleanly but yields no
// usable host names.
var ErrNoHosts = errors.New("no usable host names found")

// hostColumns are the header names recognized as the host column, in
// match priority order.
var hostColumns = []string{
	"Domain", "domain",
	"URL", "url",
	"hostname", "Hostname",
	"site", "Site",
	"website", "Website",
}

const sampleSize = 1024

// Loader implements engine.HostLoader for delimited tabular files.
type Loader struct{}

// Load reads path and returns the normalized, deduplicated host list.
// The delimiter is guessed among comma, semicolon and tab; the host
// column is picked by header alias, falling back to a per-row scan for
// the first cell that normalizes to a plausible domain. Files that are
// not valid UTF-8 are decoded as Windows-1252 first.
func (Loader) Load(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}
	content := decodeContent(raw)

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = guessDelimiter(content)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, ErrNoHosts
	}

	header, rows := records[0], records[1:]
	aliasIdx := aliasIndexes(header)

	seen := make(map[string]bool)
	var hosts []string
	add := func(raw string) {
		host := NormalizeHost(raw)
		if host == "" || seen[host] {
			return
		}
		seen[host] = true
		hosts = append(hosts, host)
	}

	for _, row := range rows {
		if cell, ok := aliasCell(aliasIdx, row); ok {
			add(cell)
			continue
		}
		// No aliased value on this row: take the first cell that
		// cleans up into a domain-shaped value.
		for _, cell := range row {
			if NormalizeHost(cell) != "" {
				add(cell)
				break
			}
		}
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoHosts)
	}
	return hosts, nil
}

// decodeContent returns raw as a UTF-8 string, decoding from
// Windows-1252 when the bytes aren't valid UTF-8. Hand-built target
// lists often arrive in legacy Latin encodings.
func decodeContent(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := io.ReadAll(transform.NewReader(
		strings.NewReader(string(raw)), charmap.Windows1252.NewDecoder()))
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// guessDelimiter picks the first of comma, semicolon or tab present in
// the leading sample of the file, defaulting to comma.
func guessDelimiter(content string) rune {
	sample := content
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	for _, d := range []rune{',', ';', '\t'} {
		if strings.ContainsRune(sample, d) {
			return d
		}
	}
	return ','
}

// aliasIndexes maps the recognized host column names onto header
// positions, in alias priority order.
func aliasIndexes(header []string) []int {
	var idx []int
	for _, name := range hostColumns {
		for i, cell := range header {
			if strings.TrimSpace(cell) == name {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

// aliasCell returns the row's first non-empty aliased cell. Rows where
// every aliased column is empty (or absent) fall back to a full scan.
func aliasCell(aliasIdx []int, row []string) (string, bool) {
	for _, i := range aliasIdx {
		if i < len(row) && strings.TrimSpace(row[i]) != "" {
			return row[i], true
		}
	}
	return "", false
}

// NormalizeHost reduces a raw cell value to a bare lower-case domain:
// scheme, one leading "www.", path, query, fragment and port are
// stripped. Values that don't look like a domain (no dot, or embedded
// whitespace) normalize to "".
func NormalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))

	if _, rest, found := strings.Cut(host, "://"); found {
		host = rest
	}
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	if host == "" || !strings.Contains(host, ".") || strings.ContainsAny(host, " \t") {
		return ""
	}
	return host
}

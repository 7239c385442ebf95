// Package wordlist provides the embedded word lists: the subdomain
// guessing list and the URL path list probed on every host.
package wordlist

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed subdomains.txt paths.txt
var listFS embed.FS

// Subdomains returns the embedded subdomain guessing list.
// Lines are trimmed and empty lines/comments are skipped.
func Subdomains() []string {
	return load("subdomains.txt")
}

// ProbePaths returns the embedded URL path list in probing order.
func ProbePaths() []string {
	return load("paths.txt")
}

func load(name string) []string {
	data, err := listFS.ReadFile(name)
	if err != nil {
		return nil
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

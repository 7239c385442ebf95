// Package recon implements the cubamap discovery stages: certificate
// transparency search, passive DNS sources, zone transfer checks, and
// wordlist enumeration.
package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	crtshTimeout    = 30 * time.Second
	crtshMaxBody    = 50 * 1024 * 1024 // 50MB
	crtshRetryDelay = 3 * time.Second
)

// crtshQueryURL is a var so tests can point it at a local server.
var crtshQueryURL = "https://crt.sh/?q=%%25.%s&output=json"

type crtshEntry struct {
	NameValue string `json:"name_value"`
}

// CrtshSearch queries crt.sh Certificate Transparency logs for every
// certificate issued under the given suffix (a registrable domain or a
// whole public suffix such as gov.cu). Returns hostnames lowercase and
// deduplicated, with wildcard labels stripped.
func CrtshSearch(ctx context.Context, suffix string, userAgent string) ([]string, error) {
	url := fmt.Sprintf(crtshQueryURL, suffix)

	body, err := crtshFetch(ctx, url, userAgent)
	if err != nil {
		return nil, fmt.Errorf("crt.sh fetch for %s: %w", suffix, err)
	}

	hosts, err := parseCrtshNames(body, suffix)
	if err != nil {
		return nil, fmt.Errorf("crt.sh JSON parse for %s: %w", suffix, err)
	}
	return hosts, nil
}

func parseCrtshNames(body []byte, suffix string) ([]string, error) {
	var entries []crtshEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var hosts []string

	for _, entry := range entries {
		// name_value can contain multiple names separated by newlines.
		for _, name := range strings.Split(entry.NameValue, "\n") {
			name = strings.TrimSpace(strings.ToLower(name))
			if name == "" {
				continue
			}
			name = strings.TrimPrefix(name, "*.")
			// Must live under the target suffix.
			if !strings.HasSuffix(name, "."+suffix) && name != suffix {
				continue
			}
			if !seen[name] {
				seen[name] = true
				hosts = append(hosts, name)
			}
		}
	}

	return hosts, nil
}

func crtshFetch(ctx context.Context, url, userAgent string) ([]byte, error) {
	body, err := crtshDoRequest(ctx, url, userAgent)
	if err == nil {
		return body, nil
	}

	// If it's a rate limit error, don't retry.
	if strings.Contains(err.Error(), "429") {
		return nil, err
	}

	// Retry once after delay for server errors.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(crtshRetryDelay):
	}

	return crtshDoRequest(ctx, url, userAgent)
}

func crtshDoRequest(ctx context.Context, url, userAgent string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, crtshTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("crt.sh rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crt.sh returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, crtshMaxBody))
	if err != nil {
		return nil, fmt.Errorf("crt.sh read body: %w", err)
	}

	return body, nil
}

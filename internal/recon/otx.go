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
	otxTimeout    = 15 * time.Second
	otxMaxBody    = 10 * 1024 * 1024 // 10MB
	otxRetryDelay = 3 * time.Second
)

// otxQueryURL is a var so tests can point it at a local server.
var otxQueryURL = "https://otx.alienvault.com/api/v1/indicators/domain/%s/passive_dns"

type otxResponse struct {
	PassiveDNS []otxEntry `json:"passive_dns"`
}

type otxEntry struct {
	Hostname string `json:"hostname"`
}

// OTXSearch queries AlienVault OTX passive DNS for hostnames seen under
// the given suffix. Returns hostnames lowercase and deduplicated.
func OTXSearch(ctx context.Context, suffix, userAgent string) ([]string, error) {
	url := fmt.Sprintf(otxQueryURL, suffix)

	body, err := otxFetch(ctx, url, userAgent)
	if err != nil {
		return nil, fmt.Errorf("otx fetch for %s: %w", suffix, err)
	}

	return parseOTXHostnames(body, suffix)
}

func otxFetch(ctx context.Context, url, userAgent string) ([]byte, error) {
	body, err := otxDoRequest(ctx, url, userAgent)
	if err == nil {
		return body, nil
	}

	// Don't retry on rate limit.
	if strings.Contains(err.Error(), "429") {
		return nil, err
	}

	// Retry once after delay for server errors.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(otxRetryDelay):
	}

	return otxDoRequest(ctx, url, userAgent)
}

func otxDoRequest(ctx context.Context, url, userAgent string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, otxTimeout)
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
		return nil, fmt.Errorf("otx rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("otx returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, otxMaxBody))
	if err != nil {
		return nil, fmt.Errorf("otx read body: %w", err)
	}

	return body, nil
}

// parseOTXHostnames extracts hostnames from the passive DNS JSON response.
func parseOTXHostnames(body []byte, suffix string) ([]string, error) {
	var resp otxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("otx JSON parse: %w", err)
	}

	seen := make(map[string]bool)
	var hosts []string

	for _, entry := range resp.PassiveDNS {
		host := strings.ToLower(strings.TrimSpace(entry.Hostname))
		if host == "" {
			continue
		}

		// Must live under the target suffix.
		if !strings.HasSuffix(host, "."+suffix) && host != suffix {
			continue
		}

		if !seen[host] {
			seen[host] = true
			hosts = append(hosts, host)
		}
	}

	return hosts, nil
}

package recon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vulnverified/cubamap/internal/engine"
)

const (
	hackertargetTimeout    = 10 * time.Second
	hackertargetMaxBody    = 5 * 1024 * 1024 // 5MB
	hackertargetRetryDelay = 2 * time.Second
	hackertargetRateMsg    = "API count exceeded"
)

// hackertargetQueryURL is a var so tests can point it at a local server.
var hackertargetQueryURL = "https://api.hackertarget.com/hostsearch/?q=%s"

// HackertargetSearch queries the HackerTarget host search API for names
// under the given suffix. The plain-text response pairs each host with
// an IP address, so results come back as full subdomain records.
func HackertargetSearch(ctx context.Context, suffix, userAgent string) ([]engine.SubdomainRecord, error) {
	url := fmt.Sprintf(hackertargetQueryURL, suffix)

	body, err := hackertargetFetch(ctx, url, userAgent)
	if err != nil {
		return nil, fmt.Errorf("hackertarget fetch for %s: %w", suffix, err)
	}

	return parseHackertargetHosts(body, suffix), nil
}

func hackertargetFetch(ctx context.Context, url, userAgent string) (string, error) {
	body, err := hackertargetDoRequest(ctx, url, userAgent)
	if err == nil {
		return body, nil
	}

	// Don't retry on rate limit.
	if strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), hackertargetRateMsg) {
		return "", err
	}

	// Retry once after delay for server errors.
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(hackertargetRetryDelay):
	}

	return hackertargetDoRequest(ctx, url, userAgent)
}

func hackertargetDoRequest(ctx context.Context, url, userAgent string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, hackertargetTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("hackertarget rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hackertarget returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, hackertargetMaxBody))
	if err != nil {
		return "", fmt.Errorf("hackertarget read body: %w", err)
	}

	body := string(raw)

	// HackerTarget returns a plain text error message when rate limited.
	if strings.Contains(body, hackertargetRateMsg) {
		return "", fmt.Errorf("hackertarget: %s", hackertargetRateMsg)
	}

	return body, nil
}

// parseHackertargetHosts parses the plain-text "host,ip" response format.
func parseHackertargetHosts(body, suffix string) []engine.SubdomainRecord {
	seen := make(map[string]bool)
	var records []engine.SubdomainRecord

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Format: host,ip
		parts := strings.SplitN(line, ",", 2)
		host := strings.ToLower(strings.TrimSpace(parts[0]))
		if host == "" {
			continue
		}

		// Must live under the target suffix.
		if !strings.HasSuffix(host, "."+suffix) && host != suffix {
			continue
		}

		var ip string
		if len(parts) == 2 {
			ip = strings.TrimSpace(parts[1])
		}

		key := host + "|" + ip
		if !seen[key] {
			seen[key] = true
			records = append(records, engine.SubdomainRecord{
				Host:   host,
				IP:     ip,
				Method: "hackertarget",
			})
		}
	}

	return records
}

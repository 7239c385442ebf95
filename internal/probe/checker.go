// Package probe implements the per-URL checker and per-host prober that
// drive a cubamap probing run.
package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/vulnverified/cubamap/internal/engine"
)

const (
	checkMaxBody = 1024 * 1024 // body cap for title scan and length count
	maxTitleLen  = 200
	maxRedirects = 5

	unknownValue = "Unknown"
)

// DefaultUserAgent is the browser-style agent sent on probe requests.
// Several target sites answer 403 to anything that does not look like
// a browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var titleRegex = regexp.MustCompile(`(?i)<title[^>]*>\s*([^<]+)\s*</title>`)

// Checker performs single GET exchanges against candidate URLs.
// All probes share one client: fixed timeout, redirects followed up to
// maxRedirects, TLS verification disabled (self-signed and expired
// certs are the norm on the target infrastructure).
type Checker struct {
	client    *http.Client
	userAgent string
}

// NewChecker builds a Checker with the given per-request timeout.
func NewChecker(timeout time.Duration, userAgent string) *Checker {
	return &Checker{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Check performs one GET against rawURL and extracts the probe record.
// A TLS-level failure on an https URL is retried once over plain http
// on the same path. Every other failure returns a nil result with the
// cause; callers treat that as "no result" and keep going.
func (c *Checker) Check(ctx context.Context, rawURL string) (*engine.ProbeResult, error) {
	result, err := c.fetch(ctx, rawURL)
	if err == nil {
		return result, nil
	}

	rest, isHTTPS := strings.CutPrefix(rawURL, "https://")
	if !isHTTPS || !isTLSError(err) {
		return nil, err
	}

	slog.Debug("tls failure, retrying over http", "url", rawURL, "error", err)
	return c.fetch(ctx, "http://"+rest)
}

func (c *Checker) fetch(ctx context.Context, rawURL string) (*engine.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, checkMaxBody))
	if err != nil {
		return nil, err
	}

	// resp.Request points at the last request of the redirect chain.
	final := resp.Request.URL

	return &engine.ProbeResult{
		Host:          final.Host,
		URL:           rawURL,
		StatusCode:    resp.StatusCode,
		FinalURL:      final.String(),
		Title:         extractTitle(body, resp.Header.Get("Content-Type")),
		ContentLength: len(body),
		Server:        headerOrUnknown(resp.Header, "Server"),
		ContentType:   headerOrUnknown(resp.Header, "Content-Type"),
		DiscoveredAt:  engine.Now(),
	}, nil
}

// extractTitle scans the body for the first <title> pair, decoding
// legacy charsets first (windows-1252 and friends are common on the
// target sites). Any decode or parse trouble yields an empty title.
func extractTitle(body []byte, contentType string) string {
	decoded := body
	if r, err := charset.NewReader(bytes.NewReader(body), contentType); err == nil {
		if d, err := io.ReadAll(r); err == nil {
			decoded = d
		}
	}

	m := titleRegex.FindSubmatch(decoded)
	if len(m) < 2 {
		return ""
	}
	return truncateRunes(strings.TrimSpace(string(m[1])), maxTitleLen)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func headerOrUnknown(h http.Header, key string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return unknownValue
}

// isTLSError reports whether err came from the TLS layer, as opposed to
// DNS, dialing, or timeouts. RecordHeaderError covers plain-HTTP
// servers answering on 443; the string check catches handshake alerts.
func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	return strings.Contains(err.Error(), "tls:")
}

package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/vulnverified/cubamap/internal/engine"
	"github.com/vulnverified/cubamap/internal/wordlist"
)

// enumPacing is the delay between consecutive lookups during enumeration.
const enumPacing = 300 * time.Millisecond

// Enumerator guesses subdomains of a base domain from a fixed wordlist,
// recording one entry per resolved IP address.
type Enumerator struct {
	resolver *Resolver
	pacing   time.Duration
	words    []string
}

// NewEnumerator returns an Enumerator over the embedded subdomain list.
func NewEnumerator(resolver *Resolver) *Enumerator {
	return &Enumerator{
		resolver: resolver,
		pacing:   enumPacing,
		words:    wordlist.Subdomains(),
	}
}

// Enumerate tries every wordlist entry under base and returns the
// subdomains that resolved. Lookup failures are expected misses.
func (e *Enumerator) Enumerate(ctx context.Context, base string) ([]engine.SubdomainRecord, error) {
	if len(e.words) == 0 {
		return nil, fmt.Errorf("subdomain wordlist is empty")
	}

	limiter := rate.NewLimiter(rate.Every(e.pacing), 1)

	var found []engine.SubdomainRecord
	for _, word := range e.words {
		if err := limiter.Wait(ctx); err != nil {
			return found, err
		}

		host := word + "." + base
		ips, err := e.resolver.LookupA(ctx, host)
		if err != nil {
			slog.Debug("enumeration miss", "host", host, "error", err)
			continue
		}
		for _, ip := range ips {
			found = append(found, engine.SubdomainRecord{
				Host:   host,
				IP:     ip,
				Method: "dns_enum",
			})
		}
	}

	return found, nil
}

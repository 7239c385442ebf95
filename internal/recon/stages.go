package recon

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vulnverified/cubamap/internal/engine"
)

// Collector implements engine.DomainCollector by querying the passive
// sources for one TLD in parallel: crt.sh, HackerTarget, and OTX.
type Collector struct {
	UserAgent string
	Progress  engine.ProgressReporter

	mu       sync.Mutex
	warnings []string
}

// GetWarnings implements engine.WarningProvider.
func (c *Collector) GetWarnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warnings
}

// Collect gathers candidate domains under the given TLD. A source
// failing is a warning, not an error; Collect fails only when every
// source came back empty.
func (c *Collector) Collect(ctx context.Context, tld string) ([]engine.DomainRecord, []engine.SubdomainRecord, error) {
	// Map of hostname -> list of source names, for deduplication.
	hostSources := make(map[string][]string)

	var (
		wg      sync.WaitGroup
		records []engine.SubdomainRecord
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		hosts, err := CrtshSearch(ctx, tld, c.UserAgent)
		if err != nil {
			c.warn(fmt.Sprintf("crt.sh: %s", err))
			return
		}
		c.mu.Lock()
		for _, h := range hosts {
			hostSources[h] = append(hostSources[h], "crt.sh")
		}
		c.mu.Unlock()
		c.detail(fmt.Sprintf("crt.sh: %d names under %s", len(hosts), tld))
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		found, err := HackertargetSearch(ctx, tld, c.UserAgent)
		if err != nil {
			c.warn(fmt.Sprintf("hackertarget: %s", err))
			return
		}
		c.mu.Lock()
		for _, r := range found {
			hostSources[r.Host] = append(hostSources[r.Host], "hackertarget")
			if r.IP != "" {
				records = append(records, r)
			}
		}
		c.mu.Unlock()
		c.detail(fmt.Sprintf("hackertarget: %d names under %s", len(found), tld))
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		hosts, err := OTXSearch(ctx, tld, c.UserAgent)
		if err != nil {
			c.warn(fmt.Sprintf("otx: %s", err))
			return
		}
		c.mu.Lock()
		for _, h := range hosts {
			hostSources[h] = append(hostSources[h], "otx")
		}
		c.mu.Unlock()
		c.detail(fmt.Sprintf("otx: %d names under %s", len(hosts), tld))
	}()

	wg.Wait()

	if len(hostSources) == 0 {
		return nil, nil, fmt.Errorf("no domains found under %s", tld)
	}

	var domains []engine.DomainRecord
	for host, sources := range hostSources {
		domains = append(domains, engine.DomainRecord{
			Name:    host,
			Sources: deduplicateStrings(sources),
		})
	}
	sort.Slice(domains, func(i, j int) bool {
		return domains[i].Name < domains[j].Name
	})

	return domains, records, nil
}

func (c *Collector) warn(msg string) {
	c.mu.Lock()
	c.warnings = append(c.warnings, msg)
	c.mu.Unlock()
	if c.Progress != nil {
		c.Progress.Warn(msg)
	}
}

func (c *Collector) detail(msg string) {
	if c.Progress != nil {
		c.Progress.Detail(msg)
	}
}

package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DiscoverConfig holds the runtime configuration for a discovery run.
type DiscoverConfig struct {
	TLDs      []string
	AXFR      bool
	TLDPause  time.Duration
	EnumPause time.Duration
}

// DiscoverStages holds the injectable stage implementations for discovery.
type DiscoverStages struct {
	Collector  DomainCollector
	Enumerator SubdomainEnumerator
	Zone       ZoneChecker
}

const totalDiscoverStages = 3

// Discover executes the discovery pipeline: collect candidate domains
// per TLD from passive sources, derive registrable base domains, then
// expand each base via zone transfer (opt-in) and wordlist enumeration.
// Source failures degrade to warnings; the run only fails when every
// source of every TLD produced nothing.
func Discover(ctx context.Context, cfg DiscoverConfig, stages DiscoverStages, progress ProgressReporter) (*DiscoverResult, error) {
	result := &DiscoverResult{
		TLDs:      cfg.TLDs,
		StartedAt: time.Now(),
	}

	// Stage 1: passive collection per TLD.
	progress.Stage(1, totalDiscoverStages, fmt.Sprintf("Collecting domains for %s...", strings.Join(cfg.TLDs, ", ")))

	domainSources := make(map[string][]string)
	for i, tld := range cfg.TLDs {
		if i > 0 && cfg.TLDPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.TLDPause):
			}
		}

		domains, subs, err := stages.Collector.Collect(ctx, tld)
		if err != nil {
			progress.Warn(fmt.Sprintf("%s: %s", tld, err))
			continue
		}
		for _, d := range domains {
			domainSources[d.Name] = append(domainSources[d.Name], d.Sources...)
		}
		result.Subdomains = append(result.Subdomains, subs...)
		progress.Detail(fmt.Sprintf("%s: %d domains", tld, len(domains)))
	}

	if wp, ok := stages.Collector.(WarningProvider); ok {
		result.Warnings = append(result.Warnings, wp.GetWarnings()...)
	}

	if len(domainSources) == 0 {
		return nil, fmt.Errorf("no domains discovered for %s", strings.Join(cfg.TLDs, ", "))
	}

	for name, sources := range domainSources {
		result.Domains = append(result.Domains, DomainRecord{
			Name:    name,
			Sources: dedupeStrings(sources),
		})
	}
	sort.Slice(result.Domains, func(i, j int) bool {
		return result.Domains[i].Name < result.Domains[j].Name
	})
	result.BaseDomains = baseDomains(result.Domains, cfg.TLDs)
	progress.Detail(fmt.Sprintf("%d unique domains, %d base domains", len(result.Domains), len(result.BaseDomains)))

	// Stage 2: zone transfer attempts (opt-in).
	if cfg.AXFR && stages.Zone != nil {
		progress.Stage(2, totalDiscoverStages, fmt.Sprintf("Attempting zone transfers on %d base domains...", len(result.BaseDomains)))
		for _, base := range result.BaseDomains {
			transfers, subs, err := stages.Zone.CheckZone(ctx, base)
			if err != nil {
				progress.Warn(fmt.Sprintf("axfr %s: %s", base, err))
				continue
			}
			result.ZoneTransfers = append(result.ZoneTransfers, transfers...)
			result.Subdomains = append(result.Subdomains, subs...)
		}
	}

	// Stage 3: wordlist enumeration per base domain.
	progress.Stage(3, totalDiscoverStages, fmt.Sprintf("Enumerating subdomains across %d base domains...", len(result.BaseDomains)))
	progress.StartBar(len(result.BaseDomains), "Enumerating")
	for i, base := range result.BaseDomains {
		if i > 0 && cfg.EnumPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.EnumPause):
			}
		}
		subs, err := stages.Enumerator.Enumerate(ctx, base)
		progress.Tick()
		if err != nil {
			progress.Warn(fmt.Sprintf("enumerate %s: %s", base, err))
			continue
		}
		if len(subs) > 0 {
			progress.Detail(fmt.Sprintf("%s: %d active subdomains", base, len(subs)))
		}
		result.Subdomains = append(result.Subdomains, subs...)
	}
	progress.FinishBar()

	result.Subdomains = dedupeSubdomains(result.Subdomains)
	result.CompletedAt = time.Now()
	result.DurationSecs = result.CompletedAt.Sub(result.StartedAt).Seconds()
	result.Summary = buildDiscoverSummary(result)

	return result, nil
}

// baseDomains reduces discovered names to their unique registrable
// domains, so enumeration targets real zones under multi-label suffixes
// like gov.cu. Bare suffixes are skipped.
func baseDomains(domains []DomainRecord, tlds []string) []string {
	seen := make(map[string]bool)
	var bases []string
	for _, d := range domains {
		base := registrableBase(d.Name, tlds)
		if base == "" {
			continue
		}
		if !seen[base] {
			seen[base] = true
			bases = append(bases, base)
		}
	}
	sort.Strings(bases)
	return bases
}

// registrableBase finds the registrable domain for name. The public
// suffix list gets the cut right for known multi-label suffixes; for
// suffixes the list does not carry (gob.cu), the label directly above
// the configured TLD marks the zone. Returns "" for bare suffixes.
func registrableBase(name string, tlds []string) string {
	base, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err == nil && !containsString(tlds, base) {
		return base
	}
	for _, tld := range tlds {
		if rest, ok := strings.CutSuffix(name, "."+tld); ok {
			labels := strings.Split(rest, ".")
			return labels[len(labels)-1] + "." + tld
		}
	}
	return ""
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func buildDiscoverSummary(result *DiscoverResult) DiscoverSummary {
	transferCount := 0
	for _, zt := range result.ZoneTransfers {
		if zt.Success {
			transferCount++
		}
	}
	return DiscoverSummary{
		DomainsFound:      len(result.Domains),
		BaseDomains:       len(result.BaseDomains),
		SubdomainsFound:   len(result.Subdomains),
		ZoneTransferCount: transferCount,
	}
}

func dedupeStrings(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	var out []string
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func dedupeSubdomains(subs []SubdomainRecord) []SubdomainRecord {
	type key struct {
		host, ip string
	}
	seen := make(map[key]bool, len(subs))
	var out []SubdomainRecord
	for _, s := range subs {
		k := key{host: s.Host, ip: s.IP}
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

package recon

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/vulnverified/cubamap/internal/engine"
)

const (
	axfrDialTimeout = 10 * time.Second
	axfrReadTimeout = 30 * time.Second
)

// ZoneChecker attempts DNS zone transfers against a domain's nameservers.
type ZoneChecker struct {
	resolver *Resolver
	axfrPort string
}

// NewZoneChecker returns a ZoneChecker using the given resolver for NS lookups.
func NewZoneChecker(resolver *Resolver) *ZoneChecker {
	return &ZoneChecker{resolver: resolver, axfrPort: "53"}
}

// CheckZone looks up NS records for base and attempts AXFR against each
// nameserver. It returns one ZoneTransfer per nameserver plus the hosts
// recovered from any zone that transferred.
func (z *ZoneChecker) CheckZone(ctx context.Context, base string) ([]engine.ZoneTransfer, []engine.SubdomainRecord, error) {
	nameservers, err := z.resolver.LookupNS(ctx, base)
	if err != nil {
		return nil, nil, err
	}
	if len(nameservers) == 0 {
		return nil, nil, fmt.Errorf("no NS records for %s", base)
	}

	var (
		transfers []engine.ZoneTransfer
		records   []engine.SubdomainRecord
		seen      = make(map[string]bool)
	)

	for _, nameserver := range nameservers {
		// Respect context cancellation between nameserver attempts.
		select {
		case <-ctx.Done():
			return transfers, records, ctx.Err()
		default:
		}

		transfer := engine.ZoneTransfer{Nameserver: nameserver}

		hosts, err := attemptAXFR(base, nameserver, z.axfrPort)
		if err != nil {
			// AXFR refusal is the normal case, not an error.
			transfers = append(transfers, transfer)
			continue
		}

		transfer.Success = true
		transfer.Records = len(hosts)
		transfers = append(transfers, transfer)

		for _, h := range hosts {
			key := h.Host + "|" + h.IP
			if !seen[key] {
				seen[key] = true
				records = append(records, h)
			}
		}
	}

	return transfers, records, nil
}

// attemptAXFR performs a zone transfer against a single nameserver and
// extracts the in-zone hostnames, paired with their A record addresses
// where the zone provides them.
func attemptAXFR(domain, nameserver, port string) ([]engine.SubdomainRecord, error) {
	transfer := &dns.Transfer{
		DialTimeout: axfrDialTimeout,
		ReadTimeout: axfrReadTimeout,
	}

	msg := new(dns.Msg)
	msg.SetAxfr(dns.Fqdn(domain))

	channel, err := transfer.In(msg, net.JoinHostPort(nameserver, port))
	if err != nil {
		return nil, fmt.Errorf("AXFR to %s: %w", nameserver, err)
	}

	var (
		names        []string
		addrs        = make(map[string][]string)
		seen         = make(map[string]bool)
		domainLower  = strings.ToLower(domain)
		domainSuffix = "." + domainLower
	)

	for envelope := range channel {
		if envelope.Error != nil {
			return nil, fmt.Errorf("AXFR envelope from %s: %w", nameserver, envelope.Error)
		}
		for _, rr := range envelope.RR {
			name := strings.ToLower(strings.TrimSuffix(rr.Header().Name, "."))
			if name == "" {
				continue
			}
			if !strings.HasSuffix(name, domainSuffix) && name != domainLower {
				continue
			}
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			if a, ok := rr.(*dns.A); ok {
				addrs[name] = append(addrs[name], a.A.String())
			}
		}
	}

	sort.Strings(names)

	var records []engine.SubdomainRecord
	for _, name := range names {
		ips := deduplicateStrings(addrs[name])
		if len(ips) == 0 {
			records = append(records, engine.SubdomainRecord{Host: name, Method: "zone_transfer"})
			continue
		}
		for _, ip := range ips {
			records = append(records, engine.SubdomainRecord{Host: name, IP: ip, Method: "zone_transfer"})
		}
	}
	return records, nil
}

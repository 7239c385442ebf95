package recon

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	resolvConfPath  = "/etc/resolv.conf"
	dnsQueryTimeout = 3 * time.Second
)

// fallbackServers are used when the system resolver config is unreadable.
var fallbackServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// Resolver issues DNS queries through the system-configured nameservers,
// trying each in turn until one answers.
type Resolver struct {
	client  *dns.Client
	servers []string
}

// NewResolver builds a Resolver from /etc/resolv.conf. When servers are
// given they override the system configuration (host:port form).
func NewResolver(servers ...string) *Resolver {
	if len(servers) == 0 {
		servers = systemServers()
	}
	return &Resolver{
		client:  &dns.Client{Timeout: dnsQueryTimeout},
		servers: servers,
	}
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(cfg.Servers) == 0 {
		return fallbackServers
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}

// LookupA resolves the A records for name. A name that does not resolve
// returns an error; a name with no A records returns an empty slice.
func (r *Resolver) LookupA(ctx context.Context, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)

	resp, err := r.exchange(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("A lookup for %s: %w", name, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("A lookup for %s: %s", name, dns.RcodeToString[resp.Rcode])
	}

	var ips []string
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			ips = append(ips, a.A.String())
		}
	}
	return deduplicateStrings(ips), nil
}

// LookupNS resolves the authoritative nameservers for name.
func (r *Resolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeNS)

	resp, err := r.exchange(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("NS lookup for %s: %w", name, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("NS lookup for %s: %s", name, dns.RcodeToString[resp.Rcode])
	}

	var servers []string
	for _, rr := range resp.Answer {
		if ns, ok := rr.(*dns.NS); ok {
			servers = append(servers, strings.TrimSuffix(strings.ToLower(ns.Ns), "."))
		}
	}
	return deduplicateStrings(servers), nil
}

func (r *Resolver) exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func deduplicateStrings(ss []string) []string {
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

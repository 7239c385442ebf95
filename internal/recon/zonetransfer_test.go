package recon

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/miekg/dns"
)

// runLocalTCPDNS starts a DNS server on a loopback TCP port for zone
// transfer tests and returns its address.
func runLocalTCPDNS(t *testing.T, handler dns.Handler) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	srv := &dns.Server{Listener: l, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	return l.Addr().String()
}

// axfrHandler serves the given records to any AXFR request.
func axfrHandler(rrs []dns.RR) dns.HandlerFunc {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		if r.Question[0].Qtype != dns.TypeAXFR {
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeNotImplemented)
			w.WriteMsg(m)
			return
		}

		ch := make(chan *dns.Envelope)
		tr := new(dns.Transfer)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			tr.Out(w, r, ch)
			wg.Done()
		}()
		ch <- &dns.Envelope{RR: rrs}
		close(ch)
		wg.Wait()
	}
}

func refuseHandler() dns.HandlerFunc {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeRefused)
		w.WriteMsg(m)
	}
}

func openZone(zone string) []dns.RR {
	hdr := func(name string, rrtype uint16) dns.RR_Header {
		return dns.RR_Header{Name: name, Rrtype: rrtype, Class: dns.ClassINET, Ttl: 3600}
	}
	soa := &dns.SOA{
		Hdr: hdr(zone, dns.TypeSOA),
		Ns:  "ns1." + zone, Mbox: "admin." + zone,
		Serial: 1, Refresh: 3600, Retry: 600, Expire: 86400, Minttl: 3600,
	}
	return []dns.RR{
		soa,
		&dns.NS{Hdr: hdr(zone, dns.TypeNS), Ns: "ns1." + zone},
		&dns.A{Hdr: hdr("www."+zone, dns.TypeA), A: net.ParseIP("192.0.2.20")},
		&dns.A{Hdr: hdr("www."+zone, dns.TypeA), A: net.ParseIP("192.0.2.21")},
		&dns.A{Hdr: hdr("correo."+zone, dns.TypeA), A: net.ParseIP("192.0.2.22")},
		&dns.A{Hdr: hdr("fuera.example.com.", dns.TypeA), A: net.ParseIP("198.51.100.9")},
		soa,
	}
}

func TestCheckZone_OpenTransfer(t *testing.T) {
	axfrAddr := runLocalTCPDNS(t, axfrHandler(openZone("ejemplo.gob.cu.")))
	_, axfrPort, err := net.SplitHostPort(axfrAddr)
	if err != nil {
		t.Fatalf("split %s: %v", axfrAddr, err)
	}

	// The nameserver advertised for the zone is the loopback AXFR server.
	nsAddr := runLocalDNS(t, scriptedZone{ns: map[string][]string{
		"ejemplo.gob.cu.": {"127.0.0.1."},
	}})

	checker := &ZoneChecker{resolver: NewResolver(nsAddr), axfrPort: axfrPort}
	transfers, records, err := checker.CheckZone(context.Background(), "ejemplo.gob.cu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(transfers))
	}
	if !transfers[0].Success {
		t.Fatal("expected a successful transfer")
	}
	if transfers[0].Nameserver != "127.0.0.1" {
		t.Errorf("nameserver = %q, want 127.0.0.1", transfers[0].Nameserver)
	}
	if transfers[0].Records != len(records) {
		t.Errorf("transfer records = %d, want %d", transfers[0].Records, len(records))
	}

	type hostIP struct{ host, ip string }
	want := []hostIP{
		{"correo.ejemplo.gob.cu", "192.0.2.22"},
		{"ejemplo.gob.cu", ""},
		{"www.ejemplo.gob.cu", "192.0.2.20"},
		{"www.ejemplo.gob.cu", "192.0.2.21"},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d: %v", len(records), len(want), records)
	}
	for i, w := range want {
		if records[i].Host != w.host || records[i].IP != w.ip {
			t.Errorf("records[%d] = %s/%s, want %s/%s", i, records[i].Host, records[i].IP, w.host, w.ip)
		}
		if records[i].Method != "zone_transfer" {
			t.Errorf("records[%d].Method = %q, want zone_transfer", i, records[i].Method)
		}
	}
}

func TestCheckZone_RefusedTransfer(t *testing.T) {
	axfrAddr := runLocalTCPDNS(t, refuseHandler())
	_, axfrPort, err := net.SplitHostPort(axfrAddr)
	if err != nil {
		t.Fatalf("split %s: %v", axfrAddr, err)
	}

	nsAddr := runLocalDNS(t, scriptedZone{ns: map[string][]string{
		"cerrado.gob.cu.": {"127.0.0.1."},
	}})

	checker := &ZoneChecker{resolver: NewResolver(nsAddr), axfrPort: axfrPort}
	transfers, records, err := checker.CheckZone(context.Background(), "cerrado.gob.cu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transfers) != 1 {
		t.Fatalf("got %d transfers, want 1", len(transfers))
	}
	if transfers[0].Success {
		t.Error("expected the transfer to fail")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestCheckZone_NSLookupFailure(t *testing.T) {
	nsAddr := runLocalDNS(t, scriptedZone{})

	checker := &ZoneChecker{resolver: NewResolver(nsAddr), axfrPort: "53"}
	_, _, err := checker.CheckZone(context.Background(), "inexistente.gob.cu")
	if err == nil {
		t.Fatal("expected error when NS lookup fails")
	}
	if !strings.Contains(err.Error(), "NS lookup") {
		t.Errorf("error = %q, want it to mention the NS lookup", err)
	}
}

func TestCheckZone_NoNameservers(t *testing.T) {
	nsAddr := runLocalDNS(t, scriptedZone{ns: map[string][]string{
		"huerfano.gob.cu.": {},
	}})

	checker := &ZoneChecker{resolver: NewResolver(nsAddr), axfrPort: "53"}
	_, _, err := checker.CheckZone(context.Background(), "huerfano.gob.cu")
	if err == nil {
		t.Fatal("expected error when the zone has no NS records")
	}
	if !strings.Contains(err.Error(), "no NS records") {
		t.Errorf("error = %q, want it to mention missing NS records", err)
	}
}

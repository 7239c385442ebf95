package recon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHackertargetParsesHostIPPairs(t *testing.T) {
	body := `www.minsap.gob.cu,152.206.1.10
aduana.gob.cu,152.206.1.20
correo.aduana.gob.cu,152.206.1.21
other.example.com,13.14.15.16
www.minsap.gob.cu,152.206.1.10`

	records := parseHackertargetHosts(body, "gob.cu")

	expected := map[string]string{
		"www.minsap.gob.cu":    "152.206.1.10",
		"aduana.gob.cu":        "152.206.1.20",
		"correo.aduana.gob.cu": "152.206.1.21",
	}

	if len(records) != len(expected) {
		t.Errorf("got %d records, want %d: %v", len(records), len(expected), records)
	}

	for _, r := range records {
		ip, ok := expected[r.Host]
		if !ok {
			t.Errorf("unexpected host: %s", r.Host)
			continue
		}
		if r.IP != ip {
			t.Errorf("ip for %s = %q, want %q", r.Host, r.IP, ip)
		}
		if r.Method != "hackertarget" {
			t.Errorf("method = %q, want hackertarget", r.Method)
		}
	}
}

func TestHackertargetSearch_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "gob.cu" {
			t.Errorf("query = %q, want gob.cu", got)
		}
		w.Write([]byte("www.minsap.gob.cu,152.206.1.10\naduana.gob.cu,152.206.1.20\n"))
	}))
	defer srv.Close()

	orig := hackertargetQueryURL
	hackertargetQueryURL = srv.URL + "/hostsearch/?q=%s"
	t.Cleanup(func() { hackertargetQueryURL = orig })

	records, err := HackertargetSearch(context.Background(), "gob.cu", "test-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestHackertargetRateLimitMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("error API count exceeded"))
	}))
	defer srv.Close()

	_, err := hackertargetDoRequest(context.Background(), srv.URL, "test-agent")
	if err == nil {
		t.Fatal("expected error on rate limit")
	}
}

func TestHackertarget429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := hackertargetDoRequest(context.Background(), srv.URL, "test-agent")
	if err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestHackertargetEmptyAndMalformedLines(t *testing.T) {
	body := `www.minsap.gob.cu,152.206.1.10

bare-host-no-ip.gob.cu

`
	records := parseHackertargetHosts(body, "gob.cu")
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %v", len(records), records)
	}
	if records[1].Host != "bare-host-no-ip.gob.cu" || records[1].IP != "" {
		t.Errorf("malformed line record = %+v, want empty IP", records[1])
	}
}

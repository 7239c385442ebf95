package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// countingProber tracks how many probes run at once.
type countingProber struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (p *countingProber) Probe(ctx context.Context, host string) ([]ProbeResult, error) {
	n := p.active.Add(1)
	for {
		max := p.maxSeen.Load()
		if n <= max || p.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.active.Add(-1)
	return []ProbeResult{res(host, 200)}, nil
}

func TestProbeAll_RespectsConcurrencyBound(t *testing.T) {
	hosts := make([]string, 20)
	for i := range hosts {
		hosts[i] = fmt.Sprintf("host%d.gov.cu", i)
	}

	prober := &countingProber{}
	results := ProbeAll(context.Background(), hosts, prober, 3, func(HostOutcome) {})

	if len(results) != 20 {
		t.Fatalf("results = %d, want 20", len(results))
	}
	if max := prober.maxSeen.Load(); max > 3 {
		t.Errorf("max concurrent probes = %d, want <= 3", max)
	}
}

func TestProbeAll_EmptyHosts(t *testing.T) {
	results := ProbeAll(context.Background(), nil, &mockProber{}, 4, func(HostOutcome) {})
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
}

func TestProbeAll_OutcomePerHost(t *testing.T) {
	prober := &mockProber{
		results: map[string][]ProbeResult{
			"a.gov.cu": {res("a.gov.cu", 200)},
			"c.gov.cu": {res("c.gov.cu", 200), res("c.gov.cu", 404)},
		},
		errs: map[string]error{
			"b.gov.cu": errors.New("refused"),
		},
	}

	// onDone runs on the merging goroutine, so plain appends are safe.
	var outcomes []HostOutcome
	results := ProbeAll(context.Background(), []string{"a.gov.cu", "b.gov.cu", "c.gov.cu"}, prober, 2, func(oc HostOutcome) {
		outcomes = append(outcomes, oc)
	})

	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	if len(results) != 3 {
		t.Errorf("merged results = %d, want 3", len(results))
	}

	errored := 0
	for _, oc := range outcomes {
		if oc.Err != nil {
			errored++
			if oc.Host != "b.gov.cu" {
				t.Errorf("error outcome for %q, want b.gov.cu", oc.Host)
			}
			if len(oc.Results) != 0 {
				t.Errorf("error outcome carries %d results, want 0", len(oc.Results))
			}
		}
	}
	if errored != 1 {
		t.Errorf("errored outcomes = %d, want 1", errored)
	}
}

func TestProbeAll_FailureIsolation(t *testing.T) {
	prober := &mockProber{
		results: map[string][]ProbeResult{
			"ok.gov.cu": {res("ok.gov.cu", 200)},
		},
		errs: map[string]error{
			"bad1.gov.cu": errors.New("timeout"),
			"bad2.gov.cu": errors.New("reset"),
		},
	}

	results := ProbeAll(context.Background(), []string{"bad1.gov.cu", "ok.gov.cu", "bad2.gov.cu"}, prober, 1, func(HostOutcome) {})

	if len(results) != 1 || results[0].Host != "ok.gov.cu" {
		t.Errorf("expected only the healthy host's results, got %v", results)
	}
	if len(prober.calls) != 3 {
		t.Errorf("prober calls = %d, want 3 (failures must not stop the batch)", len(prober.calls))
	}
}

func TestProbeAll_ZeroConcurrencyRunsSerial(t *testing.T) {
	prober := &countingProber{}
	results := ProbeAll(context.Background(), []string{"a.gov.cu", "b.gov.cu"}, prober, 0, func(HostOutcome) {})

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if max := prober.maxSeen.Load(); max != 1 {
		t.Errorf("max concurrent probes = %d, want 1", max)
	}
}

func TestProbeAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := &mockProber{
		results: map[string][]ProbeResult{"a.gov.cu": {res("a.gov.cu", 200)}},
	}

	var cancelled int
	results := ProbeAll(ctx, []string{"a.gov.cu", "b.gov.cu"}, prober, 2, func(oc HostOutcome) {
		if errors.Is(oc.Err, context.Canceled) {
			cancelled++
		}
	})

	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
	if cancelled != 2 {
		t.Errorf("cancelled outcomes = %d, want 2", cancelled)
	}
}

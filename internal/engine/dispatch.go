package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProbeAll fans one prober task per host across a pool of exactly
// concurrency workers and merges results centrally as tasks complete.
// Completion order is whatever order tasks finish in; callers must not
// rely on it.
//
// A failing task contributes zero results and is surfaced through its
// HostOutcome; it never cancels or delays the other hosts. onDone, when
// non-nil, is invoked once per host from the merging goroutine only, so
// it needs no locking of its own.
func ProbeAll(ctx context.Context, hosts []string, prober HostProber, concurrency int, onDone func(HostOutcome)) []ProbeResult {
	if len(hosts) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	outcomes := make(chan HostOutcome, len(hosts))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for _, host := range hosts {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				outcomes <- HostOutcome{Host: host, Err: ctx.Err()}
				return nil
			default:
			}

			results, err := prober.Probe(ctx, host)
			outcomes <- HostOutcome{Host: host, Results: results, Err: err}
			// Task errors ride the outcome; returning nil keeps the
			// rest of the batch running.
			return nil
		})
	}

	go func() {
		g.Wait()
		close(outcomes)
	}()

	var all []ProbeResult
	for oc := range outcomes {
		if oc.Err == nil {
			all = append(all, oc.Results...)
		}
		if onDone != nil {
			onDone(oc)
		}
	}
	return all
}

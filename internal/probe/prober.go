package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/vulnverified/cubamap/internal/engine"
)

// URLChecker is the single-request dependency of Prober.
type URLChecker interface {
	Check(ctx context.Context, rawURL string) (*engine.ProbeResult, error)
}

// probeState tracks where a host's probing sequence stands. The
// sequence only moves forward: https pass, optional http pass, done.
type probeState int

const (
	tryingHTTPS probeState = iota
	tryingHTTP
	probeDone
)

func (s probeState) scheme() string {
	if s == tryingHTTP {
		return "http"
	}
	return "https"
}

// Prober walks the fixed path list over HTTPS then HTTP for one host at
// a time. Attempts are paced to at most one per pacing interval,
// whether they succeed or not.
type Prober struct {
	checker URLChecker
	pacing  time.Duration
	paths   []string
}

// NewProber builds a Prober over the given ordered path list.
func NewProber(checker URLChecker, pacing time.Duration, paths []string) *Prober {
	return &Prober{
		checker: checker,
		pacing:  pacing,
		paths:   paths,
	}
}

// Probe runs the full path/protocol sequence for host and returns every
// kept result in discovery order. An empty slice is a normal outcome
// for an unreachable host; the error return is reserved for
// cancellation. Per-attempt checker failures are logged and absorbed.
//
// Rules, per protocol pass:
//   - results with status < 500 are kept;
//   - an exact 200 during the https pass stops that pass early;
//   - any result from the https pass skips the http pass entirely.
func (p *Prober) Probe(ctx context.Context, host string) ([]engine.ProbeResult, error) {
	limiter := rate.NewLimiter(rate.Every(p.pacing), 1)

	var results []engine.ProbeResult
	for state := tryingHTTPS; state != probeDone; {
		for _, path := range p.paths {
			if err := limiter.Wait(ctx); err != nil {
				return results, err
			}

			url := fmt.Sprintf("%s://%s%s", state.scheme(), host, path)
			result, err := p.checker.Check(ctx, url)
			if err != nil {
				slog.Debug("probe attempt failed", "url", url, "error", err)
				continue
			}

			if result.StatusCode < 500 {
				results = append(results, *result)
			}
			if state == tryingHTTPS && result.StatusCode == 200 {
				break
			}
		}

		switch state {
		case tryingHTTPS:
			if len(results) > 0 {
				state = probeDone
			} else {
				state = tryingHTTP
			}
		case tryingHTTP:
			state = probeDone
		}
	}

	return results, nil
}

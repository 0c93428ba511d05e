package intake

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const secondsPerMinute = 60

// hostGate paces requests to a single host. Both constraints apply: the
// token-bucket rate cap and the minimum inter-request delay; whichever is
// stricter governs at any instant. The mutex serializes all requests to the
// host for the lifetime of a run.
type hostGate struct {
	limiter  *rate.Limiter
	minDelay time.Duration

	mu       sync.Mutex
	lastSent time.Time
}

// wait blocks until the host may be contacted again, or the context is
// cancelled.
func (g *hostGate) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	if !g.lastSent.IsZero() {
		earliest := g.lastSent.Add(g.minDelay)
		if sleep := time.Until(earliest); sleep > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
	}

	g.lastSent = time.Now()
	return nil
}

// hostGates owns one gate per host, created lazily and shared by every task
// targeting that host for the run's lifetime. Requests to different hosts do
// not constrain each other.
type hostGates struct {
	perMinute int
	minDelay  time.Duration

	mu    sync.Mutex
	gates map[string]*hostGate
}

func newHostGates(requestsPerHostPerMinute int, minDelay time.Duration) *hostGates {
	return &hostGates{
		perMinute: requestsPerHostPerMinute,
		minDelay:  minDelay,
		gates:     make(map[string]*hostGate),
	}
}

// gate returns the gate for host, creating it on first use.
func (h *hostGates) gate(host string) *hostGate {
	h.mu.Lock()
	defer h.mu.Unlock()

	g, ok := h.gates[host]
	if !ok {
		rps := rate.Limit(float64(h.perMinute) / secondsPerMinute)
		g = &hostGate{
			limiter:  rate.NewLimiter(rps, 1),
			minDelay: h.minDelay,
		}
		h.gates[host] = g
	}

	return g
}

// wait paces a request to host.
func (h *hostGates) wait(ctx context.Context, host string) error {
	return h.gate(host).wait(ctx)
}

package provider

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// providerRateLimit caps outbound requests per provider ID at 10/s with
// a burst of 20: generous enough not to throttle a single interactive
// session, but enough to keep a runaway retry loop or a fleet of
// concurrent sessions sharing one provider ID from hammering it past
// its own rate limit and turning a single 429 into a thundering herd.
const (
	providerRateLimit = 10
	providerRateBurst = 20
)

var (
	limiterMu sync.Mutex
	limiters  = make(map[string]*rate.Limiter)
)

// limiterFor returns the shared limiter for providerID, creating it on
// first use. Providers are long-lived singletons in the registry, so
// one limiter per ID persists for the life of the process.
func limiterFor(providerID string) *rate.Limiter {
	limiterMu.Lock()
	defer limiterMu.Unlock()

	l, ok := limiters[providerID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(providerRateLimit), providerRateBurst)
		limiters[providerID] = l
	}
	return l
}

// rateLimitedTransport wraps an http.RoundTripper with a per-provider
// token bucket, so every adapter's completion/list-models call is
// throttled the same way regardless of which wire format it speaks.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// newRateLimitedClient builds an *http.Client for providerID whose
// Transport throttles outbound requests through that provider's shared
// limiter, falling back to http.DefaultTransport when base is nil.
func newRateLimitedClient(providerID string) *http.Client {
	return &http.Client{
		Transport: &rateLimitedTransport{
			limiter: limiterFor(providerID),
			base:    http.DefaultTransport,
		},
	}
}

package github

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// pacedTransport spaces outgoing requests with a token bucket so a single
// sync does not burn through the hourly quota in a burst.
type pacedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func newPacedTransport(base http.RoundTripper, rps float64) *pacedTransport {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &pacedTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// RoundTrip waits for a token, honouring the request context.
func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}
	return t.base.RoundTrip(req)
}

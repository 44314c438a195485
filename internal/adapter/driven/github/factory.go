package github

import (
	"fmt"

	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClientFactory = (*ClientFactory)(nil)

// ClientFactory builds one Client per credential. Transport settings are
// shared; caches are not, so cached responses never cross credentials.
type ClientFactory struct {
	baseURL string
	rps     float64
}

// NewClientFactory returns a factory targeting baseURL (empty for
// api.github.com) and pacing each client at rps requests per second
// (0 disables pacing). The base URL is validated here so NewClient cannot fail.
func NewClientFactory(baseURL string, rps float64) (*ClientFactory, error) {
	if _, err := NewClient("", baseURL, rps); err != nil {
		return nil, fmt.Errorf("validate github base URL: %w", err)
	}
	return &ClientFactory{baseURL: baseURL, rps: rps}, nil
}

// NewClient returns a client authenticated with credential.
func (f *ClientFactory) NewClient(credential string) driven.GitHubClient {
	client, _ := NewClient(credential, f.baseURL, f.rps)
	return client
}

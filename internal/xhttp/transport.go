package xhttp

import (
	"fmt"
	"net/http"

	"github.com/garrettladley/chirp/internal/version"
)

type chirpTransport struct {
	base      http.RoundTripper
	component string
	apiKey    string
}

var _ http.RoundTripper = (*chirpTransport)(nil)

func (t *chirpTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(UserAgent, version.UserAgent(t.component))
	req.Header.Set(version.Header, version.Get())
	if t.apiKey != "" {
		req.Header.Set(XAPIKey, t.apiKey)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform round trip: %w", err)
	}
	return resp, nil
}

// NewTransport returns an http.RoundTripper that stamps chirp client headers
// and, when apiKey is non-empty, the API key header.
func NewTransport(component, apiKey string) http.RoundTripper {
	return &chirpTransport{base: http.DefaultTransport, component: component, apiKey: apiKey}
}

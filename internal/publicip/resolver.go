// Package publicip discovers the machine's public IP address through a
// "what is my IP" HTTP endpoint.
package publicip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-logr/logr"
)

// DefaultURL is the endpoint queried when none is configured.
const DefaultURL = "http://icanhazip.com"

// ErrResolution is returned when the public IP cannot be obtained.
var ErrResolution = errors.New("could not get public ip")

// maxBodySize bounds how much of the response body is read.
const maxBodySize = 1024

// Resolver queries an HTTP endpoint that answers with the caller's IP in the body.
type Resolver struct {
	URL    string
	Client *http.Client
	Log    logr.Logger
}

// New creates a Resolver for url, falling back to DefaultURL when url is empty.
func New(log logr.Logger, url string) *Resolver {
	if url == "" {
		url = DefaultURL
	}
	return &Resolver{
		URL:    url,
		Client: &http.Client{},
		Log:    log,
	}
}

// Resolve returns the current public IPv4 address. Any status other than
// 200, or a body that is not an IPv4 literal, is an error.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrResolution, err)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	r.Log.V(1).Info("requesting public ip", "url", r.URL)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %v", ErrResolution, r.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w [status code: %d]", ErrResolution, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrResolution, err)
	}

	text := strings.TrimSpace(string(body))
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return "", fmt.Errorf("%w: invalid address %q", ErrResolution, text)
	}
	// Only A records are managed.
	if !addr.Unmap().Is4() {
		return "", fmt.Errorf("%w: %s is not an IPv4 address, use an IPv4-only endpoint", ErrResolution, addr)
	}

	return addr.Unmap().String(), nil
}

package dns

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// ErrNoDomain is returned when no registrable domain can be derived from a hostname.
var ErrNoDomain = errors.New("no domain in hostname")

// ExtractDomain returns the registrable domain of an FQDN, approximated as its
// last two labels, lower-cased and in ASCII form.
// e.g. "home.example.com" → "example.com"
// e.g. "example.com" → "example.com"
//
// No public suffix list is consulted, so "home.example.co.uk" yields "co.uk".
func ExtractDomain(hostname string) (string, error) {
	labels := strings.Split(strings.TrimSuffix(hostname, "."), ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("%w: %q", ErrNoDomain, hostname)
	}
	last := labels[len(labels)-2:]
	if last[0] == "" || last[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrNoDomain, hostname)
	}

	domain, err := idna.ToASCII(strings.ToLower(last[0] + "." + last[1]))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrNoDomain, hostname, err)
	}
	return domain, nil
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

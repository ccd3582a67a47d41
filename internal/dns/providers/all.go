// Package providers imports all DNS provider packages to trigger their init() registration.
package providers

import (
	_ "github.com/psyb0t/cloudflare-dynamic-dns/internal/dns/cloudflare"
)

package dns

import "context"

// RecordTypeA is the only record type this system manages.
const RecordTypeA = "A"

// Zone is a provider-side container of records for one registrable domain.
type Zone struct {
	ID   string
	Name string
}

// Record represents a DNS record as seen by, or sent to, a provider.
type Record struct {
	ID      string // provider-assigned, empty for new records
	Name    string // FQDN, e.g. "home.example.com"
	Type    string // always "A"
	Content string // IP literal
	Proxied *bool  // nil when the provider did not report a value
	TTL     int    // 0 = provider default
}

// Provider is the interface that DNS providers must implement.
// There is intentionally no delete operation.
type Provider interface {
	FindZones(ctx context.Context, domain string) ([]Zone, error)
	FindRecords(ctx context.Context, zoneID, name, recordType string) ([]Record, error)
	CreateRecord(ctx context.Context, zoneID string, record Record) (Record, error)
	UpdateRecord(ctx context.Context, zoneID string, record Record) (Record, error)
}

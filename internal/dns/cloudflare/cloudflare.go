package cloudflare

import (
	"context"
	"fmt"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/dns"
)

func init() {
	dns.Register("cloudflare", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider for the Cloudflare v4 API.
type Provider struct {
	api *cloudflare.API
	log logr.Logger
}

// New creates a Cloudflare DNS provider from the given settings map.
// Required settings: api_token.
// Optional settings: email (switches to global API key auth), base_url.
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	token := settings["api_token"]
	if token == "" {
		return nil, fmt.Errorf("cloudflare: missing required setting 'api_token'")
	}

	var opts []cloudflare.Option
	if v := settings["base_url"]; v != "" {
		opts = append(opts, cloudflare.BaseURL(v))
	}

	var (
		api *cloudflare.API
		err error
	)
	if email := settings["email"]; email != "" {
		api, err = cloudflare.New(token, email, opts...)
	} else {
		api, err = cloudflare.NewWithAPIToken(token, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("cloudflare: create client: %w", err)
	}

	return &Provider{api: api, log: log}, nil
}

// FindZones lists the zones named exactly domain.
func (p *Provider) FindZones(ctx context.Context, domain string) ([]dns.Zone, error) {
	p.log.V(1).Info("listing zones", "domain", domain)

	zones, err := p.api.ListZones(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: list zones for %s: %w", domain, err)
	}

	out := make([]dns.Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, dns.Zone{ID: z.ID, Name: z.Name})
	}
	return out, nil
}

// FindRecords lists the records of the given type and name in a zone.
func (p *Provider) FindRecords(ctx context.Context, zoneID, name, recordType string) ([]dns.Record, error) {
	p.log.V(1).Info("listing records", "zone", zoneID, "name", name, "type", recordType)

	records, _, err := p.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.ListDNSRecordsParams{
		Type: recordType,
		Name: name,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudflare: list %s records for %s: %w", recordType, name, err)
	}

	out := make([]dns.Record, 0, len(records))
	for _, r := range records {
		out = append(out, fromAPI(r))
	}
	return out, nil
}

// CreateRecord creates a new record in a zone.
func (p *Provider) CreateRecord(ctx context.Context, zoneID string, record dns.Record) (dns.Record, error) {
	p.log.Info("creating record", "zone", zoneID, "name", record.Name, "type", record.Type, "content", record.Content)

	created, err := p.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		Proxied: record.Proxied,
		TTL:     record.TTL,
	})
	if err != nil {
		return dns.Record{}, fmt.Errorf("cloudflare: create %s record for %s: %w", record.Type, record.Name, err)
	}

	p.log.Info("record created", "id", created.ID)
	return fromAPI(created), nil
}

// UpdateRecord updates the record identified by record.ID.
// A nil Proxied is left out of the request so the stored value is kept.
func (p *Provider) UpdateRecord(ctx context.Context, zoneID string, record dns.Record) (dns.Record, error) {
	if record.ID == "" {
		return dns.Record{}, fmt.Errorf("cloudflare: update %s record for %s: missing record id", record.Type, record.Name)
	}
	p.log.Info("updating record", "zone", zoneID, "id", record.ID, "name", record.Name, "content", record.Content)

	updated, err := p.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Content,
		Proxied: record.Proxied,
		TTL:     record.TTL,
	})
	if err != nil {
		return dns.Record{}, fmt.Errorf("cloudflare: update %s record for %s: %w", record.Type, record.Name, err)
	}

	p.log.Info("record updated", "id", updated.ID)
	return fromAPI(updated), nil
}

func fromAPI(r cloudflare.DNSRecord) dns.Record {
	return dns.Record{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		Proxied: r.Proxied,
		TTL:     r.TTL,
	}
}

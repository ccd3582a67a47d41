package controller

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/dns"
)

// defaultProxied applies to newly created records only.
const defaultProxied = true

// RecordReconciler converges the A record of a single hostname onto the public IP.
type RecordReconciler struct {
	DNS dns.Provider
	Log logr.Logger
}

// Reconcile issues at most one write for hostname. Errors never escape: they
// are folded into a failed Result so the caller can move on to the next hostname.
func (r *RecordReconciler) Reconcile(ctx context.Context, domain, hostname, publicIP string) Result {
	log := r.Log.WithValues("hostname", hostname, "domain", domain)
	res := Result{Hostname: hostname, Domain: domain}

	log.V(1).Info("getting zone for domain")
	zones, err := r.DNS.FindZones(ctx, domain)
	if err != nil {
		return failed(res, fmt.Errorf("%w: domain %s: %v", ErrZoneLookup, domain, err))
	}
	if len(zones) == 0 {
		res.Outcome = OutcomeSkippedNoZone
		res.Err = fmt.Errorf("%w for domain %s (hostname %s)", ErrNoZone, domain, hostname)
		return res
	}
	zone := zones[0]

	records, err := r.DNS.FindRecords(ctx, zone.ID, hostname, dns.RecordTypeA)
	if err != nil {
		return failed(res, fmt.Errorf("%w: %s A records in zone %s: %v", ErrRecordLookup, hostname, zone.Name, err))
	}

	if len(records) > 0 {
		existing := records[0]
		if existing.Content == publicIP {
			log.V(1).Info("record already has the current public ip", "ip", publicIP)
			res.Outcome = OutcomeSkippedAlreadyCurrent
			return res
		}

		log.Info("updating existing A record", "id", existing.ID, "from", existing.Content, "to", publicIP)
		_, err := r.DNS.UpdateRecord(ctx, zone.ID, dns.Record{
			ID:      existing.ID,
			Name:    hostname,
			Type:    dns.RecordTypeA,
			Content: publicIP,
			Proxied: existing.Proxied,
		})
		if err != nil {
			return failed(res, fmt.Errorf("%w: updating A record for %s: %v", ErrRecordWrite, hostname, err))
		}
		res.Outcome = OutcomeUpdated
		return res
	}

	log.Info("inserting new A record", "ip", publicIP)
	_, err = r.DNS.CreateRecord(ctx, zone.ID, dns.Record{
		Name:    hostname,
		Type:    dns.RecordTypeA,
		Content: publicIP,
		Proxied: dns.BoolPtr(defaultProxied),
	})
	if err != nil {
		return failed(res, fmt.Errorf("%w: inserting A record for %s: %v", ErrRecordWrite, hostname, err))
	}
	res.Outcome = OutcomeCreated
	return res
}

func failed(res Result, err error) Result {
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}

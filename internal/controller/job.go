package controller

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/config"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/dns"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/publicip"
)

// IPResolver returns the machine's current public IP.
type IPResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// JobRunner performs one full reconciliation pass over the configured hostnames.
// Resolver and DNS are built from the config when left nil.
type JobRunner struct {
	Log      logr.Logger
	Resolver IPResolver
	DNS      dns.Provider
	Reporter Reporter
}

// Run resolves the public IP once, then reconciles every hostname in config
// order. Only a failed IP resolution (or provider setup) is returned; per
// hostname failures are logged and reported.
func (j *JobRunner) Run(ctx context.Context, cfg *config.Config) error {
	provider := j.DNS
	if provider == nil {
		p, err := dns.NewProvider(cfg.Provider, j.Log.WithName("dns-"+cfg.Provider), cfg.ProviderSettings())
		if err != nil {
			return fmt.Errorf("unable to create DNS provider: %w", err)
		}
		provider = p
	}
	resolver := j.Resolver
	if resolver == nil {
		resolver = publicip.New(j.Log.WithName("publicip"), cfg.PublicIPURL)
	}

	j.Log.Info("getting public ip")
	ip, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	j.Log.Info("got public ip", "ip", ip)

	reconciler := &RecordReconciler{DNS: provider, Log: j.Log}
	for _, hostname := range cfg.Hostnames {
		j.Log.Info("processing hostname", "hostname", hostname)

		var res Result
		domain, err := dns.ExtractDomain(hostname)
		if err != nil {
			res = Result{Hostname: hostname, Outcome: OutcomeSkippedNoDomain, Err: err}
		} else {
			res = reconciler.Reconcile(ctx, domain, hostname, ip)
		}

		j.logResult(res)
		if j.Reporter != nil {
			j.Reporter.Report(res)
		}
	}
	return nil
}

func (j *JobRunner) logResult(res Result) {
	kv := []interface{}{"hostname", res.Hostname, "outcome", res.Outcome}
	switch res.Outcome {
	case OutcomeFailed, OutcomeSkippedNoZone, OutcomeSkippedNoDomain:
		j.Log.Error(res.Err, "hostname not reconciled", kv...)
	default:
		j.Log.Info("hostname reconciled", kv...)
	}
}

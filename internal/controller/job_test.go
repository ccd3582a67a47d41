package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	logrtesting "github.com/go-logr/logr/testing"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/config"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/dns"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/publicip"
)

type staticResolver struct {
	ip    string
	err   error
	calls int
}

func (s *staticResolver) Resolve(context.Context) (string, error) {
	s.calls++
	return s.ip, s.err
}

func collect(results *[]Result) Reporter {
	return ReporterFunc(func(r Result) { *results = append(*results, r) })
}

func TestJobRunner_ProcessesHostnamesInOrder(t *testing.T) {
	mock := &mockDNSProvider{
		zones: map[string][]dns.Zone{
			"example.com": {{ID: "zone-1", Name: "example.com"}},
		},
		records: map[string][]dns.Record{
			"a.example.com": {{ID: "rec-a", Name: "a.example.com", Type: "A", Content: "1.1.1.1", Proxied: dns.BoolPtr(false)}},
			"d.example.com": {{ID: "rec-d", Name: "d.example.com", Type: "A", Content: "2.2.2.2"}},
		},
	}
	resolver := &staticResolver{ip: "2.2.2.2"}
	var results []Result
	job := &JobRunner{Log: logrtesting.NewTestLogger(t), Resolver: resolver, DNS: mock, Reporter: collect(&results)}

	cfg := &config.Config{Hostnames: []string{
		"b.other.org",   // no zone
		"nodotshere",    // no domain
		"a.example.com", // update
		"c.example.com", // create
		"d.example.com", // current
	}}
	if err := job.Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resolver.calls != 1 {
		t.Errorf("expected public ip to be resolved once, got %d", resolver.calls)
	}

	want := []Outcome{
		OutcomeSkippedNoZone,
		OutcomeSkippedNoDomain,
		OutcomeUpdated,
		OutcomeCreated,
		OutcomeSkippedAlreadyCurrent,
	}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, w := range want {
		if results[i].Hostname != cfg.Hostnames[i] {
			t.Errorf("result %d: expected hostname %q, got %q", i, cfg.Hostnames[i], results[i].Hostname)
		}
		if results[i].Outcome != w {
			t.Errorf("result %d (%s): expected %s, got %s", i, results[i].Hostname, w, results[i].Outcome)
		}
	}
	if !errors.Is(results[1].Err, dns.ErrNoDomain) {
		t.Errorf("expected ErrNoDomain for 'nodotshere', got %v", results[1].Err)
	}
}

func TestJobRunner_IPResolutionAbortsJob(t *testing.T) {
	mock := &mockDNSProvider{zones: exampleZone()}
	resolver := &staticResolver{err: publicip.ErrResolution}
	var results []Result
	job := &JobRunner{Log: logr.Discard(), Resolver: resolver, DNS: mock, Reporter: collect(&results)}

	err := job.Run(context.Background(), &config.Config{Hostnames: []string{"a.example.com"}})
	if !errors.Is(err, publicip.ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
	if len(mock.zoneLookups) != 0 {
		t.Errorf("expected no provider calls, got %d zone lookups", len(mock.zoneLookups))
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestJobRunner_FailureDoesNotAbortCycle(t *testing.T) {
	mock := &mockDNSProvider{zones: exampleZone(), writeErr: errors.New("rejected")}
	var results []Result
	job := &JobRunner{Log: logr.Discard(), Resolver: &staticResolver{ip: "2.2.2.2"}, DNS: mock, Reporter: collect(&results)}

	cfg := &config.Config{Hostnames: []string{"a.example.com", "b.example.com"}}
	if err := job.Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Outcome != OutcomeFailed {
			t.Errorf("%s: expected %s, got %s", r.Hostname, OutcomeFailed, r.Outcome)
		}
	}
	if len(mock.createdRecords) != 2 {
		t.Errorf("expected a create attempt per hostname, got %d", len(mock.createdRecords))
	}
}

func TestJobRunner_UnknownProvider(t *testing.T) {
	job := &JobRunner{Log: logr.Discard(), Resolver: &staticResolver{ip: "2.2.2.2"}}
	err := job.Run(context.Background(), &config.Config{Provider: "nope", Hostnames: []string{"a.example.com"}})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	rep := NewJSONReporter(&buf)
	rep.Report(Result{Hostname: "a.example.com", Domain: "example.com", Outcome: OutcomeUpdated})
	rep.Report(Result{Hostname: "b.example.com", Outcome: OutcomeFailed, Err: errors.New("boom")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var second Report
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Outcome != OutcomeFailed || second.Error != "boom" {
		t.Errorf("unexpected report %+v", second)
	}
}

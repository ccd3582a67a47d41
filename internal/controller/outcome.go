package controller

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
)

var (
	// ErrNoZone means the provider holds no zone for the hostname's domain.
	ErrNoZone = errors.New("no zone found")
	// ErrZoneLookup wraps failures listing zones.
	ErrZoneLookup = errors.New("zone lookup failed")
	// ErrRecordLookup wraps failures listing records.
	ErrRecordLookup = errors.New("record lookup failed")
	// ErrRecordWrite wraps rejected or failed create/update calls.
	ErrRecordWrite = errors.New("record write failed")
)

// Outcome is the result of reconciling one hostname in one cycle.
type Outcome string

const (
	OutcomeSkippedNoZone         Outcome = "skipped-no-zone"
	OutcomeSkippedNoDomain       Outcome = "skipped-no-domain"
	OutcomeSkippedAlreadyCurrent Outcome = "skipped-already-current"
	OutcomeCreated               Outcome = "created"
	OutcomeUpdated               Outcome = "updated"
	OutcomeFailed                Outcome = "failed"
)

// Outcomes lists every outcome, in a stable order.
var Outcomes = []Outcome{
	OutcomeSkippedNoZone,
	OutcomeSkippedNoDomain,
	OutcomeSkippedAlreadyCurrent,
	OutcomeCreated,
	OutcomeUpdated,
	OutcomeFailed,
}

// Result describes what happened to one hostname.
type Result struct {
	Hostname string
	Domain   string
	Outcome  Outcome
	Err      error
}

// Reporter receives every Result produced by a job.
type Reporter interface {
	Report(Result)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Result)

func (f ReporterFunc) Report(r Result) { f(r) }

// Report is the wire form of a Result, one JSON object per line.
type Report struct {
	Hostname string  `json:"hostname"`
	Domain   string  `json:"domain,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
}

// JSONReporter writes results as JSON lines.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONReporter returns a Reporter writing JSON lines to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

func (r *JSONReporter) Report(res Result) {
	rep := Report{Hostname: res.Hostname, Domain: res.Domain, Outcome: res.Outcome}
	if res.Err != nil {
		rep.Error = res.Err.Error()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Reports are best effort; the log line is authoritative.
	_ = r.enc.Encode(rep)
}

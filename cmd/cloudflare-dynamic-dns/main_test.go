package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/config"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/controller"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/publicip"
)

func TestForwardedLogFlags(t *testing.T) {
	var zopts zap.Options
	logFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zopts.BindFlags(logFlags)

	set := pflag.NewFlagSet("test", pflag.ContinueOnError)
	set.AddGoFlagSet(logFlags)
	set.String("config", "", "")

	if err := set.Parse([]string{"--config=/etc/ddns.json", "--zap-devel=false"}); err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	got := forwardedLogFlags(set, logFlags)
	if len(got) != 1 || got[0] != "--zap-devel=false" {
		t.Errorf("expected only the zap flag to be forwarded, got %v", got)
	}
}

func TestIsDisabled(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"0", true},
		{"", true},
		{" 0 ", true},
		{":8080", false},
		{"127.0.0.1:0", false},
	}
	for _, tt := range tests {
		if got := isDisabled(tt.addr); got != tt.want {
			t.Errorf("isDisabled(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

// fakeAPI answers just enough of the Cloudflare API to create one record.
func fakeAPI(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var created []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var result interface{}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/zones":
			result = []map[string]string{}
			if r.URL.Query().Get("name") == "example.com" {
				result = []map[string]string{{"id": "zone-1", "name": "example.com"}}
			}
		case r.Method == http.MethodGet && r.URL.Path == "/zones/zone-1/dns_records":
			result = []interface{}{}
		case r.Method == http.MethodPost && r.URL.Path == "/zones/zone-1/dns_records":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			created = append(created, fmt.Sprint(body["name"]))
			body["id"] = "rec-1"
			result = body
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"errors":      []interface{}{},
			"messages":    []interface{}{},
			"result":      result,
			"result_info": map[string]int{"page": 1, "per_page": 100, "count": 1, "total_count": 1, "total_pages": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &created
}

func runWorker(t *testing.T, cfg *config.Config) ([]controller.Report, error) {
	t.Helper()
	var in bytes.Buffer
	if err := cfg.Encode(&in); err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	var out bytes.Buffer
	root := newRootCommand()
	root.SetArgs([]string{workerCommand})
	root.SetIn(&in)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())

	var reports []controller.Report
	dec := json.NewDecoder(&out)
	for dec.More() {
		var rep controller.Report
		if derr := dec.Decode(&rep); derr != nil {
			t.Fatalf("unexpected report output %q: %v", out.String(), derr)
		}
		reports = append(reports, rep)
	}
	return reports, err
}

func TestWorkerCommand(t *testing.T) {
	api, created := fakeAPI(t)
	ip := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "203.0.113.7\n")
	}))
	defer ip.Close()

	cfg := &config.Config{
		SleepTimeMinutes:    1,
		ChildProcessTimeout: 1,
		CFAPIToken:          "token",
		Hostnames:           []string{"home.example.com", "nodotshere", "x.other.org"},
		Provider:            config.DefaultProvider,
		PublicIPURL:         ip.URL,
		CFAPIBaseURL:        api.URL,
	}

	reports, err := runWorker(t, cfg)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}

	want := []controller.Outcome{
		controller.OutcomeCreated,
		controller.OutcomeSkippedNoDomain,
		controller.OutcomeSkippedNoZone,
	}
	if len(reports) != len(want) {
		t.Fatalf("expected %d reports, got %+v", len(want), reports)
	}
	for i, rep := range reports {
		if rep.Hostname != cfg.Hostnames[i] {
			t.Errorf("report %d: expected hostname %q, got %q", i, cfg.Hostnames[i], rep.Hostname)
		}
		if rep.Outcome != want[i] {
			t.Errorf("report %d: expected outcome %s, got %s", i, want[i], rep.Outcome)
		}
	}
	if len(*created) != 1 || (*created)[0] != "home.example.com" {
		t.Errorf("expected one create for home.example.com, got %v", *created)
	}
}

func TestWorkerCommandIPFailure(t *testing.T) {
	api, created := fakeAPI(t)
	ip := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ip.Close()

	cfg := &config.Config{
		ChildProcessTimeout: 1,
		CFAPIToken:          "token",
		Hostnames:           []string{"home.example.com"},
		Provider:            config.DefaultProvider,
		PublicIPURL:         ip.URL,
		CFAPIBaseURL:        api.URL,
	}

	reports, err := runWorker(t, cfg)
	if !errors.Is(err, publicip.ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
	if len(reports) != 0 || len(*created) != 0 {
		t.Errorf("expected no work after a failed resolution, got reports=%v creates=%v", reports, *created)
	}
}

func TestWorkerCommandRejectsBadSnapshot(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{workerCommand})
	root.SetIn(strings.NewReader("hostnames: []\n"))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	err := root.ExecuteContext(context.Background())
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

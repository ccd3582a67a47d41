package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/go-logr/logr"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/config"
	"github.com/psyb0t/cloudflare-dynamic-dns/internal/controller"
)

// waitDelay bounds how long Wait keeps draining the worker's pipes after it
// was killed.
const waitDelay = 5 * time.Second

// ProcessSpawner runs each job in a child OS process. The config snapshot is
// written to the child's stdin, and the child's stdout carries JSON-lines
// outcome reports.
type ProcessSpawner struct {
	// Path is the worker executable; empty means the running binary.
	Path string
	// Args are passed to the worker, e.g. the hidden "worker" subcommand.
	Args []string
	// Env is the worker environment; nil inherits ours.
	Env []string
	// Stderr receives the worker's logs; nil means os.Stderr.
	Stderr io.Writer
	// OnReport is called for every outcome the worker reports.
	OnReport func(controller.Report)
	Log      logr.Logger
}

// Spawn starts the worker process. It is killed, together with anything it
// started, as soon as ctx is done.
func (p *ProcessSpawner) Spawn(ctx context.Context, cfg *config.Config) (Worker, error) {
	path := p.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating worker executable: %w", err)
		}
		path = exe
	}

	var snapshot bytes.Buffer
	if err := cfg.Encode(&snapshot); err != nil {
		return nil, err
	}

	reports := newReportWriter(p.Log, p.OnReport)

	cmd := exec.CommandContext(ctx, path, p.Args...)
	cmd.Stdin = &snapshot
	cmd.Stdout = reports
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Env = p.Env
	cmd.WaitDelay = waitDelay
	configureProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker process: %w", err)
	}
	return &processWorker{cmd: cmd, reports: reports}, nil
}

type processWorker struct {
	cmd     *exec.Cmd
	reports *reportWriter
}

func (w *processWorker) Pid() int {
	return w.cmd.Process.Pid
}

func (w *processWorker) Wait() error {
	err := w.cmd.Wait()
	w.reports.Flush()
	return err
}

// Package supervisor runs reconciliation jobs in isolated, time-bounded
// workers and schedules them forever.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/psyb0t/cloudflare-dynamic-dns/internal/config"
)

// State is a Supervisor state.
type State string

const (
	StateIdle      State = "idle"
	StateSpawning  State = "spawning"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateTimedOut  State = "timed-out"
	StateSleeping  State = "sleeping"
)

// States lists every state, in cycle order.
var States = []State{StateIdle, StateSpawning, StateRunning, StateCompleted, StateTimedOut, StateSleeping}

// Worker is one running job.
type Worker interface {
	// Pid identifies the worker in logs.
	Pid() int
	// Wait blocks until the worker has exited. Once the spawn context is
	// done the worker is forcibly terminated and Wait returns promptly.
	Wait() error
}

// Spawner starts a worker running one job over the given config snapshot.
// The worker must be terminated when ctx is done.
type Spawner interface {
	Spawn(ctx context.Context, cfg *config.Config) (Worker, error)
}

// CycleResult describes how one cycle ended.
type CycleResult struct {
	State    State // StateCompleted, StateTimedOut, or StateSpawning if the worker never started
	Err      error
	Duration time.Duration
}

// Label is the metrics label for the result.
func (r CycleResult) Label() string {
	switch {
	case r.State == StateTimedOut:
		return "timed_out"
	case r.Err != nil:
		return "failed"
	default:
		return "completed"
	}
}

// Supervisor loads the config, runs one worker per cycle under a hard
// deadline and sleeps between cycles.
type Supervisor struct {
	Load    func() (*config.Config, error)
	Spawner Spawner
	Log     logr.Logger
	Metrics *Metrics

	// Unit is the length of one configured minute. Zero means time.Minute.
	Unit time.Duration

	mu       sync.Mutex
	state    State
	changed  time.Time
	maxQuiet time.Duration
	nowFunc  func() time.Time
}

// Run loops until ctx is done or the config cannot be loaded. A config error
// is returned; shutdown returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		s.setState(StateIdle)

		s.Log.Info("reading config file")
		cfg, err := s.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		s.setWindow(cfg)

		res := s.RunCycle(ctx, cfg)
		if ctx.Err() != nil {
			s.Log.Info("shutting down")
			return nil
		}
		if s.Metrics != nil {
			s.Metrics.observeCycle(res)
		}

		s.setState(StateSleeping)
		s.Log.Info("sleeping", "minutes", cfg.SleepTimeMinutes)
		select {
		case <-ctx.Done():
			s.Log.Info("shutting down")
			return nil
		case <-time.After(s.scale(cfg.SleepTimeMinutes)):
		}
	}
}

// RunCycle spawns one worker for cfg and waits for it to exit or for the job
// timeout to elapse, whichever comes first.
func (s *Supervisor) RunCycle(ctx context.Context, cfg *config.Config) CycleResult {
	timeout := s.scale(cfg.ChildProcessTimeout)
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	s.setState(StateSpawning)
	w, err := s.Spawner.Spawn(jobCtx, cfg)
	if err != nil {
		s.Log.Error(err, "unable to create worker")
		return CycleResult{State: StateSpawning, Err: err, Duration: time.Since(start)}
	}
	log := s.Log.WithValues("pid", w.Pid())
	log.Info("created worker process")
	log.Info("allowing worker to run", "maxMinutes", cfg.ChildProcessTimeout)

	s.setState(StateRunning)
	err = w.Wait()
	res := CycleResult{State: StateCompleted, Err: err, Duration: time.Since(start)}

	// A worker that exited cleanly is completed even if the deadline raced it.
	if err != nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		res.State = StateTimedOut
		res.Err = fmt.Errorf("worker exceeded %d minute timeout: %w", cfg.ChildProcessTimeout, context.DeadlineExceeded)
	}
	s.setState(res.State)

	switch {
	case res.State == StateTimedOut:
		log.Info("killed worker process due to timeout", "elapsed", res.Duration.String())
	case err != nil:
		log.Error(err, "worker exited with error", "elapsed", res.Duration.String())
	default:
		log.Info("worker finished", "elapsed", res.Duration.String())
	}
	return res
}

// Check is a healthz checker: it fails when the Supervisor has not changed
// state for longer than one sleep plus one job timeout.
func (s *Supervisor) Check(_ *http.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.changed.IsZero() || s.maxQuiet == 0 {
		return nil
	}
	if quiet := s.now().Sub(s.changed); quiet > s.maxQuiet {
		return fmt.Errorf("supervisor stuck in state %s for %s", s.state, quiet.Round(time.Second))
	}
	return nil
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == "" {
		return StateIdle
	}
	return s.state
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.changed = s.now()
	s.mu.Unlock()

	s.Log.V(1).Info("state transition", "state", st)
	if s.Metrics != nil {
		s.Metrics.setState(st)
	}
}

func (s *Supervisor) setWindow(cfg *config.Config) {
	window := s.scale(cfg.SleepTimeMinutes) + s.scale(cfg.ChildProcessTimeout) + s.scale(1)
	s.mu.Lock()
	s.maxQuiet = window
	s.mu.Unlock()
}

func (s *Supervisor) scale(minutes int) time.Duration {
	unit := s.Unit
	if unit == 0 {
		unit = time.Minute
	}
	return time.Duration(minutes) * unit
}

func (s *Supervisor) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc()
	}
	return time.Now()
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/flagsmith-community/flagenv/pkg/config"
	"github.com/flagsmith-community/flagenv/pkg/env"
	"github.com/flagsmith-community/flagenv/pkg/flagsmith"
)

// ExitCancelled is returned when an operator-requested shutdown ends
// the run (128 + SIGINT).
const ExitCancelled = 130

// Fetcher is the flag-service dependency of the run loop.
type Fetcher interface {
	Fetch(ctx context.Context) ([]flagsmith.Flag, error)
}

type state int

const (
	stateIdle state = iota
	stateFetching
	stateRetrying
	stateWriting
	stateSpawning
	stateSleeping
	stateFatal
)

// Runner drives the fetch → materialize → write/spawn cycle, once or
// on an interval. A single goroutine owns the whole cycle; nothing is
// held open across the sleep between cycles.
type Runner struct {
	Fetcher Fetcher
	Config  *config.RunConfig

	// Child process stdio, overridable in tests.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func New(f Fetcher, cfg *config.RunConfig) *Runner {
	return &Runner{
		Fetcher: f,
		Config:  cfg,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Run executes the loop until one-shot completion, a fatal error or
// cancellation. The int is the process exit code: 0 or the child's
// code on success, ExitCancelled on shutdown; on a fatal error the
// returned error is non-nil and the code is 1.
func (r *Runner) Run(ctx context.Context) (int, error) {
	cfg := r.Config
	policy := r.newBackoff()
	retriesLeft := cfg.MaxRetries

	var (
		flags    []flagsmith.Flag
		lastErr  error
		exitCode int
	)

	s := stateFetching
	for {
		switch s {
		case stateFetching:
			var err error
			flags, err = r.Fetcher.Fetch(ctx)
			switch {
			case ctx.Err() != nil:
				return ExitCancelled, nil
			case err == nil:
				if len(cfg.Command) > 0 {
					s = stateSpawning
				} else {
					s = stateWriting
				}
			case retryable(err) && retriesLeft > 0:
				lastErr = err
				s = stateRetrying
			default:
				lastErr = err
				s = stateFatal
			}

		case stateRetrying:
			wait := policy.NextBackOff()
			retriesLeft--
			log.Warnf("fetch failed, retrying in %s (%d retries left): %v", wait, retriesLeft, lastErr)
			if !r.sleep(ctx, wait) {
				return ExitCancelled, nil
			}
			s = stateFetching

		case stateWriting:
			if err := r.write(flags); err != nil {
				lastErr = err
				s = stateFatal
				break
			}
			if !cfg.Watch() {
				return 0, nil
			}
			s = stateSleeping

		case stateSpawning:
			if cfg.OutputPath != "" {
				if err := r.write(flags); err != nil {
					lastErr = err
					s = stateFatal
					break
				}
			}
			code, err := r.spawn(ctx, flags)
			if err != nil {
				lastErr = err
				s = stateFatal
				break
			}
			if ctx.Err() != nil {
				return ExitCancelled, nil
			}
			exitCode = code
			if !cfg.Watch() {
				return exitCode, nil
			}
			s = stateSleeping

		case stateSleeping:
			if !r.sleep(ctx, cfg.Interval) {
				return ExitCancelled, nil
			}
			// fresh retry budget per cycle
			retriesLeft = cfg.MaxRetries
			policy.Reset()
			s = stateFetching

		case stateFatal:
			return 1, lastErr
		}
	}
}

func (r *Runner) materialize(flags []flagsmith.Flag) []env.Assignment {
	return env.Materialize(flags, env.Options{IncludeDisabled: r.Config.IncludeDisabled})
}

func (r *Runner) write(flags []flagsmith.Flag) error {
	assignments := r.materialize(flags)
	if r.Config.OutputPath == "" {
		return env.Write(r.Stdout, assignments)
	}
	if err := env.WriteFile(r.Config.OutputPath, assignments); err != nil {
		return err
	}
	log.Infof("wrote %d assignments to %s", len(assignments), r.Config.OutputPath)
	return nil
}

// spawn launches the configured command with the materialized
// assignments layered over the current environment and waits for it.
// On cancellation the child gets SIGTERM and is still awaited, so no
// process handle outlives the cycle.
func (r *Runner) spawn(ctx context.Context, flags []flagsmith.Flag) (int, error) {
	argv := r.Config.Command
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env.Merge(os.Environ(), r.materialize(flags))
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %s: %w", argv[0], err)
	}
	log.Debugf("spawned %v (pid %d)", argv, cmd.Process.Pid)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return exitStatus(err)
	case <-ctx.Done():
		_ = cmd.Process.Signal(syscall.SIGTERM)
		return exitStatus(<-done)
	}
}

// exitStatus mirrors a child's exit code; only failures to run the
// command at all surface as errors.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return 0, err
}

func retryable(err error) bool {
	if fe, ok := flagsmith.AsFetchError(err); ok {
		return fe.Retryable()
	}
	return false
}

// newBackoff builds the retry curve: exponential from RetryBackoff,
// doubling, no jitter, capped at 30s. Deterministic given the config.
func (r *Runner) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.Config.RetryBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

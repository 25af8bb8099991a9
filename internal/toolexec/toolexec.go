// Package toolexec runs the external programs the extractors depend on
// (pdftotext, pdftoppm, tesseract, antiword) with a timeout and a circuit
// breaker per tool, so a broken install fails fast instead of stalling
// every document.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
	"github.com/gmsas95/rfqextract/internal/metrics"
)

// errInterrupted marks runs cut short by the caller's context.
var errInterrupted = errors.New("run interrupted by caller")

type Config struct {
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:         60 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Runner executes tools. It is safe for concurrent use.
type Runner struct {
	config Config
	logger *zap.Logger

	// swapped in tests
	lookPath func(string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		config:   cfg,
		logger:   logger,
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// Available reports whether tool resolves on PATH (or as a path).
func (r *Runner) Available(tool string) bool {
	_, err := r.lookPath(tool)
	return err == nil
}

// Run executes tool with args and returns its stdout. The error carries a
// TOOL_xxx code: missing binary, timeout, non-zero exit or open circuit.
func (r *Runner) Run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	name := filepath.Base(tool)
	path, err := r.lookPath(tool)
	if err != nil {
		metrics.RecordToolRun(name, err)
		return nil, apperrors.ErrToolMissing.WithCause(err, name+" not installed")
	}

	out, err := r.breaker(name).Execute(func() ([]byte, error) {
		return r.exec(ctx, name, path, args)
	})
	metrics.RecordToolRun(name, err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.ErrCircuitOpen.WithCause(err, name+" circuit open")
	}
	return out, err
}

func (r *Runner) exec(ctx context.Context, name, path string, args []string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := r.command(runCtx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	// the caller gave up; the kill that follows says nothing about the tool
	if ctx.Err() != nil {
		return nil, apperrors.ErrToolFailed.WithCause(fmt.Errorf("%w: %w", errInterrupted, ctx.Err()), name+" interrupted")
	}
	if runCtx.Err() == context.DeadlineExceeded {
		r.logger.Warn("Tool timed out",
			zap.String("tool", name),
			zap.Duration("timeout", r.config.Timeout),
		)
		return nil, apperrors.ErrToolTimeout.WithCause(runCtx.Err(), fmt.Sprintf("%s exceeded %s", name, r.config.Timeout))
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[:300]
		}
		r.logger.Debug("Tool failed",
			zap.String("tool", name),
			zap.Error(err),
			zap.String("stderr", msg),
		)
		return nil, apperrors.ErrToolFailed.WithCause(fmt.Errorf("%w: %s", err, msg), name+" failed")
	}

	r.logger.Debug("Tool finished",
		zap.String("tool", name),
		zap.Duration("elapsed", elapsed),
		zap.Int("stdout_bytes", stdout.Len()),
	)
	return stdout.Bytes(), nil
}

func (r *Runner) breaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	threshold := uint32(r.config.BreakerFailures)
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     r.config.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errInterrupted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("Tool circuit state changed",
				zap.String("tool", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	r.breakers[name] = cb
	return cb
}

// State returns the breaker state for tool, "closed" if never used.
func (r *Runner) State(tool string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[filepath.Base(tool)]; ok {
		return cb.State().String()
	}
	return gobreaker.StateClosed.String()
}

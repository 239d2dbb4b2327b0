// Package controller runs generated harnesses as isolated, time-bounded
// processes under a global concurrency ceiling.
package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/dennishilgert/fnexec/internal/app/executor/protocol"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/pkg/defers"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.controller")

const (
	DefaultMaxConcurrency = 8
	DefaultMaxOutputBytes = 1 << 20
	DefaultWaitDelay      = 2 * time.Second
)

var (
	ErrWorkspace   = errors.New("failed to prepare workspace")
	ErrSpawnFailed = errors.New("failed to spawn process")
)

// State is the terminal state of an invocation.
type State string

const (
	StateCompleted   State = "completed"
	StateTimedOut    State = "timed_out"
	StateCancelled   State = "cancelled"
	StateSpawnFailed State = "spawn_failed"
)

// Outcome is what the controller observed while running a harness.
type Outcome struct {
	State    State
	ExitCode int
	// Stdout is the output outside of result frames.
	Stdout []byte
	Stderr []byte
	// Result is the payload of the last result frame, ResultErr tells why there is none.
	Result    []byte
	ResultErr error
	Truncated bool
	Duration  time.Duration
}

// Request describes one run.
type Request struct {
	InvocationId string
	Harness      *runtimes.Harness
	Timeout      time.Duration
}

type Controller interface {
	// Run waits for a free slot, runs the harness and returns what it observed.
	// An error is returned when the process could not be started at all.
	Run(ctx context.Context, req Request) (*Outcome, error)

	// Stats returns a snapshot of the concurrency ceiling.
	Stats() Stats
}

type Options struct {
	WorkspaceRoot  string
	MaxConcurrency int
	MaxOutputBytes int
	// WaitDelay bounds the wait for output pipes after the process exited or was killed.
	WaitDelay time.Duration
	// PassEnv names variables of the engine's environment handed to every process.
	PassEnv []string
}

type controller struct {
	workspaceRoot  string
	maxOutputBytes int
	waitDelay      time.Duration
	passEnv        []string
	slots          *slots
}

// NewController creates a new controller.
func NewController(opts Options) Controller {
	root := opts.WorkspaceRoot
	if root == "" {
		root = os.TempDir()
	}
	concurrency := opts.MaxConcurrency
	if concurrency <= 0 {
		concurrency = DefaultMaxConcurrency
	}
	maxOutput := opts.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}
	waitDelay := opts.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}
	passEnv := opts.PassEnv
	if passEnv == nil {
		passEnv = []string{"PATH"}
	}
	return &controller{
		workspaceRoot:  root,
		maxOutputBytes: maxOutput,
		waitDelay:      waitDelay,
		passEnv:        passEnv,
		slots:          newSlots(int64(concurrency)),
	}
}

func (c *controller) Stats() Stats {
	return c.slots.stats()
}

func (c *controller) Run(ctx context.Context, req Request) (*Outcome, error) {
	l := logger.FromContextOr(ctx, log.WithFields(map[string]any{logger.FieldInvocation: req.InvocationId}))

	release, err := c.slots.acquire(ctx)
	if err != nil {
		l.Debugf("invocation cancelled while queued: %v", err)
		return &Outcome{State: StateCancelled, ExitCode: -1}, nil
	}

	cleanup := defers.NewDefers()
	cleanup.Add(release)
	defer func() {
		if err := cleanup.CallAll(); err != nil {
			l.Errorf("failed to clean up invocation: %v", err)
		}
	}()

	ws, err := newWorkspace(c.workspaceRoot)
	if err != nil {
		return &Outcome{State: StateSpawnFailed, ExitCode: -1}, fmt.Errorf("%w: %v", ErrWorkspace, err)
	}
	cleanup.AddErr(ws.Remove)

	if err := ws.WriteFiles(req.Harness.Files); err != nil {
		return &Outcome{State: StateSpawnFailed, ExitCode: -1}, fmt.Errorf("%w: %v", ErrWorkspace, err)
	}

	return c.spawn(ctx, l, ws, req)
}

func (c *controller) spawn(ctx context.Context, l logger.Logger, ws *workspace, req Request) (*Outcome, error) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var killed atomic.Bool
	cmd := exec.CommandContext(runCtx, req.Harness.Command, req.Harness.Args...)
	cmd.Dir = ws.Path()
	cmd.Env = c.environment(ws, req.Harness.Env)
	cmd.WaitDelay = c.waitDelay
	configureProcess(cmd, func() { killed.Store(true) })

	stdout := newBoundedBuffer(c.maxOutputBytes)
	stderr := newBoundedBuffer(c.maxOutputBytes)
	decoder := protocol.NewDecoder(req.Harness.Sentinel, stdout, c.maxOutputBytes)
	cmd.Stdout = decoder
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		l.Warnf("failed to spawn %s: %v", req.Harness.Command, err)
		return &Outcome{State: StateSpawnFailed, ExitCode: -1}, fmt.Errorf("%w: %s", ErrSpawnFailed, scrub(err.Error(), ws.Path()))
	}
	l.Debugf("spawned process with pid %d", cmd.Process.Pid)

	waitErr := cmd.Wait()
	duration := time.Since(start)

	// Children that outlived the harness are killed with the group.
	if err := killProcessGroup(cmd); err != nil {
		l.Warnf("failed to kill process group: %v", err)
	}
	_ = decoder.Close()

	outcome := &Outcome{
		State:     StateCompleted,
		ExitCode:  exitCode(cmd, waitErr),
		Stdout:    scrubBytes(stdout.Bytes(), ws.Path()),
		Stderr:    scrubBytes(stderr.Bytes(), ws.Path()),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Duration:  duration,
	}
	outcome.Result, outcome.ResultErr = decoder.Result()

	if killed.Load() {
		if ctx.Err() != nil {
			outcome.State = StateCancelled
		} else {
			outcome.State = StateTimedOut
		}
	}
	if waitErr != nil && errors.Is(waitErr, exec.ErrWaitDelay) {
		l.Debugf("output pipes were still open %s after the process exited", c.waitDelay)
	}
	l.Debugf("process finished in state %s with exit code %d after %s", outcome.State, outcome.ExitCode, duration)
	return outcome, nil
}

// environment builds the process environment from scratch. Nothing of the
// engine's environment leaks except the variables listed in PassEnv.
func (c *controller) environment(ws *workspace, harnessEnv []string) []string {
	env := make([]string, 0, len(c.passEnv)+len(harnessEnv)+4)
	for _, name := range c.passEnv {
		if value, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+value)
		}
	}
	env = append(env,
		"HOME="+ws.Path(),
		"TMPDIR="+ws.TmpDir(),
		"LANG=C.UTF-8",
	)
	return append(env, harnessEnv...)
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func scrub(s string, path string) string {
	return string(scrubBytes([]byte(s), path))
}

// scrubBytes hides the workspace location from captured output.
func scrubBytes(b []byte, path string) []byte {
	if path == "" {
		return b
	}
	return bytes.ReplaceAll(b, []byte(path), []byte("."))
}

// Package executor is the function execution engine. It validates the
// arguments, resolves the entry point, generates a harness, runs it under the
// controller and classifies what happened.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dennishilgert/fnexec/internal/app/executor/controller"
	"github.com/dennishilgert/fnexec/internal/app/executor/protocol"
	"github.com/dennishilgert/fnexec/internal/app/executor/resolver"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes/registry"
	"github.com/dennishilgert/fnexec/internal/app/executor/validation"
	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.executor")

const (
	DefaultTimeout = 10 * time.Second
	DefaultMinimum = 100 * time.Millisecond
	DefaultMaximum = 5 * time.Minute
)

// SourceLoader resolves inline and referenced sources transparently.
type SourceLoader interface {
	LoadSource(ctx context.Context, spec *function.Spec) (string, error)
}

// Recorder receives a record of every finished invocation.
type Recorder interface {
	Record(ctx context.Context, record Record)
}

// Record summarizes one invocation.
type Record struct {
	InvocationId string    `json:"invocationId" bson:"invocation_id"`
	Function     string    `json:"function" bson:"function"`
	Language     string    `json:"language" bson:"language"`
	EntryPoint   string    `json:"entryPoint,omitempty" bson:"entry_point,omitempty"`
	Outcome      string    `json:"outcome" bson:"outcome"`
	Detail       string    `json:"detail,omitempty" bson:"detail,omitempty"`
	StartedAt    time.Time `json:"startedAt" bson:"started_at"`
	DurationMs   int64     `json:"durationMs" bson:"duration_ms"`
}

// Timeouts bounds the per-function timeout.
type Timeouts struct {
	Default time.Duration
	Minimum time.Duration
	Maximum time.Duration
}

// Clamp returns the effective timeout for a configured value in milliseconds.
// Zero selects the default.
func (t Timeouts) Clamp(timeoutMs int64) time.Duration {
	timeout := t.Default
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	if t.Minimum > 0 && timeout < t.Minimum {
		timeout = t.Minimum
	}
	if t.Maximum > 0 && timeout > t.Maximum {
		timeout = t.Maximum
	}
	return timeout
}

type Executor interface {
	// Execute runs the function with the arguments. Every failure is returned
	// as part of the result.
	Execute(ctx context.Context, spec *function.Spec, arguments json.RawMessage) *Result

	// Stats returns the state of the concurrency ceiling.
	Stats() controller.Stats
}

type Options struct {
	Runtimes   registry.Registry
	Resolver   resolver.Resolver
	Validator  validation.Validator
	Controller controller.Controller
	Sources    SourceLoader
	Recorder   Recorder
	Timeouts   Timeouts
}

type executor struct {
	runtimes   registry.Registry
	resolver   resolver.Resolver
	validator  validation.Validator
	controller controller.Controller
	sources    SourceLoader
	recorder   Recorder
	timeouts   Timeouts
}

// NewExecutor creates a new execution engine.
func NewExecutor(opts Options) Executor {
	timeouts := opts.Timeouts
	if timeouts.Default <= 0 {
		timeouts.Default = DefaultTimeout
	}
	if timeouts.Minimum <= 0 {
		timeouts.Minimum = DefaultMinimum
	}
	if timeouts.Maximum <= 0 {
		timeouts.Maximum = DefaultMaximum
	}
	return &executor{
		runtimes:   opts.Runtimes,
		resolver:   opts.Resolver,
		validator:  opts.Validator,
		controller: opts.Controller,
		sources:    opts.Sources,
		recorder:   opts.Recorder,
		timeouts:   timeouts,
	}
}

func (e *executor) Stats() controller.Stats {
	return e.controller.Stats()
}

func (e *executor) Execute(ctx context.Context, spec *function.Spec, arguments json.RawMessage) (result *Result) {
	invocationId := uuid.NewString()
	startedAt := time.Now()
	l := logger.ForInvocation(log, invocationId, spec.Name)
	ctx = logger.NewContext(ctx, l)
	entryPoint := spec.EntryPoint

	defer func() {
		if r := recover(); r != nil {
			l.Errorf("recovered from panic during invocation: %v", r)
			result = failed(FailureInternalError, "internal error during invocation")
		}
		result.InvocationId = invocationId
		result.Duration = time.Since(startedAt)
		result.DurationMs = result.Duration.Milliseconds()

		if result.Ok() {
			l.Infof("invocation succeeded in %s", result.Duration)
		} else {
			l.Infof("invocation failed with %s in %s: %s", result.Failure.Kind, result.Duration, result.Failure.Detail)
		}
		e.record(ctx, spec, entryPoint, startedAt, result)
	}()

	if len(bytes.TrimSpace(arguments)) == 0 {
		arguments = json.RawMessage(`{}`)
	}

	validated, err := e.validator.Validate(arguments, spec.ParameterSchema)
	if err != nil {
		l.Errorf("failed to validate arguments: %v", err)
		return failed(FailureInternalError, "parameter schema could not be applied")
	}
	if !validated.Valid {
		result = failed(FailureValidationFailed, validation.Summary(validated.Violations))
		result.Failure.Violations = validated.Violations
		return result
	}

	source, err := e.sources.LoadSource(ctx, spec)
	if err != nil {
		l.Errorf("failed to load source: %v", err)
		return failed(FailureInternalError, "function source could not be loaded")
	}

	runtime, err := e.runtimes.Runtime(spec.Language)
	if err != nil {
		l.Errorf("failed to select runtime: %v", err)
		return failed(FailureInternalError, err.Error())
	}

	resolution, err := e.resolver.Resolve(ctx, spec.Name, spec.Language, source, spec.EntryPoint)
	if err != nil {
		l.Errorf("failed to resolve entry point: %v", err)
		return failed(FailureInternalError, "entry point could not be resolved")
	}
	if !resolution.Found {
		result = failed(FailureEntryPointNotFound, NotFoundDetail(requested(runtime, spec.EntryPoint), resolution.Available))
		result.Failure.Available = resolution.Available
		return result
	}
	entryPoint = resolution.Name

	harness, err := runtime.GenerateHarness(runtimes.HarnessRequest{
		Source:     source,
		EntryPoint: resolution.Name,
		Arguments:  arguments,
		Sentinel:   protocol.NewSentinel(),
	})
	if err != nil {
		l.Errorf("failed to generate harness: %v", err)
		return failed(FailureInternalError, "harness could not be generated")
	}

	timeout := e.timeouts.Clamp(spec.TimeoutMs)
	outcome, err := e.controller.Run(ctx, controller.Request{
		InvocationId: invocationId,
		Harness:      harness,
		Timeout:      timeout,
	})
	if err != nil {
		l.Errorf("failed to run function: %v", err)
		return failed(FailureInternalError, "function process could not be started")
	}
	if outcome.Truncated {
		l.Warn("function output exceeded the capture limit and was truncated")
	}
	return Classify(outcome, timeout)
}

func (e *executor) record(ctx context.Context, spec *function.Spec, entryPoint string, startedAt time.Time, result *Result) {
	if e.recorder == nil {
		return
	}
	record := Record{
		InvocationId: result.InvocationId,
		Function:     spec.Name,
		Language:     string(spec.Language),
		EntryPoint:   entryPoint,
		Outcome:      result.Kind(),
		StartedAt:    startedAt.UTC(),
		DurationMs:   result.DurationMs,
	}
	if result.Failure != nil {
		record.Detail = result.Failure.Detail
	}
	e.recorder.Record(context.WithoutCancel(ctx), record)
}

func requested(runtime runtimes.Runtime, entryPoint string) string {
	if entryPoint == "" {
		return runtime.DefaultEntryPoint()
	}
	return entryPoint
}

// NotFoundDetail describes a missing entry point together with the alternatives.
func NotFoundDetail(entryPoint string, available []string) string {
	if len(available) == 0 {
		return fmt.Sprintf("entry point %q not found, the source declares no callable functions", entryPoint)
	}
	return fmt.Sprintf("entry point %q not found, available: %s", entryPoint, strings.Join(available, ", "))
}

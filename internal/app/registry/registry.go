// Package registry manages the lifecycle of registered functions and
// dispatches invocations to the execution engine.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/internal/app/executor/resolver"
	runtimeregistry "github.com/dennishilgert/fnexec/internal/app/executor/runtimes/registry"
	"github.com/dennishilgert/fnexec/internal/app/executor/validation"
	"github.com/dennishilgert/fnexec/internal/app/registry/store"
	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.registry")

// EntryPointError rejects a registration whose entry point the source does not declare.
type EntryPointError struct {
	EntryPoint string
	Available  []string
}

func (e *EntryPointError) Error() string {
	return executor.NotFoundDetail(e.EntryPoint, e.Available)
}

type FunctionRegistry interface {
	// Register stores a new function after checking its spec, schema, source and entry point.
	Register(ctx context.Context, spec *function.Spec) (*function.Spec, error)

	// Update replaces a function and drops its cached entry points.
	Update(ctx context.Context, spec *function.Spec) (*function.Spec, error)

	Get(ctx context.Context, name string) (*function.Spec, error)

	List(ctx context.Context) ([]*function.Spec, error)

	Delete(ctx context.Context, name string) error

	// EntryPoints lists the callable names declared by the function source.
	EntryPoints(ctx context.Context, name string) ([]string, error)

	// Invoke runs a registered function. Only a missing function is an error.
	Invoke(ctx context.Context, name string, arguments json.RawMessage) (*executor.Result, error)
}

type Options struct {
	Runtimes  runtimeregistry.Registry
	Store     store.Store
	Sources   executor.SourceLoader
	Resolver  resolver.Resolver
	Validator validation.Validator
	Executor  executor.Executor
}

type functionRegistry struct {
	runtimes  runtimeregistry.Registry
	store     store.Store
	sources   executor.SourceLoader
	resolver  resolver.Resolver
	validator validation.Validator
	executor  executor.Executor
}

// NewFunctionRegistry creates a new function registry.
func NewFunctionRegistry(opts Options) FunctionRegistry {
	return &functionRegistry{
		runtimes:  opts.Runtimes,
		store:     opts.Store,
		sources:   opts.Sources,
		resolver:  opts.Resolver,
		validator: opts.Validator,
		executor:  opts.Executor,
	}
}

func (r *functionRegistry) Register(ctx context.Context, spec *function.Spec) (*function.Spec, error) {
	if err := r.check(ctx, spec); err != nil {
		return nil, err
	}
	if err := r.store.Create(ctx, spec); err != nil {
		return nil, err
	}
	log.Infof("registered function %s (%s)", spec.Name, spec.Language)
	return spec, nil
}

func (r *functionRegistry) Update(ctx context.Context, spec *function.Spec) (*function.Spec, error) {
	if err := r.check(ctx, spec); err != nil {
		return nil, err
	}
	if err := r.store.Update(ctx, spec); err != nil {
		return nil, err
	}
	r.invalidate(ctx, spec.Name)
	log.Infof("updated function %s", spec.Name)
	return spec, nil
}

// check enforces the registration rules shared by Register and Update.
func (r *functionRegistry) check(ctx context.Context, spec *function.Spec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if err := spec.Validate(); err != nil {
		return err
	}
	runtime, err := r.runtimes.Runtime(spec.Language)
	if err != nil {
		return fmt.Errorf("%w: %v", function.ErrInvalidSpec, err)
	}
	if err := r.validator.Compile(spec.ParameterSchema); err != nil {
		return err
	}
	source, err := r.sources.LoadSource(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to load function source: %w", err)
	}
	resolution, err := r.resolver.Resolve(ctx, spec.Name, spec.Language, source, spec.EntryPoint)
	if err != nil {
		return fmt.Errorf("failed to resolve entry point: %w", err)
	}
	if !resolution.Found {
		entryPoint := spec.EntryPoint
		if entryPoint == "" {
			entryPoint = runtime.DefaultEntryPoint()
		}
		return &EntryPointError{EntryPoint: entryPoint, Available: resolution.Available}
	}
	return nil
}

func (r *functionRegistry) Get(ctx context.Context, name string) (*function.Spec, error) {
	return r.store.Load(ctx, name)
}

func (r *functionRegistry) List(ctx context.Context) ([]*function.Spec, error) {
	return r.store.List(ctx)
}

func (r *functionRegistry) Delete(ctx context.Context, name string) error {
	if err := r.store.Delete(ctx, name); err != nil {
		return err
	}
	r.invalidate(ctx, name)
	log.Infof("deleted function %s", name)
	return nil
}

func (r *functionRegistry) EntryPoints(ctx context.Context, name string) ([]string, error) {
	spec, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	source, err := r.sources.LoadSource(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load function source: %w", err)
	}
	return r.resolver.EntryPoints(ctx, spec.Name, spec.Language, source)
}

func (r *functionRegistry) Invoke(ctx context.Context, name string, arguments json.RawMessage) (*executor.Result, error) {
	spec, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.executor.Execute(ctx, spec, arguments), nil
}

func (r *functionRegistry) invalidate(ctx context.Context, name string) {
	if err := r.resolver.Invalidate(ctx, name); err != nil {
		log.Warnf("failed to invalidate entry point cache of %s: %v", name, err)
	}
}

// IsClientError reports whether err was caused by the submitted function.
func IsClientError(err error) bool {
	var entryPointErr *EntryPointError
	return errors.As(err, &entryPointErr) ||
		errors.Is(err, function.ErrInvalidSpec) ||
		errors.Is(err, function.ErrSourceConflict) ||
		errors.Is(err, validation.ErrInvalidSchema) ||
		errors.Is(err, store.ErrSourceTooLarge)
}

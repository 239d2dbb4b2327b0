// Package resolver verifies that a requested entry point exists in a function
// source before any harness is generated for it.
package resolver

import (
	"context"

	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes/registry"
	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.resolver")

// Resolution is the outcome of an entry point lookup. A missing entry point is
// reported as data, never as an error.
type Resolution struct {
	Found     bool     `json:"found"`
	Name      string   `json:"name,omitempty"`
	Available []string `json:"available,omitempty"`
}

// Resolve looks up requested in the discovered names. An empty request means
// the runtime's default entry point.
func Resolve(runtime runtimes.Runtime, names []string, requested string) Resolution {
	if requested == "" {
		requested = runtime.DefaultEntryPoint()
	}
	for _, name := range names {
		if name == requested {
			return Resolution{Found: true, Name: name}
		}
	}
	available := names
	if available == nil {
		available = []string{}
	}
	return Resolution{Found: false, Available: available}
}

type Resolver interface {
	// Resolve checks that requested is declared in the source of the named function.
	Resolve(ctx context.Context, name string, language function.Language, source string, requested string) (Resolution, error)

	// EntryPoints returns all entry points of the source in source order.
	EntryPoints(ctx context.Context, name string, language function.Language, source string) ([]string, error)

	// Invalidate drops the cached entry points of a function.
	Invalidate(ctx context.Context, name string) error
}

type Options struct {
	Runtimes registry.Registry
	Cache    Cache
}

type resolver struct {
	runtimes registry.Registry
	cache    Cache
}

// NewResolver creates a resolver. A nil cache defaults to an in-memory cache.
func NewResolver(opts Options) Resolver {
	c := opts.Cache
	if c == nil {
		c = NewMemoryCache()
	}
	return &resolver{
		runtimes: opts.Runtimes,
		cache:    c,
	}
}

func (r *resolver) Resolve(ctx context.Context, name string, language function.Language, source string, requested string) (Resolution, error) {
	runtime, err := r.runtimes.Runtime(language)
	if err != nil {
		return Resolution{}, err
	}
	names, err := r.entryPoints(ctx, runtime, name, source)
	if err != nil {
		return Resolution{}, err
	}
	return Resolve(runtime, names, requested), nil
}

func (r *resolver) EntryPoints(ctx context.Context, name string, language function.Language, source string) ([]string, error) {
	runtime, err := r.runtimes.Runtime(language)
	if err != nil {
		return nil, err
	}
	return r.entryPoints(ctx, runtime, name, source)
}

func (r *resolver) Invalidate(ctx context.Context, name string) error {
	return r.cache.Invalidate(ctx, name)
}

// entryPoints serves from the cache and falls back to scanning. Cache failures
// only cost a rescan.
func (r *resolver) entryPoints(ctx context.Context, runtime runtimes.Runtime, name string, source string) ([]string, error) {
	fingerprint := function.Fingerprint(source)
	if name != "" {
		names, ok, err := r.cache.Get(ctx, name, fingerprint)
		if err != nil {
			log.Warnf("entry point cache lookup failed for %s: %v", name, err)
		} else if ok {
			return names, nil
		}
	}

	names := runtime.ResolveEntryPoints(source)
	log.Debugf("discovered %d entry points in function %s", len(names), name)

	if name != "" {
		if err := r.cache.Set(ctx, name, fingerprint, names); err != nil {
			log.Warnf("failed to cache entry points of %s: %v", name, err)
		}
	}
	return names, nil
}

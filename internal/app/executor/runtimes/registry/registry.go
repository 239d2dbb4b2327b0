package registry

import (
	"fmt"

	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes/golang"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes/javascript"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes/python"
	"github.com/dennishilgert/fnexec/pkg/function"
)

// Options holds the per-language runtime options.
type Options struct {
	Python     runtimes.Options
	JavaScript runtimes.Options
	Go         runtimes.Options
}

// Registry selects the runtime for a language.
type Registry interface {
	Runtime(language function.Language) (runtimes.Runtime, error)
	Languages() []function.Language
}

type registry struct {
	runtimes map[function.Language]runtimes.Runtime
}

// NewRegistry creates a registry with every supported runtime.
func NewRegistry(opts Options) Registry {
	return NewRegistryOf(
		python.NewPythonRuntime(opts.Python),
		javascript.NewNodeRuntime(opts.JavaScript),
		golang.NewGoRuntime(opts.Go),
	)
}

// NewRegistryOf creates a registry with the given runtimes.
func NewRegistryOf(runtimeList ...runtimes.Runtime) Registry {
	r := &registry{
		runtimes: make(map[function.Language]runtimes.Runtime, len(runtimeList)),
	}
	for _, runtime := range runtimeList {
		r.runtimes[runtime.Language()] = runtime
	}
	return r
}

// Runtime returns the runtime serving the language.
func (r *registry) Runtime(language function.Language) (runtimes.Runtime, error) {
	runtime, ok := r.runtimes[language]
	if !ok {
		return nil, fmt.Errorf("no runtime registered for language: %s", language)
	}
	return runtime, nil
}

// Languages returns the registered languages in a stable order.
func (r *registry) Languages() []function.Language {
	var languages []function.Language
	for _, language := range function.Languages() {
		if _, ok := r.runtimes[language]; ok {
			languages = append(languages, language)
		}
	}
	return languages
}

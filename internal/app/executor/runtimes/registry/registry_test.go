package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes/python"
	"github.com/dennishilgert/fnexec/pkg/function"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(Options{})

	assert.Equal(t, function.Languages(), r.Languages())
	for _, language := range function.Languages() {
		runtime, err := r.Runtime(language)
		require.NoError(t, err)
		assert.Equal(t, language, runtime.Language())
	}

	_, err := r.Runtime("cobol")
	assert.Error(t, err)
}

func TestRegistryOf(t *testing.T) {
	r := NewRegistryOf(python.NewPythonRuntime(runtimes.Options{}))

	assert.Equal(t, []function.Language{function.LanguagePython}, r.Languages())
	_, err := r.Runtime(function.LanguageGo)
	assert.Error(t, err)
}

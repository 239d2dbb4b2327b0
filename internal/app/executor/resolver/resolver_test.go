package resolver

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes/registry"
	"github.com/dennishilgert/fnexec/pkg/function"
)

// countingRuntime declares one entry point per "fn <name>" line.
type countingRuntime struct {
	scans atomic.Int32
}

func (r *countingRuntime) Language() function.Language { return function.LanguagePython }

func (r *countingRuntime) DefaultEntryPoint() string { return function.DefaultEntryPoint }

func (r *countingRuntime) ResolveEntryPoints(source string) []string {
	r.scans.Add(1)
	var names []string
	for _, line := range strings.Split(source, "\n") {
		if name, ok := strings.CutPrefix(line, "fn "); ok {
			names = append(names, name)
		}
	}
	return names
}

func (r *countingRuntime) GenerateHarness(req runtimes.HarnessRequest) (*runtimes.Harness, error) {
	return nil, nil
}

func TestResolveAcrossLanguages(t *testing.T) {
	r := NewResolver(Options{Runtimes: registry.NewRegistry(registry.Options{})})
	ctx := context.Background()

	tests := []struct {
		name      string
		language  function.Language
		source    string
		requested string
		want      Resolution
	}{
		{
			name:     "javascript default",
			language: function.LanguageJavaScript,
			source:   "function main(x){ return x+1 }",
			want:     Resolution{Found: true, Name: "main"},
		},
		{
			name:      "python named",
			language:  function.LanguagePython,
			source:    "def add(a, b):\n    return a + b\n\ndef sub(a, b):\n    return a - b\n",
			requested: "sub",
			want:      Resolution{Found: true, Name: "sub"},
		},
		{
			name:      "python not found lists alternatives in source order",
			language:  function.LanguagePython,
			source:    "def zeta():\n    pass\n\ndef alpha():\n    pass\n",
			requested: "main",
			want:      Resolution{Found: false, Available: []string{"zeta", "alpha"}},
		},
		{
			name:     "go default handler",
			language: function.LanguageGo,
			source:   "package handler\n\nfunc Handler(args map[string]any) (any, error) { return args, nil }\n",
			want:     Resolution{Found: true, Name: "Handler"},
		},
		{
			name:      "nothing declared",
			language:  function.LanguageJavaScript,
			source:    "console.log('hi')",
			requested: "main",
			want:      Resolution{Found: false, Available: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, "fn-"+tt.name, tt.language, tt.source, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownLanguage(t *testing.T) {
	r := NewResolver(Options{Runtimes: registry.NewRegistry(registry.Options{})})

	_, err := r.Resolve(context.Background(), "f", "cobol", "", "")
	assert.Error(t, err)
}

func TestResolveCachesByFingerprint(t *testing.T) {
	runtime := &countingRuntime{}
	r := NewResolver(Options{Runtimes: registry.NewRegistryOf(runtime)})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := r.Resolve(ctx, "calc", function.LanguagePython, "fn add\nfn main", "")
		require.NoError(t, err)
		assert.True(t, res.Found)
	}
	assert.Equal(t, int32(1), runtime.scans.Load())

	// Changed source misses the cache.
	res, err := r.Resolve(ctx, "calc", function.LanguagePython, "fn add", "")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Found: false, Available: []string{"add"}}, res)
	assert.Equal(t, int32(2), runtime.scans.Load())

	require.NoError(t, r.Invalidate(ctx, "calc"))
	_, err = r.EntryPoints(ctx, "calc", function.LanguagePython, "fn add")
	require.NoError(t, err)
	assert.Equal(t, int32(3), runtime.scans.Load())
}

func TestResolveWithoutNameSkipsCache(t *testing.T) {
	runtime := &countingRuntime{}
	r := NewResolver(Options{Runtimes: registry.NewRegistryOf(runtime)})

	for i := 0; i < 2; i++ {
		_, err := r.EntryPoints(context.Background(), "", function.LanguagePython, "fn main")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), runtime.scans.Load())
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "f", "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	names := []string{"a", "b"}
	require.NoError(t, c.Set(ctx, "f", "abc", names))
	names[0] = "mutated"

	got, ok, err := c.Get(ctx, "f", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	_, ok, _ = c.Get(ctx, "f", "other")
	assert.False(t, ok)

	require.NoError(t, c.Invalidate(ctx, "f"))
	_, ok, _ = c.Get(ctx, "f", "abc")
	assert.False(t, ok)
}

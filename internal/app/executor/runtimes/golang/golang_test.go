package golang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennishilgert/fnexec/internal/app/executor/protocol"
	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
)

const handlerSource = `package handler

import "fmt"

/*
func Commented(args map[string]any) (any, error) {
*/

const usage = ` + "`" + `
func InRawString(args map[string]any) (any, error) {
` + "`" + `

type Calculator struct{}

func (c Calculator) Method(args map[string]any) (any, error) {
	return nil, nil
}

func Handler(args map[string]any) (any, error) {
	inner := func() {}
	inner()
	return fmt.Sprint(args["name"]), nil
}

func init() {}

func Map[T any](in []T) []T {
	return in
}

// func LineComment(args map[string]any) (any, error) {
func Echo(args map[string]any) (any, error) {
	return args, nil
}
`

func TestResolveEntryPoints(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "subpackage",
			source: handlerSource,
			want:   []string{"Handler", "Map", "Echo"},
		},
		{
			name:   "subpackage hides unexported functions",
			source: "package fn\n\nfunc helper(args map[string]any) (any, error) { return nil, nil }\n\nfunc Handler(args map[string]any) (any, error) { return helper(args) }\n",
			want:   []string{"Handler"},
		},
		{
			name:   "main package",
			source: "package main\n\nfunc handle(args map[string]any) (any, error) { return args, nil }\n\nfunc main() {}\n",
			want:   []string{"handle"},
		},
		{
			name:   "no package clause",
			source: "func handle(args map[string]any) (any, error) { return args, nil }\n",
			want:   []string{"handle"},
		},
	}

	r := NewGoRuntime(runtimes.Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ResolveEntryPoints(tt.source))
		})
	}
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "handler", PackageName(handlerSource))
	assert.Equal(t, "main", PackageName("// comment\npackage main\n"))
	assert.Equal(t, "", PackageName("func Handler() {}"))
}

func TestGenerateHarnessSubpackage(t *testing.T) {
	r := NewGoRuntime(runtimes.Options{CacheDir: "/var/cache/fnexec/go"})
	sentinel := protocol.NewSentinel()

	h, err := r.GenerateHarness(runtimes.HarnessRequest{
		Source:     handlerSource,
		EntryPoint: "Handler",
		Sentinel:   sentinel,
	})
	require.NoError(t, err)

	assert.Equal(t, defaultBinary, h.Command)
	assert.Equal(t, []string{"run", "."}, h.Args)
	assert.Equal(t, handlerSource, string(h.Files[subSourceFile]))
	assert.NotContains(t, h.Files, rootSourceFile)
	assert.Equal(t, "module fnexec.local/harness\n\ngo 1.21\n", string(h.Files[goModFile]))

	main := string(h.Files[harnessFile])
	assert.Contains(t, main, `fnexecfn "fnexec.local/harness/fn"`)
	assert.Contains(t, main, "= fnexecfn.Handler\n")

	assert.Contains(t, h.Env, "GOCACHE=/var/cache/fnexec/go")
	assert.Contains(t, h.Env, "GOTOOLCHAIN=local")
	assert.Contains(t, h.Env, protocol.EnvSentinel+"="+string(sentinel))
}

func TestGenerateHarnessMainPackage(t *testing.T) {
	r := NewGoRuntime(runtimes.Options{})
	source := "package main\n\nfunc handle(args map[string]any) (any, error) { return args, nil }\n"

	h, err := r.GenerateHarness(runtimes.HarnessRequest{Source: source, EntryPoint: "handle"})
	require.NoError(t, err)

	assert.Equal(t, source, string(h.Files[rootSourceFile]))
	main := string(h.Files[harnessFile])
	assert.NotContains(t, main, "fnexecfn")
	assert.Contains(t, main, "= handle\n")
	for _, kv := range h.Env {
		assert.NotContains(t, kv, "GOCACHE=")
	}

	_, err = r.GenerateHarness(runtimes.HarnessRequest{Source: source, EntryPoint: "main"})
	assert.Error(t, err)
}

func TestGenerateHarnessAddsPackageClause(t *testing.T) {
	r := NewGoRuntime(runtimes.Options{})
	source := "func handle(args map[string]any) (any, error) { return args, nil }\n"

	h, err := r.GenerateHarness(runtimes.HarnessRequest{Source: source, EntryPoint: "handle"})
	require.NoError(t, err)

	assert.Equal(t, "package main\n\n"+source, string(h.Files[rootSourceFile]))
	assert.NotContains(t, h.Files, subSourceFile)
	assert.Contains(t, string(h.Files[harnessFile]), "= handle\n")
}

func TestGenerateHarnessRejectsInvalidEntryPoint(t *testing.T) {
	r := NewGoRuntime(runtimes.Options{})
	_, err := r.GenerateHarness(runtimes.HarnessRequest{Source: handlerSource, EntryPoint: "$Handler"})
	assert.Error(t, err)
}

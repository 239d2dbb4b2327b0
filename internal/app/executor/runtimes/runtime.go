// Package runtimes defines the per-language capability used by the engine.
// Adding a language means adding one Runtime implementation and registering it.
package runtimes

import (
	"encoding/json"
	"regexp"

	"github.com/dennishilgert/fnexec/internal/app/executor/protocol"
	"github.com/dennishilgert/fnexec/pkg/function"
)

// Runtime discovers entry points in a source text and generates the harness
// that invokes one of them.
type Runtime interface {
	// Language returns the language tag served by the runtime.
	Language() function.Language

	// DefaultEntryPoint returns the entry point used when a function does not name one.
	DefaultEntryPoint() string

	// ResolveEntryPoints returns the callable top-level names declared in the source, in source order.
	ResolveEntryPoints(source string) []string

	// GenerateHarness returns the program that invokes entryPoint with the given arguments.
	GenerateHarness(req HarnessRequest) (*Harness, error)
}

// HarnessRequest holds the inputs of a harness generation.
type HarnessRequest struct {
	Source     string
	EntryPoint string
	Arguments  json.RawMessage
	Sentinel   protocol.Sentinel
}

// Harness is a generated program together with the way to launch it.
// File names are relative to the invocation workspace.
type Harness struct {
	Files    map[string][]byte
	Command  string
	Args     []string
	Env      []string
	Sentinel protocol.Sentinel
}

// Options configures a runtime.
type Options struct {
	// BinaryPath is the interpreter or toolchain binary.
	BinaryPath string

	// CacheDir is a build cache shared between invocations. Only used by compiled languages.
	CacheDir string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// IsIdentifier reports whether name can be used as an entry point.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// BaseEnv returns the harness variables shared by all runtimes.
func BaseEnv(req HarnessRequest) []string {
	args := req.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return []string{
		protocol.EnvArguments + "=" + string(args),
		protocol.EnvSentinel + "=" + string(req.Sentinel),
	}
}

// AppendUnique appends name to names unless it is already present.
func AppendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}

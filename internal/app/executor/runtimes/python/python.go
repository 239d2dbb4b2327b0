// Package python provides the Python runtime.
package python

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/pkg/function"
)

const (
	defaultBinary = "python3"

	sourceFile  = "function.py"
	harnessFile = "harness.py"
)

var (
	defPattern    = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
	lambdaPattern = regexp.MustCompile(`^([A-Za-z_]\w*)\s*=\s*lambda\b`)
	aliasPattern  = regexp.MustCompile(`^([A-Za-z_]\w*)\s*=\s*([A-Za-z_]\w*)\s*(?:#.*)?$`)
)

var harnessTemplate = template.Must(template.New("harness").Parse(`import asyncio
import importlib.util
import inspect
import json
import os
import sys

ENTRY_POINT = {{ .EntryPoint }}
SOURCE_FILE = {{ .SourceFile }}


def _fail(message):
    sys.stdout.flush()
    sys.stderr.write("\n" + json.dumps({"error": message}) + "\n")
    sys.stderr.flush()
    os._exit(1)


def _load():
    here = os.path.dirname(os.path.abspath(__file__))
    spec = importlib.util.spec_from_file_location("fnexec_function", os.path.join(here, SOURCE_FILE))
    module = importlib.util.module_from_spec(spec)
    sys.modules["fnexec_function"] = module
    spec.loader.exec_module(module)
    return module


def _run():
    sentinel = os.environ.get("FNEXEC_SENTINEL", "")
    try:
        args = json.loads(os.environ.get("FNEXEC_ARGS") or "{}")
    except ValueError as exc:
        _fail("invalid arguments: %s" % exc)
        return
    try:
        module = _load()
        fn = getattr(module, ENTRY_POINT, None)
        if not callable(fn):
            _fail("entry point %r is not callable" % ENTRY_POINT)
            return
        result = fn(**args)
        if inspect.iscoroutine(result):
            result = asyncio.run(result)
    except SystemExit:
        raise
    except BaseException as exc:
        _fail(str(exc) or exc.__class__.__name__)
        return
    try:
        payload = json.dumps(result)
    except (TypeError, ValueError) as exc:
        _fail("result is not JSON serializable: %s" % exc)
        return
    sys.stdout.write("\n" + sentinel + payload + sentinel + "\n")
    sys.stdout.flush()


_run()
`))

// PythonRuntime implements runtimes.Runtime for Python 3.
// Object arguments are passed as keyword arguments.
type PythonRuntime struct {
	binaryPath string
}

// NewPythonRuntime creates a new Python runtime.
func NewPythonRuntime(opts runtimes.Options) runtimes.Runtime {
	binary := opts.BinaryPath
	if binary == "" {
		binary = defaultBinary
	}
	return &PythonRuntime{
		binaryPath: binary,
	}
}

func (r *PythonRuntime) Language() function.Language {
	return function.LanguagePython
}

func (r *PythonRuntime) DefaultEntryPoint() string {
	return function.DefaultEntryPoint
}

// ResolveEntryPoints scans column-0 function definitions, lambda bindings and
// aliases of already discovered functions. Triple-quoted blocks are skipped.
func (r *PythonRuntime) ResolveEntryPoints(source string) []string {
	var names []string
	var openQuote string

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if openQuote != "" {
			if strings.Count(line, openQuote)%2 == 1 {
				openQuote = ""
			}
			continue
		}

		if m := defPattern.FindStringSubmatch(line); m != nil {
			names = runtimes.AppendUnique(names, m[1])
		} else if m := lambdaPattern.FindStringSubmatch(line); m != nil {
			names = runtimes.AppendUnique(names, m[1])
		} else if m := aliasPattern.FindStringSubmatch(line); m != nil && contains(names, m[2]) {
			names = runtimes.AppendUnique(names, m[1])
		}

		openQuote = opensTripleQuote(line)
	}
	return names
}

// GenerateHarness writes the user source unmodified next to a launcher script.
func (r *PythonRuntime) GenerateHarness(req runtimes.HarnessRequest) (*runtimes.Harness, error) {
	if !runtimes.IsIdentifier(req.EntryPoint) {
		return nil, fmt.Errorf("invalid entry point name: %q", req.EntryPoint)
	}
	entry, _ := json.Marshal(req.EntryPoint)
	file, _ := json.Marshal(sourceFile)

	var buf bytes.Buffer
	if err := harnessTemplate.Execute(&buf, map[string]string{
		"EntryPoint": string(entry),
		"SourceFile": string(file),
	}); err != nil {
		return nil, fmt.Errorf("failed to render python harness: %w", err)
	}

	return &runtimes.Harness{
		Files: map[string][]byte{
			sourceFile:  []byte(req.Source),
			harnessFile: buf.Bytes(),
		},
		Command:  r.binaryPath,
		Args:     []string{"-I", "-u", "-B", harnessFile},
		Env:      runtimes.BaseEnv(req),
		Sentinel: req.Sentinel,
	}, nil
}

// opensTripleQuote returns the delimiter of a triple-quoted string left open at the end of the line.
func opensTripleQuote(line string) string {
	code := line
	first := -1
	delim := ""
	for _, q := range []string{`"""`, `'''`} {
		if idx := strings.Index(code, q); idx >= 0 && (first < 0 || idx < first) {
			first = idx
			delim = q
		}
	}
	if first < 0 {
		return ""
	}
	if hash := strings.Index(code[:first], "#"); hash >= 0 {
		return ""
	}
	if strings.Count(code[first:], delim)%2 == 1 {
		return delim
	}
	return ""
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

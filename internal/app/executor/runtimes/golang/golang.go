// Package golang provides the Go runtime. Functions are compiled and run with
// "go run" inside a throwaway module.
package golang

import (
	"bufio"
	"bytes"
	"fmt"
	"go/token"
	"regexp"
	"strings"
	"text/template"

	"github.com/dennishilgert/fnexec/internal/app/executor/runtimes"
	"github.com/dennishilgert/fnexec/pkg/function"
)

const (
	defaultBinary = "go"

	// DefaultEntryPoint is the handler name used when a Go function does not name one.
	DefaultEntryPoint = "Handler"

	modulePath     = "fnexec.local/harness"
	goVersion      = "1.21"
	goModFile      = "go.mod"
	harnessFile    = "main.go"
	rootSourceFile = "function.go"
	subSourceFile  = "fn/function.go"
)

var (
	funcPattern    = regexp.MustCompile(`^func\s+([A-Za-z_]\w*)\s*[\[(]`)
	packagePattern = regexp.MustCompile(`(?m)^package\s+([A-Za-z_]\w*)`)
	goIdentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

var harnessTemplate = template.Must(template.New("harness").Parse(`package main

import (
	"encoding/json"
	"fmt"
	"os"
{{- if .Import }}

	fnexecfn "{{ .Import }}"
{{- end }}
)

func fnexecFail(message string) {
	b, _ := json.Marshal(map[string]string{"error": message})
	fmt.Fprintf(os.Stderr, "\n%s\n", b)
	os.Exit(1)
}

func fnexecCall(handler func(map[string]any) (any, error), args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(args)
}

func main() {
	raw := os.Getenv("FNEXEC_ARGS")
	if raw == "" {
		raw = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		fnexecFail("invalid arguments: " + err.Error())
	}

	var handler func(map[string]any) (any, error) = {{ .Handler }}
	result, err := fnexecCall(handler, args)
	if err != nil {
		fnexecFail(err.Error())
	}

	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(err.Error())
	}
	sentinel := os.Getenv("FNEXEC_SENTINEL")
	fmt.Fprintf(os.Stdout, "\n%s%s%s\n", sentinel, payload, sentinel)
}
`))

// GoRuntime implements runtimes.Runtime for Go. The entry point must have the
// signature func(map[string]any) (any, error).
type GoRuntime struct {
	binaryPath string
	cacheDir   string
}

// NewGoRuntime creates a new Go runtime.
func NewGoRuntime(opts runtimes.Options) runtimes.Runtime {
	binary := opts.BinaryPath
	if binary == "" {
		binary = defaultBinary
	}
	return &GoRuntime{
		binaryPath: binary,
		cacheDir:   opts.CacheDir,
	}
}

func (r *GoRuntime) Language() function.Language {
	return function.LanguageGo
}

func (r *GoRuntime) DefaultEntryPoint() string {
	return DefaultEntryPoint
}

// ResolveEntryPoints returns the top-level functions of the source. Methods,
// main and init are not callable entry points, and outside package main only
// exported functions are.
func (r *GoRuntime) ResolveEntryPoints(source string) []string {
	var names []string
	var sc scanState
	pkg := PackageName(source)
	exportedOnly := pkg != "" && pkg != "main"

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !sc.skipping() {
			m := funcPattern.FindStringSubmatch(line)
			if m != nil && m[1] != "main" && m[1] != "init" && (!exportedOnly || token.IsExported(m[1])) {
				names = runtimes.AppendUnique(names, m[1])
			}
		}
		sc.advance(line)
	}
	return names
}

// GenerateHarness lays out a module with the user source and a main package
// calling the entry point. Sources in a package other than main are placed in
// a subpackage, so only exported functions can be called. Sources without a
// package clause become package main.
func (r *GoRuntime) GenerateHarness(req runtimes.HarnessRequest) (*runtimes.Harness, error) {
	if !goIdentPattern.MatchString(req.EntryPoint) {
		return nil, fmt.Errorf("invalid entry point name: %q", req.EntryPoint)
	}

	pkg := PackageName(req.Source)
	data := map[string]string{}
	files := map[string][]byte{
		goModFile: []byte(fmt.Sprintf("module %s\n\ngo %s\n", modulePath, goVersion)),
	}

	if pkg == "" || pkg == "main" {
		if req.EntryPoint == "main" || req.EntryPoint == "init" {
			return nil, fmt.Errorf("entry point %q is reserved in package main", req.EntryPoint)
		}
		source := req.Source
		if pkg == "" {
			source = "package main\n\n" + source
		}
		files[rootSourceFile] = []byte(source)
		data["Handler"] = req.EntryPoint
	} else {
		files[subSourceFile] = []byte(req.Source)
		data["Import"] = modulePath + "/fn"
		data["Handler"] = "fnexecfn." + req.EntryPoint
	}

	var buf bytes.Buffer
	if err := harnessTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render go harness: %w", err)
	}
	files[harnessFile] = buf.Bytes()

	env := append(runtimes.BaseEnv(req),
		"GOTOOLCHAIN=local",
		"GOFLAGS=-mod=mod -modcacherw",
		"GO111MODULE=on",
		"GOENV=off",
		"CGO_ENABLED=0",
	)
	if r.cacheDir != "" {
		env = append(env, "GOCACHE="+r.cacheDir)
	}

	return &runtimes.Harness{
		Files:    files,
		Command:  r.binaryPath,
		Args:     []string{"run", "."},
		Env:      env,
		Sentinel: req.Sentinel,
	}, nil
}

// PackageName returns the package clause of a Go source, or an empty string.
func PackageName(source string) string {
	m := packagePattern.FindStringSubmatch(source)
	if m == nil {
		return ""
	}
	return m[1]
}

// scanState tracks block comments and raw string literals spanning lines.
type scanState struct {
	inBlock bool
	inRaw   bool
}

func (s *scanState) skipping() bool {
	return s.inBlock || s.inRaw
}

func (s *scanState) advance(line string) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case s.inBlock:
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				s.inBlock = false
				i++
			}
		case s.inRaw:
			if c == '`' {
				s.inRaw = false
			}
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			s.inBlock = true
			i++
		case c == '`':
			s.inRaw = true
		case c == '"' || c == '\'':
			quote = c
		}
	}
}

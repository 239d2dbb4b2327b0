// Package javascript provides the Node.js runtime.
package javascript

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
	defaultBinary = "node"

	commonJSFile = "function.js"
	moduleFile   = "function.mjs"
	harnessFile  = "harness.cjs"

	moduleTypeCommonJS = "commonjs"
	moduleTypeModule   = "module"
)

const ident = `[A-Za-z_$][\w$]*`

var (
	functionPattern      = regexp.MustCompile(`^(?:export\s+(?:default\s+)?)?(?:async\s+)?function\s*\*?\s*(` + ident + `)\s*\(`)
	bindingPattern       = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(` + ident + `)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|` + ident + `\s*=>)`)
	exportsFuncPattern   = regexp.MustCompile(`^(?:module\.)?exports\.(` + ident + `)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|` + ident + `\s*=>)`)
	exportsAliasPattern  = regexp.MustCompile(`^(?:module\.)?exports\.(` + ident + `)\s*=\s*(` + ident + `)\s*;?\s*$`)
	exportsObjectPattern = regexp.MustCompile(`^module\.exports\s*=\s*\{(.*)$`)
	exportListPattern    = regexp.MustCompile(`^export\s*\{(.*)$`)
	esmPattern           = regexp.MustCompile(`(?m)^(?:export\s|import\s+[^(\s])`)
)

var harnessTemplate = template.Must(template.New("harness").Parse(`'use strict';
const fs = require('fs');
const path = require('path');
const vm = require('vm');
const { createRequire } = require('module');
const { pathToFileURL } = require('url');

const ENTRY_POINT = {{ .EntryPoint }};
const SOURCE_FILE = {{ .SourceFile }};
const MODULE_TYPE = {{ .ModuleType }};
const NON_FINITE = '\u0000fnexec-non-finite';

let finished = false;

function fail(message) {
  if (finished) return;
  finished = true;
  process.stderr.write('\n' + JSON.stringify({ error: String(message) }) + '\n', () => process.exit(1));
}

function errorMessage(err) {
  if (err instanceof Error) return err.message || err.name;
  if (typeof err === 'string') return err;
  try {
    return JSON.stringify(err);
  } catch (e) {
    return String(err);
  }
}

function loadCommonJS(file) {
  const source = fs.readFileSync(file, 'utf8');
  const wrapper = '(function (exports, require, module, __filename, __dirname) {' + source +
    '\n;return function (__fnexecName) { try { return eval(__fnexecName); } catch (__fnexecError) { return undefined; } };\n})';
  const mod = { exports: {} };
  const compiled = vm.runInThisContext(wrapper, { filename: SOURCE_FILE });
  const lookup = compiled.call(mod.exports, mod.exports, createRequire(file), mod, file, path.dirname(file));
  return (name) => {
    const local = lookup(name);
    if (typeof local === 'function') return local;
    if (mod.exports && typeof mod.exports[name] === 'function') return mod.exports[name];
    return undefined;
  };
}

async function loadModule(file) {
  const ns = await import(pathToFileURL(file).href);
  return (name) => {
    if (typeof ns[name] === 'function') return ns[name];
    if (typeof ns.default === 'function' && ns.default.name === name) return ns.default;
    if (ns.default && typeof ns.default[name] === 'function') return ns.default[name];
    return undefined;
  };
}

function parameterNames(fn) {
  const text = Function.prototype.toString.call(fn)
    .replace(/\/\*[\s\S]*?\*\//g, '')
    .replace(/\/\/[^\n]*/g, '');
  const arrow = text.match(/^\s*(?:async\s+)?([A-Za-z_$][\w$]*)\s*=>/);
  if (arrow) return [arrow[1]];
  const list = text.match(/^[^(]*\(([^)]*)\)/);
  if (!list) return null;
  const names = [];
  for (const raw of list[1].split(',')) {
    const name = raw.split('=')[0].trim();
    if (name === '') continue;
    if (!/^[A-Za-z_$][\w$]*$/.test(name)) return null;
    names.push(name);
  }
  return names;
}

function callArguments(fn, args) {
  const keys = Object.keys(args);
  const params = parameterNames(fn);
  if (params && params.length > 0 && keys.length > 0 && keys.every((k) => params.includes(k))) {
    return params.map((p) => args[p]);
  }
  return [args];
}

function encode(result) {
  const payload = JSON.stringify(result === undefined ? null : result, (key, value) =>
    typeof value === 'number' && !Number.isFinite(value) ? NON_FINITE + String(value) : value);
  if (payload === undefined) return 'null';
  return payload.replace(/"\\u0000fnexec-non-finite(-?Infinity|NaN)"/g, '$1');
}

async function run() {
  let args;
  try {
    args = JSON.parse(process.env.FNEXEC_ARGS || '{}');
  } catch (err) {
    fail('invalid arguments: ' + errorMessage(err));
    return;
  }
  const sentinel = process.env.FNEXEC_SENTINEL || '';
  const file = path.join(__dirname, SOURCE_FILE);
  const lookup = MODULE_TYPE === 'module' ? await loadModule(file) : loadCommonJS(file);
  const fn = lookup(ENTRY_POINT);
  if (typeof fn !== 'function') {
    fail('entry point ' + JSON.stringify(ENTRY_POINT) + ' is not a function');
    return;
  }
  const result = await fn(...callArguments(fn, args));
  let payload;
  try {
    payload = encode(result);
  } catch (err) {
    fail('result is not JSON serializable: ' + errorMessage(err));
    return;
  }
  if (finished) return;
  finished = true;
  process.stdout.write('\n' + sentinel + payload + sentinel + '\n', () => process.exit(0));
}

process.on('uncaughtException', (err) => fail(errorMessage(err)));
process.on('unhandledRejection', (err) => fail(errorMessage(err)));
run().catch((err) => fail(errorMessage(err)));
`))

// NodeRuntime implements runtimes.Runtime for JavaScript on Node.js.
// CommonJS sources see top-level declarations, ES modules only their exports.
type NodeRuntime struct {
	binaryPath string
}

// NewNodeRuntime creates a new Node.js runtime.
func NewNodeRuntime(opts runtimes.Options) runtimes.Runtime {
	binary := opts.BinaryPath
	if binary == "" {
		binary = defaultBinary
	}
	return &NodeRuntime{
		binaryPath: binary,
	}
}

func (r *NodeRuntime) Language() function.Language {
	return function.LanguageJavaScript
}

func (r *NodeRuntime) DefaultEntryPoint() string {
	return function.DefaultEntryPoint
}

// ResolveEntryPoints scans column-0 declarations. Export lists only contribute
// names that reference an already discovered function. ES modules only expose
// their exports since the harness imports them.
func (r *NodeRuntime) ResolveEntryPoints(source string) []string {
	module := IsModule(source)
	var names, exported []string
	var sc scanState
	var list *exportList

	declare := func(name string, line string) {
		names = runtimes.AppendUnique(names, name)
		if strings.HasPrefix(line, "export") {
			exported = runtimes.AppendUnique(exported, name)
		}
	}
	closeList := func() {
		for _, name := range list.resolve(names) {
			names = runtimes.AppendUnique(names, name)
			if list.esm {
				exported = runtimes.AppendUnique(exported, name)
			}
		}
		list = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if sc.skipping() {
			sc.advance(line)
			continue
		}

		if list != nil {
			if list.add(line) {
				closeList()
			}
			sc.advance(line)
			continue
		}

		switch {
		case functionPattern.MatchString(line):
			declare(functionPattern.FindStringSubmatch(line)[1], line)
		case bindingPattern.MatchString(line):
			declare(bindingPattern.FindStringSubmatch(line)[1], line)
		case exportsFuncPattern.MatchString(line):
			names = runtimes.AppendUnique(names, exportsFuncPattern.FindStringSubmatch(line)[1])
		case exportsAliasPattern.MatchString(line):
			m := exportsAliasPattern.FindStringSubmatch(line)
			if contains(names, m[2]) {
				names = runtimes.AppendUnique(names, m[1])
			}
		case exportsObjectPattern.MatchString(line):
			list = &exportList{separator: ":", aliasFirst: false}
			if list.add(exportsObjectPattern.FindStringSubmatch(line)[1]) {
				closeList()
			}
		case exportListPattern.MatchString(line):
			list = &exportList{separator: " as ", aliasFirst: true, esm: true}
			if list.add(exportListPattern.FindStringSubmatch(line)[1]) {
				closeList()
			}
		}

		sc.advance(line)
	}
	if module {
		return exported
	}
	return names
}

// GenerateHarness writes the user source unmodified next to a launcher script.
func (r *NodeRuntime) GenerateHarness(req runtimes.HarnessRequest) (*runtimes.Harness, error) {
	if !runtimes.IsIdentifier(req.EntryPoint) {
		return nil, fmt.Errorf("invalid entry point name: %q", req.EntryPoint)
	}

	source := commonJSFile
	moduleType := moduleTypeCommonJS
	if IsModule(req.Source) {
		source = moduleFile
		moduleType = moduleTypeModule
	}

	entry, _ := json.Marshal(req.EntryPoint)
	file, _ := json.Marshal(source)
	kind, _ := json.Marshal(moduleType)

	var buf bytes.Buffer
	if err := harnessTemplate.Execute(&buf, map[string]string{
		"EntryPoint": string(entry),
		"SourceFile": string(file),
		"ModuleType": string(kind),
	}); err != nil {
		return nil, fmt.Errorf("failed to render javascript harness: %w", err)
	}

	return &runtimes.Harness{
		Files: map[string][]byte{
			source:      []byte(req.Source),
			harnessFile: buf.Bytes(),
		},
		Command:  r.binaryPath,
		Args:     []string{harnessFile},
		Env:      runtimes.BaseEnv(req),
		Sentinel: req.Sentinel,
	}, nil
}

// IsModule reports whether the source uses ES module syntax.
func IsModule(source string) bool {
	return esmPattern.MatchString(source)
}

// exportList accumulates the entries of a possibly multi-line export object or list.
type exportList struct {
	separator  string
	aliasFirst bool
	esm        bool
	body       strings.Builder
}

// add appends a line and reports whether the closing brace was reached.
func (l *exportList) add(line string) bool {
	if idx := strings.Index(line, "}"); idx >= 0 {
		l.body.WriteString(line[:idx])
		return true
	}
	l.body.WriteString(line)
	l.body.WriteString(",")
	return false
}

// resolve returns the exported names whose local name is in discovered.
func (l *exportList) resolve(discovered []string) []string {
	var names []string
	for _, entry := range strings.Split(l.body.String(), ",") {
		entry = strings.TrimSpace(stripLineComment(entry))
		if entry == "" {
			continue
		}
		local, exported := entry, entry
		if idx := strings.Index(entry, l.separator); idx >= 0 {
			left := strings.TrimSpace(entry[:idx])
			right := strings.TrimSpace(entry[idx+len(l.separator):])
			if l.aliasFirst {
				local, exported = left, right
			} else {
				exported, local = left, right
			}
		}
		if !runtimes.IsIdentifier(local) || !runtimes.IsIdentifier(exported) {
			continue
		}
		if contains(discovered, local) {
			names = runtimes.AppendUnique(names, exported)
		}
	}
	return names
}

// scanState tracks block comments and template literals spanning lines.
type scanState struct {
	inBlock    bool
	inTemplate bool
}

func (s *scanState) skipping() bool {
	return s.inBlock || s.inTemplate
}

// advance consumes a line and records whether it leaves a comment or template open.
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
		case s.inTemplate:
			if c == '\\' {
				i++
			} else if c == '`' {
				s.inTemplate = false
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
			s.inTemplate = true
		case c == '"' || c == '\'':
			quote = c
		}
	}
}

func stripLineComment(s string) string {
	if idx := strings.Index(s, "//"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Package validation checks invocation arguments against the JSON Schema
// declared by a function.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.validation")

const (
	schemaBaseURL = "https://fnexec.local/schemas/"

	// DefaultMaxCachedSchemas bounds the compiled schema cache.
	DefaultMaxCachedSchemas = 1024
)

var ErrInvalidSchema = errors.New("invalid parameter schema")

// Violation is one violated schema constraint.
type Violation struct {
	Location string `json:"location"`
	Keyword  string `json:"keyword"`
	Message  string `json:"message"`
}

// Outcome is the result of a validation.
type Outcome struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

type Validator interface {
	// Validate checks arguments against schema. An empty schema accepts any object.
	Validate(arguments json.RawMessage, schema json.RawMessage) (Outcome, error)

	// Compile checks that schema is a valid JSON Schema document.
	Compile(schema json.RawMessage) error
}

type Options struct {
	MaxCachedSchemas int
}

type validator struct {
	lock       sync.Mutex
	schemas    map[string]*jsonschema.Schema
	maxSchemas int
	printer    *message.Printer
}

// NewValidator creates a validator with a cache of compiled schemas keyed by
// schema fingerprint.
func NewValidator(opts Options) Validator {
	max := opts.MaxCachedSchemas
	if max <= 0 {
		max = DefaultMaxCachedSchemas
	}
	return &validator{
		schemas:    make(map[string]*jsonschema.Schema),
		maxSchemas: max,
		printer:    message.NewPrinter(language.English),
	}
}

func (v *validator) Validate(arguments json.RawMessage, schema json.RawMessage) (Outcome, error) {
	if len(bytes.TrimSpace(arguments)) == 0 {
		arguments = json.RawMessage(`{}`)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(arguments))
	if err != nil {
		return invalid(Violation{Location: "", Keyword: "json", Message: "arguments are not valid JSON"}), nil
	}
	// Harnesses pass the argument object by field, whatever the schema allows.
	if _, ok := instance.(map[string]any); !ok {
		return invalid(Violation{Location: "", Keyword: "type", Message: "arguments must be a JSON object"}), nil
	}

	if len(bytes.TrimSpace(schema)) == 0 {
		return Outcome{Valid: true}, nil
	}
	compiled, err := v.compiled(schema)
	if err != nil {
		return Outcome{}, err
	}

	if err := compiled.Validate(instance); err != nil {
		var validationErr *jsonschema.ValidationError
		if !errors.As(err, &validationErr) {
			return Outcome{}, fmt.Errorf("failed to validate arguments: %w", err)
		}
		return invalid(v.violations(validationErr)...), nil
	}
	return Outcome{Valid: true}, nil
}

func (v *validator) Compile(schema json.RawMessage) error {
	if len(bytes.TrimSpace(schema)) == 0 {
		return nil
	}
	_, err := v.compiled(schema)
	return err
}

func (v *validator) compiled(schema json.RawMessage) (*jsonschema.Schema, error) {
	fingerprint := function.Fingerprint(string(schema))

	v.lock.Lock()
	defer v.lock.Unlock()

	if compiled, ok := v.schemas[fingerprint]; ok {
		return compiled, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	url := schemaBaseURL + fingerprint + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	if len(v.schemas) >= v.maxSchemas {
		log.Debugf("schema cache is full with %d entries, resetting it", len(v.schemas))
		v.schemas = make(map[string]*jsonschema.Schema)
	}
	v.schemas[fingerprint] = compiled
	return compiled, nil
}

// violations flattens the error tree into its leaves.
func (v *validator) violations(err *jsonschema.ValidationError) []Violation {
	if len(err.Causes) == 0 {
		return []Violation{{
			Location: pointer(err.InstanceLocation),
			Keyword:  strings.Join(err.ErrorKind.KeywordPath(), "/"),
			Message:  err.ErrorKind.LocalizedString(v.printer),
		}}
	}
	var out []Violation
	for _, cause := range err.Causes {
		out = append(out, v.violations(cause)...)
	}
	return out
}

func invalid(violations ...Violation) Outcome {
	return Outcome{Valid: false, Violations: violations}
}

// pointer renders an instance location as a JSON pointer.
func pointer(location []string) string {
	if len(location) == 0 {
		return ""
	}
	var b strings.Builder
	for _, token := range location {
		b.WriteByte('/')
		token = strings.ReplaceAll(token, "~", "~0")
		token = strings.ReplaceAll(token, "/", "~1")
		b.WriteString(token)
	}
	return b.String()
}

// Summary renders violations as a single line.
func Summary(violations []Violation) string {
	parts := make([]string, 0, len(violations))
	for _, violation := range violations {
		location := violation.Location
		if location == "" {
			location = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, violation.Message))
	}
	return strings.Join(parts, "; ")
}

package function

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Language is the enumerated source language of a function.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageGo         Language = "go"
)

// DefaultEntryPoint is the callable invoked when a function does not name one.
const DefaultEntryPoint = "main"

var (
	ErrSourceConflict = errors.New("exactly one of source or sourcePath must be set")
	ErrInvalidSpec    = errors.New("invalid function spec")
)

// Languages returns all supported languages.
func Languages() []Language {
	return []Language{LanguagePython, LanguageJavaScript, LanguageGo}
}

// ParseLanguage maps common aliases to a supported language.
func ParseLanguage(value string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "python", "python3", "py":
		return LanguagePython, nil
	case "javascript", "js", "node", "nodejs":
		return LanguageJavaScript, nil
	case "go", "golang":
		return LanguageGo, nil
	}
	return "", fmt.Errorf("unsupported language: %q", value)
}

// LanguageFromPath detects the language from a source file extension.
func LanguageFromPath(path string) (Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return LanguagePython, nil
	case ".js", ".mjs", ".cjs":
		return LanguageJavaScript, nil
	case ".go":
		return LanguageGo, nil
	}
	return "", fmt.Errorf("cannot detect the language of %s", path)
}

// Spec is the declarative description of a registered function.
type Spec struct {
	Name            string          `json:"name" validate:"required,max=128,fnname"`
	Description     string          `json:"description,omitempty"`
	Language        Language        `json:"language" validate:"required,oneof=python javascript go"`
	Source          string          `json:"source,omitempty"`
	SourcePath      string          `json:"sourcePath,omitempty"`
	EntryPoint      string          `json:"entryPoint,omitempty" validate:"omitempty,max=128"`
	ParameterSchema json.RawMessage `json:"parameterSchema,omitempty"`
	TimeoutMs       int64           `json:"timeoutMs,omitempty" validate:"gte=0"`
	Dependencies    []string        `json:"dependencies,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("fnname", func(fl validator.FieldLevel) bool {
		return ValidName(fl.Field().String())
	})
	return v
}

// ValidName reports whether name is usable as a function name. Names never
// contain path separators or start with a dot or dash.
func ValidName(name string) bool {
	if name == "" || len(name) > 128 || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-") {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r == '-' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// New builds a Spec and enforces its construction invariants.
func New(spec Spec) (*Spec, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the struct rules and the source exclusivity invariant.
func (s *Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s (%s)", e.Field(), e.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSpec, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if (s.Source == "") == (s.SourcePath == "") {
		return ErrSourceConflict
	}
	if len(s.ParameterSchema) > 0 && !json.Valid(s.ParameterSchema) {
		return fmt.Errorf("%w: parameterSchema is not valid JSON", ErrInvalidSpec)
	}
	return nil
}

// Entry returns the configured entry point or the default one.
func (s *Spec) Entry() string {
	if s.EntryPoint == "" {
		return DefaultEntryPoint
	}
	return s.EntryPoint
}

// IsInline reports whether the source is stored inline.
func (s *Spec) IsInline() bool {
	return s.Source != ""
}

// Fingerprint returns the hex SHA-256 of a source text.
func Fingerprint(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

package function

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	spec, err := New(Spec{Name: "echo", Language: LanguagePython, Source: "def main(x): return x"})
	require.NoError(t, err)
	assert.Equal(t, "main", spec.Entry())
	assert.True(t, spec.IsInline())

	spec, err = New(Spec{Name: "echo", Language: LanguageGo, SourcePath: "s3://functions/echo.go", EntryPoint: "Echo"})
	require.NoError(t, err)
	assert.Equal(t, "Echo", spec.Entry())
	assert.False(t, spec.IsInline())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		err  error
	}{
		{"both sources", Spec{Name: "f", Language: LanguagePython, Source: "x", SourcePath: "f.py"}, ErrSourceConflict},
		{"no source", Spec{Name: "f", Language: LanguagePython}, ErrSourceConflict},
		{"missing name", Spec{Language: LanguagePython, Source: "x"}, ErrInvalidSpec},
		{"path in name", Spec{Name: "a/b", Language: LanguagePython, Source: "x"}, ErrInvalidSpec},
		{"hidden name", Spec{Name: ".f", Language: LanguagePython, Source: "x"}, ErrInvalidSpec},
		{"unknown language", Spec{Name: "f", Language: "ruby", Source: "x"}, ErrInvalidSpec},
		{"negative timeout", Spec{Name: "f", Language: LanguagePython, Source: "x", TimeoutMs: -1}, ErrInvalidSpec},
		{"broken schema", Spec{Name: "f", Language: LanguagePython, Source: "x", ParameterSchema: json.RawMessage(`{`)}, ErrInvalidSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.spec.Validate(), tt.err)
		})
	}
}

func TestParseLanguage(t *testing.T) {
	for input, expected := range map[string]Language{
		"python": LanguagePython, "py": LanguagePython,
		"JavaScript": LanguageJavaScript, "node": LanguageJavaScript,
		"golang": LanguageGo, " go ": LanguageGo,
	} {
		language, err := ParseLanguage(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, language)
	}
	_, err := ParseLanguage("cobol")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("a"), Fingerprint("a"))
	assert.NotEqual(t, Fingerprint("a"), Fingerprint("b"))
	assert.Len(t, Fingerprint(""), 64)
}

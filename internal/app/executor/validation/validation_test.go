package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "age": {"type": "integer", "minimum": 0, "maximum": 150},
    "role": {"enum": ["admin", "user"]}
  },
  "required": ["name"]
}`

func TestValidate(t *testing.T) {
	v := NewValidator(Options{})

	tests := []struct {
		name      string
		arguments string
		schema    string
		valid     bool
		locations []string
	}{
		{
			name:      "valid",
			arguments: `{"name": "ada", "age": 36, "role": "admin"}`,
			schema:    personSchema,
			valid:     true,
		},
		{
			name:      "missing required field",
			arguments: `{"age": 36}`,
			schema:    personSchema,
			locations: []string{""},
		},
		{
			name:      "wrong type and range",
			arguments: `{"name": "ada", "age": -1, "role": "guest"}`,
			schema:    personSchema,
			locations: []string{"/age", "/role"},
		},
		{
			name:      "no schema",
			arguments: `{"anything": [1, 2, 3]}`,
			valid:     true,
		},
		{
			name:      "empty arguments",
			arguments: ``,
			valid:     true,
		},
		{
			name:      "not an object",
			arguments: `[1, 2]`,
			locations: []string{""},
		},
		{
			name:      "scalar without schema",
			arguments: `42`,
			locations: []string{""},
		},
		{
			name:      "array accepted by schema",
			arguments: `[1, 2]`,
			schema:    `{"type": "array"}`,
			locations: []string{""},
		},
		{
			name:      "malformed json",
			arguments: `{"name": `,
			schema:    personSchema,
			locations: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := v.Validate(json.RawMessage(tt.arguments), json.RawMessage(tt.schema))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, outcome.Valid)
			if tt.valid {
				assert.Empty(t, outcome.Violations)
				return
			}
			var locations []string
			for _, violation := range outcome.Violations {
				assert.NotEmpty(t, violation.Message)
				assert.NotEmpty(t, violation.Keyword)
				locations = append(locations, violation.Location)
			}
			assert.ElementsMatch(t, tt.locations, locations)
		})
	}
}

func TestValidateRequiredKeyword(t *testing.T) {
	v := NewValidator(Options{})

	outcome, err := v.Validate(json.RawMessage(`{}`), json.RawMessage(personSchema))
	require.NoError(t, err)
	require.Len(t, outcome.Violations, 1)
	assert.Equal(t, "required", outcome.Violations[0].Keyword)
	assert.Contains(t, outcome.Violations[0].Message, "name")
}

func TestCompile(t *testing.T) {
	v := NewValidator(Options{})

	assert.NoError(t, v.Compile(nil))
	assert.NoError(t, v.Compile(json.RawMessage(personSchema)))
	assert.ErrorIs(t, v.Compile(json.RawMessage(`{"type": 12}`)), ErrInvalidSchema)
	assert.ErrorIs(t, v.Compile(json.RawMessage(`{"type":`)), ErrInvalidSchema)
}

func TestSchemaCacheIsBounded(t *testing.T) {
	v := NewValidator(Options{MaxCachedSchemas: 2}).(*validator)

	for _, schema := range []string{`{"type": "object"}`, `{"type": "object", "title": "a"}`, `{"type": "object", "title": "b"}`} {
		require.NoError(t, v.Compile(json.RawMessage(schema)))
	}
	assert.LessOrEqual(t, len(v.schemas), 2)
}

func TestPointer(t *testing.T) {
	assert.Equal(t, "", pointer(nil))
	assert.Equal(t, "/a/0", pointer([]string{"a", "0"}))
	assert.Equal(t, "/a~1b/c~0d", pointer([]string{"a/b", "c~d"}))
}

func TestSummary(t *testing.T) {
	s := Summary([]Violation{
		{Location: "", Keyword: "required", Message: "missing property 'name'"},
		{Location: "/age", Keyword: "minimum", Message: "must be >= 0"},
	})
	assert.Equal(t, "/: missing property 'name'; /age: must be >= 0", s)
}

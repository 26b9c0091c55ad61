package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wassette-dev/wassette/internal/domain/value"
)

// TestProject covers the type-projection table (§4.2) for one
// representative value.Type of every value.Kind.
func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		typ      *value.Type
		wantJSON string
	}{
		{
			name:     "bool",
			typ:      &value.Type{Kind: value.KindBool},
			wantJSON: `{"type":"boolean"}`,
		},
		{
			name:     "u8",
			typ:      &value.Type{Kind: value.KindU8},
			wantJSON: `{"type":"integer","minimum":0,"maximum":255}`,
		},
		{
			name:     "u64",
			typ:      &value.Type{Kind: value.KindU64},
			wantJSON: `{"type":"integer","minimum":0}`,
		},
		{
			name:     "s32",
			typ:      &value.Type{Kind: value.KindS32},
			wantJSON: `{"type":"integer","minimum":-2147483648,"maximum":2147483647}`,
		},
		{
			name:     "f64",
			typ:      &value.Type{Kind: value.KindF64},
			wantJSON: `{"type":"number"}`,
		},
		{
			name:     "char",
			typ:      &value.Type{Kind: value.KindChar},
			wantJSON: `{"type":"string","minLength":1,"maxLength":1}`,
		},
		{
			name:     "string",
			typ:      &value.Type{Kind: value.KindString},
			wantJSON: `{"type":"string"}`,
		},
		{
			name:     "enum",
			typ:      &value.Type{Kind: value.KindEnum, Names: []string{"red", "green"}},
			wantJSON: `{"type":"string","enum":["red","green"]}`,
		},
		{
			name:     "list",
			typ:      &value.Type{Kind: value.KindList, Elem: &value.Type{Kind: value.KindString}},
			wantJSON: `{"type":"array","items":{"type":"string"}}`,
		},
		{
			name: "record",
			typ: &value.Type{Kind: value.KindRecord, Fields: []value.Field{
				{Name: "id", Type: &value.Type{Kind: value.KindString}},
			}},
			wantJSON: `{"type":"object","properties":{"id":{"type":"string"}},"required":["id"],"additionalProperties":false}`,
		},
		{
			name:     "tuple",
			typ:      &value.Type{Kind: value.KindTuple, Items: []*value.Type{{Kind: value.KindString}, {Kind: value.KindBool}}},
			wantJSON: `{"type":"array","prefixItems":[{"type":"string"},{"type":"boolean"}],"minItems":2,"maxItems":2}`,
		},
		{
			name: "variant",
			typ: &value.Type{Kind: value.KindVariant, Cases: []value.Case{
				{Name: "none"},
				{Name: "some", Type: &value.Type{Kind: value.KindU32}},
			}},
			wantJSON: `{"oneOf":[` +
				`{"type":"object","properties":{"tag":{"type":"string","enum":["none"]}},"required":["tag"],"additionalProperties":false},` +
				`{"type":"object","properties":{"tag":{"type":"string","enum":["some"]},"val":{"type":"integer","minimum":0,"maximum":4294967295}},"required":["tag","val"],"additionalProperties":false}` +
				`]}`,
		},
		{
			name:     "option",
			typ:      &value.Type{Kind: value.KindOption, Elem: &value.Type{Kind: value.KindString}},
			wantJSON: `{"oneOf":[{"type":"string"},{"type":"null"}]}`,
		},
		{
			name: "result",
			typ:  &value.Type{Kind: value.KindResult, Ok: &value.Type{Kind: value.KindU32}, Err: &value.Type{Kind: value.KindString}},
			wantJSON: `{"oneOf":[` +
				`{"type":"object","properties":{"tag":{"type":"string","enum":["ok"]},"val":{"type":"integer","minimum":0,"maximum":4294967295}},"required":["tag","val"],"additionalProperties":false},` +
				`{"type":"object","properties":{"tag":{"type":"string","enum":["err"]},"val":{"type":"string"}},"required":["tag","val"],"additionalProperties":false}` +
				`]}`,
		},
		{
			name:     "flags",
			typ:      &value.Type{Kind: value.KindFlags, Names: []string{"read", "write"}},
			wantJSON: `{"type":"array","items":{"type":"string","enum":["read","write"]},"uniqueItems":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Project(tt.typ)
			raw, err := s.Marshal()
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(raw))
		})
	}
}

func TestProject_NilType(t *testing.T) {
	s := Project(nil)
	raw, err := s.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestProject_CarriesDocString(t *testing.T) {
	s := Project(&value.Type{Kind: value.KindString, Doc: "a greeting"})
	assert.Equal(t, "a greeting", s.Description)
}

func TestProjectFunc(t *testing.T) {
	fn := &value.Func{
		Name: "greet",
		Doc:  "says hello",
		Params: []value.Field{
			{Name: "name", Type: &value.Type{Kind: value.KindString}},
		},
		Result: &value.Type{Kind: value.KindString},
	}
	input, output := ProjectFunc(fn)

	inputRaw, err := input.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"name":{"type":"string"}},"required":["name"],"additionalProperties":false,"description":"says hello"}`, string(inputRaw))

	outputRaw, err := output.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string"}`, string(outputRaw))
}

func TestProjectFunc_NoResult(t *testing.T) {
	fn := &value.Func{Name: "ping"}
	_, output := ProjectFunc(fn)
	assert.Nil(t, output)
}

func TestProject_MarshalsToValidJSON(t *testing.T) {
	s := Project(&value.Type{Kind: value.KindRecord, Fields: []value.Field{
		{Name: "n", Type: &value.Type{Kind: value.KindU32}},
	}})
	raw, err := s.Marshal()
	require.NoError(t, err)
	var v any
	require.NoError(t, json.Unmarshal(raw, &v))
}

// Package schema derives JSON Schemas from component-model types
// (value.Type) per the type-projection table, and compiles/validates
// decoded JSON against them. Generation is hand-built (no reflection
// library can express the variant/flags/tuple projections below);
// compilation and validation of the resulting document delegates to
// santhosh-tekuri/jsonschema/v5, the same library the teacher uses for
// validating plugin observation configs against a derived schema.
package schema

import (
	"encoding/json"

	"github.com/wassette-dev/wassette/internal/domain/value"
)

// Schema is a minimal JSON Schema document, just expressive enough for
// the type-projection table in the spec: object/array/string/number/
// boolean/null shapes, oneOf, prefixItems, enum, and the object
// constraints (properties/required/additionalProperties).
type Schema struct {
	Type                 any            `json:"type,omitempty"` // string or []string
	Properties           map[string]any `json:"properties,omitempty"`
	Required             []string       `json:"required,omitempty"`
	AdditionalProperties *bool          `json:"additionalProperties,omitempty"`
	Items                any            `json:"items,omitempty"`
	PrefixItems          []any          `json:"prefixItems,omitempty"`
	MinItems             *int           `json:"minItems,omitempty"`
	MaxItems             *int           `json:"maxItems,omitempty"`
	UniqueItems          bool           `json:"uniqueItems,omitempty"`
	Minimum              *int64         `json:"minimum,omitempty"`
	Maximum              *int64         `json:"maximum,omitempty"`
	Enum                 []string       `json:"enum,omitempty"`
	OneOf                []any          `json:"oneOf,omitempty"`
	MinLength            *int           `json:"minLength,omitempty"`
	MaxLength            *int           `json:"maxLength,omitempty"`
	Description          string         `json:"description,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
func i64Ptr(i int64) *int64 { return &i }

// Project derives the JSON Schema for a component-model type, following
// the spec's type-projection table exactly.
func Project(t *value.Type) *Schema {
	if t == nil {
		return &Schema{}
	}
	s := &Schema{}
	if t.Doc != "" {
		s.Description = t.Doc
	}
	switch t.Kind {
	case value.KindBool:
		s.Type = "boolean"

	case value.KindU8, value.KindU16, value.KindU32, value.KindU64,
		value.KindS8, value.KindS16, value.KindS32, value.KindS64:
		s.Type = "integer"
		min, max := t.Kind.IntegerBounds()
		s.Minimum = i64Ptr(min)
		if t.Kind == value.KindU64 {
			// math.MaxUint64 does not fit in int64; omit the upper
			// bound rather than emit a wrapped negative value.
		} else {
			s.Maximum = i64Ptr(max)
		}

	case value.KindF32, value.KindF64:
		s.Type = "number"

	case value.KindChar:
		s.Type = "string"
		s.MinLength = intPtr(1)
		s.MaxLength = intPtr(1)

	case value.KindString:
		s.Type = "string"

	case value.KindEnum:
		s.Type = "string"
		s.Enum = append([]string{}, t.Names...)

	case value.KindList:
		s.Type = "array"
		s.Items = Project(t.Elem)

	case value.KindRecord:
		s.Type = "object"
		s.Properties = map[string]any{}
		for _, f := range t.Fields {
			s.Properties[f.Name] = Project(f.Type)
			s.Required = append(s.Required, f.Name)
		}
		s.AdditionalProperties = boolPtr(false)

	case value.KindTuple:
		s.Type = "array"
		for _, it := range t.Items {
			s.PrefixItems = append(s.PrefixItems, Project(it))
		}
		n := len(t.Items)
		s.MinItems = intPtr(n)
		s.MaxItems = intPtr(n)

	case value.KindVariant:
		for _, c := range t.Cases {
			caseSchema := &Schema{
				Type:       "object",
				Properties: map[string]any{"tag": &Schema{Type: "string", Enum: []string{c.Name}}},
				Required:   []string{"tag"},
			}
			if c.Type != nil {
				caseSchema.Properties["val"] = Project(c.Type)
				caseSchema.Required = append(caseSchema.Required, "val")
			}
			caseSchema.AdditionalProperties = boolPtr(false)
			s.OneOf = append(s.OneOf, caseSchema)
		}

	case value.KindOption:
		s.OneOf = []any{Project(t.Elem), &Schema{Type: "null"}}

	case value.KindResult:
		okSchema := &Schema{
			Type:                 "object",
			Properties:           map[string]any{"tag": &Schema{Type: "string", Enum: []string{"ok"}}, "val": Project(t.Ok)},
			Required:             []string{"tag", "val"},
			AdditionalProperties: boolPtr(false),
		}
		errSchema := &Schema{
			Type:                 "object",
			Properties:           map[string]any{"tag": &Schema{Type: "string", Enum: []string{"err"}}, "val": Project(t.Err)},
			Required:             []string{"tag", "val"},
			AdditionalProperties: boolPtr(false),
		}
		s.OneOf = []any{okSchema, errSchema}

	case value.KindFlags:
		s.Type = "array"
		s.Items = &Schema{Type: "string", Enum: append([]string{}, t.Names...)}
		s.UniqueItems = true
	}
	return s
}

// ProjectFunc derives the input/output schema pair for an exported
// function: the input schema is the object of named parameters, the
// output schema is the projection of the result type (nil when the
// function returns nothing).
func ProjectFunc(fn *value.Func) (input *Schema, output *Schema) {
	input = &Schema{
		Type:                 "object",
		Properties:           map[string]any{},
		AdditionalProperties: boolPtr(false),
	}
	if fn.Doc != "" {
		input.Description = fn.Doc
	}
	for _, p := range fn.Params {
		input.Properties[p.Name] = Project(p.Type)
		input.Required = append(input.Required, p.Name)
	}
	if fn.Result != nil {
		output = Project(fn.Result)
	}
	return input, output
}

// MarshalJSON renders the schema document for advertisement over MCP.
func (s *Schema) Marshal() (json.RawMessage, error) {
	return json.Marshal(s)
}

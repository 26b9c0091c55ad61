package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// Compiled wraps a compiled jsonschema.Schema so callers validate decoded
// JSON arguments before attempting the value codec.
type Compiled struct {
	schema *jsonschema.Schema
}

// Compile compiles a derived Schema for validation. Mirrors the
// teacher's validateObservationSchema: Draft2020, resource added from
// bytes, compiled once, reused across calls.
func Compile(s *Schema) (*Compiled, error) {
	raw, err := s.Marshal()
	if err != nil {
		return nil, wassetteerr.Internalf("schema.Compile", err, "marshal schema")
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, wassetteerr.Internalf("schema.Compile", err, "add schema resource")
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, wassetteerr.Internalf("schema.Compile", err, "compile schema")
	}
	return &Compiled{schema: compiled}, nil
}

// Validate validates raw JSON arguments against the compiled schema,
// returning a wassetteerr with Kind Parse and Reason "InvalidArgs" on
// failure (per §4.2: missing required fields yield InvalidArgs; this
// also covers unknown fields and structural violations).
func (c *Compiled) Validate(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return wassetteerr.Parsef("schema.Validate", "InvalidArgs", "invalid JSON: %v", err)
	}
	if err := c.schema.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return wassetteerr.Parsef("schema.Validate", "InvalidArgs", "%s", formatValidationError(ve))
		}
		return wassetteerr.Parsef("schema.Validate", "InvalidArgs", "%v", err)
	}
	return nil
}

// formatValidationError walks the cause tree into one readable message,
// the same recursive pattern the teacher uses in
// internal/config/validation.go's formatSchemaValidationError.
func formatValidationError(err *jsonschema.ValidationError) string {
	var messages []string
	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if e.Message != "" {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", loc, e.Message))
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(err)
	if len(messages) == 0 {
		return "validation failed"
	}
	out := messages[0]
	for _, m := range messages[1:] {
		out += "; " + m
	}
	return out
}

package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// GenerateBuiltin reflects a Go struct into a JSON Schema document for
// one of the fixed built-in tools (load-component, grant-*, …), called
// from mcp.builtinTools() for each argument struct it declares. Their
// argument/result shapes are plain Go structs, not component-model
// types, so struct reflection is the right tool here — unlike the
// guest-export schemas in schema.go, which need the manual
// variant/flags projection invopop/jsonschema cannot express.
// Required fields are driven by the jsonschema:"required" tag rather
// than the library's default omitempty inference, so a required field
// can still be the JSON-encoded zero value.
func GenerateBuiltin(v any) (json.RawMessage, error) {
	reflector := jsonschema.Reflector{ExpandedStruct: true, RequiredFromJSONSchemaTags: true}
	doc := reflector.Reflect(v)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, wassetteerr.Internalf("schema.GenerateBuiltin", err, "marshal reflected schema")
	}
	return raw, nil
}

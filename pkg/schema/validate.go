package schema

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/arroyo-project/planner/pkg/planerr"
)

// blobSchemaURL/blobSchemaDoc describe the JSON rendering of a decoded
// schema blob (§6's wire format: the `schema` field of a MemExec/UnnestExec
// extension). This core's own wire format encodes every schema, including
// these two leaf kinds, with Marshal/UnmarshalSchema uniformly -- there is
// no separate JSON wire format. ValidateDecoded instead renders an
// already-decoded *Schema to this JSON shape and validates it, an
// independent structural check that catches an empty field name surviving
// a corrupted wire blob (the rendering always carries a nullability flag,
// since Field.Nullable is a plain bool), grounded on
// `core/pkg/firewall/firewall.go`'s jsonschema.NewCompiler/Draft2020/
// AddResource/Compile sequence for validating tool parameters.
const blobSchemaURL = "https://arroyo-project.invalid/schema/decoded-schema.schema.json"

const blobSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type", "nullable"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "nullable": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	blobValidatorOnce sync.Once
	blobValidator     *jsonschema.Schema
	blobValidatorErr  error
)

func compiledBlobValidator() (*jsonschema.Schema, error) {
	blobValidatorOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(blobSchemaURL, strings.NewReader(blobSchemaDoc)); err != nil {
			blobValidatorErr = planerr.Internal("schema: loading decoded-schema validator failed: %v", err)
			return
		}
		compiled, err := c.Compile(blobSchemaURL)
		if err != nil {
			blobValidatorErr = planerr.Internal("schema: compiling decoded-schema validator failed: %v", err)
			return
		}
		blobValidator = compiled
	})
	return blobValidator, blobValidatorErr
}

// ValidateDecoded checks s against the fixed JSON Schema every decoded
// MemExec/UnnestExec schema blob must conform to (§6), catching a
// structurally malformed schema -- an empty field name, for instance --
// before it reaches the rest of this core as an opaque *Schema value.
func ValidateDecoded(s *Schema) error {
	v, err := compiledBlobValidator()
	if err != nil {
		return err
	}

	fields := make([]any, s.Len())
	for i := 0; i < s.Len(); i++ {
		f := s.Field(i)
		fields[i] = map[string]any{
			"name":     f.Name,
			"type":     f.Type.String(),
			"nullable": f.Nullable,
		}
	}
	doc := map[string]any{"fields": fields}

	if err := v.Validate(doc); err != nil {
		return planerr.Wrap(planerr.KindInternal, err, "schema: decoded schema blob failed validation")
	}
	return nil
}

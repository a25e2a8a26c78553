package resultparser

import (
	"bytes"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemalib "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kenryu42/ralph-review-sub002/types"
)

// reflector generates JSON Schemas the way agent-cli-wrapper's
// sdk_mcp_typed.go does: DoNotReference keeps the schema self-contained
// (no $defs indirection) so it can be embedded directly in a prompt.
var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

func generateSchema[T any]() *jsonschema.Schema {
	var zero T
	return reflector.Reflect(&zero)
}

var (
	reviewSchemaOnce sync.Once
	reviewSchema     *jsonschemalib.Schema

	fixSchemaOnce sync.Once
	fixSchema     *jsonschemalib.Schema
)

func compiledSchema(once *sync.Once, dst **jsonschemalib.Schema, raw *jsonschema.Schema) *jsonschemalib.Schema {
	once.Do(func() {
		data, err := raw.MarshalJSON()
		if err != nil {
			return
		}
		compiler := jsonschemalib.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(data)); err != nil {
			return
		}
		compiled, err := compiler.Compile("schema.json")
		if err != nil {
			return
		}
		*dst = compiled
	})
	return *dst
}

// ReviewSchema returns the compiled validation schema for ReviewSummary,
// or nil if schema compilation failed (callers fall back to structural
// checks only).
func ReviewSchema() *jsonschemalib.Schema {
	raw := generateSchema[types.ReviewSummary]()
	return compiledSchema(&reviewSchemaOnce, &reviewSchema, raw)
}

// FixSchema returns the compiled validation schema for FixSummary.
func FixSchema() *jsonschemalib.Schema {
	raw := generateSchema[types.FixSummary]()
	return compiledSchema(&fixSchemaOnce, &fixSchema, raw)
}

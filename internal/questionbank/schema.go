package questionbank

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// questionSchema describes one valid question entity. Entries failing it
// are skipped on load, not fatal.
const questionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["question", "options", "correct", "type"],
  "properties": {
    "question": { "type": "string", "minLength": 1 },
    "options": {
      "type": "object",
      "minProperties": 2,
      "additionalProperties": { "type": "string" }
    },
    "correct": {
      "type": "array",
      "items": { "type": "string" }
    },
    "type": { "enum": ["single", "multi"] }
  }
}`

var (
	compiledSchema     *jsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

// validateEntry checks one raw question entry against the schema.
func validateEntry(raw json.RawMessage) error {
	schema, err := getCompiledSchema()
	if err != nil {
		return err
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func getCompiledSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(questionSchema))
		if err != nil {
			compileSchemaError = fmt.Errorf("parse question schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("question.schema.json", doc); err != nil {
			compileSchemaError = fmt.Errorf("add question schema: %w", err)
			return
		}
		compiledSchema, compileSchemaError = compiler.Compile("question.schema.json")
	})
	return compiledSchema, compileSchemaError
}

package certificate

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// certificateSchema is the JSON Schema for exported certificates.
const certificateSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://toolwitness.dev/schema/certificate-v1.schema.json",
  "title": "Tool Execution Certificate",
  "type": "object",
  "required": ["version", "tool_name", "evidence", "confidence_score", "authenticity_level", "verified_at"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "tool_name": {"type": "string", "minLength": 1},
    "evidence": {
      "type": "object",
      "required": ["subprocess_spawned", "execution_time"],
      "properties": {
        "subprocess_spawned": {"type": "integer", "minimum": 0},
        "filesystem_changes": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["kind", "path"],
            "properties": {
              "kind": {"enum": ["added", "removed", "modified"]},
              "path": {"type": "string", "minLength": 1},
              "size_delta": {"type": "integer"}
            }
          }
        },
        "execution_time": {"type": "integer", "minimum": 0}
      }
    },
    "fabrication_indicators": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
    "authenticity_level": {
      "enum": ["fabricated", "suspicious", "likely_authentic", "authentic"]
    },
    "verified_at": {"type": "string"},
    "signature": {"type": "string", "pattern": "^[0-9a-f]{128}$"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString(
			"certificate-v1.schema.json", certificateSchema)
	})
	return compiledSchema, schemaErr
}

// ValidateEncoded checks an encoded certificate against the certificate
// schema without decoding it into a Certificate.
func ValidateEncoded(data []byte) error {
	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return schema.Validate(instance)
}

package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// configSchema is the JSON Schema rigup.yaml must satisfy. Structural
// errors (wrong types, missing project/repo identity, malformed secret
// entries) are configuration errors and fatal at startup.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["project", "repo"],
  "properties": {
    "project": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": {"type": "string", "minLength": 1}
      }
    },
    "repo": {
      "type": "object",
      "required": ["owner", "name"],
      "properties": {
        "owner": {"type": "string", "minLength": 1},
        "name": {"type": "string", "minLength": 1},
        "default_branch": {"type": "string"}
      }
    },
    "toolchain": {
      "type": "object",
      "properties": {
        "tools": {"type": "array", "items": {"type": "string", "minLength": 1}}
      }
    },
    "backend": {
      "type": "object",
      "properties": {
        "provider": {"type": "string"},
        "app_id": {"type": "string"},
        "file": {"type": "string"}
      }
    },
    "signing": {
      "type": "object",
      "properties": {
        "key_file": {"type": "string"},
        "bits": {"type": "integer", "minimum": 2048}
      }
    },
    "ci": {
      "type": "object",
      "properties": {
        "workflow": {"type": "string"}
      }
    },
    "secrets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Z][A-Z0-9_]*$"},
          "from_env": {"type": "string"},
          "prompt": {"type": "string"}
        }
      }
    },
    "github": {
      "type": "object",
      "properties": {
        "token_env": {"type": "string"}
      }
    },
    "answers": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  }
}`

var (
	compiledSchema *gojsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func getSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		loader := gojsonschema.NewStringLoader(configSchema)
		compiledSchema, compileErr = gojsonschema.NewSchema(loader)
	})
	return compiledSchema, compileErr
}

// ValidateSchema checks raw YAML config bytes against the config schema.
// It returns a slice of violation descriptions; a nil slice means valid.
func ValidateSchema(yamlData []byte) ([]string, error) {
	var doc any
	if err := yaml.Unmarshal(yamlData, &doc); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting config to JSON: %w", err)
	}

	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling config schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return issues, nil
}

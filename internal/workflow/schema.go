package workflow

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// descriptionSchema is the structural contract for workflow descriptions.
// Semantic rules (mutual exclusivity of actionConfigFile and inline, loop
// field references) are checked in code after the structural pass.
const descriptionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "minLength": 1},
    "actionConfigFile": {"type": "string"},
    "commonConfig": {
      "type": "object",
      "properties": {
        "randomSeed": {"type": "integer"},
        "outputFormat": {"type": "string"}
      }
    },
    "pipeline": {"type": "array", "items": {"$ref": "#/$defs/step"}},
    "loop": {"$ref": "#/$defs/loop"}
  },
  "$defs": {
    "step": {
      "type": "object",
      "required": ["action"],
      "properties": {
        "action": {"type": "string", "minLength": 1},
        "actionConfigFile": {"type": "string"},
        "inline": {"type": "object"},
        "description": {"type": "string"},
        "loop": {"$ref": "#/$defs/loop"},
        "parameterOverrides": {"type": "object"}
      }
    },
    "loop": {
      "type": "object",
      "required": ["variationType", "values", "steps"],
      "properties": {
        "variationType": {
          "enum": ["randomSeed", "attackSegments", "parameters", "singleAttacks", "dualAttackCombinations"]
        },
        "values": {"type": "array", "minItems": 1},
        "steps": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/step"}},
        "baselineDataset": {"type": "string"},
        "datasetPatterns": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["patternName", "segments"],
            "properties": {
              "patternName": {"type": "string"},
              "segments": {
                "type": "array",
                "minItems": 1,
                "items": {"enum": ["A1", "A2", "A1+A2", "A2+A1"]}
              }
            }
          }
        }
      }
    }
  }
}`

const schemaURL = "idsbench://workflow.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledDescriptionSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(descriptionSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse embedded schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("register embedded schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks the generic document form against the embedded
// schema.
func validateSchema(doc any) error {
	sch, err := compiledDescriptionSchema()
	if err != nil {
		return err
	}
	return sch.Validate(doc)
}

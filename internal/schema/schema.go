package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed seed_nodes_schema.json
var seedNodesSchema []byte

// Validator checks registry JSON documents against an embedded schema
type Validator struct {
	schema *jsonschema.Schema
}

// NewSeedNodeValidator compiles the embedded seed-nodes schema
func NewSeedNodeValidator() (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(seedNodesSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("seed-nodes-schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to register schema resource: %w", err)
	}

	compiled, err := compiler.Compile("seed-nodes-schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: compiled}, nil
}

// ValidateFile validates the JSON document at path and returns the number
// of seed node entries it contains.
func (v *Validator) ValidateFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	instance, err := jsonschema.UnmarshalJSON(f)
	if err != nil {
		return 0, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	if err := v.schema.Validate(instance); err != nil {
		return 0, fmt.Errorf("validation failed for %s: %w", path, err)
	}

	nodes, ok := instance.([]any)
	if !ok {
		// The schema constrains the document to an array
		return 0, fmt.Errorf("unexpected document shape in %s", path)
	}

	return len(nodes), nil
}

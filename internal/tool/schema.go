package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCache compiles each tool's Parameters() schema once; tools are
// long-lived registry entries whose schema never changes after
// construction, so there's no reason to recompile it on every call.
var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string]*jsonschema.Schema)
)

// ValidateInput checks input against t's declared JSON Schema before a
// call reaches Execute, so a model that hallucinates an argument shape
// fails with a schema error instead of whatever panic or silent
// zero-value the tool's own json.Unmarshal would produce. A tool with
// no schema (Parameters() returns nil/empty) is treated as unvalidated,
// not as a validation failure.
func ValidateInput(t Tool, input json.RawMessage) error {
	schema, err := compiledSchema(t)
	if err != nil || schema == nil {
		return err
	}

	var doc any
	if len(input) == 0 {
		doc = map[string]any{}
	} else if err := json.Unmarshal(input, &doc); err != nil {
		return fmt.Errorf("tool input is not valid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("tool input does not match schema: %w", err)
	}
	return nil
}

// compiledSchema returns t's compiled schema, compiling and caching it
// on first use. A tool whose Parameters() is empty has nothing to
// compile and is simply unvalidated.
func compiledSchema(t Tool) (*jsonschema.Schema, error) {
	raw := t.Parameters()
	if len(raw) == 0 {
		return nil, nil
	}

	schemaCacheMu.Lock()
	defer schemaCacheMu.Unlock()

	if schema, ok := schemaCache[t.ID()]; ok {
		return schema, nil
	}

	compiler := jsonschema.NewCompiler()
	resourceName := t.ID() + ".json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load schema for %s: %w", t.ID(), err)
	}

	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", t.ID(), err)
	}

	schemaCache[t.ID()] = schema
	return schema, nil
}

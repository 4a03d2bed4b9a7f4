package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks a value against an inline schema map and returns the
// collected violations. A nil or empty slice means the value is valid.
// Violations are always returned as a list, never raised.
func Validate(schema map[string]any, value any) []error {
	if len(schema) == 0 {
		return []error{fmt.Errorf("schema is empty")}
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return []error{fmt.Errorf("marshal schema: %w", err)}
	}
	return ValidateBytes("inline", data, value)
}

// ValidateBytes checks a value against a JSON schema payload.
func ValidateBytes(id string, schema []byte, value any) []error {
	if len(schema) == 0 {
		return []error{fmt.Errorf("schema is empty")}
	}
	resourceID := schemaID(id)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceID, bytes.NewReader(schema)); err != nil {
		return []error{fmt.Errorf("add schema resource: %w", err)}
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return []error{fmt.Errorf("compile schema: %w", err)}
	}
	payload, err := normalizeValue(value)
	if err != nil {
		return []error{fmt.Errorf("normalize payload: %w", err)}
	}
	if err := compiled.Validate(payload); err != nil {
		return collect(err)
	}
	return nil
}

// collect flattens a jsonschema validation error into its leaf causes so
// callers can inspect each violation independently.
func collect(err error) []error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []error{err}
	}
	leaves := leafCauses(ve)
	out := make([]error, 0, len(leaves))
	for _, leaf := range leaves {
		out = append(out, fmt.Errorf("%s: %s", leaf.InstanceLocation, leaf.Message))
	}
	return out
}

func leafCauses(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, leafCauses(cause)...)
	}
	return out
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		var out any
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return out, nil
	case []byte:
		var out any
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return out, nil
	default:
		// Round-trip so arbitrary Go values validate as plain JSON types.
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return out, nil
	}
}

func schemaID(id string) string {
	if id == "" {
		id = "schema"
	}
	return "inmemory://" + id
}

package schema

import (
	"strings"
	"testing"
)

var personSchema = map[string]any{
	"type":     "object",
	"required": []string{"name"},
	"properties": map[string]any{
		"name": map[string]any{"type": "string"},
		"age":  map[string]any{"type": "integer", "minimum": 0},
	},
}

func TestValidateOK(t *testing.T) {
	errs := Validate(personSchema, map[string]any{"name": "ada", "age": 36})
	if len(errs) != 0 {
		t.Fatalf("expected no violations, got %v", errs)
	}
}

func TestValidateCollectsViolations(t *testing.T) {
	errs := Validate(personSchema, map[string]any{"age": -1})
	if len(errs) < 2 {
		t.Fatalf("expected violations for missing name and negative age, got %v", errs)
	}
	joined := ""
	for _, err := range errs {
		joined += err.Error() + ";"
	}
	if !strings.Contains(joined, "name") {
		t.Fatalf("expected a violation naming the missing property: %s", joined)
	}
}

func TestValidateEmptySchema(t *testing.T) {
	errs := Validate(nil, map[string]any{})
	if len(errs) != 1 {
		t.Fatalf("expected a single schema error, got %v", errs)
	}
}

func TestValidateBytesBadSchema(t *testing.T) {
	errs := ValidateBytes("bad", []byte("{"), map[string]any{})
	if len(errs) != 1 {
		t.Fatalf("expected compile error, got %v", errs)
	}
}

func TestValidateRawPayload(t *testing.T) {
	errs := ValidateBytes("person", []byte(`{"type":"object","required":["name"]}`), []byte(`{"name":"ada"}`))
	if len(errs) != 0 {
		t.Fatalf("expected raw payload to validate, got %v", errs)
	}
}

package storage

import (
	"reflect"
	"testing"
)

func TestConditionsScalar(t *testing.T) {
	pred, values := Conditions(map[string]any{"a": 5})
	if pred != "a = ?" {
		t.Fatalf("unexpected predicate: %s", pred)
	}
	if !reflect.DeepEqual(values, []any{5}) {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestConditionsList(t *testing.T) {
	pred, values := Conditions(map[string]any{"a": []int{1, 2}})
	if pred != "a IN ( ? )" {
		t.Fatalf("unexpected predicate: %s", pred)
	}
	if len(values) != 1 || !reflect.DeepEqual(values[0], []int{1, 2}) {
		t.Fatalf("expected the slice appended as one value: %v", values)
	}
}

func TestConditionsEmptyList(t *testing.T) {
	pred, values := Conditions(map[string]any{"a": []int{}})
	if pred != "1 = 0" {
		t.Fatalf("unexpected predicate: %s", pred)
	}
	if len(values) != 0 {
		t.Fatalf("empty list must contribute no value: %v", values)
	}
}

func TestConditionsCompose(t *testing.T) {
	pred, values := Conditions(map[string]any{
		"status": "open",
		"id":     []string{"a", "b"},
		"tags":   []string{},
	})
	// Sorted field order: id, status, tags.
	if pred != "id IN ( ? ) AND status = ? AND 1 = 0" {
		t.Fatalf("unexpected predicate: %s", pred)
	}
	if len(values) != 2 {
		t.Fatalf("unexpected value count: %v", values)
	}
	if !reflect.DeepEqual(values[0], []string{"a", "b"}) || values[1] != "open" {
		t.Fatalf("values misaligned with predicate: %v", values)
	}
}

func TestConditionsDeterministicOrder(t *testing.T) {
	filter := map[string]any{"z": 1, "a": 2, "m": 3}
	pred, values := Conditions(filter)
	if pred != "a = ? AND m = ? AND z = ?" {
		t.Fatalf("unexpected predicate: %s", pred)
	}
	if !reflect.DeepEqual(values, []any{2, 3, 1}) {
		t.Fatalf("values out of order: %v", values)
	}
	for i := 0; i < 20; i++ {
		again, _ := Conditions(filter)
		if again != pred {
			t.Fatalf("order not deterministic: %s vs %s", again, pred)
		}
	}
}

func TestConditionsEmptyFilter(t *testing.T) {
	pred, values := Conditions(nil)
	if pred != "" || values != nil {
		t.Fatalf("expected empty result, got %q %v", pred, values)
	}
}

func TestConditionsBytesAreScalar(t *testing.T) {
	pred, values := Conditions(map[string]any{"hash": []byte{1, 2, 3}})
	if pred != "hash = ?" {
		t.Fatalf("unexpected predicate: %s", pred)
	}
	if len(values) != 1 {
		t.Fatalf("unexpected values: %v", values)
	}
}

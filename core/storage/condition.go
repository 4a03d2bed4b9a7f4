package storage

import (
	"reflect"
	"sort"
	"strings"
)

// Conditions turns a flat field→value filter into an AND-joined predicate
// with positional placeholders and the aligned values sequence. Fields are
// visited in sorted order so predicate and values always line up the same
// way for the same filter.
//
// Scalars produce `field = ?`. Non-empty slices produce `field IN ( ? )`
// with the slice appended as a single value; the driver expands the
// placeholder. An empty slice short-circuits to the always-false `1 = 0`
// and contributes no value, so the query returns nothing instead of
// producing an invalid empty IN-list.
func Conditions(filter map[string]any) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clauses := make([]string, 0, len(fields))
	values := make([]any, 0, len(fields))
	for _, field := range fields {
		value := filter[field]
		if isList(value) {
			if reflect.ValueOf(value).Len() == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			clauses = append(clauses, field+" IN ( ? )")
			values = append(values, value)
			continue
		}
		clauses = append(clauses, field+" = ?")
		values = append(values, value)
	}
	return strings.Join(clauses, " AND "), values
}

// isList reports whether value is a slice or array, excluding []byte which
// is treated as a scalar blob.
func isList(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.([]byte); ok {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

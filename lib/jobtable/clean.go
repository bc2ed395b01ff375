package jobtable

import (
	"encoding/json"
	"strings"
)

// Flatten normalizes nested columns into plain scalars so downstream
// analysis never sees a list or object cell:
//
//   - location:    object -> its "name" string
//   - departments: list of objects -> comma-joined names
//   - offices:     list of objects -> comma-joined names
//   - data_compliance: serialized to a compact JSON string
//   - company_name: dropped entirely
//
// The operation is pure: input records are cloned, never mutated, and
// calling it zero or many times is safe.
func Flatten(rows []Record) []Record {
	out := make([]Record, len(rows))
	for i, rec := range rows {
		clone := rec.Clone()

		if v, ok := clone["location"]; ok {
			clone["location"] = flattenLocation(v)
		}
		if v, ok := clone["departments"]; ok {
			clone["departments"] = joinNames(v)
		}
		if v, ok := clone["offices"]; ok {
			clone["offices"] = joinNames(v)
		}
		if v, ok := clone["data_compliance"]; ok {
			clone["data_compliance"] = serializeOpaque(v)
		}
		delete(clone, "company_name")

		out[i] = clone
	}
	return out
}

// nested structures round-trip through parquet as strings; decode them
// back before flattening when they look like JSON.
func decodeMaybeJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	looksNested := (strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) ||
		(strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"))
	if !looksNested {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		// opaque string after all
		return v
	}
	return decoded
}

func flattenLocation(v any) any {
	v = decodeMaybeJSON(v)
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		if name, ok := m["name"].(string); ok && name != "" {
			return name
		}
		return FormatValue(m)
	}
	return FormatValue(v)
}

func joinNames(v any) any {
	v = decodeMaybeJSON(v)
	if v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return FormatValue(v)
	}

	var names []string
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if name := FormatValue(m["name"]); name != "" {
				names = append(names, name)
			}
			continue
		}
		names = append(names, FormatValue(item))
	}
	if len(names) == 0 {
		return nil
	}
	return strings.Join(names, ", ")
}

func serializeOpaque(v any) any {
	v = decodeMaybeJSON(v)
	if v == nil {
		return nil
	}
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return FormatValue(v)
}

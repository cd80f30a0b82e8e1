package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is the structured fact set produced for one query. Every schema
// field is always present; a field whose value could not be evidenced is nil.
// Records are built once and never mutated after serialization.
type Record struct {
	schema *Schema
	values map[string]any
}

// NewRecord returns an all-null record for the schema.
func NewRecord(s *Schema) *Record {
	values := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		values[f.Name] = nil
	}
	return &Record{schema: s, values: values}
}

// Set assigns a field value. Unknown fields are rejected; they indicate a
// programming error, not bad model output.
func (r *Record) Set(field string, value any) error {
	if _, ok := r.schema.byName[field]; !ok {
		return fmt.Errorf("field %q not in schema %q", field, r.schema.name)
	}
	r.values[field] = value
	return nil
}

// Value returns the current value of a field, nil when unset or unknown.
func (r *Record) Value(field string) any {
	return r.values[field]
}

// MarshalJSON serializes the record as {"data": [ {field: value, ...} ]} with
// fields in schema declaration order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"data":[{`)
	for i, f := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[f.Name])
		if err != nil {
			return nil, fmt.Errorf("marshaling field %q: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteString(`}]}`)
	return buf.Bytes(), nil
}

// JSONString renders the record as indented JSON.
func (r *Record) JSONString() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, raw, "", "    "); err != nil {
		return "", err
	}
	return indented.String(), nil
}

// RecordFromMap builds a record from a parsed field map, coercing values to
// the declared kinds best-effort. Keys outside the schema are dropped;
// missing keys stay nil.
func RecordFromMap(s *Schema, fields map[string]any) *Record {
	r := NewRecord(s)
	for name, value := range fields {
		spec, ok := s.byName[name]
		if !ok {
			continue
		}
		r.values[name] = coerce(spec, value)
	}
	return r
}

// RecordFromJSON parses generator output into a record. The accepted shapes
// are {"data": [ {...} ]}, a doubly-wrapped {"data": {"data": [...]}} that
// nonconforming models sometimes produce, and a flat object. Only the first
// entry of a data array is taken.
func RecordFromJSON(s *Schema, raw string) (*Record, error) {
	var outer map[string]any
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return nil, fmt.Errorf("parsing structured output: %w", err)
	}

	fields := outer
	if inner, ok := outer["data"]; ok {
		switch v := inner.(type) {
		case []any:
			fields = firstObject(v)
		case map[string]any:
			if nested, ok := v["data"].([]any); ok {
				fields = firstObject(nested)
			} else {
				fields = v
			}
		}
	}
	if fields == nil {
		return NewRecord(s), nil
	}
	return RecordFromMap(s, fields), nil
}

func firstObject(items []any) map[string]any {
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			return obj
		}
	}
	return nil
}

// coerce adjusts a decoded JSON value to the field's declared kind. Coercion
// is best-effort: a value that will not convert is kept as-is rather than
// rejected.
func coerce(spec FieldSpec, value any) any {
	if value == nil {
		return nil
	}
	switch spec.Kind {
	case Int:
		if f, ok := value.(float64); ok {
			return int64(f)
		}
	case Float:
		if f, ok := value.(float64); ok {
			return f
		}
	}
	return value
}

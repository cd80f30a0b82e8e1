// Package schema defines the extraction schema descriptor: an ordered set of
// field specs that parameterizes both the extraction prompt and the shape of
// the structured record. Schemas are validated once at construction and are
// read-only afterwards.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind declares how a field's extracted value is coerced.
type Kind int

const (
	String Kind = iota
	Int
	Float
)

// FieldSpec describes one extraction target. Label is the human-readable
// quantity name the generator is asked to emit in its output table; it
// defaults to the field name with underscores replaced by spaces.
type FieldSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
	Label       string `json:"label,omitempty"`
}

// Schema is an ordered, validated field set.
type Schema struct {
	name    string
	fields  []FieldSpec
	byLabel map[string]string
	byName  map[string]FieldSpec
}

var identifierPattern = regexp.MustCompile(`^[a-z]+(_[a-z0-9]+)*$`)

// New validates the field specs and builds a schema. Field names must be
// lowercase identifier-with-underscores form and unique; a malformed schema
// is a configuration error, not a runtime data issue.
func New(name string, fields []FieldSpec) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %q has no fields", name)
	}

	s := &Schema{
		name:    name,
		fields:  make([]FieldSpec, 0, len(fields)),
		byLabel: make(map[string]string, len(fields)),
		byName:  make(map[string]FieldSpec, len(fields)),
	}

	for _, f := range fields {
		if !identifierPattern.MatchString(f.Name) {
			return nil, fmt.Errorf("invalid field name %q: must be snake_case", f.Name)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field name %q", f.Name)
		}
		if f.Label == "" {
			f.Label = strings.ReplaceAll(f.Name, "_", " ")
		}
		s.fields = append(s.fields, f)
		s.byLabel[strings.ToLower(f.Label)] = f.Name
		s.byName[f.Name] = f
	}

	return s, nil
}

func (s *Schema) Name() string { return s.name }

// Fields returns the specs in declaration order.
func (s *Schema) Fields() []FieldSpec { return s.fields }

// FieldByLabel resolves a table label (case-insensitive) to its field spec.
func (s *Schema) FieldByLabel(label string) (FieldSpec, bool) {
	name, ok := s.byLabel[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return FieldSpec{}, false
	}
	return s.byName[name], true
}

// FieldByName looks up a spec by its field name.
func (s *Schema) FieldByName(name string) (FieldSpec, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// ExtractionPrompt renders the two-column-table extraction request for this
// schema's quantities.
func (s *Schema) ExtractionPrompt() string {
	var items strings.Builder
	for _, f := range s.fields {
		items.WriteString("- ")
		items.WriteString(f.Label)
		items.WriteString("\n")
	}

	return fmt.Sprintf(`Please read the provided context thoroughly and extract the following quantities. Your output must be a table with two columns: "Quantity" and "Extracted Value". For each of the items listed below, provide the extracted value exactly as it appears in the document. If an item is not found, simply enter "N/A" for that field. Ensure that any numerical values include their associated units (if applicable) and that you handle multiple values consistently.

Extract the following items:
%s
Instructions:
1. Analyze the entire context to locate all references to the above items.
2. Extract each quantity with precision; include any units and relevant details.
3. If multiple values are present for a single item, list them clearly (e.g., separated by commas).
4. Format your output strictly as a table with two columns: one for the "Quantity" and one for the "Extracted Value".
5. Do not include any extra text, headings, or commentary - only the table is required.
6. If an item cannot be found, record it as "N/A" in the "Extracted Value" column.`, items.String())
}

// JSONSchema builds the schema-constrained output shape:
// {"data": [ {field: string|number|null, ...} ]}. Every field is nullable;
// absence of evidence maps to null, never to a missing key.
func (s *Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.fields))
	required := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		valueType := "string"
		switch f.Kind {
		case Int:
			valueType = "integer"
		case Float:
			valueType = "number"
		}
		properties[f.Name] = map[string]any{
			"type":        []string{valueType, "string", "null"},
			"description": f.Description,
		}
		required = append(required, f.Name)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"properties":           properties,
					"required":             required,
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"data"},
		"additionalProperties": false,
	}
}

// Default returns the resistive-switching extraction schema the pipeline
// ships with.
func Default() *Schema {
	s, err := New("memristor_extraction", []FieldSpec{
		{Name: "switching_layer_material", Label: "switching layer material",
			Description: "The material used in the switching layer of the device, for example a metal oxide such as TiO2 or HfO2."},
		{Name: "synthesis_method", Label: "synthesis method",
			Description: "The method or process used to synthesize or fabricate the material, such as chemical vapor deposition, sol-gel, sputtering, or thermal evaporation."},
		{Name: "top_electrode", Label: "top electrode",
			Description: "The material of the top electrode in the device, typically a metal like platinum or gold."},
		{Name: "top_electrode_thickness", Label: "thickness of top electrode in nanometers", Kind: Float,
			Description: "The thickness of the top electrode in nanometers."},
		{Name: "bottom_electrode", Label: "bottom electrode",
			Description: "The material of the bottom electrode in the device structure."},
		{Name: "bottom_electrode_thickness", Label: "thickness of bottom electrode in nanometers", Kind: Float,
			Description: "The thickness of the bottom electrode in nanometers."},
		{Name: "switching_layer_thickness", Label: "thickness of switching layer in nanometers", Kind: Float,
			Description: "The thickness of the switching layer in nanometers; critical for device performance."},
		{Name: "switching_type", Label: "type of switching",
			Description: "The mode or type of switching observed in the device, such as bipolar or unipolar."},
		{Name: "endurance_cycles", Label: "endurance", Kind: Int,
			Description: "The number of switching cycles the device can endure before failure."},
		{Name: "retention_time", Label: "retention time in seconds", Kind: Int,
			Description: "The duration for which the device retains its resistive state, in seconds."},
		{Name: "memory_window", Label: "memory window in volts", Kind: Float,
			Description: "The voltage difference between the high-resistance and low-resistance states, in volts."},
		{Name: "num_states", Label: "number of states",
			Description: "The number of distinct resistive states the device exhibits, e.g. binary or multilevel."},
		{Name: "conduction_mechanism", Label: "conduction mechanism type",
			Description: "The conduction mechanism observed in the device, such as filamentary or interface conduction."},
		{Name: "resistive_switching_mechanism", Label: "resistive switching mechanism",
			Description: "The resistive switching mechanism, such as oxygen vacancy migration or conductive filament formation and rupture."},
		{Name: "paper_name", Label: "paper name",
			Description: "The title of the research paper from which the data is extracted."},
		{Name: "source", Label: "source (pdf file name)",
			Description: "The filename of the PDF document from which the data was extracted, for example '1.pdf'."},
	})
	if err != nil {
		panic(err)
	}
	return s
}

package schema

import (
	"strings"
	"testing"
)

func recordSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New("s", []FieldSpec{
		{Name: "material"},
		{Name: "endurance_cycles", Kind: Int},
		{Name: "memory_window", Kind: Float},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return s
}

func TestNewRecordAllNull(t *testing.T) {
	r := NewRecord(recordSchema(t))
	raw, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"data":[{"material":null,"endurance_cycles":null,"memory_window":null}]}`
	if string(raw) != want {
		t.Errorf("json = %s, want %s", raw, want)
	}
}

func TestMarshalPreservesDeclarationOrder(t *testing.T) {
	r := NewRecord(recordSchema(t))
	if err := r.Set("memory_window", 2.5); err != nil {
		t.Fatal(err)
	}
	if err := r.Set("material", "HfO2"); err != nil {
		t.Fatal(err)
	}

	raw, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	s := string(raw)
	if !(strings.Index(s, "material") < strings.Index(s, "endurance_cycles") &&
		strings.Index(s, "endurance_cycles") < strings.Index(s, "memory_window")) {
		t.Errorf("fields out of declaration order: %s", s)
	}
}

func TestSetRejectsUnknownField(t *testing.T) {
	r := NewRecord(recordSchema(t))
	if err := r.Set("device_area", 1.0); err == nil {
		t.Fatal("Set accepted an unknown field")
	}
}

func TestRecordFromJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"canonical", `{"data": [{"material": "HfO2", "endurance_cycles": 5000}]}`},
		{"doubly wrapped", `{"data": {"data": [{"material": "HfO2", "endurance_cycles": 5000}]}}`},
		{"flat object", `{"material": "HfO2", "endurance_cycles": 5000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := RecordFromJSON(recordSchema(t), tt.raw)
			if err != nil {
				t.Fatalf("RecordFromJSON: %v", err)
			}
			if got := r.Value("material"); got != "HfO2" {
				t.Errorf("material = %v, want HfO2", got)
			}
			if got := r.Value("endurance_cycles"); got != int64(5000) {
				t.Errorf("endurance_cycles = %v (%T), want int64 5000", got, got)
			}
			if got := r.Value("memory_window"); got != nil {
				t.Errorf("memory_window = %v, want nil", got)
			}
		})
	}
}

func TestRecordFromJSONDropsUnknownKeys(t *testing.T) {
	r, err := RecordFromJSON(recordSchema(t), `{"data": [{"material": "TiO2", "device_area": 100}]}`)
	if err != nil {
		t.Fatalf("RecordFromJSON: %v", err)
	}
	if got := r.Value("device_area"); got != nil {
		t.Errorf("unknown key survived: %v", got)
	}
}

func TestRecordFromJSONMalformed(t *testing.T) {
	if _, err := RecordFromJSON(recordSchema(t), "not json"); err == nil {
		t.Fatal("RecordFromJSON accepted malformed input")
	}
}

func TestJSONStringIndented(t *testing.T) {
	r := NewRecord(recordSchema(t))
	out, err := r.JSONString()
	if err != nil {
		t.Fatalf("JSONString: %v", err)
	}
	if !strings.Contains(out, "\n    ") {
		t.Errorf("output not indented: %q", out)
	}
}

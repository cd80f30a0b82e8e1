package extract

import (
	"fmt"
	"strings"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/schema"
)

// Example is a worked query/record pair shown to the generator to anchor the
// output format. Values are keyed by schema field name so an example can be
// rendered against whatever schema is active.
type Example struct {
	Query  string
	Values map[string]any
}

// builtinExamples anchors the default extraction schema. The record describes
// a real device paper so the shape of a filled-in answer is visible; the
// system instruction tells the generator not to reuse its content.
var builtinExamples = []Example{
	{
		Query: "Extract the switching layer material, synthesis method, electrodes and their thicknesses, type of switching, endurance, retention time, memory window, number of states, conduction mechanism and resistive switching mechanism as a two-column table.",
		Values: map[string]any{
			"switching_layer_material":      "CuO",
			"synthesis_method":              "Solution processable",
			"top_electrode":                 "Ag",
			"top_electrode_thickness":       500,
			"bottom_electrode":              "p-Si",
			"bottom_electrode_thickness":    100,
			"switching_layer_thickness":     250,
			"switching_type":                "resistive switching (RS)",
			"endurance_cycles":              50,
			"retention_time":                1000,
			"memory_window":                 1000,
			"num_states":                    "2 (HRS and LRS)",
			"conduction_mechanism":          "Bulk",
			"resistive_switching_mechanism": "Ag filament formation",
			"paper_name":                    "Memristive Devices from CuO Nanoparticles",
			"source":                        "1.pdf",
		},
	},
}

// bestExample selects the example whose query is most similar to the live
// query, by Dice coefficient over character bigrams. With no better match the
// first example is returned, so callers always get one when any exist.
func bestExample(query string, examples []Example) (Example, bool) {
	if len(examples) == 0 {
		return Example{}, false
	}
	best := examples[0]
	bestScore := 0.0
	for _, ex := range examples {
		if score := diceSimilarity(query, ex.Query); score > bestScore {
			best = ex
			bestScore = score
		}
	}
	return best, true
}

func diceSimilarity(a, b string) float64 {
	ba := bigrams(strings.ToLower(a))
	bb := bigrams(strings.ToLower(b))
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	overlap := 0
	for g, n := range ba {
		if m, ok := bb[g]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}
	total := 0
	for _, n := range ba {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	return 2 * float64(overlap) / float64(total)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

// renderExampleTable shows the example as the two-column table the free-text
// call is asked for, restricted to the active schema's fields. An empty
// string means the example shares no fields with the schema and should be
// omitted.
func renderExampleTable(s *schema.Schema, ex Example) string {
	var b strings.Builder
	for _, f := range s.Fields() {
		value, ok := ex.Values[f.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %v |\n", f.Label, value)
	}
	if b.Len() == 0 {
		return ""
	}
	return "| Quantity | Extracted Value |\n|----------|-----------------|\n" + b.String()
}

// renderExampleJSON shows the example in the {"data": [{...}]} shape used by
// the JSON-mode calls. Fields the example does not cover render as null.
func renderExampleJSON(s *schema.Schema, ex Example) string {
	covered := false
	var b strings.Builder
	b.WriteString(`{"data": [{`)
	for i, f := range s.Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		value, ok := ex.Values[f.Name]
		if !ok {
			fmt.Fprintf(&b, "%q: null", f.Name)
			continue
		}
		covered = true
		switch v := value.(type) {
		case string:
			fmt.Fprintf(&b, "%q: %q", f.Name, v)
		default:
			fmt.Fprintf(&b, "%q: %v", f.Name, v)
		}
	}
	b.WriteString(`}]}`)
	if !covered {
		return ""
	}
	return b.String()
}

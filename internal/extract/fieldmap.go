// Package extract turns generator output into validated structured records
// and citation lists. Generator output is untrusted text; everything here is
// written to survive partial, malformed or decorated responses.
package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/schema"
)

// ErrNotATable reports free-text output that yielded no parsable table rows.
// It drives the fall-through to the schema-constrained strategy.
var ErrNotATable = errors.New("response contains no parsable table rows")

var numberPattern = regexp.MustCompile(`[\d.]+`)

// FieldMapper maps a two-column markdown table onto a schema record. Labels
// are matched case-insensitively; rows with unknown labels are skipped.
type FieldMapper struct {
	log logger.Logger
}

func NewFieldMapper(log logger.Logger) *FieldMapper {
	return &FieldMapper{log: log}
}

// MapTable parses the "Quantity | Extracted Value" table and builds a record.
// Missing fields stay null. The whole text failing to contain a single
// parsable row returns ErrNotATable; a partially parsable table does not.
func (m *FieldMapper) MapTable(s *schema.Schema, text string) (*schema.Record, error) {
	record := schema.NewRecord(s)
	parsed := 0

	for _, line := range strings.Split(text, "\n") {
		label, value, ok := splitRow(line)
		if !ok {
			continue
		}
		parsed++

		spec, known := s.FieldByLabel(label)
		if !known {
			m.log.Debug("table row with unknown label %q skipped", label)
			continue
		}
		if err := record.Set(spec.Name, coerceCell(spec, value)); err != nil {
			return nil, err
		}
	}

	if parsed == 0 {
		return nil, ErrNotATable
	}
	return record, nil
}

// splitRow extracts the label and value cells from one markdown table line.
// Header and separator rows are rejected.
func splitRow(line string) (label, value string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, "|") {
		return "", "", false
	}

	var cells []string
	for _, cell := range strings.Split(strings.Trim(line, "|"), "|") {
		cells = append(cells, strings.TrimSpace(cell))
	}
	if len(cells) < 2 {
		return "", "", false
	}

	label, value = cells[0], cells[1]
	if label == "" || isSeparator(label) || strings.EqualFold(label, "quantity") {
		return "", "", false
	}
	return label, value, true
}

func isSeparator(cell string) bool {
	return strings.Trim(cell, "-: ") == ""
}

// coerceCell normalizes one extracted value. Absence markers become nil;
// numeric fields get the first numeric run of the cell, keeping the raw
// string when no clean number is present.
func coerceCell(spec schema.FieldSpec, value string) any {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "n/a", "na", "null", "none", "not found":
		return nil
	}

	switch spec.Kind {
	case schema.Int:
		if match := numberPattern.FindString(value); match != "" {
			if n, err := strconv.ParseInt(strings.TrimRight(match, "."), 10, 64); err == nil {
				return n
			}
		}
	case schema.Float:
		if match := numberPattern.FindString(value); match != "" {
			if f, err := strconv.ParseFloat(strings.TrimRight(match, "."), 64); err == nil {
				return f
			}
		}
	}
	return value
}

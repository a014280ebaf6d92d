package infra

import (
	"strconv"
	"strings"
)

// Record is one row of the infrastructure table (a region/category slice)
type Record struct {
	Location   string
	RuralUrban string
	Category   string
	Management string
	SchoolType string

	// Raw holds every column as read, keyed by header
	Raw map[string]string
}

// NewRecord builds a record from a header-keyed row
func NewRecord(raw map[string]string) Record {
	if raw == nil {
		raw = make(map[string]string)
	}
	return Record{
		Location:   strings.TrimSpace(raw[ColLocation]),
		RuralUrban: strings.TrimSpace(raw[ColRuralUrban]),
		Category:   strings.TrimSpace(raw[ColCategory]),
		Management: strings.TrimSpace(raw[ColManagement]),
		SchoolType: strings.TrimSpace(raw[ColSchoolType]),
		Raw:        raw,
	}
}

// Value returns the raw string in column, or "" when absent
func (r Record) Value(column string) string {
	return r.Raw[column]
}

// Count parses a numeric column; missing or unparsable values count as 0
func (r Record) Count(column string) float64 {
	v, ok := ParseNumber(r.Raw[column])
	if !ok {
		return 0
	}
	return v
}

// Total is the number of schools the row describes
func (r Record) Total() float64 {
	return r.Count(ColTotalSchools)
}

// Features returns the model input vector in FeatureMetrics order
func (r Record) Features() []float64 {
	x := make([]float64, len(FeatureMetrics))
	for i, m := range FeatureMetrics {
		x[i] = r.Count(m.Column)
	}
	return x
}

// Set stores a value, creating the raw map if needed
func (r *Record) Set(column, value string) {
	if r.Raw == nil {
		r.Raw = make(map[string]string)
	}
	r.Raw[column] = value
}

// ParseNumber parses spreadsheet numbers, tolerating thousands separators and NaN
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Table is an ordered set of records sharing a header
type Table struct {
	Headers []string
	Records []Record
}

// HasColumn reports whether the header contains column
func (t *Table) HasColumn(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// AddColumn appends column to the header when missing
func (t *Table) AddColumn(column string) {
	if !t.HasColumn(column) {
		t.Headers = append(t.Headers, column)
	}
}

// Locations returns distinct locations in first-appearance order
func (t *Table) Locations() []string {
	return distinct(t.Records, func(r Record) string { return r.Location })
}

// Categories returns distinct school categories in first-appearance order
func (t *Table) Categories() []string {
	return distinct(t.Records, func(r Record) string { return r.Category })
}

// Find returns the first record matching location and category
func (t *Table) Find(location, category string) (Record, bool) {
	for _, r := range t.Records {
		if r.Location == location && r.Category == category {
			return r, true
		}
	}
	return Record{}, false
}

func distinct(records []Record, key func(Record) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

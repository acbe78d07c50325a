// Package dataset loads the symptom management table that backs the lookup
// service and the similarity trainer.
package dataset

import (
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Column names expected in the source table.
const (
	ColumnSymptom        = "Symptom"
	ColumnDisorder       = "Common_Disorders"
	ColumnMedications    = "Medications"
	ColumnTherapies      = "Therapies"
	ColumnAssistiveTools = "Assistive_Tools"
)

// RequiredColumns lists the columns a dataset must provide, in canonical order.
var RequiredColumns = []string{
	ColumnSymptom,
	ColumnDisorder,
	ColumnMedications,
	ColumnTherapies,
	ColumnAssistiveTools,
}

// Record is one row of the dataset. Missing cells are stored as "".
type Record struct {
	Symptom        string
	Disorder       string
	Medications    string
	Therapies      string
	AssistiveTools string
}

// Dataset is an ordered, read-only sequence of records. It is safe to share
// between goroutines once constructed.
type Dataset struct {
	records []Record
}

// New builds a Dataset from records, dropping a leading byte order mark from
// every field. The input slice is copied.
func New(records []Record) *Dataset {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record{
			Symptom:        Normalize(r.Symptom),
			Disorder:       Normalize(r.Disorder),
			Medications:    Normalize(r.Medications),
			Therapies:      Normalize(r.Therapies),
			AssistiveTools: Normalize(r.AssistiveTools),
		}
	}
	return &Dataset{records: out}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// At returns the i-th record.
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// All iterates over the records in dataset order.
func (d *Dataset) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i, r := range d.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Symptoms returns the distinct symptom labels in order of first appearance.
func (d *Dataset) Symptoms() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range d.records {
		if _, ok := seen[r.Symptom]; ok {
			continue
		}
		seen[r.Symptom] = struct{}{}
		out = append(out, r.Symptom)
	}
	return out
}

// Normalize drops a leading byte order mark. The remaining bytes are kept as
// stored so that labels round-trip unchanged.
func Normalize(v string) string {
	return strings.TrimPrefix(v, "\ufeff")
}

// MatchKey returns the form used to compare two labels: the NFC composition
// of Normalize(v). Labels that differ only in Unicode composition share a key.
func MatchKey(v string) string {
	return norm.NFC.String(Normalize(v))
}

// missingMarkers are CSV cell values treated as absent, mirroring the markers
// spreadsheet exports commonly use for empty cells.
var missingMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

func cleanCell(v string) string {
	if _, ok := missingMarkers[v]; ok {
		return ""
	}
	return v
}

// Package lookup answers symptom queries against an in-memory dataset.
package lookup

import (
	"sort"

	"github.com/Skufu/symptomguide/internal/dataset"
)

// MaxDisorders caps the number of disorders returned per lookup.
const MaxDisorders = 3

// TreatmentOption is a distinct medication/therapy/assistive-tool combination.
// JSON field names follow the dataset columns.
type TreatmentOption struct {
	Medications    string `json:"Medications"`
	Therapies      string `json:"Therapies"`
	AssistiveTools string `json:"Assistive_Tools"`
}

type Result struct {
	Disorders  []string
	Treatments []TreatmentOption
}

// Engine performs lookups. It never mutates the dataset, so one Engine may
// serve concurrent callers.
type Engine struct {
	ds *dataset.Dataset
}

func NewEngine(ds *dataset.Dataset) *Engine {
	return &Engine{ds: ds}
}

// Lookup returns the most frequent disorders and the distinct treatment
// options among rows whose symptom is one of requested. Symptoms match when
// they are equal after NFC composition (see dataset.MatchKey); returned
// disorders and treatments carry the bytes stored in the dataset. Unknown
// symptoms are ignored; no match yields empty, non-nil slices.
func (e *Engine) Lookup(requested []string) Result {
	result := Result{
		Disorders:  []string{},
		Treatments: []TreatmentOption{},
	}

	want := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		want[dataset.MatchKey(s)] = struct{}{}
	}
	if len(want) == 0 {
		return result
	}

	counts := map[string]int{}
	var order []string
	seen := map[TreatmentOption]struct{}{}

	for _, r := range e.ds.All() {
		if _, ok := want[dataset.MatchKey(r.Symptom)]; !ok {
			continue
		}

		if counts[r.Disorder] == 0 {
			order = append(order, r.Disorder)
		}
		counts[r.Disorder]++

		opt := TreatmentOption{
			Medications:    r.Medications,
			Therapies:      r.Therapies,
			AssistiveTools: r.AssistiveTools,
		}
		if _, dup := seen[opt]; !dup {
			seen[opt] = struct{}{}
			result.Treatments = append(result.Treatments, opt)
		}
	}

	result.Disorders = topDisorders(order, counts, MaxDisorders)
	return result
}

// topDisorders ranks labels by descending count; the stable sort keeps
// first-appearance order among ties.
func topDisorders(order []string, counts map[string]int, n int) []string {
	ranked := append([]string{}, order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

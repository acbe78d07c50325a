package trainer

import (
	"slices"

	"github.com/Skufu/symptomguide/internal/dataset"
)

// LabelEncoder maps each distinct label to a dense id in [0, Len()). Ids
// follow the sorted order of the labels.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitLabelEncoder builds an encoder over the distinct values.
func FitLabelEncoder(values []string) *LabelEncoder {
	classes := slices.Clone(values)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	return newLabelEncoder(classes)
}

func newLabelEncoder(classes []string) *LabelEncoder {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

func (e *LabelEncoder) Len() int {
	return len(e.classes)
}

// Classes returns the labels indexed by id.
func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

// Transform returns the id of label.
func (e *LabelEncoder) Transform(label string) (int, bool) {
	id, ok := e.index[label]
	return id, ok
}

// Inverse returns the label for id.
func (e *LabelEncoder) Inverse(id int) (string, bool) {
	if id < 0 || id >= len(e.classes) {
		return "", false
	}
	return e.classes[id], true
}

// CompositeTreatment joins the treatment fields of r into the single label the
// treatment encoder is fit on.
func CompositeTreatment(r dataset.Record) string {
	return r.Medications + " " + r.Therapies + " " + r.AssistiveTools
}

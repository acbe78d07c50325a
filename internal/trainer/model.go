// Package trainer fits a two-tower embedding model that scores
// symptom/treatment pairs by the dot product of their embeddings.
package trainer

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/Skufu/symptomguide/internal/dataset"
)

var ErrUnknownLabel = errors.New("label not in model vocabulary")

// initScale bounds the uniform initializer for embedding weights.
const initScale = 0.05

// Model holds one embedding table per encoder. Row i of a table is the
// vector for id i of the matching encoder.
type Model struct {
	Dim        int
	Symptoms   *LabelEncoder
	Treatments *LabelEncoder

	SymptomEmbedding   [][]float64
	TreatmentEmbedding [][]float64
}

func newModel(symptoms, treatments *LabelEncoder, dim int, r *rand.Rand) *Model {
	return &Model{
		Dim:                dim,
		Symptoms:           symptoms,
		Treatments:         treatments,
		SymptomEmbedding:   newTable(symptoms.Len(), dim, r),
		TreatmentEmbedding: newTable(treatments.Len(), dim, r),
	}
}

func newTable(rows, dim int, r *rand.Rand) [][]float64 {
	table := make([][]float64, rows)
	for i := range table {
		table[i] = make([]float64, dim)
		for j := range table[i] {
			table[i][j] = (r.Float64()*2 - 1) * initScale
		}
	}
	return table
}

// Predict returns the similarity score for a pair of encoded ids.
func (m *Model) Predict(symptomID, treatmentID int) float64 {
	return floats.Dot(m.SymptomEmbedding[symptomID], m.TreatmentEmbedding[treatmentID])
}

// Score returns the similarity of a symptom label and a composite treatment
// label (see CompositeTreatment).
func (m *Model) Score(symptom, treatment string) (float64, error) {
	sid, ok := m.Symptoms.Transform(dataset.Normalize(symptom))
	if !ok {
		return 0, fmt.Errorf("%w: symptom %q", ErrUnknownLabel, symptom)
	}
	tid, ok := m.Treatments.Transform(dataset.Normalize(treatment))
	if !ok {
		return 0, fmt.Errorf("%w: treatment %q", ErrUnknownLabel, treatment)
	}
	return m.Predict(sid, tid), nil
}

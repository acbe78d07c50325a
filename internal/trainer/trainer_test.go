package trainer

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptomguide/internal/dataset"
)

func guideDataset(rows int) *dataset.Dataset {
	symptoms := []string{"Fatigue", "Tremor", "Insomnia", "Headache", "Anxiety"}
	records := make([]dataset.Record, rows)
	for i := range records {
		records[i] = dataset.Record{
			Symptom:     symptoms[i%len(symptoms)],
			Disorder:    fmt.Sprintf("Disorder-%d", i%7),
			Medications: fmt.Sprintf("Med-%d", i%4),
			Therapies:   fmt.Sprintf("Therapy-%d", i%3),
		}
	}
	return dataset.New(records)
}

func TestFitLabelEncoderDenseSorted(t *testing.T) {
	enc := FitLabelEncoder([]string{"Tremor", "Fatigue", "Tremor", "Anxiety", "Fatigue"})

	require.Equal(t, 3, enc.Len())
	assert.Equal(t, []string{"Anxiety", "Fatigue", "Tremor"}, enc.Classes())

	for id := range enc.Len() {
		label, ok := enc.Inverse(id)
		require.True(t, ok)
		got, ok := enc.Transform(label)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}

	_, ok := enc.Transform("Nausea")
	assert.False(t, ok)
	_, ok = enc.Inverse(3)
	assert.False(t, ok)
}

func TestCompositeTreatment(t *testing.T) {
	assert.Equal(t, "Iron  ", CompositeTreatment(dataset.Record{Medications: "Iron"}))
	assert.Equal(t, "A B C", CompositeTreatment(dataset.Record{Medications: "A", Therapies: "B", AssistiveTools: "C"}))
}

func TestTrainTestSplit(t *testing.T) {
	train, val := TrainTestSplit(10, 0.2, 42)
	assert.Len(t, train, 8)
	assert.Len(t, val, 2)

	all := append(slices.Clone(train), val...)
	slices.Sort(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)

	train2, val2 := TrainTestSplit(10, 0.2, 42)
	assert.Equal(t, train, train2, "same seed must give the same split")
	assert.Equal(t, val, val2)

	train, val = TrainTestSplit(11, 0.2, 42)
	assert.Len(t, val, 3, "validation size rounds up")
	assert.Len(t, train, 8)

	train, val = TrainTestSplit(0, 0.2, 42)
	assert.Empty(t, train)
	assert.Empty(t, val)
}

func TestEncodeTableSizes(t *testing.T) {
	ds := guideDataset(40)
	symptoms, treatments, pairs := encode(ds)

	assert.Equal(t, 5, symptoms.Len())
	assert.Equal(t, 12, treatments.Len())
	require.Len(t, pairs, 40)

	for i, p := range pairs {
		label, ok := symptoms.Inverse(p.symptom)
		require.True(t, ok)
		assert.Equal(t, ds.At(i).Symptom, label)
	}
}

func TestTrainShapesAndDeterminism(t *testing.T) {
	ds := guideDataset(60)
	cfg := DefaultConfig()
	cfg.Epochs = 3

	var epochs []int
	m, history, err := Train(context.Background(), ds, cfg, func(s EpochStats) {
		epochs = append(epochs, s.Epoch)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, epochs)
	require.Len(t, history, 3)
	require.Len(t, m.SymptomEmbedding, m.Symptoms.Len())
	require.Len(t, m.TreatmentEmbedding, m.Treatments.Len())
	assert.Len(t, m.SymptomEmbedding, 5)
	for _, row := range m.SymptomEmbedding {
		assert.Len(t, row, 50)
	}

	m2, history2, err := Train(context.Background(), ds, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, history, history2)
	assert.Equal(t, m.SymptomEmbedding, m2.SymptomEmbedding)
}

func TestTrainReducesLoss(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 40
	cfg.LearningRate = 0.01

	_, history, err := Train(context.Background(), guideDataset(200), cfg, nil)
	require.NoError(t, err)

	first, last := history[0], history[len(history)-1]
	assert.Less(t, last.Loss, first.Loss)
	assert.Less(t, last.ValLoss, first.ValLoss)
	assert.Less(t, last.Loss, 0.25, "all-ones target should be easy to fit")
}

func TestTrainErrors(t *testing.T) {
	_, _, err := Train(context.Background(), dataset.New(nil), DefaultConfig(), nil)
	require.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, _, err = Train(context.Background(), guideDataset(1), DefaultConfig(), nil)
	require.ErrorIs(t, err, ErrEmptyTrainingSet, "one row goes entirely to validation")

	bad := DefaultConfig()
	bad.BatchSize = 0
	_, _, err = Train(context.Background(), guideDataset(10), bad, nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Train(ctx, guideDataset(10), DefaultConfig(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScore(t *testing.T) {
	m, _, err := Train(context.Background(), guideDataset(20), DefaultConfig(), nil)
	require.NoError(t, err)

	score, err := m.Score("Fatigue", "Med-0 Therapy-0 ")
	require.NoError(t, err)
	sid, _ := m.Symptoms.Transform("Fatigue")
	tid, _ := m.Treatments.Transform("Med-0 Therapy-0 ")
	assert.Equal(t, m.Predict(sid, tid), score)

	_, err = m.Score("Nausea", "Med-0 Therapy-0 ")
	assert.ErrorIs(t, err, ErrUnknownLabel)
	_, err = m.Score("Fatigue", "nothing")
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, _, err := Train(context.Background(), guideDataset(30), DefaultConfig(), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "similarity.gob")
	require.NoError(t, m.Save(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Dim, loaded.Dim)
	assert.Equal(t, m.Symptoms.Classes(), loaded.Symptoms.Classes())
	assert.Equal(t, m.Treatments.Classes(), loaded.Treatments.Classes())
	assert.Equal(t, m.SymptomEmbedding, loaded.SymptomEmbedding)

	want, err := m.Score("Tremor", "Med-1 Therapy-1 ")
	require.NoError(t, err)
	got, err := loaded.Score("Tremor", "Med-1 Therapy-1 ")
	require.NoError(t, err)
	assert.False(t, math.IsNaN(got))
	assert.Equal(t, want, got)
}

func TestSaveKeepsPreviousArtifactOnFailure(t *testing.T) {
	m, _, err := Train(context.Background(), guideDataset(30), DefaultConfig(), nil)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "similarity.gob")
	require.NoError(t, m.Save(path))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A directory at the target makes the final rename fail.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o755))
	require.Error(t, m.Save(blocked))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp file removed after failed rename")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.gob"))
	require.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "garbage.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a model"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

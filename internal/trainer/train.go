package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/Skufu/symptomguide/internal/dataset"
)

var ErrEmptyTrainingSet = errors.New("training partition is empty")

// target is the similarity every observed pair is trained towards. There
// are no negative pairs, so the model only learns embedding magnitudes.
const target = 1.0

type Config struct {
	Dim          int
	Epochs       int
	BatchSize    int
	LearningRate float64
	TestFraction float64
	Seed         uint64
}

func DefaultConfig() Config {
	return Config{
		Dim:          50,
		Epochs:       10,
		BatchSize:    32,
		LearningRate: 0.001,
		TestFraction: 0.2,
		Seed:         42,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Dim <= 0:
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Dim)
	case c.Epochs <= 0:
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	case c.TestFraction < 0 || c.TestFraction >= 1:
		return fmt.Errorf("test fraction must be in [0, 1), got %g", c.TestFraction)
	}
	return nil
}

// EpochStats reports mean squared error after one pass over the training set.
// ValLoss is zero when there is no validation partition.
type EpochStats struct {
	Epoch   int
	Loss    float64
	ValLoss float64
}

// pair is a row-aligned (symptom id, treatment id) sample.
type pair struct {
	symptom, treatment int
}

// encode fits both encoders on ds and returns the row-aligned id pairs.
func encode(ds *dataset.Dataset) (symptoms, treatments *LabelEncoder, pairs []pair) {
	symptomLabels := make([]string, 0, ds.Len())
	treatmentLabels := make([]string, 0, ds.Len())
	for _, r := range ds.All() {
		symptomLabels = append(symptomLabels, r.Symptom)
		treatmentLabels = append(treatmentLabels, CompositeTreatment(r))
	}

	symptoms = FitLabelEncoder(symptomLabels)
	treatments = FitLabelEncoder(treatmentLabels)

	pairs = make([]pair, len(symptomLabels))
	for i := range pairs {
		sid, _ := symptoms.Transform(symptomLabels[i])
		tid, _ := treatments.Transform(treatmentLabels[i])
		pairs[i] = pair{symptom: sid, treatment: tid}
	}
	return symptoms, treatments, pairs
}

// Train fits a model on ds. progress, if non-nil, is called after every
// epoch. Cancelling ctx stops training between batches.
func Train(ctx context.Context, ds *dataset.Dataset, cfg Config, progress func(EpochStats)) (*Model, []EpochStats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	symptoms, treatments, pairs := encode(ds)
	trainIdx, valIdx := TrainTestSplit(len(pairs), cfg.TestFraction, cfg.Seed)
	if len(trainIdx) == 0 {
		return nil, nil, fmt.Errorf("%w: %d rows with test fraction %g", ErrEmptyTrainingSet, len(pairs), cfg.TestFraction)
	}

	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	m := newModel(symptoms, treatments, cfg.Dim, r)

	f := &fitter{
		model:      m,
		symOpt:     newAdam(cfg.LearningRate, symptoms.Len(), cfg.Dim),
		treatOpt:   newAdam(cfg.LearningRate, treatments.Len(), cfg.Dim),
		symGrad:    zeros(symptoms.Len(), cfg.Dim),
		treatGrad:  zeros(treatments.Len(), cfg.Dim),
		batchSize:  cfg.BatchSize,
		trainPairs: pick(pairs, trainIdx),
		valPairs:   pick(pairs, valIdx),
	}

	history := make([]EpochStats, 0, cfg.Epochs)
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		r.Shuffle(len(f.trainPairs), func(i, j int) {
			f.trainPairs[i], f.trainPairs[j] = f.trainPairs[j], f.trainPairs[i]
		})

		loss, err := f.epoch(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		stats := EpochStats{Epoch: epoch, Loss: loss, ValLoss: f.evaluate(f.valPairs)}
		history = append(history, stats)
		if progress != nil {
			progress(stats)
		}
	}

	return m, history, nil
}

type fitter struct {
	model                *Model
	symOpt, treatOpt     *adam
	symGrad, treatGrad   [][]float64
	batchSize            int
	trainPairs, valPairs []pair
}

// epoch runs one pass of minibatch updates and returns the sample-weighted
// mean of the batch losses.
func (f *fitter) epoch(ctx context.Context) (float64, error) {
	var total float64
	for start := 0; start < len(f.trainPairs); start += f.batchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		batch := f.trainPairs[start:min(start+f.batchSize, len(f.trainPairs))]
		total += f.batch(batch) * float64(len(batch))
	}
	return total / float64(len(f.trainPairs)), nil
}

// batch computes MSE gradients for one minibatch, applies them and returns
// the batch loss measured before the update.
func (f *fitter) batch(batch []pair) float64 {
	reset(f.symGrad)
	reset(f.treatGrad)

	n := float64(len(batch))
	var loss float64
	for _, p := range batch {
		s := f.model.SymptomEmbedding[p.symptom]
		t := f.model.TreatmentEmbedding[p.treatment]

		diff := floats.Dot(s, t) - target
		loss += diff * diff

		scale := 2 * diff / n
		floats.AddScaled(f.symGrad[p.symptom], scale, t)
		floats.AddScaled(f.treatGrad[p.treatment], scale, s)
	}

	f.symOpt.step(f.model.SymptomEmbedding, f.symGrad)
	f.treatOpt.step(f.model.TreatmentEmbedding, f.treatGrad)
	return loss / n
}

func (f *fitter) evaluate(pairs []pair) float64 {
	if len(pairs) == 0 {
		return 0
	}
	var loss float64
	for _, p := range pairs {
		diff := f.model.Predict(p.symptom, p.treatment) - target
		loss += diff * diff
	}
	return loss / float64(len(pairs))
}

func pick(pairs []pair, idx []int) []pair {
	out := make([]pair, len(idx))
	for i, j := range idx {
		out[i] = pairs[j]
	}
	return out
}

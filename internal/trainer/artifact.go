package trainer

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrUnsupportedVersion = errors.New("unsupported model artifact version")

// ArtifactVersion is bumped on any incompatible change to the artifact layout.
const ArtifactVersion = 1

// artifact is the on-disk form of a Model. Optimizer state is not part of it.
type artifact struct {
	Version            int
	CreatedAt          time.Time
	Dim                int
	SymptomClasses     []string
	TreatmentClasses   []string
	SymptomEmbedding   [][]float64
	TreatmentEmbedding [][]float64
}

// Save writes the model to path. The file is written to a temporary name in
// the same directory and renamed into place, so a failed save never leaves a
// partial artifact at path.
func (m *Model) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := f.Name()

	a := artifact{
		Version:            ArtifactVersion,
		CreatedAt:          time.Now().UTC(),
		Dim:                m.Dim,
		SymptomClasses:     m.Symptoms.Classes(),
		TreatmentClasses:   m.Treatments.Classes(),
		SymptomEmbedding:   m.SymptomEmbedding,
		TreatmentEmbedding: m.TreatmentEmbedding,
	}
	if err := gob.NewEncoder(f).Encode(&a); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding model: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	if a.Version != ArtifactVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, a.Version, ArtifactVersion)
	}
	if len(a.SymptomEmbedding) != len(a.SymptomClasses) || len(a.TreatmentEmbedding) != len(a.TreatmentClasses) {
		return nil, fmt.Errorf("decoding model: embedding tables do not match vocabularies")
	}

	return &Model{
		Dim:                a.Dim,
		Symptoms:           newLabelEncoder(a.SymptomClasses),
		Treatments:         newLabelEncoder(a.TreatmentClasses),
		SymptomEmbedding:   a.SymptomEmbedding,
		TreatmentEmbedding: a.TreatmentEmbedding,
	}, nil
}

package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Skufu/symptomguide/internal/trainer"
)

// fileConfig is the optional YAML file passed with --config. Zero values
// leave the defaults in place, except for the pointer fields where an
// explicit zero is honored.
type fileConfig struct {
	DatasetSource   string   `yaml:"dataset_source,omitempty"`
	DatasetPath     string   `yaml:"dataset_path,omitempty"`
	DatasetTable    string   `yaml:"dataset_table,omitempty"`
	DatabaseURL     string   `yaml:"database_url,omitempty"`
	ModelPath       string   `yaml:"model_path,omitempty"`
	EmbeddingDim    int      `yaml:"embedding_dim,omitempty"`
	Epochs          int      `yaml:"epochs,omitempty"`
	BatchSize       int      `yaml:"batch_size,omitempty"`
	LearningRate    float64  `yaml:"learning_rate,omitempty"`
	ValidationSplit *float64 `yaml:"validation_split,omitempty"`
	Seed            *uint64  `yaml:"seed,omitempty"`
}

// trainOptions is the resolved configuration for one training run.
type trainOptions struct {
	Source      string
	DatasetPath string
	Table       string
	DatabaseURL string
	ModelPath   string
	Train       trainer.Config
}

func defaultTrainOptions() trainOptions {
	return trainOptions{
		Source:      getEnv("DATASET_SOURCE", sourceCSV),
		DatasetPath: os.Getenv("DATASET_PATH"),
		Table:       getEnv("DATASET_TABLE", "symptom_guide"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ModelPath:   getEnv("MODEL_PATH", "symptom_treatment_model.gob"),
		Train:       trainer.DefaultConfig(),
	}
}

func (o *trainOptions) validate() error {
	o.Source = strings.ToLower(o.Source)
	switch o.Source {
	case sourceCSV:
		if o.DatasetPath == "" {
			return fmt.Errorf("dataset path is required (--dataset, config file or DATASET_PATH)")
		}
	case sourcePostgres:
		if o.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for the postgres source (--database-url, config file or DATABASE_URL)")
		}
		if o.Table == "" {
			return fmt.Errorf("table is required for the postgres source (--table, config file or DATASET_TABLE)")
		}
	default:
		return fmt.Errorf("unknown dataset source %q (want %s or %s)", o.Source, sourceCSV, sourcePostgres)
	}
	if o.ModelPath == "" {
		return fmt.Errorf("model path is required (--out, config file or MODEL_PATH)")
	}
	return nil
}

func readFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &fc, nil
}

func (fc *fileConfig) apply(opts *trainOptions) {
	if fc.DatasetSource != "" {
		opts.Source = fc.DatasetSource
	}
	if fc.DatasetPath != "" {
		opts.DatasetPath = fc.DatasetPath
	}
	if fc.DatasetTable != "" {
		opts.Table = fc.DatasetTable
	}
	if fc.DatabaseURL != "" {
		opts.DatabaseURL = fc.DatabaseURL
	}
	if fc.ModelPath != "" {
		opts.ModelPath = fc.ModelPath
	}
	if fc.EmbeddingDim != 0 {
		opts.Train.Dim = fc.EmbeddingDim
	}
	if fc.Epochs != 0 {
		opts.Train.Epochs = fc.Epochs
	}
	if fc.BatchSize != 0 {
		opts.Train.BatchSize = fc.BatchSize
	}
	if fc.LearningRate != 0 {
		opts.Train.LearningRate = fc.LearningRate
	}
	if fc.ValidationSplit != nil {
		opts.Train.TestFraction = *fc.ValidationSplit
	}
	if fc.Seed != nil {
		opts.Train.Seed = *fc.Seed
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

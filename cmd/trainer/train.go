package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Skufu/symptomguide/internal/trainer"
)

// TrainResult is the JSON summary printed after a successful run.
type TrainResult struct {
	Source          string  `json:"source"`
	ModelPath       string  `json:"model_path"`
	Rows            int     `json:"rows"`
	Symptoms        int     `json:"symptoms"`
	Treatments      int     `json:"treatments"`
	Epochs          int     `json:"epochs"`
	FinalLoss       float64 `json:"final_loss"`
	FinalValLoss    float64 `json:"final_val_loss"`
	EmbeddingDim    int     `json:"embedding_dim"`
	ValidationSplit float64 `json:"validation_split"`
}

func newTrainCmd() *cobra.Command {
	var (
		configPath string
		quiet      bool
		flags      trainOptions
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the embedding model and write the artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := defaultTrainOptions()
			if configPath != "" {
				fc, err := readFileConfig(configPath)
				if err != nil {
					return err
				}
				fc.apply(&opts)
			}
			applyFlags(cmd, flags, &opts)

			logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
			if quiet {
				logger.SetOutput(io.Discard)
			}

			result, err := runTrain(cmd, opts, logger)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	defaults := trainer.DefaultConfig()
	cmd.Flags().StringVar(&configPath, "config", "", "YAML file with dataset, output and hyperparameter settings")
	cmd.Flags().StringVar(&flags.Source, "source", "", "Dataset source, csv or postgres (default $DATASET_SOURCE or csv)")
	cmd.Flags().StringVar(&flags.DatasetPath, "dataset", "", "Path to the dataset CSV (default $DATASET_PATH)")
	cmd.Flags().StringVar(&flags.Table, "table", "", "Postgres table holding the dataset (default $DATASET_TABLE or symptom_guide)")
	cmd.Flags().StringVar(&flags.DatabaseURL, "database-url", "", "Postgres connection URL (default $DATABASE_URL)")
	cmd.Flags().StringVarP(&flags.ModelPath, "out", "o", "", "Where to write the model artifact (default $MODEL_PATH)")
	cmd.Flags().IntVar(&flags.Train.Dim, "dim", defaults.Dim, "Embedding dimension")
	cmd.Flags().IntVar(&flags.Train.Epochs, "epochs", defaults.Epochs, "Training epochs")
	cmd.Flags().IntVar(&flags.Train.BatchSize, "batch-size", defaults.BatchSize, "Minibatch size")
	cmd.Flags().Float64Var(&flags.Train.LearningRate, "learning-rate", defaults.LearningRate, "Adam learning rate")
	cmd.Flags().Float64Var(&flags.Train.TestFraction, "validation-split", defaults.TestFraction, "Fraction of rows held out for validation")
	cmd.Flags().Uint64Var(&flags.Train.Seed, "seed", defaults.Seed, "Seed for the split, initialization and shuffling")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-epoch progress")

	return cmd
}

// applyFlags copies explicitly set flags over opts.
func applyFlags(cmd *cobra.Command, flags trainOptions, opts *trainOptions) {
	changed := cmd.Flags().Changed
	if changed("source") {
		opts.Source = flags.Source
	}
	if changed("dataset") {
		opts.DatasetPath = flags.DatasetPath
	}
	if changed("table") {
		opts.Table = flags.Table
	}
	if changed("database-url") {
		opts.DatabaseURL = flags.DatabaseURL
	}
	if changed("out") {
		opts.ModelPath = flags.ModelPath
	}
	if changed("dim") {
		opts.Train.Dim = flags.Train.Dim
	}
	if changed("epochs") {
		opts.Train.Epochs = flags.Train.Epochs
	}
	if changed("batch-size") {
		opts.Train.BatchSize = flags.Train.BatchSize
	}
	if changed("learning-rate") {
		opts.Train.LearningRate = flags.Train.LearningRate
	}
	if changed("validation-split") {
		opts.Train.TestFraction = flags.Train.TestFraction
	}
	if changed("seed") {
		opts.Train.Seed = flags.Train.Seed
	}
}

func runTrain(cmd *cobra.Command, opts trainOptions, logger *log.Logger) (*TrainResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := loadDataset(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	if opts.Source == sourcePostgres {
		logger.Printf("loaded %d rows from table %s", ds.Len(), opts.Table)
	} else {
		logger.Printf("loaded %d rows from %s", ds.Len(), opts.DatasetPath)
	}

	model, history, err := trainer.Train(ctx, ds, opts.Train, func(s trainer.EpochStats) {
		logger.Printf("epoch %d/%d - loss: %.4f - val_loss: %.4f", s.Epoch, opts.Train.Epochs, s.Loss, s.ValLoss)
	})
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	if err := model.Save(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("saving model: %w", err)
	}
	logger.Printf("model saved at %s", opts.ModelPath)

	last := history[len(history)-1]
	return &TrainResult{
		Source:          opts.Source,
		ModelPath:       opts.ModelPath,
		Rows:            ds.Len(),
		Symptoms:        model.Symptoms.Len(),
		Treatments:      model.Treatments.Len(),
		Epochs:          len(history),
		FinalLoss:       last.Loss,
		FinalValLoss:    last.ValLoss,
		EmbeddingDim:    model.Dim,
		ValidationSplit: opts.Train.TestFraction,
	}, nil
}

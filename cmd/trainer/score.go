package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skufu/symptomguide/internal/dataset"
	"github.com/Skufu/symptomguide/internal/trainer"
)

type ScoreResult struct {
	Symptom   string  `json:"symptom"`
	Treatment string  `json:"treatment"`
	Score     float64 `json:"score"`
}

func newScoreCmd() *cobra.Command {
	var (
		modelPath      string
		symptom        string
		medications    string
		therapies      string
		assistiveTools string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a symptom against a treatment option with a saved model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				modelPath = getEnv("MODEL_PATH", "")
			}
			if modelPath == "" {
				return fmt.Errorf("model path is required (--model or MODEL_PATH)")
			}

			model, err := trainer.Load(modelPath)
			if err != nil {
				return err
			}

			treatment := trainer.CompositeTreatment(dataset.Record{
				Medications:    medications,
				Therapies:      therapies,
				AssistiveTools: assistiveTools,
			})
			score, err := model.Score(symptom, treatment)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ScoreResult{Symptom: symptom, Treatment: treatment, Score: score})
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Path to the model artifact (default $MODEL_PATH)")
	cmd.Flags().StringVar(&symptom, "symptom", "", "Symptom label")
	cmd.Flags().StringVar(&medications, "medications", "", "Medications field of the treatment option")
	cmd.Flags().StringVar(&therapies, "therapies", "", "Therapies field of the treatment option")
	cmd.Flags().StringVar(&assistiveTools, "assistive-tools", "", "Assistive tools field of the treatment option")
	_ = cmd.MarkFlagRequired("symptom")

	return cmd
}

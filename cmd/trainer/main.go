// Package main provides the offline similarity trainer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trainer",
		Short: "Offline symptom/treatment similarity trainer",
		Long: `trainer fits a two-tower embedding model over the symptom management
dataset and writes it as a reloadable artifact.

The lookup server does not read the artifact; use "trainer score" to inspect it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTrainCmd(), newScoreCmd())
	return root
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one curation run now",
	Long:  `Trigger a manual discovery run: search the configured sources, evaluate every candidate, and ingest the accepted ones. Refused if another run already holds the slot.`,
	RunE:  runCuration,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runCuration(cmd *cobra.Command, _ []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	run, err := application.RunCuration(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("run %s %s: %d evaluated, %d accepted\n",
		run.ID, run.Status, run.CandidatesEvaluated, run.CandidatesAccepted)
	if run.ErrorMessage != "" {
		fmt.Printf("note: %s\n", run.ErrorMessage)
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score recent recommendation outcomes",
	Long:  `Evaluate every delivery from the last day that has not been scored yet.`,
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	n, err := application.EvaluateOutcomes(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%d outcomes evaluated\n", n)
	return nil
}

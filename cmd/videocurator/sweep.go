package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one stuck-run recovery pass now",
	Long:  `Force-fail every run stuck past the configured threshold and free its lock slot, without waiting for the scheduled sweep. Useful after the service itself was down.`,
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	application.SweepStuckRuns(cmd.Context())
	fmt.Println("sweep complete")
	return nil
}

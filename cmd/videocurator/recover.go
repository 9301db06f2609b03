package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var recoverNote string

var recoverCmd = &cobra.Command{
	Use:   "recover <run-id>",
	Short: "Force-fail one stuck run and free its slot",
	Long:  `Mark a running curation run as failed and release its lock slot so the next run can start. Only running runs can be recovered.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRecover,
}

func init() {
	recoverCmd.Flags().StringVar(&recoverNote, "note", "", "Reason recorded on the recovered run")
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.RecoverRun(cmd.Context(), id, recoverNote); err != nil {
		return err
	}

	fmt.Printf("run %s recovered\n", id)
	return nil
}

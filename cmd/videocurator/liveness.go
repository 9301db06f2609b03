package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var livenessCmd = &cobra.Command{
	Use:   "liveness",
	Short: "Probe stored videos and retire unavailable ones",
	Long:  `Fetch the public watch page of every active library record and mark records whose videos were deleted or privated upstream.`,
	RunE:  runLiveness,
}

func init() {
	rootCmd.AddCommand(livenessCmd)
}

func runLiveness(cmd *cobra.Command, _ []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	n, err := application.AuditLibrary(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%d videos retired\n", n)
	return nil
}

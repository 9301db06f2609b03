package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var metricsDay string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Aggregate daily recommendation-quality metrics",
	Long:  `Compute click/skip/bad rates, instructor diversity and duplicate-delivery violations for one day and store the result. Defaults to yesterday.`,
	RunE:  runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsDay, "day", "", "Day to aggregate, YYYY-MM-DD (default: yesterday)")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	day := time.Now().AddDate(0, 0, -1)
	if metricsDay != "" {
		parsed, err := time.Parse("2006-01-02", metricsDay)
		if err != nil {
			return fmt.Errorf("invalid day %q: %w", metricsDay, err)
		}
		day = parsed
	}

	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	m, err := application.AggregateMetrics(cmd.Context(), day)
	if err != nil {
		return err
	}

	fmt.Printf("metrics %s: sent=%d click=%.2f skip=%.2f bad=%.2f diversity=%.1f duplicate-violations=%d\n",
		m.Day.Format("2006-01-02"), m.TotalSent, m.ClickRate, m.SkipRate, m.BadRate,
		m.DiversityScore, m.DuplicateInstructorViolations)
	return nil
}

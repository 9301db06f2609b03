package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	experimentControl   string
	experimentTreatment string
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Manage A/B experiments over recommendation variants",
}

var experimentStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Register a new experiment between two variants",
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentStart,
}

var experimentSettleCmd = &cobra.Command{
	Use:   "settle <name>",
	Short: "Compare both arms and declare a winner",
	Long:  `Aggregate the evaluated outcomes of each arm, pick the variant with the strictly higher mean engagement, and mark the experiment completed. A completed experiment cannot be settled again.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExperimentSettle,
}

func init() {
	experimentStartCmd.Flags().StringVar(&experimentControl, "control", "", "Variant serving as the baseline")
	experimentStartCmd.Flags().StringVar(&experimentTreatment, "treatment", "", "Variant being tested")
	_ = experimentStartCmd.MarkFlagRequired("control")
	_ = experimentStartCmd.MarkFlagRequired("treatment")

	experimentCmd.AddCommand(experimentStartCmd)
	experimentCmd.AddCommand(experimentSettleCmd)
	rootCmd.AddCommand(experimentCmd)
}

func runExperimentStart(cmd *cobra.Command, args []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	exp, err := application.StartExperiment(cmd.Context(), args[0], experimentControl, experimentTreatment)
	if err != nil {
		return err
	}

	fmt.Printf("experiment %s started: %s vs %s\n", exp.Name, exp.ControlVariant, exp.TreatmentVariant)
	return nil
}

func runExperimentSettle(cmd *cobra.Command, args []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	exp, err := application.CompareVariants(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("experiment %s: winner=%s\n", exp.Name, exp.Winner)
	fmt.Printf("  %s: engagement=%.1f satisfaction=%.1f n=%d\n",
		exp.ControlVariant, exp.ControlEngagement, exp.ControlSatisfaction, exp.ControlSamples)
	fmt.Printf("  %s: engagement=%.1f satisfaction=%.1f n=%d\n",
		exp.TreatmentVariant, exp.TreatmentEngagement, exp.TreatmentSatisfaction, exp.TreatmentSamples)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"VideoCurator/internal/domain"
)

var (
	feedbackUser       string
	feedbackInstructor string
	feedbackVideo      string
	feedbackTechnique  string
	feedbackAction     string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record one user reaction to a delivered video",
	Long:  `Ingest a feedback event and update instructor credibility and the user's preference profile in one transaction.`,
	RunE:  runFeedback,
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackUser, "user", "", "User the video was delivered to")
	feedbackCmd.Flags().StringVar(&feedbackInstructor, "instructor", "", "Instructor featured in the video")
	feedbackCmd.Flags().StringVar(&feedbackVideo, "video", "", "Video the reaction refers to")
	feedbackCmd.Flags().StringVar(&feedbackTechnique, "technique", "", "Technique taught in the video")
	feedbackCmd.Flags().StringVar(&feedbackAction, "action", "", "One of clicked|skipped|replied_bad|multiple_views|no_action")
	_ = feedbackCmd.MarkFlagRequired("user")
	_ = feedbackCmd.MarkFlagRequired("video")
	_ = feedbackCmd.MarkFlagRequired("action")
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, _ []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.Close()

	action := domain.FeedbackAction(feedbackAction)
	if err := application.RecordFeedback(cmd.Context(), feedbackUser, feedbackInstructor, feedbackVideo, feedbackTechnique, action); err != nil {
		return err
	}

	fmt.Printf("recorded %s for video %s\n", feedbackAction, feedbackVideo)
	return nil
}

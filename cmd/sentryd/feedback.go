package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <processed-message-id> <corrected-category>",
	Short: "Submit an operator correction for a processed message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		var processedMessageID int64
		if _, err := fmt.Sscanf(args[0], "%d", &processedMessageID); err != nil {
			return fmt.Errorf("invalid processed-message-id %q: %w", args[0], err)
		}

		originalCategory, _ := cmd.Flags().GetString("original")
		confidence, _ := cmd.Flags().GetFloat64("confidence")
		comment, _ := cmd.Flags().GetString("comment")

		id, err := a.feedback.Submit(processedMessageID, originalCategory, args[1], confidence, comment)
		if err != nil {
			return fmt.Errorf("submit feedback: %w", err)
		}
		fmt.Printf("feedback recorded: id=%d\n", id)
		return nil
	},
}

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Retrain the NaiveBayes/RandomForest ensemble from accumulated feedback",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.feedback.Retrain()
		if err != nil {
			return fmt.Errorf("retrain: %w", err)
		}
		return printJSON(result)
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <model-id>",
	Short: "Promote a retrained model version to live",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(configFile)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.feedback.Promote(args[0]); err != nil {
			return fmt.Errorf("promote: %w", err)
		}
		fmt.Printf("live model set to %s\n", args[0])
		return nil
	},
}

func init() {
	feedbackCmd.Flags().String("original", "", "the category sentryd originally assigned")
	feedbackCmd.Flags().Float64("confidence", 1.0, "operator confidence in the correction, 0-1")
	feedbackCmd.Flags().String("comment", "", "optional free-text comment")
}

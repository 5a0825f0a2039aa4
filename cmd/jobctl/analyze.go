package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/timmy/surrogates/internal/app"
)

var analyzeGuideline string

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <job-id>",
	Short: "Rate the images of a download job against a guideline PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobs(cmd, func(ctx context.Context, a *app.App, _ string) (string, error) {
			return args[0], a.Jobs.StartAnalysis(ctx, args[0], analyzeGuideline)
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeGuideline, "guideline", "g", "", "Path to the guideline PDF")
	analyzeCmd.MarkFlagRequired("guideline")
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/timmy/surrogates/internal/app"
	"github.com/timmy/surrogates/internal/service"
)

var (
	downloadProvider  string
	downloadLimit     int
	downloadGuideline string
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <query>",
	Short: "Download candidate images for a query",
	Long: `Search the image provider for the query and store the results under a new job id.
With --guideline the downloaded images are analyzed right after.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := []jobStep{func(ctx context.Context, a *app.App, _ string) (string, error) {
			return a.Jobs.StartDownload(ctx, service.DownloadRequest{
				Query:    args[0],
				Provider: downloadProvider,
				Limit:    downloadLimit,
			})
		}}
		if downloadGuideline != "" {
			steps = append(steps, func(ctx context.Context, a *app.App, jobID string) (string, error) {
				return jobID, a.Jobs.StartAnalysis(ctx, jobID, downloadGuideline)
			})
		}
		return runJobs(cmd, steps...)
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVarP(&downloadProvider, "provider", "p", service.DefaultProvider, "Image provider")
	downloadCmd.Flags().IntVarP(&downloadLimit, "limit", "n", 0, "Number of images to download (0 uses the configured default)")
	downloadCmd.Flags().StringVarP(&downloadGuideline, "guideline", "g", "", "Guideline PDF to analyze the images against after downloading")
}

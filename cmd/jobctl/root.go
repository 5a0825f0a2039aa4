package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timmy/surrogates/internal/app"
	"github.com/timmy/surrogates/internal/config"
	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
)

var (
	configPath string
	jsonOutput bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jobctl",
	Short: "Run surrogate image jobs from the command line",
	Long: strings.TrimSpace(`
Download candidate images for a query and rate them against a brand
guideline PDF, without going through the HTTP API. Progress is printed as
the job runs.
`),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the final job snapshot as JSON")
}

// jobStep starts one job and returns its id. prevID is the id of the job
// run by the previous step, empty for the first one.
type jobStep func(ctx context.Context, a *app.App, prevID string) (string, error)

// runJobs builds the application and runs steps one after another, waiting
// for each job to finish. It stops at the first failed job.
func runJobs(cmd *cobra.Command, steps ...jobStep) error {
	logCfg := logger.ConfigFromEnv()
	logCfg.Output = cmd.ErrOrStderr()
	logger.SetDefaultLogger(logger.New(logCfg))
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	a, err := app.New(ctx, cfg, app.WithProgressObserver(func(_ context.Context, ev domain.ProgressEvent) {
		printEvent(out, ev)
	}))
	if err != nil {
		return err
	}
	defer a.Close()

	var jobID string
	for _, step := range steps {
		if jobID, err = step(ctx, a, jobID); err != nil {
			return err
		}
		a.Jobs.Wait()

		job, err := a.Jobs.Status(jobID)
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(job); err != nil {
				return err
			}
		}
		if job.Status == domain.JobStatusError {
			return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
		}
		fmt.Fprintf(out, "job %s %s\n", job.ID, job.Status)
	}
	return nil
}

func printEvent(w io.Writer, ev domain.ProgressEvent) {
	line := fmt.Sprintf("[%s] %3d%% %-11s %s", shortID(ev.JobID), ev.Progress, ev.Status, ev.Message)
	if ev.TotalBatches > 0 && ev.CurrentBatch > 0 {
		line += fmt.Sprintf(" (batch %d/%d)", ev.CurrentBatch, ev.TotalBatches)
	} else if ev.TotalImages > 0 && ev.CurrentImage > 0 {
		line += fmt.Sprintf(" (image %d/%d)", ev.CurrentImage, ev.TotalImages)
	}
	fmt.Fprintln(w, line)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

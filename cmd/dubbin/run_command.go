package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"dubbin/internal/config"
	"dubbin/internal/deps"
	"dubbin/internal/logging"
	"dubbin/internal/manifest"
	"dubbin/internal/media"
	"dubbin/internal/phases"
	"dubbin/internal/pipeline"
	"dubbin/internal/services/objectstore"
	"dubbin/internal/services/translate"
	"dubbin/internal/services/volcasr"
	"dubbin/internal/services/volctts"
	"dubbin/internal/tts"
	"dubbin/internal/workspace"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var fromPhase string
	var toPhase string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Run the dubbing pipeline for one episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ws, m, err := openWorkspace(cfg, args[0])
			if err != nil {
				return err
			}
			opts := pipeline.Options{From: fromPhase, To: toPhase, DryRun: dryRun}

			if dryRun {
				return printPlan(cmd, cfg, ws, m, opts)
			}

			creds := config.LoadCredentials()
			if err := cfg.ValidateCredentials(creds); err != nil {
				return err
			}
			tools := deps.CheckBinaries(deps.Pipeline(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, cfg.Tools.Demucs))
			if err := deps.FirstMissing(tools); err != nil {
				return err
			}

			lock, err := ws.AcquireLock()
			if err != nil {
				return err
			}
			defer lock.Release()

			logger, err := logging.NewForDir(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			runCtx := logging.WithEpisode(cmd.Context(), ws.Episode)
			env, err := buildEnv(runCtx, cfg, creds, logger)
			if err != nil {
				return err
			}

			m.Video = ws.VideoPath
			runner := pipeline.NewRunner(phases.All(env), logger)
			summary, runErr := runner.Run(runCtx, ws, m, opts)
			if summary != nil {
				printSummary(cmd, ws, summary)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&fromPhase, "from", "", "Force this phase and everything after it to run")
	cmd.Flags().StringVar(&toPhase, "to", "", "Stop after this phase")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without running anything")
	return cmd
}

func printPlan(cmd *cobra.Command, cfg config.Config, ws *workspace.Workspace, m *manifest.Manifest, opts pipeline.Options) error {
	env := &phases.Env{Config: cfg}
	runner := pipeline.NewRunner(phases.All(env), nil)
	decisions, err := runner.Plan(ws, m, opts)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		action := "skip"
		if d.Run {
			action = "run"
		}
		rows = append(rows, []string{d.Phase, action, d.Reason})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Phase", "Action", "Reason"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft}))
	return nil
}

func printSummary(cmd *cobra.Command, ws *workspace.Workspace, summary *pipeline.Summary) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(summary.Results))
	for _, r := range summary.Results {
		duration := ""
		if r.Duration > 0 {
			duration = r.Duration.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{r.Phase, r.Status, r.Reason, duration})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Phase", "Status", "Reason", "Duration"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))

	if reportPath, err := ws.ArtifactPath(workspace.KeyTTSReport); err == nil {
		if report, err := tts.LoadReport(reportPath); err == nil && report.Failed > 0 {
			fmt.Fprintf(out, "%d of %d segments failed to synthesize:\n", report.Failed, report.Total)
			for _, f := range report.Failures {
				fmt.Fprintf(out, "  %s: %s\n", f.UttID, f.Error)
			}
		}
	}

	if failed := summary.Failed(); failed != nil {
		fmt.Fprintf(out, "Run %s stopped at phase %s\n", summary.RunID, failed.Phase)
	}
}

// buildEnv wires the external service clients the phases call. The object
// store is optional until a run actually reaches recognition.
func buildEnv(ctx context.Context, cfg config.Config, creds config.Credentials, logger *slog.Logger) (*phases.Env, error) {
	env := &phases.Env{
		Config:     cfg,
		Logger:     logger,
		FFmpeg:     media.NewFFmpeg(cfg.Tools.FFmpeg),
		FFprobeBin: cfg.Tools.FFprobe,
	}

	env.Recognizer = volcasr.NewClient(volcasr.Config{
		AppID:       creds.VolcAppID,
		AccessToken: creds.VolcAccessToken,
	},
		volcasr.WithPollBackoff(
			time.Duration(cfg.Recognition.PollInitialMS)*time.Millisecond,
			time.Duration(cfg.Recognition.PollMaxMS)*time.Millisecond),
		volcasr.WithPollDeadline(time.Duration(cfg.Recognition.PollDeadlineSec)*time.Second),
	)
	env.Speech = volctts.NewClient(volctts.Config{
		AppID:       creds.VolcAppID,
		AccessToken: creds.VolcAccessToken,
		ResourceID:  cfg.Synthesis.ResourceID,
	})

	translator, err := translate.NewClient(translate.Config{
		APIKey:         creds.OpenAIAPIKey,
		Model:          cfg.Translation.Model,
		Temperature:    cfg.Translation.Temperature,
		TimeoutSeconds: cfg.Translation.TimeoutSeconds,
		MaxAttempts:    cfg.Translation.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	env.Translator = translator

	if cfg.ObjectStore.Bucket != "" {
		store, err := objectstore.New(ctx, objectstore.Config{
			Bucket:       cfg.ObjectStore.Bucket,
			Region:       cfg.ObjectStore.Region,
			Endpoint:     cfg.ObjectStore.Endpoint,
			Prefix:       cfg.ObjectStore.Prefix,
			PresignHours: cfg.ObjectStore.PresignHours,
		})
		if err != nil {
			return nil, err
		}
		env.Stager = store
	}
	return env, nil
}

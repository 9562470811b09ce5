package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyabroad-api/internal/repository"
	"github.com/noah-isme/studyabroad-api/internal/service"
	"github.com/noah-isme/studyabroad-api/pkg/ai"
)

var (
	translateLocales []string
	translateDelay   time.Duration
	translateDryRun  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate active programs into the supported locales",
	Long: `Plan a translation run over every active program and execute it in the
foreground. Programs that already have a translation for a locale are skipped.`,
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringSliceVar(&translateLocales, "locales", nil, "locales to translate into (defaults to every supported non-default locale)")
	translateCmd.Flags().DurationVar(&translateDelay, "delay", -1, "pause between provider calls (defaults to the configured delay)")
	translateCmd.Flags().BoolVar(&translateDryRun, "dry-run", false, "print the plan without calling the provider")
}

func runTranslate(cmd *cobra.Command, _ []string) error {
	rt, err := openEnv()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := ai.New(ctx, rt.cfg.AI)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return fmt.Errorf("ai provider is not configured")
		}
		return err
	}

	delay := rt.cfg.Translation.Delay
	if translateDelay >= 0 {
		delay = translateDelay
	}

	metrics := service.NewMetricsService()
	aiSvc := service.NewAIService(client, metrics, service.NewValidator(), rt.logger)
	runner := service.NewTranslationRunner(repository.NewProgramRepository(rt.db), aiSvc, metrics, rt.logger, service.TranslationRunnerConfig{
		Delay:   delay,
		RunTTL:  rt.cfg.Translation.RunTTL,
		Locales: rt.cfg.Locales,
	})

	run, err := runner.Plan(ctx, translateLocales, "")
	if err != nil {
		return err
	}
	plan := run.Snapshot()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "locales: %v\n", plan.Locales)
	fmt.Fprintf(out, "items: %d total, %d pending, %d already translated\n", plan.Progress.Total, plan.Progress.Pending, plan.Progress.Existing)
	if translateDryRun || plan.Progress.Pending == 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Execute(ctx, run)
	}()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			final := run.Snapshot()
			fmt.Fprintf(out, "%s: %d done, %d failed\n", final.Status, final.Progress.Done, final.Progress.Failed)
			if final.Progress.Failed > 0 {
				return fmt.Errorf("%d translations failed", final.Progress.Failed)
			}
			return nil
		case <-ticker.C:
			snap := run.Snapshot()
			fmt.Fprintf(out, "progress: %d done, %d failed, %d remaining, current %s\n", snap.Progress.Done, snap.Progress.Failed, snap.Progress.Pending, snap.Progress.Current)
		}
	}
}

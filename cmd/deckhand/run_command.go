package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"deckhand/internal/deckstore"
	"deckhand/internal/logging"
	"deckhand/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var onceFlag bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued decks through the pipeline",
		Long: "Run claims pending decks from the store and advances them through the\n" +
			"normalize, densify, enrich, sync, validate, and qa stages. With --once it\n" +
			"drains the store and exits; otherwise it keeps polling until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			lock := flock.New(filepath.Join(cfg.Paths.WorkspaceDir, "deckhand.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire pipeline lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another deckhand run holds the pipeline lock")
			}
			defer lock.Unlock()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "deckhand*.log", cfg.Logging.RetentionDays)

			store, err := deckstore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			mgr := pipeline.NewManager(cfg, store, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if onceFlag {
				processed, err := mgr.RunOnce(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed %d stage transitions\n", processed)
				return nil
			}

			if err := mgr.Start(runCtx); err != nil {
				return err
			}
			logger.Info("pipeline running", logging.String("store", store.Path()))
			<-runCtx.Done()
			logger.Info("shutting down")
			mgr.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&onceFlag, "once", false, "Drain the store and exit")
	return cmd
}

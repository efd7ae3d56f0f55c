package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/reqmerge/internal/indexer"
	"github.com/hyperjump/reqmerge/internal/server"
	"github.com/hyperjump/reqmerge/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and watch the configured directories",
	Long: `Serve starts the review API. When watch.directories is configured, any change
to a document there triggers one debounced re-extraction of all watched directories.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.Config, a.Logger

	recursive := cfg.Watch.RecursiveOrDefault()
	var watchSvc *watcher.Watcher
	watchSvc = watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Extraction.Extensions,
		recursive,
		func(ctx context.Context, changed []string) {
			dirs := watchSvc.Directories()
			logger.Info("watched documents changed; re-extracting",
				zap.Int("changed", len(changed)), zap.Strings("directories", dirs))
			summary, err := a.Indexer.IndexPaths(ctx, dirs, recursive)
			if err != nil {
				if errors.Is(err, indexer.ErrNoDocuments) {
					logger.Debug("watched directories hold no documents")
					return
				}
				logger.Warn("watch re-extraction failed", zap.Error(err))
				return
			}
			logger.Info(summary.Message, zap.String("run", summary.Run.ID))
		},
		watcher.WithDebounce(cfg.Watch.Debounce),
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		return err
	}
	if len(cfg.Watch.Directories) > 0 {
		go watchSvc.Trigger()
	}

	srv := server.NewServer(a.Engine, a.Indexer, a.Storage, cfg, logger, watchSvc, a.ConfigPath)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return err
	}

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rfpgest/internal/api"
	"github.com/dgallion1/rfpgest/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			log.Error("invalid configuration", "error", err)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := build(cfg, log)
		if err != nil {
			return err
		}
		defer c.Close()

		orch := pipeline.NewOrchestrator(cfg, c.deps(), log)
		if n, err := orch.RecoverInterrupted(ctx); err != nil {
			log.Warn("recover interrupted jobs", "error", err)
		} else if n > 0 {
			log.Info("marked interrupted jobs failed", "count", n)
		}
		orch.Start(context.Background())

		srv := api.NewServer(orch, c.stats, c.client.Model(), log, cfg)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("starting rfpgest", "port", cfg.Port, "llm", cfg.LLMProvider, "layout", cfg.LayoutBackend, "store", cfg.StoreBackend)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				log.Error("server error", "error", err)
				orch.Stop()
				return err
			}
		case <-ctx.Done():
		}
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		orch.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

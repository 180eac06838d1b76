package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rfpgest/internal/pipeline"
)

var extractForce bool

var extractCmd = &cobra.Command{
	Use:   "extract <docID>",
	Short: "Extract requirements for a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateLLM(); err != nil {
			return err
		}
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		if cfg.StoreBackend == "memory" {
			return fmt.Errorf("extract needs a persistent store; set STORE_BACKEND=pathstore")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := build(cfg, log)
		if err != nil {
			return err
		}
		defer c.Close()

		job := pipeline.NewJob(pipeline.KindExtraction, args[0])
		job.SetForce(extractForce)
		pipeline.NewWorker(c.deps(), cfg.MaxConcurrentExtract, log).Process(ctx, job)

		snap := job.Snapshot()
		renderJob(cmd.OutOrStdout(), snap)
		if snap.Status == pipeline.StatusFailed {
			return fmt.Errorf("extraction failed: %s", snap.Reason)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "Re-extract sections that already have requirements")
	rootCmd.AddCommand(extractCmd)
}

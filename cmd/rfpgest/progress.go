package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rfpgest/internal/requirements"
)

var progressJSON bool

var progressCmd = &cobra.Command{
	Use:   "progress <docID>",
	Short: "Show extraction and review progress for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		st, closeStore := newStore(cfg)
		defer closeStore()

		report, err := requirements.Progress(cmd.Context(), st, args[0])
		if err != nil {
			return err
		}
		if progressJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
		}
		renderProgress(cmd.OutOrStdout(), args[0], report)
		return nil
	},
}

func init() {
	progressCmd.Flags().BoolVar(&progressJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(progressCmd)
}

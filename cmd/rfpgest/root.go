package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rfpgest/internal/config"
)

var (
	configPath string
	verbose    bool

	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rfpgest",
	Short: "Split RFP documents into sections and extract their requirements",
	Long: `rfpgest turns an RFP into validated, page-tagged sections and then into
requirement records. Run it as an HTTP service with "serve" or against a
single file with "section".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			os.Setenv("RFPGEST_CONFIG", configPath)
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// serve logs to stdout like any service; CLI commands keep stdout for results.
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		out := os.Stderr
		if cmd == serveCmd {
			out = os.Stdout
			level = slog.LevelInfo
		}
		log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides RFPGEST_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress at info level")
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rfpgest/internal/store"
)

var (
	tocFile      string
	sectionJSON  bool
	sectionStore bool
	sectionDocID string
	layoutFlag   string
)

var sectionCmd = &cobra.Command{
	Use:   "section <file>",
	Short: "Section one RFP file and print the result",
	Long: `Run layout analysis, table-of-contents extraction, heading validation and
population against a local file. Results are printed; pass --store to also
write them to the configured record store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !sectionStore {
			cfg.StoreBackend = "memory"
		}
		if layoutFlag != "" {
			cfg.LayoutBackend = layoutFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var toc string
		if tocFile != "" {
			b, err := os.ReadFile(tocFile)
			if err != nil {
				return fmt.Errorf("read toc file: %w", err)
			}
			toc = string(b)
		}
		filename := filepath.Base(path)
		docID := sectionDocID
		if docID == "" {
			docID = filename
		}

		c, err := build(cfg, log)
		if err != nil {
			return err
		}
		defer c.Close()

		doc, err := c.analyzer.Analyze(ctx, bytes.NewReader(data), filename)
		if err != nil {
			return fmt.Errorf("layout: %w", err)
		}
		res, err := c.sectioner.Run(ctx, docID, doc, toc)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if sectionJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			renderSections(out, res)
		}

		if sectionStore {
			pr, err := store.PersistSections(ctx, c.store, log, docID, res.Sections, res.TOC)
			fmt.Fprintf(cmd.ErrOrStderr(), "stored %d records, %d failed\n", pr.Written, pr.Failed)
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	sectionCmd.Flags().StringVar(&tocFile, "toc-file", "", "Use this table of contents instead of extracting one")
	sectionCmd.Flags().BoolVar(&sectionJSON, "json", false, "Print the result as JSON")
	sectionCmd.Flags().BoolVar(&sectionStore, "store", false, "Persist sections to the configured store")
	sectionCmd.Flags().StringVar(&sectionDocID, "doc-id", "", "Document ID (default: file name)")
	sectionCmd.Flags().StringVar(&layoutFlag, "layout", "", "Layout backend override (azure, local)")
	rootCmd.AddCommand(sectionCmd)
}

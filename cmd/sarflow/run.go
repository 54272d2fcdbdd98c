package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sarflow/internal/casefile/loader"
	"sarflow/internal/pipeline"
	"sarflow/internal/platform/config"
)

func newRunCmd() *cobra.Command {
	var (
		dataDir string
		workers int
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every customer in a CSV data directory",
		Long: `Loads customers.csv, accounts.csv and transactions.csv from --data,
builds one case per customer and runs classification and narrative
generation. Reports are written to stdout as JSON; logs go to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Pipeline.Workers = workers
			}

			ds, err := loader.LoadDir(dataDir)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.log.Error("close audit trail", "error", err)
				}
			}()

			inputs := pipeline.FromDataset(*ds, limit)
			a.log.InfoContext(ctx, "batch starting",
				"data", dataDir,
				"customers", len(inputs),
				"workers", cfg.Pipeline.Workers,
			)
			batch := a.pipeline.ProcessBatch(ctx, inputs, cfg.Pipeline.Workers)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(batch); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data", "data", "directory holding the CSV extracts")
	cmd.Flags().IntVar(&workers, "workers", 0, "cases processed concurrently (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "process only the first N customers")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/repository"
)

// ledgerCmd checks the ledger database and optionally lists one run's documents.
// It does not need generation or registry credentials.
func ledgerCmd() *cobra.Command {
	var runID, category string
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Check the processing ledger and list the documents of a run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var only constants.DocumentCategory
			if category != "" {
				cat, ok := constants.Canonicalize(category)
				if !ok {
					return fmt.Errorf("unknown category %q", category)
				}
				only = cat
			}
			cfg, logger, err := loadConfigWith(false)
			if err != nil {
				return err
			}

			db, err := repository.Open(ctx, repository.Config{
				DSN:         cfg.Ledger.DSN,
				MaxConns:    cfg.Ledger.MaxConns,
				MinConns:    cfg.Ledger.MinConns,
				DialTimeout: cfg.Ledger.DialTimeout,
			}, logger)
			if err != nil {
				return err
			}
			defer db.Close(logger)

			if err := db.HealthCheck(ctx, time.Second, logger); err != nil {
				fmt.Printf("Ledger health (%s): FAIL (%v)\n", db.Dialect(), err)
				return err
			}
			fmt.Printf("Ledger health (%s): OK\n", db.Dialect())
			if err := repository.Migrate(ctx, db); err != nil {
				return err
			}
			if runID == "" {
				return nil
			}

			runs, err := repository.NewDocumentRunRepository(db, logger).ListByRun(ctx, runID)
			if err != nil {
				return err
			}
			fmt.Printf("Run %s: %d document(s)\n", runID, len(runs))
			for _, r := range runs {
				if only != "" && r.Category != string(only) {
					continue
				}
				line := fmt.Sprintf("- %-8s %-12s %s", r.Status, r.Category, filepath.Base(r.Locator))
				if r.ErrorMessage != "" {
					line += "  " + r.ErrorMessage
				} else if len(r.Resources) > 0 {
					line += fmt.Sprintf("  %d resource(s)", len(r.Resources))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id to list")
	cmd.Flags().StringVar(&category, "category", "", "only list documents of this category (lab, visit)")
	return cmd
}

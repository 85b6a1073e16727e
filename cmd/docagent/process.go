package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-docs/internal/async"
	"github.com/joseph-ayodele/clinical-docs/internal/export"
	"github.com/joseph-ayodele/clinical-docs/internal/pipeline"
)

type processFlags struct {
	dir       string
	patientID string
	out       string
	workers   int
	dryRun    bool
}

func processCmd() *cobra.Command {
	var f processFlags
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process every PDF in the documents directory or bucket once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcess(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.dir, "dir", "", "documents directory (defaults to DOCUMENTS_DIR)")
	cmd.Flags().StringVar(&f.patientID, "patient", "", "FHIR Patient id the documents belong to (defaults to PATIENT_ID)")
	cmd.Flags().StringVar(&f.out, "out", "", "optional path for an XLSX report of the run")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent documents (defaults to WORKERS)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "write resources to an in-memory registry")
	return cmd
}

// batchSummary is updated from worker goroutines.
type batchSummary struct {
	mu        sync.Mutex
	processed int
	skipped   int
	failed    []string
	resources int
}

func (s *batchSummary) record(o async.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := filepath.Base(o.Job.Locator)
	switch {
	case o.Err != nil:
		s.failed = append(s.failed, name)
		fmt.Printf("✗ %s: %v\n", name, o.Err)
	case o.Result.Skipped:
		s.skipped++
		fmt.Printf("- %s: already processed\n", name)
	default:
		s.processed++
		refs := o.Result.Graph.References()
		s.resources += len(refs)
		fmt.Printf("✓ %s (%s): %s\n", name, o.Result.Category, strings.Join(refs, ", "))
	}
}

func runProcess(parent context.Context, f processFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if f.patientID == "" {
		f.patientID = cfg.Ingest.PatientID
	}
	if f.patientID == "" {
		return fmt.Errorf("a patient id is required: pass --patient or set PATIENT_ID")
	}
	workers := cfg.Ingest.Workers
	if f.workers > 0 {
		workers = f.workers
	}

	a, err := newApp(ctx, cfg, logger, appOptions{dryRun: f.dryRun, dir: f.dir})
	if err != nil {
		logger.Error("docagent.init_failed", "error", err)
		return err
	}
	defer a.Close()

	proc, err := a.newProcessor()
	if err != nil {
		logger.Error("docagent.processor_init_failed", "error", err)
		return err
	}

	locators, err := a.source.List(ctx)
	if err != nil {
		logger.Error("docagent.list_failed", "source", a.source.Name(), "error", err)
		return err
	}
	if len(locators) == 0 {
		fmt.Println("No PDF documents found")
		return nil
	}
	fmt.Printf("Processing %d document(s) for Patient/%s (run %s)\n", len(locators), f.patientID, proc.RunID())

	summary := &batchSummary{}
	start := time.Now()
	q := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(workers),
		async.WithQueueSize(len(locators)),
		async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
		async.WithOnResult(summary.record),
	)
	for _, loc := range locators {
		if err := q.Enqueue(ctx, async.Job{Locator: loc, SubjectID: f.patientID, SubmittedAt: time.Now()}); err != nil {
			logger.Warn("docagent.enqueue_stopped", "locator", loc, "error", err)
			break
		}
	}
	q.Shutdown(context.WithoutCancel(ctx))

	if f.out != "" {
		if err := writeReport(ctx, a, proc, f.out); err != nil {
			logger.Error("docagent.report_failed", "path", f.out, "error", err)
			return err
		}
		fmt.Printf("Report written to %s\n", f.out)
	}

	fmt.Printf("\nSummary: %d processed, %d skipped, %d failed, %d resources created in %s\n",
		summary.processed, summary.skipped, len(summary.failed), summary.resources,
		time.Since(start).Round(time.Millisecond))
	if len(summary.failed) > 0 {
		fmt.Printf("Failed: %s\n", strings.Join(summary.failed, ", "))
		return fmt.Errorf("%d of %d documents failed", len(summary.failed), len(locators))
	}
	return nil
}

func writeReport(ctx context.Context, a *app, proc *pipeline.Processor, path string) error {
	data, err := export.NewService(a.ledger, a.logger).ExportRunXLSX(ctx, proc.RunID())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

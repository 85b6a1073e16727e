package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/clinical-docs/internal/async"
	"github.com/joseph-ayodele/clinical-docs/internal/ingest"
	"github.com/joseph-ayodele/clinical-docs/internal/pipeline"
)

const defaultPollInterval = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		patientID string
		dir       string
		debounce  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch for new PDFs and process each one as it arrives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if patientID == "" {
				patientID = cfg.Ingest.PatientID
			}
			if patientID == "" {
				return fmt.Errorf("a patient id is required: pass --patient or set PATIENT_ID")
			}

			a, err := newApp(ctx, cfg, logger, appOptions{dir: dir})
			if err != nil {
				logger.Error("docagent.init_failed", "error", err)
				return err
			}
			defer a.Close()

			if err := a.db.HealthCheck(ctx, 3*time.Second, logger); err != nil {
				return err
			}
			proc, err := a.newProcessor(pipeline.WithSkipProcessed(true))
			if err != nil {
				return err
			}
			tracker := newSubmissions()
			q := async.NewProcessorQueue(proc, logger,
				async.WithWorkers(cfg.Ingest.Workers),
				async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
				async.WithOnResult(func(o async.Outcome) {
					tracker.done(o.Job.Locator)
					logOutcome(logger, o)
				}),
			)

			grpcServer := grpc.NewServer()
			hs := health.NewServer()
			healthpb.RegisterHealthServer(grpcServer, hs)
			hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			reflection.Register(grpcServer)

			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				logger.Error("docagent.listen_failed", "addr", cfg.Server.GRPCAddr, "error", err)
				q.Shutdown(context.Background())
				return err
			}
			go func() {
				logger.Info("docagent.grpc_serving", "addr", cfg.Server.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("docagent.grpc_serve_error", "error", err)
				}
			}()

			enqueue := func(loc string) {
				job := async.Job{Locator: loc, SubjectID: patientID, SubmittedAt: time.Now()}
				if err := q.Enqueue(ctx, job); err != nil {
					tracker.done(loc)
					logger.Warn("docagent.enqueue_failed", "locator", loc, "error", err)
				}
			}

			var runErr error
			if fs, ok := a.source.(*ingest.FSSource); ok {
				// a rewritten file is processed again once its previous pass finished
				runErr = watchDirectory(ctx, fs.Root(), cfg.Ingest.SkipHidden, debounce, logger, func(loc string) {
					if tracker.begin(loc, false) {
						enqueue(loc)
					} else {
						logger.Debug("docagent.submit_in_flight", "locator", loc)
					}
				})
			} else {
				interval := cfg.Server.PollInterval
				if interval <= 0 {
					interval = defaultPollInterval
				}
				pollSource(ctx, a.source, interval, logger, tracker, enqueue)
			}

			logger.Info("docagent.shutting_down")
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.ProcessTimeout+5*time.Second)
			defer cancel()
			q.Shutdown(shutdownCtx)
			grpcServer.GracefulStop()
			logger.Info("docagent.stopped")
			return runErr
		},
	}
	cmd.Flags().StringVar(&patientID, "patient", "", "FHIR Patient id new documents belong to (defaults to PATIENT_ID)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch (defaults to DOCUMENTS_DIR)")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is processed")
	return cmd
}

// watchDirectory submits existing PDFs, then each new or rewritten one, until ctx ends.
func watchDirectory(ctx context.Context, root string, skipHidden bool, debounce time.Duration, logger *slog.Logger, submit func(string)) error {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		SkipHidden:  skipHidden,
		Debounce:    debounce,
	}, logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			submit(p)
		case err, ok := <-errs:
			if ok {
				logger.Warn("docagent.watch_error", "error", err)
			}
		}
	}
}

// pollSource lists the source on every tick and submits each locator once per
// daemon lifetime. In-flight and failed documents are not submitted again;
// content mapped by an earlier daemon is skipped by the processor's ledger check.
func pollSource(ctx context.Context, src ingest.Source, interval time.Duration, logger *slog.Logger, tracker *submissions, submit func(string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		locators, err := src.List(ctx)
		if err != nil {
			logger.Warn("docagent.poll_failed", "source", src.Name(), "error", err)
		}
		for _, loc := range locators {
			if tracker.begin(loc, true) {
				submit(loc)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// submissions remembers which locators are queued or running, and which were
// ever attempted.
type submissions struct {
	mu        sync.Mutex
	inFlight  map[string]struct{}
	attempted map[string]struct{}
}

func newSubmissions() *submissions {
	return &submissions{
		inFlight:  make(map[string]struct{}),
		attempted: make(map[string]struct{}),
	}
}

// begin reports whether loc should be submitted now and marks it in flight.
// With once set, a locator attempted before is refused even after it finished.
func (s *submissions) begin(loc string, once bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[loc]; ok {
		return false
	}
	if _, ok := s.attempted[loc]; ok && once {
		return false
	}
	s.inFlight[loc] = struct{}{}
	s.attempted[loc] = struct{}{}
	return true
}

func (s *submissions) done(loc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, loc)
}

func logOutcome(logger *slog.Logger, o async.Outcome) {
	switch {
	case o.Err != nil:
		logger.Error("docagent.document_failed", "locator", o.Job.Locator, "error", o.Err)
	case o.Result.Skipped:
		logger.Info("docagent.document_skipped", "locator", o.Job.Locator, "content_hash", o.Result.ContentHash)
	default:
		logger.Info("docagent.document_done",
			"locator", o.Job.Locator,
			"category", o.Result.Category,
			"resources", o.Result.Graph.References(),
			"elapsed_ms", o.Result.Duration.Milliseconds(),
		)
	}
}

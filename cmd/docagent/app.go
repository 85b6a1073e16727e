package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/clinical-docs/internal/classify"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/events"
	"github.com/joseph-ayodele/clinical-docs/internal/extract"
	"github.com/joseph-ayodele/clinical-docs/internal/ingest"
	"github.com/joseph-ayodele/clinical-docs/internal/llm/providers"
	"github.com/joseph-ayodele/clinical-docs/internal/mapper"
	"github.com/joseph-ayodele/clinical-docs/internal/pipeline"
	"github.com/joseph-ayodele/clinical-docs/internal/practitioners"
	"github.com/joseph-ayodele/clinical-docs/internal/registry"
	"github.com/joseph-ayodele/clinical-docs/internal/repository"
)

const dryRunLedgerDSN = "file::memory:?_pragma=foreign_keys(1)"

type appOptions struct {
	dryRun bool
	dir    string
}

// app holds the long-lived dependencies shared by the subcommands.
type app struct {
	cfg       *common.Config
	logger    *slog.Logger
	registry  registry.Client
	db        *repository.DB
	ledger    repository.DocumentRunRepository
	publisher events.Publisher
	source    ingest.Source
	redis     *redis.Client
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger, publisher: events.Nop{}}

	if opts.dryRun {
		logger.Warn("docagent.dry_run", "hint", "resources are written to an in-memory registry")
		a.registry = registry.NewMemory(logger)
	} else {
		a.registry = registry.NewHTTPClient(registry.Config{
			BaseURL:      cfg.Registry.BaseURL,
			TokenURL:     cfg.Registry.TokenURL,
			ClientID:     cfg.Registry.ClientID,
			ClientSecret: cfg.Registry.ClientSecret,
			Timeout:      cfg.Registry.Timeout,
		}, logger)
	}

	dsn := cfg.Ledger.DSN
	if opts.dryRun {
		dsn = dryRunLedgerDSN
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:             dsn,
		MaxConns:        cfg.Ledger.MaxConns,
		MinConns:        cfg.Ledger.MinConns,
		MaxConnLifetime: cfg.Ledger.MaxConnLifetime,
		MaxConnIdleTime: cfg.Ledger.MaxConnIdleTime,
		DialTimeout:     cfg.Ledger.DialTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.db = db
	if err := repository.Migrate(ctx, db); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	a.ledger = repository.NewDocumentRunRepository(db, logger)

	if cfg.Storage.Endpoint != "" {
		client, err := ingest.NewMinioClient(cfg.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.source = ingest.NewMinioSource(client, cfg.Storage.Bucket, cfg.Storage.Prefix, logger)
	} else {
		dir := opts.dir
		if dir == "" {
			dir = cfg.Ingest.DocumentsDir
		}
		a.source = ingest.NewFSSource(dir, cfg.Ingest.SkipHidden, logger)
	}

	if cfg.Events.URL != "" && !opts.dryRun {
		pub, err := events.DialAMQP(cfg.Events, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = pub
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, common.NewAppError("REDIS_ERROR", "ping "+cfg.Redis.Addr, err)
		}
	}
	return a, nil
}

// newProcessor wires the generation provider, stages and resolver into a pipeline.
func (a *app) newProcessor(opts ...pipeline.Option) (*pipeline.Processor, error) {
	gen, err := providers.NewGenerator(a.cfg.LLM, a.logger)
	if err != nil {
		return nil, err
	}
	extractor, err := extract.NewExtractor(gen, a.logger)
	if err != nil {
		return nil, err
	}

	var locker practitioners.Locker
	if a.redis != nil {
		locker = practitioners.NewRedisLocker(a.redis, a.cfg.Redis.LockTTL, a.logger)
	}
	resolver := practitioners.NewResolver(a.registry, locker, a.logger)
	m := mapper.NewMapper(a.registry, resolver, mapper.Config{
		DefaultPractitionerID: a.cfg.Registry.DefaultPractitionerID,
	}, a.logger)

	all := append([]pipeline.Option{
		pipeline.WithLedger(a.ledger),
		pipeline.WithPublisher(a.publisher),
	}, opts...)
	return pipeline.NewProcessor(a.logger, a.source, classify.NewClassifier(gen, a.logger), extractor, m, all...), nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("docagent.publisher_close_error", "error", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("docagent.redis_close_error", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close(a.logger)
	}
}

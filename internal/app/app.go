// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	gstorage "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ethoscan/evidence-resolver/internal/archive"
	"github.com/ethoscan/evidence-resolver/internal/clock/system"
	"github.com/ethoscan/evidence-resolver/internal/config"
	collyfetcher "github.com/ethoscan/evidence-resolver/internal/fetcher/colly"
	"github.com/ethoscan/evidence-resolver/internal/fetcher/headless"
	"github.com/ethoscan/evidence-resolver/internal/id/uuid"
	"github.com/ethoscan/evidence-resolver/internal/logging"
	"github.com/ethoscan/evidence-resolver/internal/metrics"
	pubsubpublisher "github.com/ethoscan/evidence-resolver/internal/publisher/pubsub"
	"github.com/ethoscan/evidence-resolver/internal/resolver"
	gcssnapshot "github.com/ethoscan/evidence-resolver/internal/snapshot/gcs"
	memorysnapshot "github.com/ethoscan/evidence-resolver/internal/snapshot/memory"
	"github.com/ethoscan/evidence-resolver/internal/storage/postgres"
)

// App holds the shared, long-lived services for the resolution pipeline. It
// is initialized once at startup and passed to the components that need it.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Orchestrator *resolver.Orchestrator
	Runs         resolver.RunStore

	pool      *pgxpool.Pool
	headless  *headless.Fetcher
	publisher *pubsubpublisher.Publisher
}

// New builds the full service graph from configuration. It fails fast when a
// critical dependency (database, pubsub) cannot be initialized; optional
// side-effect services are only built when configured.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	metrics.Init()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: int32(cfg.DB.MaxConns),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}

	citations, err := postgres.NewCitationStore(pool)
	if err != nil {
		return nil, err
	}
	events, err := postgres.NewEventStore(pool)
	if err != nil {
		return nil, err
	}
	runs, err := postgres.NewRunStore(pool)
	if err != nil {
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Resolver.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})

	var renderer resolver.Fetcher = headless.Noop{}
	var headlessFetcher *headless.Fetcher
	if cfg.Headless.Enabled {
		headlessFetcher, err = headless.NewChromedp(headless.Config{
			UserAgent:         cfg.Resolver.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize headless fetcher: %w", err)
		}
		renderer = headlessFetcher
	}

	discovery := resolver.NewDiscoverer(fetcher, renderer, logger)

	var archiver resolver.Archiver
	if cfg.Archive.Enabled {
		archiver = archive.New(archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			Timeout:   time.Duration(cfg.Archive.TimeoutSeconds) * time.Second,
			UserAgent: cfg.Resolver.UserAgent,
		}, logger)
	}

	var (
		publisher       resolver.Publisher
		pubsubPublisher *pubsubpublisher.Publisher
	)
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		pubsubPublisher, err = pubsubpublisher.New(ctx, pubsubpublisher.Config{
			ProjectID: cfg.PubSub.ProjectID,
			TopicName: cfg.PubSub.TopicName,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub: %w", err)
		}
		publisher = pubsubPublisher
	}

	snapshots, err := newSnapshotStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	orchestrator := resolver.New(
		citations,
		events,
		runs,
		discovery,
		archiver,
		publisher,
		snapshots,
		system.New(),
		uuid.New(),
		resolver.Config{
			DefaultMode:    resolver.Mode(cfg.Resolver.ModeDefault),
			DefaultLimit:   cfg.Resolver.LimitDefault,
			CitationPause:  cfg.CitationPause(),
			ResolvePause:   cfg.ResolvePause(),
			Topic:          cfg.PubSub.TopicName,
			SnapshotPrefix: cfg.Snapshot.Prefix,
		},
		logger,
	)

	logger.Info("application services initialized",
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.Bool("archive", cfg.Archive.Enabled),
		zap.String("snapshot_provider", cfg.Snapshot.Provider),
	)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Orchestrator: orchestrator,
		Runs:         runs,
		pool:         pool,
		headless:     headlessFetcher,
		publisher:    pubsubPublisher,
	}, nil
}

func newSnapshotStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (resolver.SnapshotStore, error) {
	switch cfg.Snapshot.Provider {
	case "", "none":
		return nil, nil
	case "memory":
		return memorysnapshot.New(), nil
	case "gcs":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize gcs client: %w", err)
		}
		logger.Info("using gcs snapshot sink", zap.String("bucket", cfg.Snapshot.GCSBucket))
		return gcssnapshot.New(client, gcssnapshot.Config{Bucket: cfg.Snapshot.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown snapshot provider: %s", cfg.Snapshot.Provider)
	}
}

// Close gracefully shuts down the services held by the container.
func (a *App) Close() {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.Logger.Warn("error closing pubsub publisher", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.Logger.Sync()
}

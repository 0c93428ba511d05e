// Package common wires shared dependencies for the CLI commands.
package common

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/regintake/internal/archive"
	"github.com/jonesrussell/regintake/internal/config"
	"github.com/jonesrussell/regintake/internal/database"
	"github.com/jonesrussell/regintake/internal/intake"
	"github.com/jonesrussell/regintake/internal/lifecycle"
	"github.com/jonesrussell/regintake/internal/logger"
	"github.com/jonesrussell/regintake/internal/rails"
	"github.com/jonesrussell/regintake/internal/robots"
)

// robotsCacheTTL bounds how long a host's robots.txt stays cached.
const robotsCacheTTL = 24 * time.Hour

// Deps holds the fully wired dependency graph shared by the run, serve, and
// items commands.
type Deps struct {
	Config    *config.Config
	Logger    logger.Interface
	DB        *sqlx.DB
	Items     *database.IntakeItemRepository
	Snapshots *archive.SnapshotStore
	Scheduler *intake.Scheduler
	Lifecycle *lifecycle.Service
	Rails     rails.CrawlRails
}

// NewDeps loads configuration and constructs the dependency graph: logger,
// database (with schema migration), repositories, snapshot store, robots
// checker, crawl rails, fetch scheduler, and lifecycle service.
func NewDeps(ctx context.Context) (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	items := database.NewIntakeItemRepository(db)
	entities := database.NewEntityRepository(db)
	cards := database.NewCardRepository(db)
	audits := database.NewAuditLogRepository(db)
	idempotency := database.NewIdempotencyRepository(db)

	snapshots, err := archive.NewSnapshotStore(archive.Config{
		Endpoint:      cfg.Minio.Endpoint,
		AccessKey:     cfg.Minio.AccessKey,
		SecretKey:     cfg.Minio.SecretKey,
		UseSSL:        cfg.Minio.UseSSL,
		Bucket:        cfg.Minio.Bucket,
		PresignExpiry: cfg.Minio.PresignExpiry,
	}, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	crawlRails := rails.WithEnvOverrides(
		rails.Default(cfg.Intake.AllowedDomains, cfg.Intake.StripQueryParams),
	)

	httpClient := &http.Client{Timeout: crawlRails.FetchTimeout()}
	robotsChecker := robots.NewChecker(httpClient, cfg.Intake.UserAgent, robotsCacheTTL)

	scheduler := intake.NewScheduler(
		crawlRails,
		items,
		snapshots,
		robotsChecker,
		log,
		httpClient,
		cfg.Intake.UserAgent,
	)

	svc := lifecycle.NewService(items, entities, cards, audits, idempotency, log)

	return &Deps{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Items:     items,
		Snapshots: snapshots,
		Scheduler: scheduler,
		Lifecycle: svc,
		Rails:     crawlRails,
	}, nil
}

// Close releases held resources.
func (d *Deps) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

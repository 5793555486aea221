package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/config"
	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/dashboard"
	"github.com/lims/lims/internal/domain/emr"
	"github.com/lims/lims/internal/domain/identity"
	"github.com/lims/lims/internal/domain/inventory"
	"github.com/lims/lims/internal/domain/nabl"
	"github.com/lims/lims/internal/domain/patient"
	"github.com/lims/lims/internal/domain/qc"
	"github.com/lims/lims/internal/domain/result"
	"github.com/lims/lims/internal/domain/specimen"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/blobstore"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/metrics"
	"github.com/lims/lims/internal/platform/sequence"
	"github.com/lims/lims/internal/platform/websocket"
)

// app holds the wired services shared by the server and the CLI commands.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	redis   *redis.Client
	metrics *metrics.Metrics
	hub     *websocket.Hub
	jwt     auth.JWTConfig

	audit     *audit.Service
	identity  *identity.Service
	patients  *patient.Service
	catalog   *catalog.Service
	specimens *specimen.Service
	results   *result.Service
	qc        *qc.Service
	inventory *inventory.Service
	nabl      *nabl.Service
	dashboard *dashboard.Service
	emr       *emr.Service
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		metrics: metrics.New(),
		hub:     websocket.NewHub(logger),
		jwt: auth.JWTConfig{
			SigningKey: cfg.SigningKey(),
			TTL:        cfg.TokenTTL,
			Skipper:    auth.AuthSkipper,
		},
	}

	ids, err := a.allocator(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var store blobstore.Store
	if cfg.ArchiveEnabled() {
		s3store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Bucket:    cfg.ArchiveBucket,
			Region:    cfg.ArchiveRegion,
			Endpoint:  cfg.ArchiveEndpoint,
			PathStyle: cfg.ArchivePathStyle,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		store = s3store
	}

	var tx db.Transactor = db.NoTx{}
	if cfg.AuditMode == config.AuditTransactional {
		tx = db.NewTransactor(pool)
	}

	auditRepo := audit.NewRepoPG(pool)
	recorder := audit.NewRecorder(auditRepo, audit.Mode(cfg.AuditMode), logger, a.metrics.AuditWriteFailures)

	a.audit = audit.NewService(auditRepo, recorder, store)
	a.identity = identity.NewService(identity.NewUserRepoPG(pool), a.jwt, recorder, tx)
	a.patients = patient.NewService(patient.NewRepoPG(pool), ids, recorder, tx)
	a.catalog = catalog.NewService(catalog.NewRepoPG(pool), recorder, tx)
	a.specimens = specimen.NewService(specimen.NewRepoPG(pool), a.patients, a.catalog, ids, recorder, tx, specimen.Options{
		Strict:      cfg.StrictTransitions,
		Publisher:   a.hub,
		Transitions: a.metrics.SpecimenTransitions,
	})
	a.results = result.NewService(result.NewRepoPG(pool), a.specimens, a.patients, recorder, tx, result.Options{
		Strict:          cfg.StrictTransitions,
		LabName:         cfg.LabName,
		Publisher:       a.hub,
		CriticalResults: a.metrics.CriticalResults,
	})
	a.qc = qc.NewService(qc.NewRepoPG(pool), recorder, tx, a.metrics.QCOutcomes)
	a.inventory = inventory.NewService(inventory.NewRepoPG(pool), recorder, tx)
	a.nabl = nabl.NewService(nabl.NewRepoPG(pool), recorder, tx)
	a.dashboard = dashboard.NewService(dashboard.NewSourcePG(pool), a.metrics.TATBreaches)
	a.emr = emr.NewService(a.patients, a.catalog, a.specimens, a.results)
	return a, nil
}

// allocator picks the identifier counter. Switching to Redis seeds its
// counters from the Postgres table so no identifier is issued twice.
func (a *app) allocator(ctx context.Context) (sequence.Allocator, error) {
	pg := sequence.NewPGAllocator(a.pool)
	if a.cfg.IDAllocator != config.AllocatorRedis {
		return pg, nil
	}

	client, err := sequence.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	ra := sequence.NewRedisAllocator(client, "")
	for _, kind := range []sequence.Kind{sequence.KindPatient, sequence.KindSpecimen} {
		floor, err := pg.Current(ctx, kind)
		if err != nil {
			return nil, err
		}
		seeded, err := ra.Seed(ctx, kind, floor)
		if err != nil {
			return nil, err
		}
		if seeded {
			a.logger.Info().Str("kind", string(kind)).Int64("floor", floor).Msg("seeded redis sequence")
		}
	}
	return ra, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.pool.Close()
}

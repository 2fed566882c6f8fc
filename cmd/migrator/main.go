package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/movingbox/movingbox-migrator/internal/adapter"
	"github.com/movingbox/movingbox-migrator/internal/config"
	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/metrics"
	"github.com/movingbox/movingbox-migrator/internal/migration"
	"github.com/movingbox/movingbox-migrator/internal/records"
	"github.com/movingbox/movingbox-migrator/internal/replica"
	"github.com/movingbox/movingbox-migrator/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	probeOnly  = flag.Bool("probe-only", false, "Only probe the remote replica, never recover from it")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMigratorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx := context.Background()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "migrator",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting migrator")

	// Connect to the target store
	db, err := store.Open(store.Config{
		Driver:          cfg.Database.Driver,
		Path:            cfg.Database.Path,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Debug:           cfg.Debug,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to open target store", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to prepare target schema", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to target store", zap.String("driver", db.Dialector.Name()))

	target := store.NewGormStore(db)
	state := store.NewStateStore(db)
	clock := adapter.NewClock()
	fs := adapter.NewFileSystem()
	recorder := metrics.NewRecorder()
	bestHome := records.BestHomePolicy{PlaceholderName: cfg.Legacy.PlaceholderHome}

	// Local path
	local := migration.NewLocalMigrator(migration.LocalConfig{
		LegacyPath:  cfg.Legacy.Path,
		BackupDir:   cfg.Legacy.BackupDir,
		MaxAttempts: cfg.Legacy.MaxAttempts,
		BestHome:    bestHome,
	}, state, target, fs, clock)

	started := clock.Now()
	result := local.MigrateIfNeeded(ctx)
	recorder.Record("local", result, clock.Since(started), clock.Now())
	logger.InfoCtx(ctx, "Local migration result", zap.String("result", result.String()))

	final := result
	legacyPresent, err := fs.Exists(cfg.Legacy.Path)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to check legacy store", zap.Error(err), zap.String("path", cfg.Legacy.Path))
		legacyPresent = true
	}
	if cfg.Replica.Enabled && migration.NeedsRemoteRecovery(result, legacyPresent) {
		final = recoverRemote(ctx, cfg, state, target, clock, bestHome, recorder)
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.ErrorCtx(ctx, err)
		}
	}

	if !final.Succeeded() {
		logger.ErrorCtx(ctx, fmt.Errorf("migrator finished with %s: %w", final.Status, final.Err))
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
	logger.InfoCtx(ctx, "Migrator finished", zap.String("result", final.String()))
}

// recoverRemote probes the replica zone and recovers from it when it holds items
func recoverRemote(ctx context.Context, cfg *config.MigratorConfig, state store.StateStore, target store.Store,
	clock adapter.Clock, bestHome records.BestHomePolicy, recorder *metrics.Recorder) domain.Result {
	db, err := replica.NewS3(ctx, replica.S3Config{
		Bucket:          cfg.Replica.S3.Bucket,
		Region:          cfg.Replica.S3.Region,
		Endpoint:        cfg.Replica.S3.Endpoint,
		AccessKeyID:     cfg.Replica.S3.AccessKeyID,
		SecretAccessKey: cfg.Replica.S3.SecretAccessKey,
		PathStyle:       cfg.Replica.S3.PathStyle,
		MaxAttempts:     cfg.Replica.S3.MaxAttempts,
	})
	if err != nil {
		// an unreachable replica is retried on the next launch
		logger.WarnCtx(ctx, "Remote replica unavailable", zap.Error(err))
		return domain.Result{Status: domain.StatusNothingToRecover}
	}

	recovery := migration.NewRemoteRecovery(migration.RemoteConfig{
		Zone:                 cfg.Replica.Zone,
		PageSize:             cfg.Replica.PageSize,
		MaxAttempts:          cfg.Replica.MaxAttempts,
		Parallel:             cfg.Replica.Parallel,
		BestHome:             bestHome,
		AssetInitialInterval: cfg.Replica.AssetInitialInterval,
		AssetMaxInterval:     cfg.Replica.AssetMaxInterval,
		AssetMaxElapsedTime:  cfg.Replica.AssetMaxElapsedTime,
	}, db, state, target, clock)

	started := clock.Now()
	probe := recovery.Probe(ctx)
	recorder.Record("remote_probe", probe, clock.Since(started), clock.Now())
	logger.InfoCtx(ctx, "Remote probe result", zap.String("result", probe.String()))
	if probe.Status != domain.StatusRecoverable || *probeOnly || !cfg.Replica.AutoRecover {
		return probe
	}

	started = clock.Now()
	result := recovery.Recover(ctx)
	recorder.Record("remote", result, clock.Since(started), clock.Now())
	logger.InfoCtx(ctx, "Remote recovery result", zap.String("result", result.String()))
	return result
}

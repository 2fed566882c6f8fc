package migration

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/adapter"
	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/keymap"
	"github.com/movingbox/movingbox-migrator/internal/legacy"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/records"
	"github.com/movingbox/movingbox-migrator/internal/store"
)

// LocalConfig configures the local migration path
type LocalConfig struct {
	// LegacyPath is the legacy store file
	LegacyPath string
	// BackupDir receives the archived legacy files after a validated migration
	BackupDir   string
	MaxAttempts int
	BestHome    records.BestHomePolicy
}

// sidecarSuffixes are the files SQLite keeps next to a store in WAL mode
var sidecarSuffixes = []string{"", "-wal", "-shm"}

// LocalMigrator migrates the legacy store on this device into the target store
type LocalMigrator struct {
	cfg       LocalConfig
	attempts  attempts
	target    store.Store
	validator *Validator
	fs        adapter.FileSystem
	clock     adapter.Clock
}

// NewLocalMigrator creates the local migration entry point
func NewLocalMigrator(cfg LocalConfig, state store.StateStore, target store.Store, fs adapter.FileSystem, clock adapter.Clock) *LocalMigrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.MAX_MIGRATION_ATTEMPTS
	}
	if cfg.BestHome.PlaceholderName == "" {
		cfg.BestHome.PlaceholderName = domain.DEFAULT_PLACEHOLDER_HOME
	}
	return &LocalMigrator{
		cfg: cfg,
		attempts: attempts{
			state:       state,
			completeKey: domain.STATE_KEY_MIGRATION_COMPLETE,
			counterKey:  domain.STATE_KEY_MIGRATION_ATTEMPTS,
			max:         cfg.MaxAttempts,
		},
		target:    target,
		validator: NewValidator(target),
		fs:        fs,
		clock:     clock,
	}
}

// MigrateIfNeeded runs the local migration unless it already completed or
// exhausted its attempts
func (m *LocalMigrator) MigrateIfNeeded(ctx context.Context) domain.Result {
	if status, err := m.attempts.gate(ctx); status != "" {
		return domain.Result{Status: status, Err: err}
	}

	runID := ulid.Make().String()
	ctx = logger.WithFields(ctx, zap.String("run_id", runID), zap.String("path", "local"))
	started := m.clock.Now()

	attempt, err := m.attempts.consume(ctx)
	if err != nil {
		return domain.Result{Status: domain.StatusError, Err: err}
	}
	logger.InfoCtx(ctx, "Starting legacy migration",
		zap.Int("attempt", attempt), zap.String("legacy_path", m.cfg.LegacyPath))

	exists, err := m.fs.Exists(m.cfg.LegacyPath)
	if err != nil {
		return m.fail(ctx, fmt.Errorf("failed to stat legacy store: %w", err))
	}
	if !exists {
		return m.finish(ctx, domain.Result{Status: domain.StatusFreshInstall})
	}

	stats, err := m.migrate(ctx)
	if errors.Is(err, domain.ErrMissingCoreTable) {
		return m.finish(ctx, domain.Result{Status: domain.StatusNoLegacyTables})
	}
	if err != nil {
		return m.fail(ctx, err)
	}

	if err := m.archive(ctx, runID); err != nil {
		return m.fail(ctx, err)
	}

	result := m.finish(ctx, domain.Result{Status: domain.StatusSuccess, Stats: stats})
	logger.InfoCtx(ctx, "Legacy migration finished",
		zap.String("result", result.String()), zap.Duration("duration", m.clock.Since(started)))
	return result
}

// migrate reads, resolves, writes and validates. The legacy store is closed
// before it returns so the files can be archived.
func (m *LocalMigrator) migrate(ctx context.Context) (domain.Stats, error) {
	src, err := legacy.Open(ctx, m.cfg.LegacyPath)
	if err != nil {
		return domain.Stats{}, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.WarnCtx(ctx, "Failed to close legacy store", zap.Error(err))
		}
	}()

	caps := src.Probe(ctx)
	if !caps.HasTable(legacy.TableItem) {
		return domain.Stats{}, domain.ErrMissingCoreTable
	}

	keys := keymap.NewResolver[int64]()
	snap, err := legacy.NewReader(src, caps, keys).Read(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	records.Backfill(ctx, snap, m.cfg.BestHome)

	batch, stats := BuildBatch(ctx, snap, keys)
	if err := m.validator.CheckSource(src.HasEntityRows(ctx, caps), batch); err != nil {
		return stats, err
	}
	if err := m.target.ReplaceAll(ctx, batch); err != nil {
		return stats, err
	}
	if err := m.validator.Validate(ctx, batch.Counts()); err != nil {
		return stats, err
	}
	return stats, nil
}

// archive moves the legacy store and its sidecar files into a fresh backup directory
func (m *LocalMigrator) archive(ctx context.Context, runID string) error {
	stamp := m.clock.Now().UTC().Format("20060102T150405Z")
	dir := filepath.Join(m.cfg.BackupDir, fmt.Sprintf("%s-%s", stamp, strings.ToLower(runID)))
	if err := m.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(m.cfg.LegacyPath)
	for _, suffix := range sidecarSuffixes {
		src := m.cfg.LegacyPath + suffix
		exists, err := m.fs.Exists(src)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", src, err)
		}
		if !exists {
			continue
		}
		if err := m.fs.Rename(src, filepath.Join(dir, base+suffix)); err != nil {
			return fmt.Errorf("failed to archive %s: %w", src, err)
		}
	}
	logger.InfoCtx(ctx, "Archived legacy store", zap.String("backup_dir", dir))
	return nil
}

// finish records a terminal success state
func (m *LocalMigrator) finish(ctx context.Context, result domain.Result) domain.Result {
	if err := m.attempts.complete(ctx); err != nil {
		return domain.Result{Status: domain.StatusError, Stats: result.Stats, Err: err}
	}
	if result.Status != domain.StatusSuccess {
		logger.InfoCtx(ctx, "Nothing to migrate", zap.String("status", string(result.Status)))
	}
	return result
}

// fail reports a retry-eligible failure, leaving flag and source untouched
func (m *LocalMigrator) fail(ctx context.Context, err error) domain.Result {
	logger.ErrorCtx(ctx, fmt.Errorf("legacy migration attempt failed: %w", err))
	return domain.Result{Status: domain.StatusError, Err: err}
}

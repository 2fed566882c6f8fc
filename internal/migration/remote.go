package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/adapter"
	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/keymap"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/records"
	"github.com/movingbox/movingbox-migrator/internal/replica"
	"github.com/movingbox/movingbox-migrator/internal/store"
)

// RemoteConfig configures the remote recovery path
type RemoteConfig struct {
	Zone        string
	PageSize    int
	MaxAttempts int
	// Parallel bounds the concurrent record type traversals
	Parallel int
	BestHome records.BestHomePolicy

	AssetInitialInterval time.Duration
	AssetMaxInterval     time.Duration
	AssetMaxElapsedTime  time.Duration
}

// RemoteRecovery rebuilds the target store from the remote replica zone
type RemoteRecovery struct {
	cfg       RemoteConfig
	db        replica.Database
	attempts  attempts
	target    store.Store
	validator *Validator
	clock     adapter.Clock
}

// NewRemoteRecovery creates the remote recovery entry point
func NewRemoteRecovery(cfg RemoteConfig, db replica.Database, state store.StateStore, target store.Store, clock adapter.Clock) *RemoteRecovery {
	if cfg.Zone == "" {
		cfg.Zone = domain.LEGACY_ZONE_NAME
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DEFAULT_PAGE_SIZE
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.MAX_RECOVERY_ATTEMPTS
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = domain.REMOTE_FETCH_PARALLEL
	}
	if cfg.BestHome.PlaceholderName == "" {
		cfg.BestHome.PlaceholderName = domain.DEFAULT_PLACEHOLDER_HOME
	}
	if cfg.AssetInitialInterval <= 0 {
		cfg.AssetInitialInterval = 200 * time.Millisecond
	}
	if cfg.AssetMaxInterval <= 0 {
		cfg.AssetMaxInterval = 5 * time.Second
	}
	if cfg.AssetMaxElapsedTime <= 0 {
		cfg.AssetMaxElapsedTime = 30 * time.Second
	}
	return &RemoteRecovery{
		cfg: cfg,
		db:  db,
		attempts: attempts{
			state:       state,
			completeKey: domain.STATE_KEY_RECOVERY_COMPLETE,
			counterKey:  domain.STATE_KEY_RECOVERY_ATTEMPTS,
			max:         cfg.MaxAttempts,
		},
		target:    target,
		validator: NewValidator(target),
		clock:     clock,
	}
}

// Probe counts the item records in the zone without consuming an attempt.
// Any fetch error is reported as nothing to recover.
func (r *RemoteRecovery) Probe(ctx context.Context) domain.Result {
	if status, err := r.attempts.gate(ctx); status != "" {
		return domain.Result{Status: status, Err: err}
	}
	if result, ok := r.guardTarget(ctx); !ok {
		return result
	}

	available := 0
	cursor := ""
	for {
		page, err := r.db.FetchPage(ctx, r.cfg.Zone, replica.RecordTypeItem, cursor, r.cfg.PageSize)
		if err != nil {
			logger.InfoCtx(ctx, "Remote probe found nothing to recover", zap.Error(err))
			return domain.Result{Status: domain.StatusNothingToRecover}
		}
		available += len(page.Records) + len(page.Failures)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	if available == 0 {
		return domain.Result{Status: domain.StatusNothingToRecover}
	}
	logger.InfoCtx(ctx, "Remote replica holds recoverable items", zap.Int("available", available))
	return domain.Result{Status: domain.StatusRecoverable, Available: available}
}

// Recover fetches every record type, rebuilds the target in one transaction
// and deletes the zone after validation
func (r *RemoteRecovery) Recover(ctx context.Context) domain.Result {
	if status, err := r.attempts.gate(ctx); status != "" {
		return domain.Result{Status: status, Err: err}
	}

	if result, ok := r.guardTarget(ctx); !ok {
		return result
	}

	runID := ulid.Make().String()
	ctx = logger.WithFields(ctx, zap.String("run_id", runID), zap.String("path", "remote"))
	started := r.clock.Now()

	attempt, err := r.attempts.consume(ctx)
	if err != nil {
		return domain.Result{Status: domain.StatusError, Err: err}
	}
	logger.InfoCtx(ctx, "Starting remote recovery", zap.Int("attempt", attempt), zap.String("zone", r.cfg.Zone))

	fetched, skipped, err := r.fetchAll(ctx)
	if errors.Is(err, domain.ErrZoneNotFound) || (err == nil && total(fetched)+skipped == 0) {
		// the zone may appear later, so the flag stays unset
		if err := r.attempts.state.Reset(ctx, r.attempts.counterKey); err != nil {
			return r.fail(ctx, fmt.Errorf("failed to reset attempt counter: %w", err))
		}
		logger.InfoCtx(ctx, "Remote zone holds nothing to recover")
		return domain.Result{Status: domain.StatusNothingToRecover}
	}
	if err != nil {
		return r.fail(ctx, err)
	}

	stats, err := r.rebuild(ctx, fetched, skipped)
	if errors.Is(err, domain.ErrTargetNotEmpty) {
		// the application wrote rows while the zone was being fetched
		if err := r.attempts.state.Reset(ctx, r.attempts.counterKey); err != nil {
			return r.fail(ctx, fmt.Errorf("failed to reset attempt counter: %w", err))
		}
		logger.WarnCtx(ctx, "Target store gained application data, leaving it untouched")
		return domain.Result{Status: domain.StatusTargetNotEmpty}
	}
	if err != nil {
		return r.fail(ctx, err)
	}
	if err := r.attempts.complete(ctx); err != nil {
		return domain.Result{Status: domain.StatusError, Stats: stats, Err: err}
	}

	if err := r.db.DeleteZone(ctx, r.cfg.Zone); err != nil {
		logger.WarnCtx(ctx, "Failed to delete remote legacy zone", zap.String("zone", r.cfg.Zone), zap.Error(err))
	}

	result := domain.Result{Status: domain.StatusSuccess, Stats: stats}
	logger.InfoCtx(ctx, "Remote recovery finished",
		zap.String("result", result.String()), zap.Duration("duration", r.clock.Since(started)))
	return result
}

func (r *RemoteRecovery) rebuild(ctx context.Context, fetched map[string][]replica.Record, skipped int) (domain.Stats, error) {
	keys := keymap.NewResolver[string]()
	converter := &remoteConverter{
		db:      r.db,
		zone:    r.cfg.Zone,
		keys:    keys,
		backoff: r.assetBackoff,
	}
	snap := converter.convert(ctx, fetched)
	snap.Stats.SkippedRecords = skipped
	records.Backfill(ctx, snap, r.cfg.BestHome)

	batch, stats := BuildBatch(ctx, snap, keys)
	if err := r.validator.CheckSource(!snap.Empty(), batch); err != nil {
		return stats, err
	}
	// validated before commit
	expected := batch.Counts()
	err := r.target.InsertIntoEmpty(ctx, batch, func(ctx context.Context, tx store.Store) error {
		return NewValidator(tx).Validate(ctx, expected)
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// guardTarget refuses to touch a target that already holds rows. Once the
// application owns the store its rows are never replaced.
func (r *RemoteRecovery) guardTarget(ctx context.Context) (domain.Result, bool) {
	counts, err := r.target.CountRows(ctx)
	if err != nil {
		return domain.Result{Status: domain.StatusError, Err: fmt.Errorf("failed to inspect target store: %w", err)}, false
	}
	if !counts.Empty() {
		logger.InfoCtx(ctx, "Target store already holds application data, skipping remote recovery")
		return domain.Result{Status: domain.StatusTargetNotEmpty}, false
	}
	return domain.Result{}, true
}

// NeedsRemoteRecovery decides whether a launch consults the remote replica
// after the local path ran. It stays eligible on later launches while no
// legacy file exists; the remote completion flag and the target guard end it.
func NeedsRemoteRecovery(local domain.Result, legacyPresent bool) bool {
	switch local.Status {
	case domain.StatusFreshInstall:
		return true
	case domain.StatusAlreadyCompleted:
		return !legacyPresent
	default:
		return false
	}
}

// fetchAll runs one paginated traversal per record type on a bounded pool.
// Each traversal owns its result slot.
func (r *RemoteRecovery) fetchAll(ctx context.Context) (map[string][]replica.Record, int, error) {
	type result struct {
		records []replica.Record
		skipped int
	}
	results := make([]result, len(replica.RecordTypes))

	pool := pond.NewPool(r.cfg.Parallel, pond.WithContext(ctx))
	tasks := make([]pond.Task, 0, len(replica.RecordTypes))
	for i, recordType := range replica.RecordTypes {
		tasks = append(tasks, pool.SubmitErr(func() error {
			recs, skipped, err := r.traverse(ctx, recordType)
			if err != nil {
				return err
			}
			results[i] = result{records: recs, skipped: skipped}
			return nil
		}))
	}

	var errs []error
	for _, task := range tasks {
		if err := task.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	pool.StopAndWait()
	if err := errors.Join(errs...); err != nil {
		return nil, 0, err
	}

	fetched := make(map[string][]replica.Record, len(results))
	skipped := 0
	for i, recordType := range replica.RecordTypes {
		fetched[recordType] = results[i].records
		skipped += results[i].skipped
	}
	return fetched, skipped, nil
}

// traverse walks every page of one record type in cursor order
func (r *RemoteRecovery) traverse(ctx context.Context, recordType string) ([]replica.Record, int, error) {
	var (
		recs    []replica.Record
		skipped int
		cursor  string
	)
	for {
		page, err := r.db.FetchPage(ctx, r.cfg.Zone, recordType, cursor, r.cfg.PageSize)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch %s records: %w", recordType, err)
		}
		recs = append(recs, page.Records...)
		for _, failure := range page.Failures {
			logger.WarnCtx(ctx, "Dropping unreadable remote record",
				zap.String("record_type", recordType),
				zap.String("record_name", failure.RecordName),
				zap.Error(failure.Err))
		}
		skipped += len(page.Failures)
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	logger.DebugCtx(ctx, "Fetched remote record type",
		zap.String("record_type", recordType), zap.Int("records", len(recs)), zap.Int("skipped", skipped))
	return recs, skipped, nil
}

func (r *RemoteRecovery) assetBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.AssetInitialInterval
	b.MaxInterval = r.cfg.AssetMaxInterval
	b.MaxElapsedTime = r.cfg.AssetMaxElapsedTime
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.1
	return b
}

// fail reports a retry-eligible failure, leaving the flag and zone untouched
func (r *RemoteRecovery) fail(ctx context.Context, err error) domain.Result {
	logger.ErrorCtx(ctx, fmt.Errorf("remote recovery attempt failed: %w", err))
	return domain.Result{Status: domain.StatusError, Err: err}
}

func total(fetched map[string][]replica.Record) int {
	n := 0
	for _, recs := range fetched {
		n += len(recs)
	}
	return n
}

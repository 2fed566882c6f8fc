package migration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/movingbox/movingbox-migrator/internal/adapter"
	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/legacy/legacytest"
	"github.com/movingbox/movingbox-migrator/internal/mocks"
	"github.com/movingbox/movingbox-migrator/internal/store"
	"github.com/movingbox/movingbox-migrator/internal/store/schema"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTargetDB opens an empty file-backed target store with the schema applied
func newTargetDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(store.Config{Driver: store.DriverSQLite, Path: filepath.Join(t.TempDir(), "target.sqlite")})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type localEnv struct {
	dir    string
	path   string
	backup string
	db     *gorm.DB
	state  store.StateStore
}

func newLocalEnv(t *testing.T) *localEnv {
	t.Helper()
	dir := t.TempDir()
	return &localEnv{
		dir:    dir,
		path:   filepath.Join(dir, domain.DEFAULT_LEGACY_STORE_NAME),
		backup: filepath.Join(dir, "backups"),
		db:     newTargetDB(t),
		state:  store.NewMemoryStateStore(),
	}
}

func (e *localEnv) fixture(t *testing.T, shape legacytest.Shape) *legacytest.Fixture {
	return legacytest.New(t, e.dir, domain.DEFAULT_LEGACY_STORE_NAME, shape)
}

func (e *localEnv) migrator() *LocalMigrator {
	return NewLocalMigrator(
		LocalConfig{LegacyPath: e.path, BackupDir: e.backup},
		e.state, store.NewGormStore(e.db), adapter.NewFileSystem(), adapter.NewClock(),
	)
}

func (e *localEnv) completed(t *testing.T) bool {
	t.Helper()
	done, err := e.state.Flag(context.Background(), domain.STATE_KEY_MIGRATION_COMPLETE)
	require.NoError(t, err)
	return done
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

// =============================================================================
// Tests
// =============================================================================

func TestMigrateShapes(t *testing.T) {
	for _, shape := range []legacytest.Shape{legacytest.PreNormalization, legacytest.DirectFK, legacytest.JoinTables} {
		t.Run(shape.String(), func(t *testing.T) {
			ctx := context.Background()
			env := newLocalEnv(t)
			f := env.fixture(t, shape)

			fragile := f.AddLabel("Fragile", legacytest.ColorArchive(t, 1, 0.5, 0, 1))
			kitchen := f.AddLabel("Kitchen", nil)
			home := f.AddHome("Lake House", "1 Shore Rd")
			policy := f.AddPolicy("Acme", 500)
			f.LinkHomePolicy(home, policy)
			pantry := f.AddLocation("Pantry", home)

			glass := f.AddItem(legacytest.Item{Title: "Wine Glass", Price: 99.99, Location: pantry, Home: home})
			plate := f.AddItem(legacytest.Item{Title: "Plate", Price: 12.5, Location: pantry})
			f.AddItem(legacytest.Item{Title: "Lamp", Price: 40, Home: home, Photos: legacytest.PhotoList(t, "a.jpg", "b.jpg")})
			f.LinkItemLabel(glass, fragile)
			f.LinkItemLabel(plate, kitchen)
			f.Close()

			result := env.migrator().MigrateIfNeeded(ctx)
			require.NoError(t, result.Err)
			assert.Equal(t, domain.StatusSuccess, result.Status)
			assert.Equal(t, 2, result.Stats.Labels)
			assert.Equal(t, 1, result.Stats.Homes)
			assert.Equal(t, 3, result.Stats.Items)
			assert.Equal(t, 2, result.Stats.ItemLabels)
			assert.Equal(t, 1, result.Stats.HomePolicies)

			var homes []schema.Home
			require.NoError(t, env.db.Find(&homes).Error)
			require.Len(t, homes, 1)

			var items []schema.InventoryItem
			require.NoError(t, env.db.Order("title").Find(&items).Error)
			require.Len(t, items, 3)
			for _, item := range items {
				require.NotNil(t, item.HomeID, item.Title)
				assert.Equal(t, homes[0].ID, *item.HomeID, item.Title)
			}
			assert.Equal(t, "Lamp", items[0].Title)
			assert.JSONEq(t, `["a.jpg","b.jpg"]`, string(items[0].SecondaryPhotoURLs))
			assert.Equal(t, "Wine Glass", items[2].Title)
			assert.Equal(t, "99.99", items[2].Price.String())

			var labels []schema.InventoryLabel
			require.NoError(t, env.db.Order("name").Find(&labels).Error)
			require.Len(t, labels, 2)
			require.NotNil(t, labels[0].Color)
			assert.Equal(t, int64(0xFF8000FF), *labels[0].Color)
			assert.Nil(t, labels[1].Color)

			assert.True(t, env.completed(t))
			assert.False(t, fileExists(t, env.path))
			entries, err := os.ReadDir(env.backup)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.True(t, fileExists(t, filepath.Join(env.backup, entries[0].Name(), domain.DEFAULT_LEGACY_STORE_NAME)))
		})
	}
}

func TestMigrateDecimalFidelity(t *testing.T) {
	ctx := context.Background()
	env := newLocalEnv(t)
	f := env.fixture(t, legacytest.DirectFK)
	home := f.AddHome("Lake House", "")
	f.AddItem(legacytest.Item{Title: "Wine Glass", Price: "99.99", Home: home})
	f.AddItem(legacytest.Item{Title: "Vase", Price: 0.1, Home: home})
	f.Close()

	result := env.migrator().MigrateIfNeeded(ctx)
	require.NoError(t, result.Err)

	var items []schema.InventoryItem
	require.NoError(t, env.db.Order("title").Find(&items).Error)
	require.Len(t, items, 2)
	assert.Equal(t, "0.1", items[0].Price.String())
	assert.Equal(t, "99.99", items[1].Price.String())

	var home0 schema.Home
	require.NoError(t, env.db.First(&home0).Error)
	assert.Equal(t, "350000.5", home0.PurchasePrice.String())
}

func TestMigrateFreshInstall(t *testing.T) {
	env := newLocalEnv(t)

	result := env.migrator().MigrateIfNeeded(context.Background())
	require.NoError(t, result.Err)
	assert.Equal(t, domain.StatusFreshInstall, result.Status)
	assert.True(t, env.completed(t))
}

func TestMigrateNoLegacyTables(t *testing.T) {
	env := newLocalEnv(t)
	f := env.fixture(t, legacytest.DirectFK)
	f.Exec("DROP TABLE ZINVENTORYITEM")
	f.Close()

	result := env.migrator().MigrateIfNeeded(context.Background())
	require.NoError(t, result.Err)
	assert.Equal(t, domain.StatusNoLegacyTables, result.Status)
	assert.True(t, env.completed(t))
	assert.True(t, fileExists(t, env.path))
}

func TestMigrateAlreadyCompleted(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	state := store.NewMemoryStateStore()
	require.NoError(t, state.SetFlag(ctx, domain.STATE_KEY_MIGRATION_COMPLETE, true))

	// no expectations: any filesystem or store call fails the test
	fs := mocks.NewMockFileSystem(ctrl)
	target := mocks.NewMockStore(ctrl)
	clock := mocks.NewMockClock(ctrl)

	m := NewLocalMigrator(LocalConfig{LegacyPath: "/nonexistent/default.store", BackupDir: "/nonexistent"}, state, target, fs, clock)
	for i := 0; i < 3; i++ {
		result := m.MigrateIfNeeded(ctx)
		require.NoError(t, result.Err)
		assert.Equal(t, domain.StatusAlreadyCompleted, result.Status)
	}

	count, err := state.Counter(ctx, domain.STATE_KEY_MIGRATION_ATTEMPTS)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigrateZeroHomes(t *testing.T) {
	ctx := context.Background()
	env := newLocalEnv(t)
	f := env.fixture(t, legacytest.DirectFK)
	f.AddLocation("Garage", 0)
	f.AddItem(legacytest.Item{Title: "Drill", Price: 80})
	f.Close()

	result := env.migrator().MigrateIfNeeded(ctx)
	assert.Equal(t, domain.StatusError, result.Status)
	assert.ErrorIs(t, result.Err, domain.ErrZeroHomes)
	assert.False(t, env.completed(t))
	assert.True(t, fileExists(t, env.path))

	var count int64
	require.NoError(t, env.db.Model(&schema.InventoryItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMigrateAttemptCap(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newLocalEnv(t)
	f := env.fixture(t, legacytest.DirectFK)
	home := f.AddHome("Lake House", "")
	f.AddItem(legacytest.Item{Title: "Drill", Price: 80, Home: home})
	f.Close()

	// every validation sees an empty target
	target := mocks.NewMockStore(ctrl)
	target.EXPECT().ReplaceAll(gomock.Any(), gomock.Any()).Return(nil).Times(domain.MAX_MIGRATION_ATTEMPTS)
	target.EXPECT().CountRows(gomock.Any()).Return(store.TableCounts{}, nil).Times(domain.MAX_MIGRATION_ATTEMPTS)

	m := NewLocalMigrator(LocalConfig{LegacyPath: env.path, BackupDir: env.backup},
		env.state, target, adapter.NewFileSystem(), adapter.NewClock())
	for i := 0; i < domain.MAX_MIGRATION_ATTEMPTS; i++ {
		result := m.MigrateIfNeeded(ctx)
		assert.Equal(t, domain.StatusError, result.Status)
		assert.ErrorIs(t, result.Err, domain.ErrCountMismatch)
	}

	// the capped attempt touches neither the filesystem nor the store
	fs := mocks.NewMockFileSystem(ctrl)
	capped := NewLocalMigrator(LocalConfig{LegacyPath: env.path, BackupDir: env.backup},
		env.state, mocks.NewMockStore(ctrl), fs, adapter.NewClock())
	result := capped.MigrateIfNeeded(ctx)
	assert.Equal(t, domain.StatusAbandoned, result.Status)
	assert.ErrorIs(t, result.Err, domain.ErrAttemptsExhausted)

	assert.False(t, env.completed(t))
	assert.True(t, fileExists(t, env.path))
}

func TestMigratePartialBlobs(t *testing.T) {
	ctx := context.Background()
	env := newLocalEnv(t)
	f := env.fixture(t, legacytest.JoinTables)
	good := f.AddLabel("Fragile", legacytest.ColorArchive(t, 0, 0, 1, 1))
	bad := f.AddLabel("Broken", legacytest.CorruptColor)
	home := f.AddHome("Lake House", "")
	item := f.AddItem(legacytest.Item{Title: "Vase", Price: 20, Home: home, Photos: legacytest.MalformedPhotos})
	f.LinkItemLabel(item, good)
	f.LinkItemLabel(item, bad)
	f.Close()

	result := env.migrator().MigrateIfNeeded(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Stats.SkippedColors)
	assert.Equal(t, 1, result.Stats.SkippedArrays)
	assert.Equal(t, 2, result.Stats.ItemLabels)

	var broken schema.InventoryLabel
	require.NoError(t, env.db.Where("name = ?", "Broken").First(&broken).Error)
	require.NotNil(t, broken.Color)
	assert.Equal(t, int64(domain.FALLBACK_COLOR_RGBA), *broken.Color)

	var vase schema.InventoryItem
	require.NoError(t, env.db.Where("title = ?", "Vase").First(&vase).Error)
	assert.JSONEq(t, `[]`, string(vase.SecondaryPhotoURLs))
}

func TestMigrateRetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newLocalEnv(t)
	f := env.fixture(t, legacytest.DirectFK)
	home := f.AddHome("Lake House", "")
	f.AddItem(legacytest.Item{Title: "Drill", Price: 80, Home: home})
	f.Close()

	target := mocks.NewMockStore(ctrl)
	target.EXPECT().ReplaceAll(gomock.Any(), gomock.Any()).Return(assert.AnError)
	failing := NewLocalMigrator(LocalConfig{LegacyPath: env.path, BackupDir: env.backup},
		env.state, target, adapter.NewFileSystem(), adapter.NewClock())
	result := failing.MigrateIfNeeded(ctx)
	assert.Equal(t, domain.StatusError, result.Status)
	assert.ErrorIs(t, result.Err, assert.AnError)

	result = env.migrator().MigrateIfNeeded(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, domain.StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Stats.Items)

	count, err := env.state.Counter(ctx, domain.STATE_KEY_MIGRATION_ATTEMPTS)
	require.NoError(t, err)
	assert.Zero(t, count)
}

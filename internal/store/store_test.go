package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func strPtr(s string) *string { return &s }

func buildTestBatch() *Batch {
	purchased := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	color := int64(0xFF8000FF)
	return &Batch{
		Labels: []schema.InventoryLabel{
			{ID: "00000000-0000-0000-0000-00000000000a", Name: "Fragile", Color: &color, Emoji: "🍷"},
		},
		Homes: []schema.Home{
			{
				ID:                 "00000000-0000-0000-0000-000000000001",
				Name:               "Lake House",
				PurchaseDate:       &purchased,
				PurchasePrice:      schema.NewDecimal(decimal.RequireFromString("450000.25")),
				SecondaryPhotoURLs: datatypes.JSON(`["a.jpg","b.jpg"]`),
				IsPrimary:          true,
			},
		},
		Policies: []schema.InsurancePolicy{
			{
				ID:                             "00000000-0000-0000-0000-0000000000b1",
				ProviderName:                   "Acme",
				DeductibleAmount:               schema.NewDecimal(decimal.RequireFromString("500")),
				DwellingCoverageAmount:         schema.NewDecimal(decimal.Zero),
				PersonalPropertyCoverageAmount: schema.NewDecimal(decimal.Zero),
				LossOfUseCoverageAmount:        schema.NewDecimal(decimal.Zero),
				LiabilityCoverageAmount:        schema.NewDecimal(decimal.Zero),
				MedicalPaymentsCoverageAmount:  schema.NewDecimal(decimal.Zero),
			},
		},
		Locations: []schema.InventoryLocation{
			{
				ID:                 "00000000-0000-0000-0000-0000000000c1",
				Name:               "Kitchen",
				SecondaryPhotoURLs: datatypes.JSON(`[]`),
				HomeID:             strPtr("00000000-0000-0000-0000-000000000001"),
			},
		},
		Items: []schema.InventoryItem{
			buildTestItem("00000000-0000-0000-0000-0000000000d1", "Wine Glass", "99.99",
				strPtr("00000000-0000-0000-0000-0000000000c1"), strPtr("00000000-0000-0000-0000-000000000001")),
		},
		ItemLabels: []schema.ItemLabel{
			{ID: "00000000-0000-0000-0000-0000000000e1", ItemID: "00000000-0000-0000-0000-0000000000d1", LabelID: "00000000-0000-0000-0000-00000000000a"},
		},
		HomePolicies: []schema.HomePolicy{
			{ID: "00000000-0000-0000-0000-0000000000f1", HomeID: "00000000-0000-0000-0000-000000000001", PolicyID: "00000000-0000-0000-0000-0000000000b1"},
		},
	}
}

func buildTestItem(id, title, price string, locationID, homeID *string) schema.InventoryItem {
	return schema.InventoryItem{
		ID:                 id,
		Title:              title,
		QuantityInt:        1,
		Price:              schema.NewDecimal(decimal.RequireFromString(price)),
		SecondaryPhotoURLs: datatypes.JSON(`[]`),
		Attachments:        datatypes.JSON(`[]`),
		WeightValue:        schema.NewDecimal(decimal.Zero),
		ReplacementCost:    schema.NewDecimal(decimal.Zero),
		DepreciationRate:   schema.NewDecimal(decimal.Zero),
		LocationID:         locationID,
		HomeID:             homeID,
	}
}

// newSQLiteDB opens a fresh file-backed target store with the schema applied
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "target.sqlite")})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// =============================================================================
// Suite
// =============================================================================

// runStoreSuite runs the dialect independent store tests against newDB
func runStoreSuite(t *testing.T, newDB func(t *testing.T) *gorm.DB) {
	t.Run("ReplaceAll", func(t *testing.T) { testReplaceAll(t, newDB(t)) })
	t.Run("ReplaceAllRollback", func(t *testing.T) { testReplaceAllRollback(t, newDB(t)) })
	t.Run("InsertIntoEmpty", func(t *testing.T) { testInsertIntoEmpty(t, newDB(t)) })
	t.Run("InsertIntoEmptyRejected", func(t *testing.T) { testInsertIntoEmptyRejected(t, newDB(t)) })
	t.Run("InsertIntoEmptyKeepsExistingRows", func(t *testing.T) { testInsertIntoEmptyKeepsExistingRows(t, newDB(t)) })
	t.Run("ForeignKeyViolations", func(t *testing.T) { testForeignKeyViolations(t, newDB(t)) })
	t.Run("StateStore", func(t *testing.T) { testStateStore(t, NewStateStore(newDB(t))) })
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newSQLiteDB)
}

func TestMemoryStateStore(t *testing.T) {
	testStateStore(t, NewMemoryStateStore())
}

func testReplaceAll(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	s := NewGormStore(db)
	batch := buildTestBatch()

	require.NoError(t, s.ReplaceAll(ctx, batch))

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.Counts(), counts)

	var item schema.InventoryItem
	require.NoError(t, db.First(&item, "id = ?", "00000000-0000-0000-0000-0000000000d1").Error)
	assert.Equal(t, "99.99", item.Price.String())
	require.NotNil(t, item.HomeID)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", *item.HomeID)

	var home schema.Home
	require.NoError(t, db.First(&home).Error)
	assert.Equal(t, "450000.25", home.PurchasePrice.String())
	assert.JSONEq(t, `["a.jpg","b.jpg"]`, string(home.SecondaryPhotoURLs))
	require.NotNil(t, home.PurchaseDate)
	assert.True(t, home.PurchaseDate.Equal(time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)))

	var label schema.InventoryLabel
	require.NoError(t, db.First(&label).Error)
	require.NotNil(t, label.Color)
	assert.Equal(t, int64(0xFF8000FF), *label.Color)

	// a second run replaces rather than duplicates
	require.NoError(t, s.ReplaceAll(ctx, batch))
	counts, err = s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["inventory_items"])
	assert.Equal(t, int64(1), counts["item_labels"])
}

func testReplaceAllRollback(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	s := NewGormStore(db)
	require.NoError(t, s.ReplaceAll(ctx, buildTestBatch()))

	broken := buildTestBatch()
	broken.Items = append(broken.Items, broken.Items[0])

	err := s.ReplaceAll(ctx, broken)
	require.Error(t, err)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["inventory_items"])
	assert.Equal(t, int64(1), counts["homes"])
}

func testForeignKeyViolations(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	s := NewGormStore(db)

	batch := buildTestBatch()
	violations, err := s.ForeignKeyViolations(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)

	batch.Items = append(batch.Items,
		buildTestItem("00000000-0000-0000-0000-0000000000d2", "Orphan", "1", strPtr("missing-location"), nil))
	require.NoError(t, s.ReplaceAll(ctx, batch))

	violations, err = s.ForeignKeyViolations(ctx)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, Violation{
		Table:      "inventory_items",
		Column:     "location_id",
		References: "inventory_locations",
		Count:      1,
	}, violations[0])
}

func testStateStore(t *testing.T, s StateStore) {
	ctx := context.Background()

	flag, err := s.Flag(ctx, "migration:complete")
	require.NoError(t, err)
	assert.False(t, flag)

	require.NoError(t, s.SetFlag(ctx, "migration:complete", true))
	flag, err = s.Flag(ctx, "migration:complete")
	require.NoError(t, err)
	assert.True(t, flag)

	n, err := s.Counter(ctx, "migration:attempts")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for want := 1; want <= 3; want++ {
		n, err = s.Increment(ctx, "migration:attempts")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	require.NoError(t, s.Reset(ctx, "migration:attempts"))
	n, err = s.Counter(ctx, "migration:attempts")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCalculateSafeBatchSize(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		fields    int
		maxParams int
		want      int
	}{
		{name: "small batch returns total", total: 10, fields: 36, maxParams: 65535, want: 10},
		{name: "postgres limit", total: 100000, fields: 36, maxParams: 65535, want: 1792},
		{name: "sqlite limit", total: 100000, fields: 36, maxParams: 32766, want: 882},
		{name: "empty input", total: 0, fields: 8, maxParams: 32766, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateSafeBatchSize(tt.total, tt.fields, tt.maxParams))
		})
	}
}

func testInsertIntoEmpty(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	s := NewGormStore(db)
	batch := buildTestBatch()

	var seen TableCounts
	err := s.InsertIntoEmpty(ctx, batch, func(ctx context.Context, tx Store) error {
		var err error
		seen, err = tx.CountRows(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, batch.Counts(), seen, "verify sees the uncommitted rows")

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, batch.Counts(), counts)
}

func testInsertIntoEmptyRejected(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	s := NewGormStore(db)

	rejected := errors.New("count mismatch")
	err := s.InsertIntoEmpty(ctx, buildTestBatch(), func(context.Context, Store) error {
		return rejected
	})
	require.ErrorIs(t, err, rejected)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.True(t, counts.Empty(), "a rejected batch leaves nothing behind")
}

func testInsertIntoEmptyKeepsExistingRows(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	s := NewGormStore(db)

	existing := schema.Home{
		ID:                 "00000000-0000-0000-0000-000000000099",
		Name:               "My Home",
		PurchasePrice:      schema.NewDecimal(decimal.Zero),
		SecondaryPhotoURLs: datatypes.JSON(`[]`),
	}
	require.NoError(t, db.Create(&existing).Error)

	err := s.InsertIntoEmpty(ctx, buildTestBatch(), nil)
	require.ErrorIs(t, err, domain.ErrTargetNotEmpty)

	var homes []schema.Home
	require.NoError(t, db.Find(&homes).Error)
	require.Len(t, homes, 1)
	assert.Equal(t, existing.ID, homes[0].ID)

	counts, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[schema.InventoryItem{}.TableName()])
}

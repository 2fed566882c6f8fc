package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/store/schema"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a target store over an open gorm connection
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// foreignKey describes one reference column of the target schema
type foreignKey struct {
	table      string
	column     string
	references string
}

var targetForeignKeys = []foreignKey{
	{table: "inventory_locations", column: "home_id", references: "homes"},
	{table: "inventory_items", column: "location_id", references: "inventory_locations"},
	{table: "inventory_items", column: "home_id", references: "homes"},
	{table: "item_labels", column: "item_id", references: "inventory_items"},
	{table: "item_labels", column: "label_id", references: "inventory_labels"},
	{table: "home_policies", column: "home_id", references: "homes"},
	{table: "home_policies", column: "policy_id", references: "insurance_policies"},
}

// maxBindParams returns the bind parameter limit of the dialect
func maxBindParams(db *gorm.DB) int {
	if db.Dialector.Name() == DriverPostgres {
		return 65535
	}
	return 32766
}

// calculateSafeBatchSize computes the batch size for bulk inserts that stays under
// the dialect's bind parameter limit, keeping a fixed headroom for
// statement-level overhead.
func calculateSafeBatchSize(totalRecords, fieldsPerRecord, maxParams int) int {
	const totalHeadroom = 1000

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/max(fieldsPerRecord, 1), 1)

	if safeBatchSize > totalRecords {
		return max(totalRecords, 1)
	}
	return safeBatchSize
}

// fieldCount returns the number of columns gorm writes for model
func fieldCount(db *gorm.DB, model interface{}) int {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return 64
	}
	return len(stmt.Schema.DBNames)
}

func insertAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	var model T
	size := calculateSafeBatchSize(len(rows), fieldCount(tx, &model), maxBindParams(tx))
	if err := tx.CreateInBatches(&rows, size).Error; err != nil {
		return fmt.Errorf("failed to insert into %T: %w", model, err)
	}
	return nil
}

// insertBatch writes parents before children:
// labels, homes, policies, locations, items, then join rows
func insertBatch(tx *gorm.DB, batch *Batch) error {
	if err := insertAll(tx, batch.Labels); err != nil {
		return err
	}
	if err := insertAll(tx, batch.Homes); err != nil {
		return err
	}
	if err := insertAll(tx, batch.Policies); err != nil {
		return err
	}
	if err := insertAll(tx, batch.Locations); err != nil {
		return err
	}
	if err := insertAll(tx, batch.Items); err != nil {
		return err
	}
	if err := insertAll(tx, batch.ItemLabels); err != nil {
		return err
	}
	return insertAll(tx, batch.HomePolicies)
}

// ReplaceAll clears the engine tables and inserts the batch in one transaction
func (s *gormStore) ReplaceAll(ctx context.Context, batch *Batch) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models := schema.TargetModels()
		for i := len(models) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(models[i]).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", models[i], err)
			}
		}
		return insertBatch(tx, batch)
	})
	if err != nil {
		return fmt.Errorf("failed to write target store: %w", err)
	}

	logCommitted(ctx, batch)
	return nil
}

// InsertIntoEmpty inserts the batch in one transaction that first requires
// every engine table to be empty, then runs verify against the uncommitted
// rows. Any error rolls the whole transaction back; nothing is ever deleted.
func (s *gormStore) InsertIntoEmpty(ctx context.Context, batch *Batch, verify func(ctx context.Context, tx Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := &gormStore{db: tx}
		counts, err := scoped.CountRows(ctx)
		if err != nil {
			return err
		}
		if !counts.Empty() {
			return domain.ErrTargetNotEmpty
		}

		if err := insertBatch(tx, batch); err != nil {
			return err
		}
		if verify != nil {
			return verify(ctx, scoped)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write target store: %w", err)
	}

	logCommitted(ctx, batch)
	return nil
}

func logCommitted(ctx context.Context, batch *Batch) {
	logger.InfoCtx(ctx, "Committed target store transaction",
		zap.Int("labels", len(batch.Labels)),
		zap.Int("homes", len(batch.Homes)),
		zap.Int("policies", len(batch.Policies)),
		zap.Int("locations", len(batch.Locations)),
		zap.Int("items", len(batch.Items)),
		zap.Int("item_labels", len(batch.ItemLabels)),
		zap.Int("home_policies", len(batch.HomePolicies)),
	)
}

// CountRows returns the row count of every target table
func (s *gormStore) CountRows(ctx context.Context) (TableCounts, error) {
	counts := make(TableCounts, 7)
	for _, model := range schema.TargetModels() {
		var n int64
		if err := s.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to count %T: %w", model, err)
		}
		counts[tableName(model)] = n
	}
	return counts, nil
}

// ForeignKeyViolations counts references to missing rows for every foreign key column
func (s *gormStore) ForeignKeyViolations(ctx context.Context) ([]Violation, error) {
	var violations []Violation
	for _, fk := range targetForeignKeys {
		var n int64
		query := fmt.Sprintf(
			"SELECT COUNT(*) FROM %[1]s c LEFT JOIN %[3]s p ON c.%[2]s = p.id WHERE c.%[2]s IS NOT NULL AND p.id IS NULL",
			fk.table, fk.column, fk.references)
		if err := s.db.WithContext(ctx).Raw(query).Scan(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to check %s.%s: %w", fk.table, fk.column, err)
		}
		if n > 0 {
			violations = append(violations, Violation{Table: fk.table, Column: fk.column, References: fk.references, Count: n})
		}
	}
	return violations, nil
}

func tableName(model interface{}) string {
	if t, ok := model.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", model)
}

package store

import (
	"context"

	"github.com/movingbox/movingbox-migrator/internal/store/schema"
)

// Batch is the complete set of target rows produced by one migration run
type Batch struct {
	Labels       []schema.InventoryLabel
	Homes        []schema.Home
	Policies     []schema.InsurancePolicy
	Locations    []schema.InventoryLocation
	Items        []schema.InventoryItem
	ItemLabels   []schema.ItemLabel
	HomePolicies []schema.HomePolicy
}

// TableCounts maps a target table name to a row count
type TableCounts map[string]int64

// Counts returns the number of rows the batch intends to insert per table
func (b *Batch) Counts() TableCounts {
	return TableCounts{
		schema.InventoryLabel{}.TableName():    int64(len(b.Labels)),
		schema.Home{}.TableName():              int64(len(b.Homes)),
		schema.InsurancePolicy{}.TableName():   int64(len(b.Policies)),
		schema.InventoryLocation{}.TableName(): int64(len(b.Locations)),
		schema.InventoryItem{}.TableName():    int64(len(b.Items)),
		schema.ItemLabel{}.TableName():        int64(len(b.ItemLabels)),
		schema.HomePolicy{}.TableName():       int64(len(b.HomePolicies)),
	}
}

// Empty reports whether every table holds zero rows
func (c TableCounts) Empty() bool {
	for _, n := range c {
		if n != 0 {
			return false
		}
	}
	return true
}

// Violation is a foreign key column holding references to missing rows
type Violation struct {
	Table      string
	Column     string
	References string
	Count      int64
}

// Store defines the target store operations used by the migration engine
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// ReplaceAll clears the engine-owned tables and inserts the batch in one transaction.
	// Either every row is committed or none is.
	ReplaceAll(ctx context.Context, batch *Batch) error
	// InsertIntoEmpty inserts the batch only when every engine-owned table is empty,
	// committing only if verify accepts the transaction's view. Fails with
	// domain.ErrTargetNotEmpty when any row exists.
	InsertIntoEmpty(ctx context.Context, batch *Batch, verify func(ctx context.Context, tx Store) error) error
	// CountRows returns the row count of every target table
	CountRows(ctx context.Context) (TableCounts, error)
	// ForeignKeyViolations checks every foreign key column of the target schema
	ForeignKeyViolations(ctx context.Context) ([]Violation, error)
}

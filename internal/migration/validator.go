package migration

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/store"
)

// Validator checks the committed target against what the writer intended
type Validator struct {
	target store.Store
}

// NewValidator creates a validator over target
func NewValidator(target store.Store) *Validator {
	return &Validator{target: target}
}

// CheckSource fails with domain.ErrZeroHomes when a source that holds rows
// produced no home. Runs before anything is written or archived.
func (v *Validator) CheckSource(sourceHasRows bool, batch *store.Batch) error {
	if sourceHasRows && len(batch.Homes) == 0 {
		return domain.ErrZeroHomes
	}
	return nil
}

// Validate compares per-table row counts with expected and requires zero
// dangling foreign keys
func (v *Validator) Validate(ctx context.Context, expected store.TableCounts) error {
	actual, err := v.target.CountRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to count target rows: %w", err)
	}

	tables := make([]string, 0, len(expected))
	for table := range expected {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		if actual[table] != expected[table] {
			return fmt.Errorf("%w: %s has %d rows, expected %d",
				domain.ErrCountMismatch, table, actual[table], expected[table])
		}
	}

	violations, err := v.target.ForeignKeyViolations(ctx)
	if err != nil {
		return fmt.Errorf("failed to check foreign keys: %w", err)
	}
	if len(violations) > 0 {
		for _, violation := range violations {
			logger.WarnCtx(ctx, "Dangling foreign key",
				zap.String("table", violation.Table),
				zap.String("column", violation.Column),
				zap.String("references", violation.References),
				zap.Int64("count", violation.Count))
		}
		first := violations[0]
		return fmt.Errorf("%w: %d dangling %s.%s", domain.ErrReferentialIntegrity, first.Count, first.Table, first.Column)
	}
	return nil
}

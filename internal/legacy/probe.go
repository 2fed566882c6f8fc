package legacy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/records"
)

// TableExists reports whether table exists. Any introspection error reads as absent.
func (s *Store) TableExists(ctx context.Context, table string) bool {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to probe table", zap.String("table", table), zap.Error(err))
		return false
	}
	return n > 0
}

// ColumnExists reports whether table has column. Any introspection error reads as absent.
func (s *Store) ColumnExists(ctx context.Context, table, column string) bool {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to probe column",
			zap.String("table", table), zap.String("column", column), zap.Error(err))
		return false
	}
	return n > 0
}

// Columns returns the column set of table, empty on error
func (s *Store) Columns(ctx context.Context, table string) map[string]bool {
	columns := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to list columns", zap.String("table", table), zap.Error(err))
		return columns
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return columns
		}
		columns[strings.ToUpper(name)] = true
	}
	return columns
}

// HasRows reports whether table holds at least one row
func (s *Store) HasRows(ctx context.Context, table string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", quote(table))).Scan(&one)
	return err == nil
}

// JoinTable is a Core Data many-to-many table. Core Data names these after
// entity numbers (Z_5LABELS with Z_5INVENTORYITEMS and Z_7LABELS), so only
// the column suffixes are stable.
type JoinTable struct {
	Name  string
	Left  string
	Right string
}

// FindJoinTable finds a Z_ table with one column ending in leftSuffix and another
// ending in rightSuffix
func (s *Store) FindJoinTable(ctx context.Context, leftSuffix, rightSuffix string) (JoinTable, bool) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		logger.WarnCtx(ctx, "Failed to list tables", zap.Error(err))
		return JoinTable{}, false
	}
	var candidates []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			break
		}
		if strings.HasPrefix(strings.ToUpper(name), "Z_") {
			candidates = append(candidates, name)
		}
	}
	_ = rows.Close()

	for _, table := range candidates {
		var left, right string
		for column := range s.Columns(ctx, table) {
			switch {
			case left == "" && strings.HasSuffix(column, leftSuffix):
				left = column
			case right == "" && strings.HasSuffix(column, rightSuffix):
				right = column
			}
		}
		if left != "" && right != "" {
			return JoinTable{Name: table, Left: left, Right: right}, true
		}
	}
	return JoinTable{}, false
}

// Capabilities is the probed physical schema of one legacy store. It is resolved
// once per run and drives every projection.
type Capabilities struct {
	tables  map[string]bool
	columns map[string]map[string]bool

	ItemLabelJoin  *JoinTable
	HomePolicyJoin *JoinTable
}

// Probe resolves the capabilities of the store
func (s *Store) Probe(ctx context.Context) *Capabilities {
	caps := &Capabilities{
		tables:  make(map[string]bool, len(EntityTables)),
		columns: make(map[string]map[string]bool, len(EntityTables)),
	}
	for _, table := range EntityTables {
		if !s.TableExists(ctx, table) {
			continue
		}
		caps.tables[table] = true
		caps.columns[table] = s.Columns(ctx, table)
	}

	if jt, ok := s.FindJoinTable(ctx, "INVENTORYITEMS", "LABELS"); ok {
		caps.ItemLabelJoin = &jt
	}
	if jt, ok := s.FindJoinTable(ctx, "HOMES", "INSURANCEPOLICIES"); ok {
		caps.HomePolicyJoin = &jt
	}

	shape := caps.Shape()
	logger.InfoCtx(ctx, "Probed legacy schema",
		zap.Int("tables", len(caps.tables)),
		zap.Bool("home_links", shape.HomeLinks),
		zap.Bool("direct_label_fk", shape.DirectLabelFK),
		zap.Bool("direct_policy_fk", shape.DirectPolicyFK),
		zap.Bool("item_label_join", shape.ItemLabelJoin),
		zap.Bool("home_policy_join", shape.HomePolicyJoin),
	)
	return caps
}

// HasTable reports whether table was found
func (c *Capabilities) HasTable(table string) bool {
	return c.tables[table]
}

// HasColumn reports whether table has column
func (c *Capabilities) HasColumn(table, column string) bool {
	return c.columns[table][column]
}

// Shape summarizes the link forms the store carries
func (c *Capabilities) Shape() records.Shape {
	return records.Shape{
		HomeLinks:      c.HasColumn(TableLocation, "ZHOME") || c.HasColumn(TableItem, "ZHOME"),
		DirectLabelFK:  c.HasColumn(TableItem, "ZLABEL"),
		DirectPolicyFK: c.HasColumn(TableHome, "ZINSURANCEPOLICY"),
		ItemLabelJoin:  c.ItemLabelJoin != nil,
		HomePolicyJoin: c.HomePolicyJoin != nil,
	}
}

// HasEntityRows reports whether any known entity table holds a row. A store
// with rows that yields zero homes was misread rather than empty.
func (s *Store) HasEntityRows(ctx context.Context, caps *Capabilities) bool {
	for _, table := range EntityTables {
		if caps.HasTable(table) && s.HasRows(ctx, table) {
			return true
		}
	}
	return false
}

package legacy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/movingbox/movingbox-migrator/internal/decode"
)

type columnKind int

const (
	kindValue columnKind = iota
	kindDecimal
	kindDate
)

// column is one field of a fixed projection
type column struct {
	name string
	kind columnKind
}

func valueCol(name string) column { return column{name: name, kind: kindValue} }

func decimalCol(name string) column { return column{name: name, kind: kindDecimal} }

func dateCol(name string) column { return column{name: name, kind: kindDate} }

const (
	textSuffix = "__TEXT"
	realSuffix = "__REAL"
)

// projection builds a SELECT with one fixed output shape. Columns the table
// lacks are selected as NULL under the same alias.
type projection struct {
	table     string
	columns   []column
	available map[string]bool
}

func newProjection(caps *Capabilities, table string, columns ...column) projection {
	available := make(map[string]bool, len(columns))
	for _, c := range columns {
		available[c.name] = caps.HasColumn(table, c.name)
	}
	return projection{table: table, columns: columns, available: available}
}

func (p projection) query() string {
	exprs := []string{"Z_PK AS Z_PK"}
	for _, c := range p.columns {
		src := quote(c.name)
		if !p.available[c.name] {
			src = "NULL"
		}
		switch c.kind {
		case kindDecimal:
			// text first keeps "99.99" exact; the REAL is the fallback
			exprs = append(exprs,
				fmt.Sprintf("CAST(%s AS TEXT) AS %s", src, quote(c.name+textSuffix)),
				fmt.Sprintf("CAST(%s AS REAL) AS %s", src, quote(c.name+realSuffix)))
		case kindDate:
			// an expression has no declared type, so the driver never converts it to time.Time
			exprs = append(exprs, fmt.Sprintf("CAST(%s AS REAL) AS %s", src, quote(c.name)))
		default:
			exprs = append(exprs, fmt.Sprintf("%s AS %s", src, quote(c.name)))
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY Z_PK", strings.Join(exprs, ", "), quote(p.table))
}

// row is one projected legacy row keyed by upper-case column name
type row map[string]interface{}

// scan reads every row of the projection
func (s *Store) scan(ctx context.Context, p projection) ([]row, error) {
	rows, err := s.db.QueryContext(ctx, p.query())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", p.table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", p.table, err)
	}

	var out []row
	for rows.Next() {
		values := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p.table, err)
		}
		r := make(row, len(names))
		for i, name := range names {
			r[strings.ToUpper(name)] = values[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", p.table, err)
	}
	return out, nil
}

// Key returns the surrogate key
func (r row) Key() int64 {
	v, _ := r.int("Z_PK")
	return v
}

func (r row) int(name string) (int64, bool) {
	switch v := r[name].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		var n int64
		_, err := fmt.Sscan(v, &n)
		return n, err == nil
	default:
		return 0, false
	}
}

func (r row) float(name string) (float64, bool) {
	switch v := r[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns the text value, "" for NULL
func (r row) String(name string) string {
	switch v := r[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// OptionalString returns nil for NULL or empty text
func (r row) OptionalString(name string) *string {
	s := r.String(name)
	if s == "" {
		return nil
	}
	return &s
}

// Int returns the integer value, 0 for NULL
func (r row) Int(name string) int64 {
	v, _ := r.int(name)
	return v
}

// Bool returns the boolean value, false for NULL
func (r row) Bool(name string) bool {
	return r.Int(name) != 0
}

// Bytes returns the blob value, nil for NULL
func (r row) Bytes(name string) []byte {
	switch v := r[name].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// Decimal returns the exact value of a decimal column
func (r row) Decimal(name string) decimal.Decimal {
	t, hasText := r[name+textSuffix].(string)
	f, hasFloat := r.float(name + realSuffix)
	return decode.Decimal(t, hasText, f, hasFloat)
}

// Date returns a UTC time, nil for NULL
func (r row) Date(name string) *time.Time {
	seconds, ok := r.float(name)
	if !ok {
		return nil
	}
	t := decode.FromReferenceSeconds(seconds)
	return &t
}

// Raw returns the untyped value
func (r row) Raw(name string) interface{} {
	return r[name]
}

package schema

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormschema "gorm.io/gorm/schema"
)

// Decimal is an exact decimal column. It is stored as text on SQLite and as an
// unconstrained numeric on Postgres so the original scale is preserved
// ("99.99" reads back as "99.99", never through a float).
type Decimal struct {
	decimal.Decimal
}

// NewDecimal wraps d
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{Decimal: d}
}

// GormDataType implements schema.GormDataTypeInterface
func (Decimal) GormDataType() string {
	return "decimal"
}

// GormDBDataType implements migrator.GormDBDataTypeInterface
func (Decimal) GormDBDataType(db *gorm.DB, _ *gormschema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "numeric"
	default:
		return "text"
	}
}

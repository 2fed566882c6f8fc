package decode

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

// Decimal parses an exact decimal. The textual representation wins; the float is
// consulted only when no parseable text exists.
func Decimal(text string, hasText bool, f float64, hasFloat bool) decimal.Decimal {
	if hasText {
		if d, err := decimal.NewFromString(strings.TrimSpace(text)); err == nil {
			return d
		}
	}
	if hasFloat {
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}

// FromReferenceSeconds converts a legacy timestamp (seconds since 2001-01-01 UTC).
// Whole seconds are added as Unix seconds so the distant past and future
// sentinels stay exact.
func FromReferenceSeconds(seconds float64) time.Time {
	whole := math.Floor(seconds)
	nanos := int64(math.Round((seconds - whole) * float64(time.Second)))
	return time.Unix(domain.ReferenceEpoch.Unix()+int64(whole), nanos).
		Round(time.Microsecond).
		UTC()
}

// FromUnixMillis converts a remote timestamp in milliseconds since the Unix epoch
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Identifier parses a stored stable identifier: either 16 raw bytes or canonical text
func Identifier(v interface{}) (uuid.UUID, bool) {
	switch t := v.(type) {
	case []byte:
		if len(t) == 16 {
			id, err := uuid.FromBytes(t)
			return id, err == nil && id != uuid.Nil
		}
		return parseIdentifierText(string(t))
	case string:
		return parseIdentifierText(t)
	case uuid.UUID:
		return t, t != uuid.Nil
	default:
		return uuid.Nil, false
	}
}

func parseIdentifierText(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

package keymap

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

func TestResolverKeepsStoredIdentifiers(t *testing.T) {
	r := NewResolver[int64]()
	stored := uuid.New()

	id, fabricated := r.Register(domain.EntityItem, 7, stored, true)
	assert.Equal(t, stored, id)
	assert.False(t, fabricated)

	got, ok := r.Lookup(domain.EntityItem, 7)
	assert.True(t, ok)
	assert.Equal(t, stored, got)
}

func TestResolverFabricatesMissingIdentifiers(t *testing.T) {
	r := NewResolver[string]()

	id, fabricated := r.Register(domain.EntityLabel, "rec-1", uuid.Nil, false)
	assert.True(t, fabricated)
	assert.NotEqual(t, uuid.Nil, id)

	// a second registration of the same key must not change the mapping
	again, fabricated := r.Register(domain.EntityLabel, "rec-1", uuid.New(), true)
	assert.False(t, fabricated)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, r.Len(domain.EntityLabel))
}

func TestResolverMissesAreNotFound(t *testing.T) {
	r := NewResolver[int64]()
	r.Register(domain.EntityHome, 1, uuid.New(), true)

	_, ok := r.Lookup(domain.EntityHome, 2)
	assert.False(t, ok)
	_, ok = r.Lookup(domain.EntityLocation, 1)
	assert.False(t, ok)
	_, ok = r.LookupString(domain.EntityKind("unknown"), 1)
	assert.False(t, ok)
}

func TestLookupStringIsLowercaseCanonical(t *testing.T) {
	r := NewResolver[int64]()
	id := uuid.MustParse("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	r.Register(domain.EntityPolicy, 3, id, true)

	s, ok := r.LookupString(domain.EntityPolicy, 3)
	assert.True(t, ok)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", s)
}

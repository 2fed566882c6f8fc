// Package keymap maps legacy surrogate keys (row ids or remote record names)
// to the stable identifiers used by the target schema.
package keymap

import (
	"github.com/google/uuid"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

// Map is a one-way surrogate key to identifier table for one entity kind
type Map[K comparable] struct {
	ids map[K]uuid.UUID
}

// NewMap creates an empty map
func NewMap[K comparable]() *Map[K] {
	return &Map[K]{ids: make(map[K]uuid.UUID)}
}

// Put records the identifier for key. The first registration wins.
// It reports whether the key was newly inserted.
func (m *Map[K]) Put(key K, id uuid.UUID) bool {
	if _, exists := m.ids[key]; exists {
		return false
	}
	m.ids[key] = id
	return true
}

// Lookup returns the identifier registered for key
func (m *Map[K]) Lookup(key K) (uuid.UUID, bool) {
	id, ok := m.ids[key]
	return id, ok
}

// Len returns the number of registered keys
func (m *Map[K]) Len() int {
	return len(m.ids)
}

// Resolver owns one Map per entity kind for a single run
type Resolver[K comparable] struct {
	maps map[domain.EntityKind]*Map[K]
}

// NewResolver creates a resolver with an empty map for every entity kind
func NewResolver[K comparable]() *Resolver[K] {
	r := &Resolver[K]{maps: make(map[domain.EntityKind]*Map[K], 5)}
	for _, kind := range []domain.EntityKind{
		domain.EntityHome, domain.EntityPolicy, domain.EntityLocation, domain.EntityItem, domain.EntityLabel,
	} {
		r.maps[kind] = NewMap[K]()
	}
	return r
}

// Register resolves the identifier for a row. A valid stored identifier is kept;
// otherwise a new one is fabricated. fabricated reports which happened.
func (r *Resolver[K]) Register(kind domain.EntityKind, key K, stored uuid.UUID, valid bool) (id uuid.UUID, fabricated bool) {
	m := r.maps[kind]
	if existing, ok := m.Lookup(key); ok {
		return existing, false
	}
	id = stored
	if !valid || id == uuid.Nil {
		id = uuid.New()
		fabricated = true
	}
	m.Put(key, id)
	return id, fabricated
}

// Lookup resolves key for kind; a key never registered (e.g. a deleted row) is not found
func (r *Resolver[K]) Lookup(kind domain.EntityKind, key K) (uuid.UUID, bool) {
	m, ok := r.maps[kind]
	if !ok {
		return uuid.Nil, false
	}
	return m.Lookup(key)
}

// LookupString resolves key and renders the identifier in canonical lowercase form
func (r *Resolver[K]) LookupString(kind domain.EntityKind, key K) (string, bool) {
	id, ok := r.Lookup(kind, key)
	if !ok {
		return "", false
	}
	return id.String(), true
}

// Len returns the number of keys registered for kind
func (r *Resolver[K]) Len(kind domain.EntityKind) int {
	if m, ok := r.maps[kind]; ok {
		return m.Len()
	}
	return 0
}

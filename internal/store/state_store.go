package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/movingbox/movingbox-migrator/internal/store/schema"
)

// StateStore persists the completion flags and attempt counters of the engine
type StateStore interface {
	// Flag returns the boolean stored under key, false when unset
	Flag(ctx context.Context, key string) (bool, error)
	// SetFlag stores a boolean under key
	SetFlag(ctx context.Context, key string, value bool) error
	// Counter returns the counter stored under key, 0 when unset
	Counter(ctx context.Context, key string) (int, error)
	// Increment adds one to the counter and returns the new value
	Increment(ctx context.Context, key string) (int, error)
	// Reset clears the counter
	Reset(ctx context.Context, key string) error
}

type gormStateStore struct {
	db *gorm.DB
}

// NewStateStore creates a state store on the key_value_store table
func NewStateStore(db *gorm.DB) StateStore {
	return &gormStateStore{db: db}
}

func (s *gormStateStore) get(tx *gorm.DB, key string) (string, bool, error) {
	var kv schema.KeyValue
	err := tx.Where("state_key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return kv.Value, true, nil
}

func (s *gormStateStore) put(tx *gorm.DB, key, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_value", "updated_at"}),
	}).Create(&schema.KeyValue{Key: key, Value: value}).Error
}

// Flag returns the boolean stored under key
func (s *gormStateStore) Flag(ctx context.Context, key string) (bool, error) {
	value, ok, err := s.get(s.db.WithContext(ctx), key)
	if err != nil {
		return false, fmt.Errorf("failed to get flag %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	flag, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse flag %s: %w", key, err)
	}
	return flag, nil
}

// SetFlag stores a boolean under key
func (s *gormStateStore) SetFlag(ctx context.Context, key string, value bool) error {
	if err := s.put(s.db.WithContext(ctx), key, strconv.FormatBool(value)); err != nil {
		return fmt.Errorf("failed to set flag %s: %w", key, err)
	}
	return nil
}

// Counter returns the counter stored under key
func (s *gormStateStore) Counter(ctx context.Context, key string) (int, error) {
	value, ok, err := s.get(s.db.WithContext(ctx), key)
	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse counter %s: %w", key, err)
	}
	return n, nil
}

// Increment adds one to the counter and returns the new value
func (s *gormStateStore) Increment(ctx context.Context, key string) (int, error) {
	var next int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		value, ok, err := s.get(tx, key)
		if err != nil {
			return err
		}
		current := 0
		if ok {
			if current, err = strconv.Atoi(value); err != nil {
				return err
			}
		}
		next = current + 1
		return s.put(tx, key, strconv.Itoa(next))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return next, nil
}

// Reset clears the counter
func (s *gormStateStore) Reset(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("state_key = ?", key).Delete(&schema.KeyValue{}).Error; err != nil {
		return fmt.Errorf("failed to reset counter %s: %w", key, err)
	}
	return nil
}

// memoryStateStore keeps state in process memory
type memoryStateStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStateStore creates an in-memory state store for tests and dry runs
func NewMemoryStateStore() StateStore {
	return &memoryStateStore{values: make(map[string]string)}
}

func (m *memoryStateStore) Flag(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func (m *memoryStateStore) SetFlag(_ context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = strconv.FormatBool(value)
	return nil
}

func (m *memoryStateStore) Counter(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (m *memoryStateStore) Increment(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	if v, ok := m.values[key]; ok {
		var err error
		if n, err = strconv.Atoi(v); err != nil {
			return 0, err
		}
	}
	n++
	m.values[key] = strconv.Itoa(n)
	return n, nil
}

func (m *memoryStateStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

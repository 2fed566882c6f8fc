package replica

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

type memoryZone struct {
	records map[string]map[string]Record
	assets  map[string][]byte
}

// Memory is an in-process Database for tests and recovery drills. Record and
// asset failures can be injected.
type Memory struct {
	mu    sync.RWMutex
	zones map[string]*memoryZone

	failRecords map[string]error
	failAssets  map[string]int
	deleted     []string
}

// NewMemory creates an empty database
func NewMemory() *Memory {
	return &Memory{
		zones:       make(map[string]*memoryZone),
		failRecords: make(map[string]error),
		failAssets:  make(map[string]int),
	}
}

// CreateZone creates an empty zone
func (m *Memory) CreateZone(zone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoneLocked(zone)
}

func (m *Memory) zoneLocked(zone string) *memoryZone {
	z, ok := m.zones[zone]
	if !ok {
		z = &memoryZone{records: make(map[string]map[string]Record), assets: make(map[string][]byte)}
		m.zones[zone] = z
	}
	return z
}

// PutRecord stores rec, creating the zone when needed
func (m *Memory) PutRecord(zone string, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z := m.zoneLocked(zone)
	if z.records[rec.RecordType] == nil {
		z.records[rec.RecordType] = make(map[string]Record)
	}
	z.records[rec.RecordType][rec.RecordName] = rec
}

// PutAsset stores an asset body under key
func (m *Memory) PutAsset(zone, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoneLocked(zone).assets[key] = data
}

// FailRecord makes every fetch of recordName fail with err
func (m *Memory) FailRecord(recordName string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRecords[recordName] = err
}

// FailAsset makes the next times fetches of key fail
func (m *Memory) FailAsset(key string, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAssets[key] = times
}

// DeletedZones returns the zones removed through DeleteZone
func (m *Memory) DeletedZones() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// FetchPage pages through records sorted by name. The cursor is an offset.
func (m *Memory) FetchPage(ctx context.Context, zone, recordType, cursor string, limit int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	z, ok := m.zones[zone]
	if !ok {
		return nil, domain.ErrZoneNotFound
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		offset = n
	}
	if limit <= 0 {
		limit = domain.DEFAULT_PAGE_SIZE
	}

	names := make([]string, 0, len(z.records[recordType]))
	for name := range z.records[recordType] {
		names = append(names, name)
	}
	sort.Strings(names)

	page := &Page{}
	end := min(offset+limit, len(names))
	for _, name := range names[min(offset, end):end] {
		if err, failed := m.failRecords[name]; failed {
			page.Failures = append(page.Failures, RecordError{RecordName: name, Err: err})
			continue
		}
		page.Records = append(page.Records, z.records[recordType][name])
	}
	if end < len(names) {
		page.Cursor = strconv.Itoa(end)
	}
	return page, nil
}

// FetchAsset returns the asset body
func (m *Memory) FetchAsset(ctx context.Context, zone, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := m.failAssets[key]; n > 0 {
		m.failAssets[key] = n - 1
		return nil, fmt.Errorf("asset %s temporarily unavailable", key)
	}
	z, ok := m.zones[zone]
	if !ok {
		return nil, domain.ErrZoneNotFound
	}
	data, ok := z.assets[key]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", key, domain.ErrRecordNotFound)
	}
	return data, nil
}

// DeleteZone removes the zone
func (m *Memory) DeleteZone(ctx context.Context, zone string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[zone]; !ok {
		return domain.ErrZoneNotFound
	}
	delete(m.zones, zone)
	m.deleted = append(m.deleted, zone)
	return nil
}

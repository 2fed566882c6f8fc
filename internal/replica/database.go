package replica

import (
	"context"
)

// RecordError is a record that was listed but could not be fetched
type RecordError struct {
	RecordName string
	Err        error
}

// Page is one cursor step of a record type traversal
type Page struct {
	Records  []Record
	Failures []RecordError
	// Cursor continues the traversal, empty on the last page
	Cursor string
}

// Database is the remote record database holding the legacy zone
//
//go:generate mockgen -source=database.go -destination=../mocks/replica_database.go -package=mocks -mock_names=Database=MockReplicaDatabase
type Database interface {
	// FetchPage returns up to limit records of recordType after cursor.
	// It returns domain.ErrZoneNotFound when the zone does not exist.
	FetchPage(ctx context.Context, zone, recordType, cursor string, limit int) (*Page, error)
	// FetchAsset downloads an asset referenced by an ASSET field.
	// It returns domain.ErrRecordNotFound when the asset does not exist.
	FetchAsset(ctx context.Context, zone, key string) ([]byte, error)
	// DeleteZone removes the zone and every record in it
	DeleteZone(ctx context.Context, zone string) error
}

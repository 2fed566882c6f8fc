package domain

import "errors"

var (
	// ErrZeroHomes is returned when a non-empty legacy store produced no homes
	ErrZeroHomes = errors.New("legacy store is not empty but no homes were migrated")

	// ErrCountMismatch is returned when a target table row count differs from the intended insert count
	ErrCountMismatch = errors.New("target row count mismatch")

	// ErrReferentialIntegrity is returned when the target store contains dangling foreign keys
	ErrReferentialIntegrity = errors.New("target referential integrity violated")

	// ErrMissingCoreTable is returned when the legacy store lacks the item table
	ErrMissingCoreTable = errors.New("legacy store is missing the core table")

	// ErrZoneNotFound is returned when the remote legacy zone does not exist
	ErrZoneNotFound = errors.New("remote zone not found")

	// ErrRecordNotFound is returned when a remote record or asset does not exist
	ErrRecordNotFound = errors.New("remote record not found")

	// ErrTargetNotEmpty is returned when remote recovery finds rows the application already owns
	ErrTargetNotEmpty = errors.New("target store already holds application data")
)

// ErrAttemptsExhausted is returned once a recovery path reached its attempt cap
var ErrAttemptsExhausted = errors.New("recovery attempts exhausted")

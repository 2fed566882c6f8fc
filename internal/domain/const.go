package domain

import "time"

const (
	// Attempt caps for the two recovery paths
	MAX_MIGRATION_ATTEMPTS = 3
	MAX_RECOVERY_ATTEMPTS  = 3

	// Durable state keys
	STATE_KEY_MIGRATION_COMPLETE = "migration:complete"
	STATE_KEY_MIGRATION_ATTEMPTS = "migration:attempts"
	STATE_KEY_RECOVERY_COMPLETE  = "remote_recovery:complete"
	STATE_KEY_RECOVERY_ATTEMPTS  = "remote_recovery:attempts"

	// Legacy store defaults
	DEFAULT_LEGACY_STORE_NAME = "default.store"
	DEFAULT_PLACEHOLDER_HOME  = "My Home"

	// Remote replica constants
	LEGACY_ZONE_NAME      = "com.apple.coredata.cloudkit.zone"
	DEFAULT_PAGE_SIZE     = 200
	REMOTE_FETCH_PARALLEL = 5

	// FALLBACK_COLOR_RGBA is the mid-gray used when a color archive cannot be decoded
	FALLBACK_COLOR_RGBA uint32 = 0x808080FF
)

// ReferenceEpoch is the zero point of legacy timestamps (2001-01-01T00:00:00Z)
var ReferenceEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

package domain

import (
	"fmt"
	"strings"
)

// EntityKind names one of the five migrated entity kinds
type EntityKind string

const (
	EntityHome     EntityKind = "home"
	EntityPolicy   EntityKind = "insurance_policy"
	EntityLocation EntityKind = "inventory_location"
	EntityItem     EntityKind = "inventory_item"
	EntityLabel    EntityKind = "inventory_label"
)

// Status is the terminal state reported by an entry point
type Status string

const (
	// StatusFreshInstall means no legacy store file exists
	StatusFreshInstall Status = "fresh_install"
	// StatusNoLegacyTables means the legacy file exists but lacks the core table
	StatusNoLegacyTables Status = "no_legacy_tables"
	// StatusAlreadyCompleted means a previous run set the completion flag
	StatusAlreadyCompleted Status = "already_completed"
	// StatusSuccess means data was written and validated
	StatusSuccess Status = "success"
	// StatusAbandoned means the attempt cap was reached
	StatusAbandoned Status = "abandoned"
	// StatusError means this attempt failed and may be retried
	StatusError Status = "error"
	// StatusNothingToRecover means the remote replica holds no data (or is unreachable)
	StatusNothingToRecover Status = "nothing_to_recover"
	// StatusRecoverable means a remote probe found records to recover
	StatusRecoverable Status = "recoverable"
	// StatusTargetNotEmpty means remote recovery was skipped because the target holds data
	StatusTargetNotEmpty Status = "target_not_empty"
)

// Stats is the auditable tally of one run
type Stats struct {
	Homes     int `json:"homes"`
	Policies  int `json:"policies"`
	Locations int `json:"locations"`
	Items     int `json:"items"`
	Labels    int `json:"labels"`

	ItemLabels   int `json:"item_labels"`
	HomePolicies int `json:"home_policies"`

	SkippedColors        int `json:"skipped_colors"`
	SkippedArrays        int `json:"skipped_arrays"`
	SkippedItemLabels    int `json:"skipped_item_labels"`
	SkippedHomePolicies  int `json:"skipped_home_policies"`
	SkippedLocationHomes int `json:"skipped_location_homes"`
	SkippedItemLocations int `json:"skipped_item_locations"`
	SkippedItemHomes     int `json:"skipped_item_homes"`
	SkippedRecords       int `json:"skipped_records"`
	DuplicateIDs         int `json:"duplicate_ids"`

	FabricatedIDs       int `json:"fabricated_ids"`
	BackfilledItemHomes int `json:"backfilled_item_homes"`
	FallbackAssignments int `json:"fallback_assignments"`
}

// Result is the closed result type consumed by callers for user messaging
type Result struct {
	Status Status
	Stats  Stats
	// Available is the record count reported by a remote probe
	Available int
	Err       error
}

// Succeeded reports whether the run ended in a terminal non-error state
func (r Result) Succeeded() bool {
	switch r.Status {
	case StatusSuccess, StatusFreshInstall, StatusNoLegacyTables, StatusAlreadyCompleted, StatusNothingToRecover, StatusRecoverable, StatusTargetNotEmpty:
		return true
	default:
		return false
	}
}

// String renders the result for logs
func (r Result) String() string {
	var b strings.Builder
	b.WriteString(string(r.Status))
	if r.Status == StatusRecoverable {
		fmt.Fprintf(&b, " available=%d", r.Available)
	}
	if r.Status == StatusSuccess {
		fmt.Fprintf(&b, " homes=%d locations=%d items=%d labels=%d policies=%d",
			r.Stats.Homes, r.Stats.Locations, r.Stats.Items, r.Stats.Labels, r.Stats.Policies)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, " err=%v", r.Err)
	}
	return b.String()
}

// Package records holds the transient read-side model of one migration run:
// raw per-entity records keyed by their legacy surrogate key, and the
// relationship pairs awaiting identifier resolution.
package records

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/movingbox/movingbox-migrator/internal/decode"
	"github.com/movingbox/movingbox-migrator/internal/domain"
)

// Home is a legacy home row
type Home[K comparable] struct {
	Key                K
	ID                 uuid.UUID
	Name               string
	Address1           string
	Address2           string
	City               string
	State              string
	Zip                string
	Country            string
	PurchaseDate       *time.Time
	PurchasePrice      decimal.Decimal
	ImageURL           string
	SecondaryPhotoURLs []string
	IsPrimary          bool
	ColorName          string
	// Recency orders homes by creation, higher is newer
	Recency int64
}

// Policy is a legacy insurance policy row
type Policy[K comparable] struct {
	Key                            K
	ID                             uuid.UUID
	ProviderName                   string
	PolicyNumber                   string
	DeductibleAmount               decimal.Decimal
	DwellingCoverageAmount         decimal.Decimal
	PersonalPropertyCoverageAmount decimal.Decimal
	LossOfUseCoverageAmount        decimal.Decimal
	LiabilityCoverageAmount        decimal.Decimal
	MedicalPaymentsCoverageAmount  decimal.Decimal
	StartDate                      *time.Time
	EndDate                        *time.Time
}

// Location is a legacy inventory location row
type Location[K comparable] struct {
	Key                K
	ID                 uuid.UUID
	Name               string
	Description        string
	SFSymbolName       *string
	ImageURL           string
	SecondaryPhotoURLs []string
}

// Label is a legacy inventory label row
type Label[K comparable] struct {
	Key         K
	ID          uuid.UUID
	Name        string
	Description string
	Color       *uint32
	Emoji       string
}

// Item is a legacy inventory item row
type Item[K comparable] struct {
	Key                    K
	ID                     uuid.UUID
	Title                  string
	QuantityString         string
	QuantityInt            int64
	Description            string
	Serial                 string
	Model                  string
	Make                   string
	Price                  decimal.Decimal
	Insured                bool
	AssetID                string
	Notes                  string
	ImageURL               string
	SecondaryPhotoURLs     []string
	HasUsedAI              bool
	CreatedAt              *time.Time
	PurchaseDate           *time.Time
	WarrantyExpirationDate *time.Time
	PurchaseLocation       string
	Condition              string
	HasWarranty            bool
	Attachments            []decode.Attachment
	DimensionLength        string
	DimensionWidth         string
	DimensionHeight        string
	DimensionUnit          string
	WeightValue            decimal.Decimal
	WeightUnit             string
	Color                  string
	StorageRequirements    string
	IsFragile              bool
	MovingPriority         int64
	RoomDestination        string
	ReplacementCost        decimal.Decimal
	DepreciationRate       decimal.Decimal
}

// Pair is a relationship link between two surrogate keys, From owning To
type Pair[K comparable] struct {
	From K
	To   K
}

// Links holds every relationship pair list of a run
type Links[K comparable] struct {
	ItemLabels    []Pair[K]
	HomePolicies  []Pair[K]
	ItemLocations []Pair[K]
	ItemHomes     []Pair[K]
	LocationHomes []Pair[K]
}

// Shape records which physical link forms the source carried
type Shape struct {
	// HomeLinks is false in the pre-normalization shape, where locations and
	// items implicitly belong to a single unnamed home
	HomeLinks      bool
	DirectLabelFK  bool
	DirectPolicyFK bool
	ItemLabelJoin  bool
	HomePolicyJoin bool
}

// PreNormalization reports whether the source predates explicit home links
func (s Shape) PreNormalization() bool {
	return !s.HomeLinks
}

// Snapshot is everything read from one source during one run
type Snapshot[K comparable] struct {
	Homes     []Home[K]
	Policies  []Policy[K]
	Locations []Location[K]
	Items     []Item[K]
	Labels    []Label[K]
	Links     Links[K]
	Shape     Shape
	Stats     domain.Stats
}

// Empty reports whether the snapshot holds no entity at all
func (s *Snapshot[K]) Empty() bool {
	return len(s.Homes)+len(s.Policies)+len(s.Locations)+len(s.Items)+len(s.Labels) == 0
}

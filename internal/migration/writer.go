package migration

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/keymap"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/records"
	"github.com/movingbox/movingbox-migrator/internal/store"
	"github.com/movingbox/movingbox-migrator/internal/store/schema"
)

// batchBuilder resolves a snapshot into target rows. Every relationship side
// goes through the key resolver; a miss is a counted skip.
type batchBuilder[K comparable] struct {
	snap  *records.Snapshot[K]
	keys  *keymap.Resolver[K]
	stats domain.Stats
	seen  map[domain.EntityKind]map[uuid.UUID]struct{}
}

// BuildBatch resolves every record and link of snap into one target batch.
// The returned stats carry the snapshot's read counters plus the write-side ones.
func BuildBatch[K comparable](ctx context.Context, snap *records.Snapshot[K], keys *keymap.Resolver[K]) (*store.Batch, domain.Stats) {
	b := &batchBuilder[K]{
		snap:  snap,
		keys:  keys,
		stats: snap.Stats,
		seen:  make(map[domain.EntityKind]map[uuid.UUID]struct{}, 5),
	}

	batch := &store.Batch{
		Labels:    b.labels(),
		Homes:     b.homes(),
		Policies:  b.policies(),
		Locations: b.locations(),
		Items:     b.items(),
	}
	batch.ItemLabels = b.itemLabels()
	batch.HomePolicies = b.homePolicies()

	b.stats.Labels = len(batch.Labels)
	b.stats.Homes = len(batch.Homes)
	b.stats.Policies = len(batch.Policies)
	b.stats.Locations = len(batch.Locations)
	b.stats.Items = len(batch.Items)
	b.stats.ItemLabels = len(batch.ItemLabels)
	b.stats.HomePolicies = len(batch.HomePolicies)

	logger.InfoCtx(ctx, "Built target batch",
		zap.Int("homes", b.stats.Homes),
		zap.Int("items", b.stats.Items),
		zap.Int("skipped_item_labels", b.stats.SkippedItemLabels),
		zap.Int("skipped_home_policies", b.stats.SkippedHomePolicies),
		zap.Int("skipped_location_homes", b.stats.SkippedLocationHomes),
		zap.Int("skipped_item_locations", b.stats.SkippedItemLocations),
		zap.Int("skipped_item_homes", b.stats.SkippedItemHomes),
		zap.Int("duplicate_ids", b.stats.DuplicateIDs),
	)
	return batch, b.stats
}

// first reports whether id is new for kind; repeats are counted and dropped
func (b *batchBuilder[K]) first(kind domain.EntityKind, id uuid.UUID) bool {
	seen, ok := b.seen[kind]
	if !ok {
		seen = make(map[uuid.UUID]struct{})
		b.seen[kind] = seen
	}
	if _, dup := seen[id]; dup {
		b.stats.DuplicateIDs++
		return false
	}
	seen[id] = struct{}{}
	return true
}

// target resolves the first link of from that points at a registered row.
// linked reports whether from had any link at all.
func (b *batchBuilder[K]) target(index map[K][]K, kind domain.EntityKind, from K) (id *string, linked bool) {
	targets, linked := index[from]
	for _, to := range targets {
		if s, ok := b.keys.LookupString(kind, to); ok {
			return &s, true
		}
	}
	return nil, linked
}

func indexPairs[K comparable](pairs []records.Pair[K]) map[K][]K {
	index := make(map[K][]K, len(pairs))
	for _, p := range pairs {
		index[p.From] = append(index[p.From], p.To)
	}
	return index
}

func jsonArray(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

func (b *batchBuilder[K]) labels() []schema.InventoryLabel {
	out := make([]schema.InventoryLabel, 0, len(b.snap.Labels))
	for _, l := range b.snap.Labels {
		if !b.first(domain.EntityLabel, l.ID) {
			continue
		}
		var color *int64
		if l.Color != nil {
			c := int64(*l.Color)
			color = &c
		}
		out = append(out, schema.InventoryLabel{
			ID:          l.ID.String(),
			Name:        l.Name,
			Description: l.Description,
			Color:       color,
			Emoji:       l.Emoji,
		})
	}
	return out
}

func (b *batchBuilder[K]) homes() []schema.Home {
	out := make([]schema.Home, 0, len(b.snap.Homes))
	for _, h := range b.snap.Homes {
		if !b.first(domain.EntityHome, h.ID) {
			continue
		}
		out = append(out, schema.Home{
			ID:                 h.ID.String(),
			Name:               h.Name,
			Address1:           h.Address1,
			Address2:           h.Address2,
			City:               h.City,
			State:              h.State,
			Zip:                h.Zip,
			Country:            h.Country,
			PurchaseDate:       h.PurchaseDate,
			PurchasePrice:      schema.NewDecimal(h.PurchasePrice),
			ImageURL:           h.ImageURL,
			SecondaryPhotoURLs: jsonArray(h.SecondaryPhotoURLs),
			IsPrimary:          h.IsPrimary,
			ColorName:          h.ColorName,
		})
	}
	return out
}

func (b *batchBuilder[K]) policies() []schema.InsurancePolicy {
	out := make([]schema.InsurancePolicy, 0, len(b.snap.Policies))
	for _, p := range b.snap.Policies {
		if !b.first(domain.EntityPolicy, p.ID) {
			continue
		}
		out = append(out, schema.InsurancePolicy{
			ID:                             p.ID.String(),
			ProviderName:                   p.ProviderName,
			PolicyNumber:                   p.PolicyNumber,
			DeductibleAmount:               schema.NewDecimal(p.DeductibleAmount),
			DwellingCoverageAmount:         schema.NewDecimal(p.DwellingCoverageAmount),
			PersonalPropertyCoverageAmount: schema.NewDecimal(p.PersonalPropertyCoverageAmount),
			LossOfUseCoverageAmount:        schema.NewDecimal(p.LossOfUseCoverageAmount),
			LiabilityCoverageAmount:        schema.NewDecimal(p.LiabilityCoverageAmount),
			MedicalPaymentsCoverageAmount:  schema.NewDecimal(p.MedicalPaymentsCoverageAmount),
			StartDate:                      p.StartDate,
			EndDate:                        p.EndDate,
		})
	}
	return out
}

func (b *batchBuilder[K]) locations() []schema.InventoryLocation {
	homes := indexPairs(b.snap.Links.LocationHomes)
	out := make([]schema.InventoryLocation, 0, len(b.snap.Locations))
	for _, l := range b.snap.Locations {
		if !b.first(domain.EntityLocation, l.ID) {
			continue
		}
		homeID, linked := b.target(homes, domain.EntityHome, l.Key)
		if linked && homeID == nil {
			b.stats.SkippedLocationHomes++
		}
		out = append(out, schema.InventoryLocation{
			ID:                 l.ID.String(),
			Name:               l.Name,
			Description:        l.Description,
			SFSymbolName:       l.SFSymbolName,
			ImageURL:           l.ImageURL,
			SecondaryPhotoURLs: jsonArray(l.SecondaryPhotoURLs),
			HomeID:             homeID,
		})
	}
	return out
}

func (b *batchBuilder[K]) items() []schema.InventoryItem {
	locations := indexPairs(b.snap.Links.ItemLocations)
	homes := indexPairs(b.snap.Links.ItemHomes)
	out := make([]schema.InventoryItem, 0, len(b.snap.Items))
	for _, it := range b.snap.Items {
		if !b.first(domain.EntityItem, it.ID) {
			continue
		}
		locationID, linked := b.target(locations, domain.EntityLocation, it.Key)
		if linked && locationID == nil {
			b.stats.SkippedItemLocations++
		}
		homeID, linked := b.target(homes, domain.EntityHome, it.Key)
		if linked && homeID == nil {
			b.stats.SkippedItemHomes++
		}
		out = append(out, schema.InventoryItem{
			ID:                     it.ID.String(),
			Title:                  it.Title,
			QuantityString:         it.QuantityString,
			QuantityInt:            it.QuantityInt,
			Description:            it.Description,
			Serial:                 it.Serial,
			Model:                  it.Model,
			Make:                   it.Make,
			Price:                  schema.NewDecimal(it.Price),
			Insured:                it.Insured,
			AssetID:                it.AssetID,
			Notes:                  it.Notes,
			ImageURL:               it.ImageURL,
			SecondaryPhotoURLs:     jsonArray(it.SecondaryPhotoURLs),
			HasUsedAI:              it.HasUsedAI,
			CreatedAt:              it.CreatedAt,
			PurchaseDate:           it.PurchaseDate,
			WarrantyExpirationDate: it.WarrantyExpirationDate,
			PurchaseLocation:       it.PurchaseLocation,
			Condition:              it.Condition,
			HasWarranty:            it.HasWarranty,
			Attachments:            jsonArray(it.Attachments),
			DimensionLength:        it.DimensionLength,
			DimensionWidth:         it.DimensionWidth,
			DimensionHeight:        it.DimensionHeight,
			DimensionUnit:          it.DimensionUnit,
			WeightValue:            schema.NewDecimal(it.WeightValue),
			WeightUnit:             it.WeightUnit,
			Color:                  it.Color,
			StorageRequirements:    it.StorageRequirements,
			IsFragile:              it.IsFragile,
			MovingPriority:         it.MovingPriority,
			RoomDestination:        it.RoomDestination,
			ReplacementCost:        schema.NewDecimal(it.ReplacementCost),
			DepreciationRate:       schema.NewDecimal(it.DepreciationRate),
			LocationID:             locationID,
			HomeID:                 homeID,
		})
	}
	return out
}

// resolvePairs resolves both sides of every pair, skipping unresolved and repeated ones
func (b *batchBuilder[K]) resolvePairs(pairs []records.Pair[K], fromKind, toKind domain.EntityKind, skipped *int) [][2]string {
	seen := make(map[[2]string]struct{}, len(pairs))
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		from, ok := b.keys.LookupString(fromKind, p.From)
		if !ok {
			*skipped++
			continue
		}
		to, ok := b.keys.LookupString(toKind, p.To)
		if !ok {
			*skipped++
			continue
		}
		key := [2]string{from, to}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func (b *batchBuilder[K]) itemLabels() []schema.ItemLabel {
	pairs := b.resolvePairs(b.snap.Links.ItemLabels, domain.EntityItem, domain.EntityLabel, &b.stats.SkippedItemLabels)
	out := make([]schema.ItemLabel, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, schema.ItemLabel{ID: uuid.NewString(), ItemID: p[0], LabelID: p[1]})
	}
	return out
}

func (b *batchBuilder[K]) homePolicies() []schema.HomePolicy {
	pairs := b.resolvePairs(b.snap.Links.HomePolicies, domain.EntityHome, domain.EntityPolicy, &b.stats.SkippedHomePolicies)
	out := make([]schema.HomePolicy, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, schema.HomePolicy{ID: uuid.NewString(), HomeID: p[0], PolicyID: p[1]})
	}
	return out
}

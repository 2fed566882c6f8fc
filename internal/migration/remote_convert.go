package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/decode"
	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/keymap"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/records"
	"github.com/movingbox/movingbox-migrator/internal/replica"
)

// Remote field names written by the sync layer
const (
	fieldID          = "CD_id"
	fieldHome        = "CD_home"
	fieldLocation    = "CD_location"
	fieldLabel       = "CD_label"
	fieldLabels      = "CD_labels"
	fieldPolicy      = "CD_insurancePolicy"
	fieldPolicies    = "CD_insurancePolicies"
	fieldPhotos      = "CD_secondaryPhotoURLs"
	fieldAttachments = "CD_attachments"
	fieldColor       = "CD_color"
)

// remoteConverter turns fetched records into a snapshot keyed by record name
type remoteConverter struct {
	db      replica.Database
	zone    string
	keys    *keymap.Resolver[string]
	backoff func() backoff.BackOff
	stats   domain.Stats
}

// convert builds the snapshot. Links are taken from reference fields; the
// home concept is considered absent when no location or item carries a home field.
func (c *remoteConverter) convert(ctx context.Context, fetched map[string][]replica.Record) *records.Snapshot[string] {
	snap := &records.Snapshot[string]{}

	for _, rec := range fetched[replica.RecordTypeLabel] {
		snap.Labels = append(snap.Labels, c.label(ctx, rec))
	}
	for _, rec := range fetched[replica.RecordTypeHome] {
		snap.Homes = append(snap.Homes, c.home(ctx, rec))
		if policy, ok := rec.Reference(fieldPolicy); ok {
			snap.Links.HomePolicies = append(snap.Links.HomePolicies, records.Pair[string]{From: rec.RecordName, To: policy})
			snap.Shape.DirectPolicyFK = true
		}
		for _, policy := range rec.References(fieldPolicies) {
			snap.Links.HomePolicies = append(snap.Links.HomePolicies, records.Pair[string]{From: rec.RecordName, To: policy})
			snap.Shape.HomePolicyJoin = true
		}
	}
	for _, rec := range fetched[replica.RecordTypePolicy] {
		snap.Policies = append(snap.Policies, c.policy(rec))
	}
	for _, rec := range fetched[replica.RecordTypeLocation] {
		snap.Locations = append(snap.Locations, c.location(ctx, rec))
		if _, present := rec.Fields[fieldHome]; present {
			snap.Shape.HomeLinks = true
		}
		if home, ok := rec.Reference(fieldHome); ok {
			snap.Links.LocationHomes = append(snap.Links.LocationHomes, records.Pair[string]{From: rec.RecordName, To: home})
		}
	}
	for _, rec := range fetched[replica.RecordTypeItem] {
		snap.Items = append(snap.Items, c.item(ctx, rec))
		if _, present := rec.Fields[fieldHome]; present {
			snap.Shape.HomeLinks = true
		}
		if home, ok := rec.Reference(fieldHome); ok {
			snap.Links.ItemHomes = append(snap.Links.ItemHomes, records.Pair[string]{From: rec.RecordName, To: home})
		}
		if location, ok := rec.Reference(fieldLocation); ok {
			snap.Links.ItemLocations = append(snap.Links.ItemLocations, records.Pair[string]{From: rec.RecordName, To: location})
		}
		if label, ok := rec.Reference(fieldLabel); ok {
			snap.Links.ItemLabels = append(snap.Links.ItemLabels, records.Pair[string]{From: rec.RecordName, To: label})
			snap.Shape.DirectLabelFK = true
		}
		for _, label := range rec.References(fieldLabels) {
			snap.Links.ItemLabels = append(snap.Links.ItemLabels, records.Pair[string]{From: rec.RecordName, To: label})
			snap.Shape.ItemLabelJoin = true
		}
	}

	snap.Stats = c.stats
	return snap
}

func (c *remoteConverter) identify(kind domain.EntityKind, rec replica.Record) uuid.UUID {
	var raw interface{}
	if s := rec.String(fieldID); s != "" {
		raw = s
	} else if b := rec.Bytes(fieldID); b != nil {
		raw = b
	}
	stored, valid := decode.Identifier(raw)
	resolved, fabricated := c.keys.Register(kind, rec.RecordName, stored, valid)
	if fabricated {
		c.stats.FabricatedIDs++
	}
	return resolved
}

// blob returns an inline BYTES field or the body of an ASSET field. An asset
// is retried with exponential backoff; a permanent failure degrades only this field.
func (c *remoteConverter) blob(ctx context.Context, rec replica.Record, field string) ([]byte, bool) {
	if b := rec.Bytes(field); b != nil {
		return b, true
	}
	asset, ok := rec.Asset(field)
	if !ok {
		return nil, true
	}

	var data []byte
	operation := func() error {
		body, err := c.db.FetchAsset(ctx, c.zone, asset.Key)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		data = body
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(c.backoff(), ctx)); err != nil {
		logger.WarnCtx(ctx, "Failed to fetch remote asset",
			zap.String("record_name", rec.RecordName),
			zap.String("field", field),
			zap.String("asset", asset.Key),
			zap.Error(err))
		return nil, false
	}
	return data, true
}

func (c *remoteConverter) stringArray(ctx context.Context, rec replica.Record, field string) []string {
	if list, ok := rec.Strings(field); ok {
		return list
	}
	data, ok := c.blob(ctx, rec, field)
	if !ok {
		c.stats.SkippedArrays++
		return []string{}
	}
	out := decode.StringArray(ctx, fmt.Sprintf("%s.%s", rec.RecordType, field), data)
	if out.Fallback {
		c.stats.SkippedArrays++
	}
	return out.Value
}

func (c *remoteConverter) label(ctx context.Context, rec replica.Record) records.Label[string] {
	var color *uint32
	data, ok := c.blob(ctx, rec, fieldColor)
	if !ok {
		gray := domain.FALLBACK_COLOR_RGBA
		color = &gray
		c.stats.SkippedColors++
	} else {
		var skipped bool
		color, skipped = decode.Color(ctx, "CD_InventoryLabel.CD_color", data)
		if skipped {
			c.stats.SkippedColors++
		}
	}
	return records.Label[string]{
		Key:         rec.RecordName,
		ID:          c.identify(domain.EntityLabel, rec),
		Name:        rec.String("CD_name"),
		Description: rec.String("CD_desc"),
		Color:       color,
		Emoji:       rec.String("CD_emoji"),
	}
}

func (c *remoteConverter) home(ctx context.Context, rec replica.Record) records.Home[string] {
	return records.Home[string]{
		Key:                rec.RecordName,
		ID:                 c.identify(domain.EntityHome, rec),
		Name:               rec.String("CD_name"),
		Address1:           rec.String("CD_address1"),
		Address2:           rec.String("CD_address2"),
		City:               rec.String("CD_city"),
		State:              rec.String("CD_state"),
		Zip:                rec.String("CD_zip"),
		Country:            rec.String("CD_country"),
		PurchaseDate:       rec.Timestamp("CD_purchaseDate"),
		PurchasePrice:      rec.Decimal("CD_purchasePrice"),
		ImageURL:           rec.String("CD_imageURL"),
		SecondaryPhotoURLs: c.stringArray(ctx, rec, fieldPhotos),
		IsPrimary:          rec.Bool("CD_isPrimary"),
		ColorName:          rec.String("CD_colorName"),
		Recency:            rec.Created,
	}
}

func (c *remoteConverter) policy(rec replica.Record) records.Policy[string] {
	return records.Policy[string]{
		Key:                            rec.RecordName,
		ID:                             c.identify(domain.EntityPolicy, rec),
		ProviderName:                   rec.String("CD_providerName"),
		PolicyNumber:                   rec.String("CD_policyNumber"),
		DeductibleAmount:               rec.Decimal("CD_deductibleAmount"),
		DwellingCoverageAmount:         rec.Decimal("CD_dwellingCoverageAmount"),
		PersonalPropertyCoverageAmount: rec.Decimal("CD_personalPropertyCoverageAmount"),
		LossOfUseCoverageAmount:        rec.Decimal("CD_lossOfUseCoverageAmount"),
		LiabilityCoverageAmount:        rec.Decimal("CD_liabilityCoverageAmount"),
		MedicalPaymentsCoverageAmount:  rec.Decimal("CD_medicalPaymentsCoverageAmount"),
		StartDate:                      rec.Timestamp("CD_startDate"),
		EndDate:                        rec.Timestamp("CD_endDate"),
	}
}

func (c *remoteConverter) location(ctx context.Context, rec replica.Record) records.Location[string] {
	return records.Location[string]{
		Key:                rec.RecordName,
		ID:                 c.identify(domain.EntityLocation, rec),
		Name:               rec.String("CD_name"),
		Description:        rec.String("CD_desc"),
		SFSymbolName:       rec.OptionalString("CD_sfSymbolName"),
		ImageURL:           rec.String("CD_imageURL"),
		SecondaryPhotoURLs: c.stringArray(ctx, rec, fieldPhotos),
	}
}

func (c *remoteConverter) item(ctx context.Context, rec replica.Record) records.Item[string] {
	var attachments []decode.Attachment
	if data, ok := c.blob(ctx, rec, fieldAttachments); ok {
		out := decode.Attachments(ctx, "CD_InventoryItem.CD_attachments", data)
		if out.Fallback {
			c.stats.SkippedArrays++
		}
		attachments = out.Value
	} else {
		c.stats.SkippedArrays++
		attachments = []decode.Attachment{}
	}

	return records.Item[string]{
		Key:                    rec.RecordName,
		ID:                     c.identify(domain.EntityItem, rec),
		Title:                  rec.String("CD_title"),
		QuantityString:         rec.String("CD_quantityString"),
		QuantityInt:            rec.Int("CD_quantityInt"),
		Description:            rec.String("CD_desc"),
		Serial:                 rec.String("CD_serial"),
		Model:                  rec.String("CD_model"),
		Make:                   rec.String("CD_make"),
		Price:                  rec.Decimal("CD_price"),
		Insured:                rec.Bool("CD_insured"),
		AssetID:                rec.String("CD_assetId"),
		Notes:                  rec.String("CD_notes"),
		ImageURL:               rec.String("CD_imageURL"),
		SecondaryPhotoURLs:     c.stringArray(ctx, rec, fieldPhotos),
		HasUsedAI:              rec.Bool("CD_hasUsedAI"),
		CreatedAt:              rec.Timestamp("CD_createdAt"),
		PurchaseDate:           rec.Timestamp("CD_purchaseDate"),
		WarrantyExpirationDate: rec.Timestamp("CD_warrantyExpirationDate"),
		PurchaseLocation:       rec.String("CD_purchaseLocation"),
		Condition:              rec.String("CD_condition"),
		HasWarranty:            rec.Bool("CD_hasWarranty"),
		Attachments:            attachments,
		DimensionLength:        rec.String("CD_dimensionLength"),
		DimensionWidth:         rec.String("CD_dimensionWidth"),
		DimensionHeight:        rec.String("CD_dimensionHeight"),
		DimensionUnit:          rec.String("CD_dimensionUnit"),
		WeightValue:            rec.Decimal("CD_weightValue"),
		WeightUnit:             rec.String("CD_weightUnit"),
		Color:                  rec.String("CD_color"),
		StorageRequirements:    rec.String("CD_storageRequirements"),
		IsFragile:              rec.Bool("CD_isFragile"),
		MovingPriority:         rec.Int("CD_movingPriority"),
		RoomDestination:        rec.String("CD_roomDestination"),
		ReplacementCost:        rec.Decimal("CD_replacementCost"),
		DepreciationRate:       rec.Decimal("CD_depreciationRate"),
	}
}

package legacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/decode"
	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/keymap"
	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/records"
)

// Reader turns legacy rows into raw records for one run
type Reader struct {
	store *Store
	caps  *Capabilities
	keys  *keymap.Resolver[int64]
	stats domain.Stats
}

// NewReader creates a reader that registers every row it reads in keys
func NewReader(store *Store, caps *Capabilities, keys *keymap.Resolver[int64]) *Reader {
	return &Reader{store: store, caps: caps, keys: keys}
}

// Read reads every entity and relationship of the store into a snapshot.
// It fails with domain.ErrMissingCoreTable when the item table is absent.
func (r *Reader) Read(ctx context.Context) (*records.Snapshot[int64], error) {
	if !r.caps.HasTable(TableItem) {
		return nil, domain.ErrMissingCoreTable
	}

	snap := &records.Snapshot[int64]{Shape: r.caps.Shape()}
	var err error
	if snap.Labels, err = r.readLabels(ctx); err != nil {
		return nil, err
	}
	if snap.Homes, err = r.readHomes(ctx); err != nil {
		return nil, err
	}
	if snap.Policies, err = r.readPolicies(ctx); err != nil {
		return nil, err
	}
	if snap.Locations, err = r.readLocations(ctx); err != nil {
		return nil, err
	}
	if snap.Items, err = r.readItems(ctx); err != nil {
		return nil, err
	}
	if snap.Links, err = r.readLinks(ctx); err != nil {
		return nil, err
	}

	snap.Stats = r.stats
	logger.InfoCtx(ctx, "Read legacy store",
		zap.Int("homes", len(snap.Homes)),
		zap.Int("policies", len(snap.Policies)),
		zap.Int("locations", len(snap.Locations)),
		zap.Int("items", len(snap.Items)),
		zap.Int("labels", len(snap.Labels)),
		zap.Int("fabricated_ids", r.stats.FabricatedIDs),
		zap.Int("skipped_colors", r.stats.SkippedColors),
		zap.Int("skipped_arrays", r.stats.SkippedArrays),
	)
	return snap, nil
}

// rows scans a table, treating an absent table as empty
func (r *Reader) rows(ctx context.Context, table string, columns ...column) ([]row, error) {
	if !r.caps.HasTable(table) {
		return nil, nil
	}
	return r.store.scan(ctx, newProjection(r.caps, table, columns...))
}

// identify registers the row's surrogate key and returns its stable identifier
func (r *Reader) identify(kind domain.EntityKind, rw row) uuid.UUID {
	stored, valid := decode.Identifier(rw.Raw("ZID"))
	id, fabricated := r.keys.Register(kind, rw.Key(), stored, valid)
	if fabricated {
		r.stats.FabricatedIDs++
	}
	return id
}

func (r *Reader) stringArray(ctx context.Context, table, column string, rw row) []string {
	out := decode.StringArray(ctx, fmt.Sprintf("%s.%s", table, column), rw.Bytes(column))
	if out.Fallback {
		r.stats.SkippedArrays++
	}
	return out.Value
}

func (r *Reader) readLabels(ctx context.Context) ([]records.Label[int64], error) {
	rows, err := r.rows(ctx, TableLabel,
		valueCol("ZID"), valueCol("ZNAME"), valueCol("ZDESC"), valueCol("ZCOLOR"), valueCol("ZEMOJI"))
	if err != nil {
		return nil, err
	}

	labels := make([]records.Label[int64], 0, len(rows))
	for _, rw := range rows {
		color, skipped := decode.Color(ctx, "ZINVENTORYLABEL.ZCOLOR", rw.Bytes("ZCOLOR"))
		if skipped {
			r.stats.SkippedColors++
		}
		labels = append(labels, records.Label[int64]{
			Key:         rw.Key(),
			ID:          r.identify(domain.EntityLabel, rw),
			Name:        rw.String("ZNAME"),
			Description: rw.String("ZDESC"),
			Color:       color,
			Emoji:       rw.String("ZEMOJI"),
		})
	}
	return labels, nil
}

func (r *Reader) readHomes(ctx context.Context) ([]records.Home[int64], error) {
	rows, err := r.rows(ctx, TableHome,
		valueCol("ZID"), valueCol("ZNAME"),
		valueCol("ZADDRESS1"), valueCol("ZADDRESS2"), valueCol("ZCITY"),
		valueCol("ZSTATE"), valueCol("ZZIP"), valueCol("ZCOUNTRY"),
		dateCol("ZPURCHASEDATE"), decimalCol("ZPURCHASEPRICE"),
		valueCol("ZIMAGEURL"), valueCol("ZSECONDARYPHOTOURLS"),
		valueCol("ZISPRIMARY"), valueCol("ZCOLORNAME"))
	if err != nil {
		return nil, err
	}

	homes := make([]records.Home[int64], 0, len(rows))
	for _, rw := range rows {
		homes = append(homes, records.Home[int64]{
			Key:                rw.Key(),
			ID:                 r.identify(domain.EntityHome, rw),
			Name:               rw.String("ZNAME"),
			Address1:           rw.String("ZADDRESS1"),
			Address2:           rw.String("ZADDRESS2"),
			City:               rw.String("ZCITY"),
			State:              rw.String("ZSTATE"),
			Zip:                rw.String("ZZIP"),
			Country:            rw.String("ZCOUNTRY"),
			PurchaseDate:       rw.Date("ZPURCHASEDATE"),
			PurchasePrice:      rw.Decimal("ZPURCHASEPRICE"),
			ImageURL:           rw.String("ZIMAGEURL"),
			SecondaryPhotoURLs: r.stringArray(ctx, TableHome, "ZSECONDARYPHOTOURLS", rw),
			IsPrimary:          rw.Bool("ZISPRIMARY"),
			ColorName:          rw.String("ZCOLORNAME"),
			// Z_PK grows with insertion order
			Recency: rw.Key(),
		})
	}
	return homes, nil
}

func (r *Reader) readPolicies(ctx context.Context) ([]records.Policy[int64], error) {
	rows, err := r.rows(ctx, TablePolicy,
		valueCol("ZID"), valueCol("ZPROVIDERNAME"), valueCol("ZPOLICYNUMBER"),
		decimalCol("ZDEDUCTIBLEAMOUNT"), decimalCol("ZDWELLINGCOVERAGEAMOUNT"),
		decimalCol("ZPERSONALPROPERTYCOVERAGEAMOUNT"), decimalCol("ZLOSSOFUSECOVERAGEAMOUNT"),
		decimalCol("ZLIABILITYCOVERAGEAMOUNT"), decimalCol("ZMEDICALPAYMENTSCOVERAGEAMOUNT"),
		dateCol("ZSTARTDATE"), dateCol("ZENDDATE"))
	if err != nil {
		return nil, err
	}

	policies := make([]records.Policy[int64], 0, len(rows))
	for _, rw := range rows {
		policies = append(policies, records.Policy[int64]{
			Key:                            rw.Key(),
			ID:                             r.identify(domain.EntityPolicy, rw),
			ProviderName:                   rw.String("ZPROVIDERNAME"),
			PolicyNumber:                   rw.String("ZPOLICYNUMBER"),
			DeductibleAmount:               rw.Decimal("ZDEDUCTIBLEAMOUNT"),
			DwellingCoverageAmount:         rw.Decimal("ZDWELLINGCOVERAGEAMOUNT"),
			PersonalPropertyCoverageAmount: rw.Decimal("ZPERSONALPROPERTYCOVERAGEAMOUNT"),
			LossOfUseCoverageAmount:        rw.Decimal("ZLOSSOFUSECOVERAGEAMOUNT"),
			LiabilityCoverageAmount:        rw.Decimal("ZLIABILITYCOVERAGEAMOUNT"),
			MedicalPaymentsCoverageAmount:  rw.Decimal("ZMEDICALPAYMENTSCOVERAGEAMOUNT"),
			StartDate:                      rw.Date("ZSTARTDATE"),
			EndDate:                        rw.Date("ZENDDATE"),
		})
	}
	return policies, nil
}

func (r *Reader) readLocations(ctx context.Context) ([]records.Location[int64], error) {
	rows, err := r.rows(ctx, TableLocation,
		valueCol("ZID"), valueCol("ZNAME"), valueCol("ZDESC"), valueCol("ZSFSYMBOLNAME"),
		valueCol("ZIMAGEURL"), valueCol("ZSECONDARYPHOTOURLS"))
	if err != nil {
		return nil, err
	}

	locations := make([]records.Location[int64], 0, len(rows))
	for _, rw := range rows {
		locations = append(locations, records.Location[int64]{
			Key:                rw.Key(),
			ID:                 r.identify(domain.EntityLocation, rw),
			Name:               rw.String("ZNAME"),
			Description:        rw.String("ZDESC"),
			SFSymbolName:       rw.OptionalString("ZSFSYMBOLNAME"),
			ImageURL:           rw.String("ZIMAGEURL"),
			SecondaryPhotoURLs: r.stringArray(ctx, TableLocation, "ZSECONDARYPHOTOURLS", rw),
		})
	}
	return locations, nil
}

func (r *Reader) readItems(ctx context.Context) ([]records.Item[int64], error) {
	rows, err := r.rows(ctx, TableItem,
		valueCol("ZID"), valueCol("ZTITLE"), valueCol("ZQUANTITYSTRING"), valueCol("ZQUANTITYINT"),
		valueCol("ZDESC"), valueCol("ZSERIAL"), valueCol("ZMODEL"), valueCol("ZMAKE"),
		decimalCol("ZPRICE"), valueCol("ZINSURED"), valueCol("ZASSETID"), valueCol("ZNOTES"),
		valueCol("ZIMAGEURL"), valueCol("ZSECONDARYPHOTOURLS"), valueCol("ZHASUSEDAI"),
		dateCol("ZCREATEDAT"), dateCol("ZPURCHASEDATE"), dateCol("ZWARRANTYEXPIRATIONDATE"),
		valueCol("ZPURCHASELOCATION"), valueCol("ZCONDITION"), valueCol("ZHASWARRANTY"),
		valueCol("ZATTACHMENTS"),
		valueCol("ZDIMENSIONLENGTH"), valueCol("ZDIMENSIONWIDTH"), valueCol("ZDIMENSIONHEIGHT"),
		valueCol("ZDIMENSIONUNIT"), decimalCol("ZWEIGHTVALUE"), valueCol("ZWEIGHTUNIT"),
		valueCol("ZCOLOR"), valueCol("ZSTORAGEREQUIREMENTS"), valueCol("ZISFRAGILE"),
		valueCol("ZMOVINGPRIORITY"), valueCol("ZROOMDESTINATION"),
		decimalCol("ZREPLACEMENTCOST"), decimalCol("ZDEPRECIATIONRATE"))
	if err != nil {
		return nil, err
	}

	items := make([]records.Item[int64], 0, len(rows))
	for _, rw := range rows {
		attachments := decode.Attachments(ctx, "ZINVENTORYITEM.ZATTACHMENTS", rw.Bytes("ZATTACHMENTS"))
		if attachments.Fallback {
			r.stats.SkippedArrays++
		}
		items = append(items, records.Item[int64]{
			Key:                    rw.Key(),
			ID:                     r.identify(domain.EntityItem, rw),
			Title:                  rw.String("ZTITLE"),
			QuantityString:         rw.String("ZQUANTITYSTRING"),
			QuantityInt:            rw.Int("ZQUANTITYINT"),
			Description:            rw.String("ZDESC"),
			Serial:                 rw.String("ZSERIAL"),
			Model:                  rw.String("ZMODEL"),
			Make:                   rw.String("ZMAKE"),
			Price:                  rw.Decimal("ZPRICE"),
			Insured:                rw.Bool("ZINSURED"),
			AssetID:                rw.String("ZASSETID"),
			Notes:                  rw.String("ZNOTES"),
			ImageURL:               rw.String("ZIMAGEURL"),
			SecondaryPhotoURLs:     r.stringArray(ctx, TableItem, "ZSECONDARYPHOTOURLS", rw),
			HasUsedAI:              rw.Bool("ZHASUSEDAI"),
			CreatedAt:              rw.Date("ZCREATEDAT"),
			PurchaseDate:           rw.Date("ZPURCHASEDATE"),
			WarrantyExpirationDate: rw.Date("ZWARRANTYEXPIRATIONDATE"),
			PurchaseLocation:       rw.String("ZPURCHASELOCATION"),
			Condition:              rw.String("ZCONDITION"),
			HasWarranty:            rw.Bool("ZHASWARRANTY"),
			Attachments:            attachments.Value,
			DimensionLength:        rw.String("ZDIMENSIONLENGTH"),
			DimensionWidth:         rw.String("ZDIMENSIONWIDTH"),
			DimensionHeight:        rw.String("ZDIMENSIONHEIGHT"),
			DimensionUnit:          rw.String("ZDIMENSIONUNIT"),
			WeightValue:            rw.Decimal("ZWEIGHTVALUE"),
			WeightUnit:             rw.String("ZWEIGHTUNIT"),
			Color:                  rw.String("ZCOLOR"),
			StorageRequirements:    rw.String("ZSTORAGEREQUIREMENTS"),
			IsFragile:              rw.Bool("ZISFRAGILE"),
			MovingPriority:         rw.Int("ZMOVINGPRIORITY"),
			RoomDestination:        rw.String("ZROOMDESTINATION"),
			ReplacementCost:        rw.Decimal("ZREPLACEMENTCOST"),
			DepreciationRate:       rw.Decimal("ZDEPRECIATIONRATE"),
		})
	}
	return items, nil
}

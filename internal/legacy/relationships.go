package legacy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/logger"
	"github.com/movingbox/movingbox-migrator/internal/records"
)

// readLinks extracts every relationship pair the store carries, in whichever
// physical form it uses. Both forms may coexist; the writer de-duplicates.
func (r *Reader) readLinks(ctx context.Context) (records.Links[int64], error) {
	var links records.Links[int64]
	var err error

	if links.ItemLocations, err = r.directPairs(ctx, TableItem, "ZLOCATION"); err != nil {
		return links, err
	}
	if links.ItemHomes, err = r.directPairs(ctx, TableItem, "ZHOME"); err != nil {
		return links, err
	}
	if links.LocationHomes, err = r.directPairs(ctx, TableLocation, "ZHOME"); err != nil {
		return links, err
	}
	if links.ItemLabels, err = r.directPairs(ctx, TableItem, "ZLABEL"); err != nil {
		return links, err
	}
	if links.HomePolicies, err = r.directPairs(ctx, TableHome, "ZINSURANCEPOLICY"); err != nil {
		return links, err
	}

	if jt := r.caps.ItemLabelJoin; jt != nil {
		pairs, err := r.joinPairs(ctx, *jt)
		if err != nil {
			return links, err
		}
		links.ItemLabels = append(links.ItemLabels, pairs...)
	}
	if jt := r.caps.HomePolicyJoin; jt != nil {
		pairs, err := r.joinPairs(ctx, *jt)
		if err != nil {
			return links, err
		}
		links.HomePolicies = append(links.HomePolicies, pairs...)
	}

	logger.InfoCtx(ctx, "Read legacy relationships",
		zap.Int("item_locations", len(links.ItemLocations)),
		zap.Int("item_homes", len(links.ItemHomes)),
		zap.Int("location_homes", len(links.LocationHomes)),
		zap.Int("item_labels", len(links.ItemLabels)),
		zap.Int("home_policies", len(links.HomePolicies)),
	)
	return links, nil
}

// directPairs projects (Z_PK, fk) for a single foreign key column
func (r *Reader) directPairs(ctx context.Context, table, fk string) ([]records.Pair[int64], error) {
	if !r.caps.HasColumn(table, fk) {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT Z_PK, %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY Z_PK", quote(fk), quote(table))
	return r.pairs(ctx, query)
}

// joinPairs projects (left, right) for a many-to-many table
func (r *Reader) joinPairs(ctx context.Context, jt JoinTable) ([]records.Pair[int64], error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %[1]s IS NOT NULL AND %[2]s IS NOT NULL",
		quote(jt.Left), quote(jt.Right), quote(jt.Name))
	return r.pairs(ctx, query)
}

func (r *Reader) pairs(ctx context.Context, query string) ([]records.Pair[int64], error) {
	rows, err := r.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationship: %w", err)
	}
	defer rows.Close()

	var out []records.Pair[int64]
	for rows.Next() {
		var p records.Pair[int64]
		if err := rows.Scan(&p.From, &p.To); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relationship: %w", err)
	}
	return out, nil
}

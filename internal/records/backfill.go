package records

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/movingbox/movingbox-migrator/internal/logger"
)

// BestHomePolicy decides which home absorbs unlinked rows in the
// pre-normalization shape
type BestHomePolicy struct {
	// PlaceholderName is the name the legacy onboarding gave to auto-created homes
	PlaceholderName string
}

// BestHome picks the first home, in creation order, that looks user-curated:
// a non-placeholder name, an address, or a photo. Without one it picks the most
// recently created home.
func BestHome[K comparable](homes []Home[K], policy BestHomePolicy) (Home[K], bool) {
	if len(homes) == 0 {
		return Home[K]{}, false
	}
	ordered := make([]Home[K], len(homes))
	copy(ordered, homes)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Recency < ordered[j].Recency })

	for _, h := range ordered {
		name := strings.TrimSpace(h.Name)
		if name != "" && !strings.EqualFold(name, policy.PlaceholderName) {
			return h, true
		}
		if strings.TrimSpace(h.Address1) != "" || strings.TrimSpace(h.ImageURL) != "" {
			return h, true
		}
	}
	return ordered[len(ordered)-1], true
}

// Backfill applies the home-link heuristics to the snapshot links:
// an item without a usable home link inherits its location's home, and in the
// pre-normalization shape every location and item is assigned to the best home.
func Backfill[K comparable](ctx context.Context, s *Snapshot[K], policy BestHomePolicy) {
	homeKeys := make(map[K]struct{}, len(s.Homes))
	for _, h := range s.Homes {
		homeKeys[h.Key] = struct{}{}
	}
	locationKeys := make(map[K]struct{}, len(s.Locations))
	for _, l := range s.Locations {
		locationKeys[l.Key] = struct{}{}
	}

	if s.Shape.PreNormalization() {
		best, ok := BestHome(s.Homes, policy)
		if !ok {
			return
		}
		logger.InfoCtx(ctx, "Assigning all locations and items to best home",
			zap.String("home_id", best.ID.String()),
			zap.String("home_name", best.Name),
			zap.Int("homes", len(s.Homes)))

		s.Links.LocationHomes = s.Links.LocationHomes[:0]
		for _, l := range s.Locations {
			s.Links.LocationHomes = append(s.Links.LocationHomes, Pair[K]{From: l.Key, To: best.Key})
			s.Stats.FallbackAssignments++
		}
		s.Links.ItemHomes = s.Links.ItemHomes[:0]
		for _, it := range s.Items {
			s.Links.ItemHomes = append(s.Links.ItemHomes, Pair[K]{From: it.Key, To: best.Key})
			s.Stats.FallbackAssignments++
		}
		return
	}

	locationHome := make(map[K]K, len(s.Links.LocationHomes))
	for _, p := range s.Links.LocationHomes {
		if _, ok := homeKeys[p.To]; ok {
			locationHome[p.From] = p.To
		}
	}
	itemHasHome := make(map[K]struct{}, len(s.Links.ItemHomes))
	for _, p := range s.Links.ItemHomes {
		if _, ok := homeKeys[p.To]; ok {
			itemHasHome[p.From] = struct{}{}
		}
	}

	for _, p := range s.Links.ItemLocations {
		if _, ok := itemHasHome[p.From]; ok {
			continue
		}
		if _, ok := locationKeys[p.To]; !ok {
			continue
		}
		home, ok := locationHome[p.To]
		if !ok {
			continue
		}
		s.Links.ItemHomes = append(s.Links.ItemHomes, Pair[K]{From: p.From, To: home})
		itemHasHome[p.From] = struct{}{}
		s.Stats.BackfilledItemHomes++
	}

	if s.Stats.BackfilledItemHomes > 0 {
		logger.InfoCtx(ctx, "Backfilled item homes from locations", zap.Int("count", s.Stats.BackfilledItemHomes))
	}
}

package legacy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/keymap"
	"github.com/movingbox/movingbox-migrator/internal/legacy/legacytest"
	"github.com/movingbox/movingbox-migrator/internal/records"
)

func openFixture(t *testing.T, f *legacytest.Fixture) *Store {
	t.Helper()
	f.Close()
	s, err := Open(context.Background(), f.Path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProbe(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		shape          legacytest.Shape
		homeLinks      bool
		directLabelFK  bool
		directPolicyFK bool
		itemLabelJoin  bool
		homePolicyJoin bool
	}{
		{shape: legacytest.PreNormalization, directLabelFK: true, directPolicyFK: true},
		{shape: legacytest.DirectFK, homeLinks: true, directLabelFK: true, directPolicyFK: true},
		{shape: legacytest.JoinTables, homeLinks: true, itemLabelJoin: true, homePolicyJoin: true},
	}

	for _, tt := range tests {
		t.Run(tt.shape.String(), func(t *testing.T) {
			s := openFixture(t, legacytest.New(t, t.TempDir(), "default.store", tt.shape))

			assert.True(t, s.TableExists(ctx, TableItem))
			assert.False(t, s.TableExists(ctx, "ZMISSING"))
			assert.True(t, s.ColumnExists(ctx, TableItem, "ZTITLE"))
			assert.False(t, s.ColumnExists(ctx, TableItem, "ZMISSING"))
			assert.False(t, s.ColumnExists(ctx, "ZMISSING", "ZTITLE"))

			shape := s.Probe(ctx).Shape()
			assert.Equal(t, tt.homeLinks, shape.HomeLinks)
			assert.Equal(t, tt.directLabelFK, shape.DirectLabelFK)
			assert.Equal(t, tt.directPolicyFK, shape.DirectPolicyFK)
			assert.Equal(t, tt.itemLabelJoin, shape.ItemLabelJoin)
			assert.Equal(t, tt.homePolicyJoin, shape.HomePolicyJoin)
		})
	}
}

func TestFindJoinTable(t *testing.T) {
	ctx := context.Background()
	s := openFixture(t, legacytest.New(t, t.TempDir(), "default.store", legacytest.JoinTables))

	jt, ok := s.FindJoinTable(ctx, "INVENTORYITEMS", "LABELS")
	require.True(t, ok)
	assert.Equal(t, JoinTable{Name: "Z_5LABELS", Left: "Z_5INVENTORYITEMS", Right: "Z_7LABELS"}, jt)

	jt, ok = s.FindJoinTable(ctx, "HOMES", "INSURANCEPOLICIES")
	require.True(t, ok)
	assert.Equal(t, JoinTable{Name: "Z_3INSURANCEPOLICIES", Left: "Z_3HOMES", Right: "Z_4INSURANCEPOLICIES"}, jt)

	_, ok = s.FindJoinTable(ctx, "HOMES", "LABELS")
	assert.False(t, ok)
}

func TestReadShapes(t *testing.T) {
	ctx := context.Background()

	for _, shape := range []legacytest.Shape{legacytest.PreNormalization, legacytest.DirectFK, legacytest.JoinTables} {
		t.Run(shape.String(), func(t *testing.T) {
			f := legacytest.New(t, t.TempDir(), "default.store", shape)
			fragile := f.AddLabel("Fragile", legacytest.ColorArchive(t, 1, 0.5, 0, 1))
			home := f.AddHome("Lake House", "1 Shore Rd")
			policy := f.AddPolicy("Acme", 500)
			f.LinkHomePolicy(home, policy)
			kitchen := f.AddLocation("Kitchen", home)
			glass := f.AddItem(legacytest.Item{Title: "Glass", Price: 99.99, Location: kitchen, Home: home,
				Photos: legacytest.PhotoList(t, "a.jpg", "b.jpg")})
			f.LinkItemLabel(glass, fragile)

			s := openFixture(t, f)
			keys := keymap.NewResolver[int64]()
			snap, err := NewReader(s, s.Probe(ctx), keys).Read(ctx)
			require.NoError(t, err)

			require.Len(t, snap.Labels, 1)
			require.Len(t, snap.Homes, 1)
			require.Len(t, snap.Policies, 1)
			require.Len(t, snap.Locations, 1)
			require.Len(t, snap.Items, 1)

			item := snap.Items[0]
			assert.Equal(t, "Glass", item.Title)
			assert.Equal(t, "99.99", item.Price.String())
			assert.Equal(t, []string{"a.jpg", "b.jpg"}, item.SecondaryPhotoURLs)
			assert.NotNil(t, item.Attachments)
			require.NotNil(t, item.CreatedAt)

			label := snap.Labels[0]
			require.NotNil(t, label.Color)
			assert.Equal(t, uint32(0xFF8000FF), *label.Color)

			assert.Equal(t, "350000.5", snap.Homes[0].PurchasePrice.String())
			assert.Equal(t, "500", snap.Policies[0].DeductibleAmount.String())

			id, ok := keys.Lookup(domain.EntityItem, glass)
			require.True(t, ok)
			assert.Equal(t, item.ID, id)
			assert.Zero(t, snap.Stats.FabricatedIDs)
			assert.Zero(t, snap.Stats.SkippedColors)

			assert.Contains(t, snap.Links.ItemLocations, pair(glass, kitchen))
			assert.Contains(t, snap.Links.ItemLabels, pair(glass, fragile))
			assert.Contains(t, snap.Links.HomePolicies, pair(home, policy))
			if shape == legacytest.PreNormalization {
				assert.True(t, snap.Shape.PreNormalization())
				assert.Empty(t, snap.Links.ItemHomes)
				assert.Empty(t, snap.Links.LocationHomes)
			} else {
				assert.Contains(t, snap.Links.ItemHomes, pair(glass, home))
				assert.Contains(t, snap.Links.LocationHomes, pair(kitchen, home))
			}
		})
	}
}

func TestReadPartialBlobs(t *testing.T) {
	ctx := context.Background()
	f := legacytest.New(t, t.TempDir(), "default.store", legacytest.DirectFK)
	f.AddLabel("Broken", legacytest.CorruptColor)
	f.AddLabel("Plain", nil)
	f.AddItem(legacytest.Item{Title: "Lamp", Price: 10, Photos: legacytest.MalformedPhotos})

	s := openFixture(t, f)
	snap, err := NewReader(s, s.Probe(ctx), keymap.NewResolver[int64]()).Read(ctx)
	require.NoError(t, err)

	require.Len(t, snap.Labels, 2)
	require.NotNil(t, snap.Labels[0].Color)
	assert.Equal(t, domain.FALLBACK_COLOR_RGBA, *snap.Labels[0].Color)
	assert.Nil(t, snap.Labels[1].Color)
	assert.Equal(t, 1, snap.Stats.SkippedColors)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, []string{}, snap.Items[0].SecondaryPhotoURLs)
	assert.Equal(t, 1, snap.Stats.SkippedArrays)
}

func TestReadIdentifiers(t *testing.T) {
	ctx := context.Background()
	f := legacytest.New(t, t.TempDir(), "default.store", legacytest.DirectFK)
	stored := uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	kept := f.AddItem(legacytest.Item{Title: "Kept", ID: stored[:]})
	text := f.AddItem(legacytest.Item{Title: "Text", ID: []byte("6ba7b810-9dad-11d1-80b4-00c04fd430c8")})
	missing := f.AddItem(legacytest.Item{Title: "Missing", NoID: true})
	garbage := f.AddItem(legacytest.Item{Title: "Garbage", ID: []byte{1, 2, 3}})

	s := openFixture(t, f)
	keys := keymap.NewResolver[int64]()
	snap, err := NewReader(s, s.Probe(ctx), keys).Read(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Items, 4)

	id, _ := keys.Lookup(domain.EntityItem, kept)
	assert.Equal(t, stored, id)
	id, _ = keys.Lookup(domain.EntityItem, text)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id.String())
	for _, key := range []int64{missing, garbage} {
		id, ok := keys.Lookup(domain.EntityItem, key)
		require.True(t, ok)
		assert.NotEqual(t, uuid.Nil, id)
	}
	assert.Equal(t, 2, snap.Stats.FabricatedIDs)
}

func TestReadMissingCoreTable(t *testing.T) {
	ctx := context.Background()
	f := legacytest.New(t, t.TempDir(), "default.store", legacytest.DirectFK)
	f.Exec("DROP TABLE ZINVENTORYITEM")

	s := openFixture(t, f)
	_, err := NewReader(s, s.Probe(ctx), keymap.NewResolver[int64]()).Read(ctx)
	assert.ErrorIs(t, err, domain.ErrMissingCoreTable)
}

func TestHasEntityRows(t *testing.T) {
	ctx := context.Background()

	empty := openFixture(t, legacytest.New(t, t.TempDir(), "default.store", legacytest.JoinTables))
	assert.False(t, empty.HasEntityRows(ctx, empty.Probe(ctx)))

	f := legacytest.New(t, t.TempDir(), "default.store", legacytest.JoinTables)
	f.AddItem(legacytest.Item{Title: "Orphan"})
	s := openFixture(t, f)
	assert.True(t, s.HasEntityRows(ctx, s.Probe(ctx)))
}

func pair(from, to int64) records.Pair[int64] {
	return records.Pair[int64]{From: from, To: to}
}

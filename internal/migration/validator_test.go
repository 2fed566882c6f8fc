package migration

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movingbox/movingbox-migrator/internal/domain"
	"github.com/movingbox/movingbox-migrator/internal/mocks"
	"github.com/movingbox/movingbox-migrator/internal/store"
	"github.com/movingbox/movingbox-migrator/internal/store/schema"
)

func TestValidatorCheckSource(t *testing.T) {
	v := NewValidator(nil)
	withHome := &store.Batch{Homes: []schema.Home{{ID: "h"}}}

	assert.NoError(t, v.CheckSource(false, &store.Batch{}))
	assert.NoError(t, v.CheckSource(true, withHome))
	assert.ErrorIs(t, v.CheckSource(true, &store.Batch{Items: []schema.InventoryItem{{ID: "i"}}}), domain.ErrZeroHomes)
}

func TestValidatorValidate(t *testing.T) {
	ctx := context.Background()
	expected := store.TableCounts{"homes": 1, "inventory_items": 2}

	tests := []struct {
		name       string
		actual     store.TableCounts
		violations []store.Violation
		wantErr    error
	}{
		{
			name:   "valid",
			actual: store.TableCounts{"homes": 1, "inventory_items": 2},
		},
		{
			name:    "count mismatch",
			actual:  store.TableCounts{"homes": 1, "inventory_items": 1},
			wantErr: domain.ErrCountMismatch,
		},
		{
			name:   "dangling foreign key",
			actual: store.TableCounts{"homes": 1, "inventory_items": 2},
			violations: []store.Violation{
				{Table: "inventory_items", Column: "home_id", References: "homes", Count: 2},
			},
			wantErr: domain.ErrReferentialIntegrity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			target := mocks.NewMockStore(ctrl)
			target.EXPECT().CountRows(gomock.Any()).Return(tt.actual, nil)
			if tt.wantErr != domain.ErrCountMismatch {
				target.EXPECT().ForeignKeyViolations(gomock.Any()).Return(tt.violations, nil)
			}

			err := NewValidator(target).Validate(ctx, expected)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

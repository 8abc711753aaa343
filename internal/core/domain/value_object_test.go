package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentAmount(t *testing.T) {
	assetID := uuid.New()
	owner := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		amount    uint64
		unit      uint64
		wantCount int
		wantLast  uint64
	}{
		{name: "zero amount", amount: 0, unit: 100, wantCount: 0},
		{name: "below unit", amount: 40, unit: 100, wantCount: 1, wantLast: 40},
		{name: "exact multiple", amount: 300, unit: 100, wantCount: 3, wantLast: 100},
		{name: "remainder", amount: 250, unit: 100, wantCount: 3, wantLast: 50},
		{name: "unit of one", amount: 5, unit: 1, wantCount: 5, wantLast: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.FragmentAmount(tt.amount, tt.unit, assetID, owner, nil, now)
			require.Len(t, got, tt.wantCount)

			var sum uint64
			for _, vo := range got {
				assert.LessOrEqual(t, vo.Amount, tt.unit)
				assert.Positive(t, vo.Amount)
				assert.Equal(t, domain.StateAlive, vo.State)
				assert.Equal(t, owner, vo.Owner)
				assert.Equal(t, assetID, vo.AssetID)
				assert.Nil(t, vo.ReservedFor)
				sum += vo.Amount
			}
			assert.Equal(t, tt.amount, sum)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantLast, got[len(got)-1].Amount)
			}
		})
	}
}

func TestFragmentAmount_Reserved(t *testing.T) {
	authority := uuid.New()
	got := domain.FragmentAmount(150, 100, uuid.New(), authority, &authority, time.Now())

	require.Len(t, got, 2)
	for _, vo := range got {
		assert.Equal(t, domain.StateReserved, vo.State)
		require.NotNil(t, vo.ReservedFor)
		assert.Equal(t, authority, *vo.ReservedFor)
	}
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestValueObjectState_CanTransitionTo(t *testing.T) {
	assert.True(t, domain.StateAlive.CanTransitionTo(domain.StateBurned))
	assert.True(t, domain.StateAlive.CanTransitionTo(domain.StateReserved))
	assert.True(t, domain.StateReserved.CanTransitionTo(domain.StateBurned))
	assert.False(t, domain.StateReserved.CanTransitionTo(domain.StateAlive))
	assert.False(t, domain.StateBurned.CanTransitionTo(domain.StateAlive))
	assert.False(t, domain.StateBurned.CanTransitionTo(domain.StateReserved))
}

func TestCoinCursor_After(t *testing.T) {
	low := uuid.MustParse("00000000-0000-7000-8000-000000000001")
	high := uuid.MustParse("00000000-0000-7000-8000-000000000002")
	cursor := domain.CursorOf(domain.ValueObject{ID: low, Amount: 10})

	assert.False(t, cursor.After(domain.ValueObject{ID: low, Amount: 10}))
	assert.True(t, cursor.After(domain.ValueObject{ID: high, Amount: 10}))
	assert.True(t, cursor.After(domain.ValueObject{ID: low, Amount: 11}))
	assert.False(t, cursor.After(domain.ValueObject{ID: high, Amount: 9}))

	assert.True(t, domain.LessForSelection(domain.ValueObject{ID: high, Amount: 1}, domain.ValueObject{ID: low, Amount: 2}))
	assert.True(t, domain.LessForSelection(domain.ValueObject{ID: low, Amount: 2}, domain.ValueObject{ID: high, Amount: 2}))
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/affiliate_backend/models"
)

func TestDefaultTierTable(t *testing.T) {
	table := DefaultTierTable()
	assert.Equal(t, models.MaxLevel, table.MaxLevel())

	first, err := table.RequiredFor(1)
	require.NoError(t, err)
	assert.Equal(t, models.Naira(5_000_000), first.TeamRevenueThreshold)
	assert.Equal(t, models.Naira(10_000), first.PayoutAmount)

	for _, level := range []int{0, -1, table.MaxLevel() + 1} {
		_, err := table.RequiredFor(level)
		assert.ErrorIs(t, err, ErrLevelOutOfRange, "level %d", level)
	}
}

func TestNewTierTableValidates(t *testing.T) {
	tests := []struct {
		name  string
		tiers []models.TierRequirement
	}{
		{"empty", nil},
		{"gap", []models.TierRequirement{
			{Level: 1, TeamRevenueThreshold: 10, PayoutAmount: 1},
			{Level: 3, TeamRevenueThreshold: 20, PayoutAmount: 1},
		}},
		{"not increasing", []models.TierRequirement{
			{Level: 1, TeamRevenueThreshold: 10, PayoutAmount: 1},
			{Level: 2, TeamRevenueThreshold: 10, PayoutAmount: 1},
		}},
		{"zero payout", []models.TierRequirement{
			{Level: 1, TeamRevenueThreshold: 10, PayoutAmount: 0},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTierTable(tt.tiers)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

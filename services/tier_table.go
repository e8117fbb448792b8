package services

import (
	"fmt"

	"github.com/HSouheill/affiliate_backend/models"
)

// TierTableVersion identifies the payout schedule below.
const TierTableVersion = "2024.1"

var defaultTiers = []models.TierRequirement{
	{Level: 1, TeamRevenueThreshold: models.Naira(5_000_000), PayoutAmount: models.Naira(10_000)},
	{Level: 2, TeamRevenueThreshold: models.Naira(10_000_000), PayoutAmount: models.Naira(25_000)},
	{Level: 3, TeamRevenueThreshold: models.Naira(20_000_000), PayoutAmount: models.Naira(50_000)},
	{Level: 4, TeamRevenueThreshold: models.Naira(35_000_000), PayoutAmount: models.Naira(100_000)},
	{Level: 5, TeamRevenueThreshold: models.Naira(50_000_000), PayoutAmount: models.Naira(150_000)},
	{Level: 6, TeamRevenueThreshold: models.Naira(75_000_000), PayoutAmount: models.Naira(250_000)},
	{Level: 7, TeamRevenueThreshold: models.Naira(100_000_000), PayoutAmount: models.Naira(400_000)},
	{Level: 8, TeamRevenueThreshold: models.Naira(150_000_000), PayoutAmount: models.Naira(600_000)},
	{Level: 9, TeamRevenueThreshold: models.Naira(200_000_000), PayoutAmount: models.Naira(800_000)},
	{Level: 10, TeamRevenueThreshold: models.Naira(300_000_000), PayoutAmount: models.Naira(1_000_000)},
}

// TierTable is an immutable, validated level schedule.
type TierTable struct {
	tiers []models.TierRequirement
}

// NewTierTable validates that levels run 1..n without gaps and thresholds
// strictly increase with level.
func NewTierTable(tiers []models.TierRequirement) (*TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: empty tier table", ErrInvalidInput)
	}
	out := make([]models.TierRequirement, len(tiers))
	for i, t := range tiers {
		if t.Level != i+1 {
			return nil, fmt.Errorf("%w: tier %d has level %d", ErrInvalidInput, i+1, t.Level)
		}
		if t.TeamRevenueThreshold <= 0 || t.PayoutAmount <= 0 {
			return nil, fmt.Errorf("%w: tier %d has non-positive amounts", ErrInvalidInput, t.Level)
		}
		if i > 0 && t.TeamRevenueThreshold <= tiers[i-1].TeamRevenueThreshold {
			return nil, fmt.Errorf("%w: tier %d threshold does not increase", ErrInvalidInput, t.Level)
		}
		out[i] = t
	}
	return &TierTable{tiers: out}, nil
}

// DefaultTierTable returns the production schedule.
func DefaultTierTable() *TierTable {
	table, err := NewTierTable(defaultTiers)
	if err != nil {
		panic(err)
	}
	return table
}

func (t *TierTable) MaxLevel() int {
	return len(t.tiers)
}

// RequiredFor returns the requirement for level, rejecting levels outside [1, MaxLevel].
func (t *TierTable) RequiredFor(level int) (models.TierRequirement, error) {
	if level < 1 || level > len(t.tiers) {
		return models.TierRequirement{}, fmt.Errorf("%w: %d not in [1, %d]", ErrLevelOutOfRange, level, len(t.tiers))
	}
	return t.tiers[level-1], nil
}

func (t *TierTable) All() []models.TierRequirement {
	out := make([]models.TierRequirement, len(t.tiers))
	copy(out, t.tiers)
	return out
}

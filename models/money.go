package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (kobo). Revenue fields are stored as
// int64 so the ledger can $inc them without float drift.
type Money int64

const minorUnitsPerMajor = 100

var ErrInvalidAmount = errors.New("amount must be a positive value with at most two decimal places")

// MaxAmount caps a single sale (₦1 trillion) so revenue sums stay inside int64.
const MaxAmount = Money(1_000_000_000_000 * minorUnitsPerMajor)

var (
	hundred      = decimal.NewFromInt(minorUnitsPerMajor)
	maxAmount    = decimal.NewFromInt(int64(MaxAmount))
	maxMinorUnit = decimal.NewFromInt(math.MaxInt64)
)

// NewMoneyFromMajor converts a major-unit amount (e.g. 200000.50 naira) into Money.
func NewMoneyFromMajor(amount float64) (Money, error) {
	d := decimal.NewFromFloat(amount)
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	minor := d.Mul(hundred)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, ErrInvalidAmount
	}
	if minor.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("%w: above %s", ErrInvalidAmount, MaxAmount)
	}
	return Money(minor.IntPart()), nil
}

// Naira builds Money from a whole-naira amount.
func Naira(n int64) Money {
	return Money(n * minorUnitsPerMajor)
}

// Decimal returns the major-unit value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return "₦" + m.Decimal().StringFixed(2)
}

// MarshalJSON renders the major-unit value as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid money value %s: %w", data, err)
	}
	minor := d.Mul(hundred).Round(0)
	if minor.Abs().GreaterThan(maxMinorUnit) {
		return fmt.Errorf("money value %s out of range", data)
	}
	*m = Money(minor.IntPart())
	return nil
}

// Float64 returns the major-unit value for loosely typed payloads.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

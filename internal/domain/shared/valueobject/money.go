package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	CNY Currency = "CNY"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = CNY

// minorUnitScale is the number of decimal places in one currency unit.
// All arithmetic happens on int64 minor units (cents); decimals appear
// only at the display boundary.
const minorUnitScale = 2

// Money is a value object representing a monetary amount in integer minor
// currency units (cents). It is immutable - all operations return new
// Money instances. Integer arithmetic avoids the rounding drift that
// floating point or repeated decimal division would introduce.
type Money struct {
	minor    int64
	currency Currency
}

// NewMoney creates Money from an amount in minor units (cents)
func NewMoney(minorUnits int64, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{minor: minorUnits, currency: currency}, nil
}

// NewMoneyCents creates Money in the default currency from minor units
func NewMoneyCents(minorUnits int64) Money {
	return Money{minor: minorUnits, currency: DefaultCurrency}
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{minor: 0, currency: currency}
}

// ZeroCents returns a zero-value Money in the default currency
func ZeroCents() Money {
	return Money{minor: 0, currency: DefaultCurrency}
}

// MinorUnits returns the amount in minor units (cents)
func (m Money) MinorUnits() int64 {
	return m.minor
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// Decimal returns the amount in major units for display and reporting
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.minor, -minorUnitScale)
}

// Add returns the sum of two Money values
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// Sub returns the difference of two Money values
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return Money{minor: m.minor - other.minor, currency: m.currency}, nil
}

// MulQuantity returns the Money scaled by an integer quantity
func (m Money) MulQuantity(quantity int64) Money {
	return Money{minor: m.minor * quantity, currency: m.currency}
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.minor == 0
}

// IsNegative reports whether the amount is negative
func (m Money) IsNegative() bool {
	return m.minor < 0
}

// String returns a human-readable representation, e.g. "12.34 CNY"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(minorUnitScale), m.currency)
}

// DivideRoundHalfUp divides a minor-unit total by an integer quantity using
// round-half-up, returning the per-unit amount and the remainder
// (total - unit*quantity). The remainder is what the rounding gained or lost;
// callers accumulate it so drift never exceeds one minor unit.
// quantity must be positive.
func DivideRoundHalfUp(totalMinor, quantity int64) (unitMinor, remainder int64) {
	if quantity <= 0 {
		return 0, totalMinor
	}
	if totalMinor >= 0 {
		unitMinor = (totalMinor + quantity/2) / quantity
	} else {
		unitMinor = -((-totalMinor + quantity/2) / quantity)
	}
	return unitMinor, totalMinor - unitMinor*quantity
}

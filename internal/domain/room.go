package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RoomCategory struct {
	ID          int64
	Name        string
	Description *string
}

type Room struct {
	ID              int64
	Number          string
	BasePrice       decimal.Decimal
	Available       bool
	SeasonalRate    *decimal.Decimal // additive, may be negative
	Multiplier      *decimal.Decimal // multiplicative, nil means 1
	LastPriceUpdate time.Time
	CategoryID      int64
}

// RoomPriceChange lists pricing columns to overwrite; nil fields are kept.
type RoomPriceChange struct {
	BasePrice    *decimal.Decimal
	SeasonalRate *decimal.Decimal
	Multiplier   *decimal.Decimal
	At           time.Time // last_price_update
}

// Stored scales of money and multipliers.
const (
	MoneyScale      = 2
	MultiplierScale = 4
)

// FitsScale reports whether d has no more than places fractional digits.
func FitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

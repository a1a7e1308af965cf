package utils

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyPrice is returned when there is nothing to parse.
var ErrEmptyPrice = errors.New("empty price")

// DealCommissionRate is the share of the property price booked as deal value.
var DealCommissionRate = decimal.RequireFromString("0.05")

// Price tier labels, highest band first.
const (
	TierAbove2M    = "above 2M"
	Tier1_5MTo2M   = "1.5M–2M"
	Tier1MTo1_5M   = "1M–1.5M"
	Tier750KTo1M   = "750K–1M"
	Tier600KTo750K = "600K–750K"
	TierUpTo600K   = "up to 600K"
)

type priceTier struct {
	min   decimal.Decimal
	label string
}

// Evaluated top to bottom; the first band whose lower bound is reached wins.
var priceTiers = []priceTier{
	{decimal.NewFromInt(2_000_000), TierAbove2M},
	{decimal.NewFromInt(1_500_000), Tier1_5MTo2M},
	{decimal.NewFromInt(1_000_000), Tier1MTo1_5M},
	{decimal.NewFromInt(750_000), Tier750KTo1M},
	{decimal.NewFromInt(600_000), Tier600KTo750K},
	{decimal.Zero, TierUpTo600K},
}

// Round2 rounds x to 2 decimal places.
func Round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// ParseLocalePrice parses a price written with "." as thousands separator and
// "," as decimal separator ("1.200.000,50"). A leading "R$" is tolerated.
func ParseLocalePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return decimal.Zero, ErrEmptyPrice
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

// FormatLocalePrice renders price with no decimals and "." between thousands,
// the inverse of ParseLocalePrice for whole amounts.
func FormatLocalePrice(price decimal.Decimal) string {
	digits := price.Round(0).Abs().StringFixed(0)

	var b strings.Builder
	if price.Round(0).IsNegative() {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// PriceTier classifies a locale-formatted price into its marketing band.
// Empty, unparsable and non-positive prices have no tier.
func PriceTier(price string) (string, bool) {
	value, err := ParseLocalePrice(price)
	if err != nil || !value.IsPositive() {
		return "", false
	}
	for _, tier := range priceTiers {
		if value.GreaterThanOrEqual(tier.min) {
			return tier.label, true
		}
	}
	return "", false
}

// DealValue is the commission booked on a property inquiry deal. ok is false
// when the price cannot be parsed, in which case no value should be sent.
func DealValue(price string) (value decimal.Decimal, ok bool) {
	parsed, err := ParseLocalePrice(price)
	if err != nil {
		return decimal.Zero, false
	}
	return Round2(parsed.Mul(DealCommissionRate)), true
}

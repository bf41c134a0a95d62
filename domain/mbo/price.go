package mbo

import "github.com/shopspring/decimal"

// PriceDecimal converts a fixed-point price into a decimal.
func PriceDecimal(px int64) decimal.Decimal {
	return decimal.New(px, -9)
}

// FormatPrice renders a fixed-point price with two decimals, or "UNDEF".
func FormatPrice(px int64) string {
	if px == UndefPrice {
		return "UNDEF"
	}
	return PriceDecimal(px).StringFixed(2)
}

// ParsePrice converts a decimal string such as "101.25" into fixed-point units.
func ParsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Shift(9).Round(0).IntPart(), nil
}

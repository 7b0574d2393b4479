package models

import "github.com/shopspring/decimal"

var minorUnitsPerMajor = decimal.NewFromInt(100)

// MinorToMajor converts an amount in minor currency units (cents) to major
// units rounded to 2 decimal places, half away from zero.
func MinorToMajor(minor decimal.Decimal) decimal.Decimal {
	return minor.Div(minorUnitsPerMajor).Round(2)
}

// MinorToMajorFloat is MinorToMajor for JSON payloads
func MinorToMajorFloat(minor decimal.Decimal) float64 {
	return MinorToMajor(minor).InexactFloat64()
}

// LineTotal returns unit price times quantity in major units
func LineTotal(unitMinor decimal.Decimal, qty int) float64 {
	return MinorToMajor(unitMinor).Mul(decimal.NewFromInt(int64(qty))).Round(2).InexactFloat64()
}

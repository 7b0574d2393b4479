package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestKeyForLineItem(t *testing.T) {
	tests := []struct {
		name       string
		lineItemID string
		sku        *string
		expected   SKUKey
		display    string
	}{
		{"real sku", "li_1", strPtr("ABC"), RealSKU("ABC"), "ABC"},
		{"trimmed sku", "li_1", strPtr("  ABC "), RealSKU("ABC"), "ABC"},
		{"nil sku", "li_2", nil, SyntheticSKU("li_2"), "item_li_2"},
		{"blank sku", "li_3", strPtr("   "), SyntheticSKU("li_3"), "item_li_3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := KeyForLineItem(tt.lineItemID, tt.sku)
			assert.Equal(t, tt.expected, key)
			assert.Equal(t, tt.display, key.String())
		})
	}
}

func TestSKUKey_RealNeverCollidesWithSynthetic(t *testing.T) {
	realKey := RealSKU("item_42")
	synthetic := SyntheticSKU("42")

	assert.Equal(t, realKey.String(), synthetic.String())
	assert.NotEqual(t, realKey, synthetic)

	summary := ReturnSummary{}
	summary.Add(realKey, 2, nil)
	assert.Equal(t, 2, summary.Returned(realKey))
	assert.Equal(t, 0, summary.Returned(synthetic))
}

func TestParseSyntheticSKU(t *testing.T) {
	id, ok := ParseSyntheticSKU("item_99")
	assert.True(t, ok)
	assert.Equal(t, "99", id)

	_, ok = ParseSyntheticSKU("item_")
	assert.False(t, ok)

	_, ok = ParseSyntheticSKU("ABC")
	assert.False(t, ok)
}

func TestReturnAggregate_Key(t *testing.T) {
	assert.Equal(t, SyntheticSKU("7"), ReturnAggregate{SKU: "item_7", SKUKind: SKUKindSynthetic}.Key())
	assert.Equal(t, RealSKU("item_7"), ReturnAggregate{SKU: "item_7", SKUKind: SKUKindReal}.Key())
	assert.Equal(t, RealSKU("ABC"), ReturnAggregate{SKU: "ABC"}.Key())
}

func TestReturnSummary_Add(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(48 * time.Hour)
	key := RealSKU("ABC")

	summary := ReturnSummary{}
	summary.Add(key, 1, &later)
	summary.Add(key, 2, &earlier)

	assert.Equal(t, 3, summary.Returned(key))
	assert.Equal(t, later, *summary[key].LastReturnedAt)
}

func TestMinorToMajor(t *testing.T) {
	tests := []struct {
		minor    string
		expected string
	}{
		{"1000", "10"},
		{"1999", "19.99"},
		{"5", "0.05"},
		{"0.5", "0.01"},    // 0.005 rounds half away from zero
		{"-0.5", "-0.01"},  // and symmetrically for negatives
		{"12.345", "0.12"}, // 0.12345
		{"0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.minor, func(t *testing.T) {
			got := MinorToMajor(decimal.RequireFromString(tt.minor))
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, 50.0, LineTotal(decimal.NewFromInt(1000), 5))
	assert.Equal(t, 59.97, LineTotal(decimal.NewFromInt(1999), 3))
	assert.Equal(t, 0.0, LineTotal(decimal.NewFromInt(1000), 0))
}

func TestOrderStatus_AllowsReturns(t *testing.T) {
	assert.True(t, OrderStatusInvoiced.AllowsReturns())
	assert.False(t, OrderStatusPending.AllowsReturns())
	assert.False(t, OrderStatusComplete.AllowsReturns())
	assert.False(t, OrderStatusCanceled.AllowsReturns())
}

func TestOrderAddress_FullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&OrderAddress{FirstName: strPtr("Ada"), LastName: strPtr("Lovelace")}).FullName())
	assert.Equal(t, "Ada", (&OrderAddress{FirstName: strPtr("Ada")}).FullName())
	assert.Equal(t, "Lovelace", (&OrderAddress{FirstName: strPtr(""), LastName: strPtr("Lovelace")}).FullName())
	assert.Equal(t, "", (*OrderAddress)(nil).FullName())
}

package models

import "strings"

// SKUKind discriminates real catalog SKUs from keys synthesized for line
// items that carry no SKU
type SKUKind string

const (
	SKUKindReal      SKUKind = "sku"
	SKUKindSynthetic SKUKind = "line_item"
)

const syntheticSKUPrefix = "item_"

// SKUKey identifies a returnable unit within an order.
// Keys compare by (Kind, Value), so a real SKU spelled like a synthetic key
// never collides with one.
type SKUKey struct {
	Kind  SKUKind
	Value string
}

// RealSKU builds a key for a catalog SKU
func RealSKU(sku string) SKUKey {
	return SKUKey{Kind: SKUKindReal, Value: sku}
}

// SyntheticSKU builds a key for a line item without a SKU
func SyntheticSKU(lineItemID string) SKUKey {
	return SKUKey{Kind: SKUKindSynthetic, Value: lineItemID}
}

// KeyForLineItem applies the fallback rule: the trimmed SKU when present,
// otherwise a synthetic key derived from the line item id.
func KeyForLineItem(lineItemID string, sku *string) SKUKey {
	if sku != nil {
		if trimmed := strings.TrimSpace(*sku); trimmed != "" {
			return RealSKU(trimmed)
		}
	}
	return SyntheticSKU(lineItemID)
}

// ParseSyntheticSKU extracts the line item id from an "item_<id>" string
func ParseSyntheticSKU(raw string) (string, bool) {
	id, ok := strings.CutPrefix(raw, syntheticSKUPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// String returns the display form used in API payloads and the ledger's sku column
func (k SKUKey) String() string {
	if k.Kind == SKUKindSynthetic {
		return syntheticSKUPrefix + k.Value
	}
	return k.Value
}

// IsSynthetic reports whether the key was derived from a line item id
func (k SKUKey) IsSynthetic() bool {
	return k.Kind == SKUKindSynthetic
}

package services

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnRequestInput_FieldAliases(t *testing.T) {
	body := `{
		"customer_email": "",
		"email": " a@x.com ",
		"order_id": 1001,
		"products": [
			{"skuId": "", "sku": "ABC", "sku_id": "ZZZ", "quantity": "3"},
			{"sku_id": 77, "qty": null, "return_qty": 2.8}
		],
		"remark": "wrong size"
	}`

	var in ReturnRequestInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	assert.Equal(t, "a@x.com", in.RequesterEmail())
	assert.Equal(t, "1001", in.Order())
	require.Len(t, in.Products, 2)

	assert.Equal(t, "ABC", in.Products[0].RawSKU())
	qty, ok := in.Products[0].RequestedQty()
	assert.True(t, ok)
	assert.Equal(t, 3.0, qty)

	assert.Equal(t, "77", in.Products[1].RawSKU())
	qty, ok = in.Products[1].RequestedQty()
	assert.True(t, ok)
	assert.Equal(t, 2.8, qty)

	require.NotNil(t, in.remarks())
	assert.Equal(t, "wrong size", *in.remarks())
}

func TestFlexNumber(t *testing.T) {
	tests := []struct {
		raw     string
		present bool
		value   float64
		nan     bool
	}{
		{`5`, true, 5, false},
		{`"4"`, true, 4, false},
		{`" 2.5 "`, true, 2.5, false},
		{`""`, true, 0, false},
		{`"abc"`, true, 0, true},
		{`true`, true, 0, true},
		{`null`, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var p struct {
				Qty FlexNumber `json:"qty"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"qty":`+tt.raw+`}`), &p))
			assert.Equal(t, tt.present, p.Qty.Present)
			if tt.nan {
				assert.True(t, math.IsNaN(p.Qty.Value))
				return
			}
			assert.Equal(t, tt.value, p.Qty.Value)
		})
	}
}

func TestCheckReturnInput_Aliases(t *testing.T) {
	var in CheckReturnInput
	require.NoError(t, json.Unmarshal([]byte(`{"customer_email":"c@x.com","email":"e@x.com","orderId":"O1","order_id":"O2"}`), &in))
	assert.Equal(t, "c@x.com", in.RequesterEmail())
	assert.Equal(t, "O1", in.Order())

	in = CheckReturnInput{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &in))
	assert.Empty(t, in.RequesterEmail())
	assert.Empty(t, in.Order())
}

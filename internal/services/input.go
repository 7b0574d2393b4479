package services

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string or number. Storefront clients are not
// consistent about quoting identifiers.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// FlexNumber accepts a JSON number or a numeric string. Anything else that
// is not null decodes as present but NaN so validation can reject it.
type FlexNumber struct {
	Value   float64
	Present bool
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	n.Present = true
	n.Value = math.NaN()

	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			n.Value = 0
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			n.Value = v
		}
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err == nil {
			n.Value = v
		}
	}
	return nil
}

// Num builds a present FlexNumber
func Num(v float64) FlexNumber {
	return FlexNumber{Value: v, Present: true}
}

func firstNonEmpty(values ...FlexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

func firstPresent(values ...FlexNumber) (float64, bool) {
	for _, v := range values {
		if v.Present {
			return v.Value, true
		}
	}
	return 0, false
}

// CheckReturnInput is the body of POST /rest/V1/checkOrderReturn
type CheckReturnInput struct {
	CustomerEmail FlexString `json:"customer_email"`
	Email         FlexString `json:"email"`
	OrderID       FlexString `json:"orderId"`
	OrderIDAlt    FlexString `json:"order_id"`
}

// RequesterEmail returns the first non-empty email field
func (in CheckReturnInput) RequesterEmail() string {
	return firstNonEmpty(in.CustomerEmail, in.Email)
}

// Order returns the first non-empty order id field
func (in CheckReturnInput) Order() string {
	return firstNonEmpty(in.OrderID, in.OrderIDAlt)
}

// ReturnProductInput is one requested product line
type ReturnProductInput struct {
	SKUID     FlexString `json:"skuId"`
	SKU       FlexString `json:"sku"`
	SKUIDAlt  FlexString `json:"sku_id"`
	Qty       FlexNumber `json:"qty"`
	Quantity  FlexNumber `json:"quantity"`
	ReturnQty FlexNumber `json:"return_qty"`
}

// RawSKU returns the first non-empty SKU field
func (p ReturnProductInput) RawSKU() string {
	return firstNonEmpty(p.SKUID, p.SKU, p.SKUIDAlt)
}

// RequestedQty returns the first present quantity field
func (p ReturnProductInput) RequestedQty() (float64, bool) {
	return firstPresent(p.Qty, p.Quantity, p.ReturnQty)
}

// ReturnRequestInput is the body of POST /rest/V1/requestOrderReturn
type ReturnRequestInput struct {
	CustomerEmail FlexString           `json:"customer_email"`
	Email         FlexString           `json:"email"`
	OrderID       FlexString           `json:"orderId"`
	OrderIDAlt    FlexString           `json:"order_id"`
	Products      []ReturnProductInput `json:"products"`
	Remark        *string              `json:"remark"`
}

// RequesterEmail returns the first non-empty email field
func (in ReturnRequestInput) RequesterEmail() string {
	return firstNonEmpty(in.CustomerEmail, in.Email)
}

// Order returns the first non-empty order id field
func (in ReturnRequestInput) Order() string {
	return firstNonEmpty(in.OrderID, in.OrderIDAlt)
}

func (in ReturnRequestInput) remarks() *string {
	if in.Remark == nil {
		return nil
	}
	r := strings.TrimSpace(*in.Remark)
	if r == "" {
		return nil
	}
	return &r
}

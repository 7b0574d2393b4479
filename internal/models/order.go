package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the lifecycle status of an order as written by the
// commerce platform's order pipeline
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusInvoiced       OrderStatus = "invoiced" // Only state in which returns may be requested
	OrderStatusComplete       OrderStatus = "complete"
	OrderStatusCanceled       OrderStatus = "canceled"
	OrderStatusRequiresAction OrderStatus = "requires_action"
)

// AllowsReturns reports whether return requests may be recorded against the order
func (s OrderStatus) AllowsReturns() bool {
	return s == OrderStatusInvoiced
}

// Order is a read-only view of the platform's "order" table.
// The order pipeline owns these rows; this service never writes them.
type Order struct {
	ID                string         `json:"id" gorm:"column:id;primaryKey"`
	Email             string         `json:"email" gorm:"column:email"`
	Status            OrderStatus    `json:"status" gorm:"column:status"`
	BillingAddressID  *string        `json:"billing_address_id" gorm:"column:billing_address_id"`
	ShippingAddressID *string        `json:"shipping_address_id" gorm:"column:shipping_address_id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// OrderItem links an order to a line item and carries the ordered quantity
type OrderItem struct {
	ID        string         `json:"id" gorm:"column:id;primaryKey"`
	OrderID   string         `json:"order_id" gorm:"column:order_id"`
	ItemID    string         `json:"item_id" gorm:"column:item_id"`
	Quantity  int            `json:"quantity" gorm:"column:quantity"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// OrderLineItem is the joined order_item/order_line_item projection used by
// the returns flow. UnitPrice is stored in minor currency units.
type OrderLineItem struct {
	LineItemID string          `json:"line_item_id" gorm:"column:line_item_id"`
	SKU        *string         `json:"sku" gorm:"column:sku"`
	Title      string          `json:"title" gorm:"column:title"`
	Thumbnail  *string         `json:"thumbnail" gorm:"column:thumbnail"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"column:unit_price"`
	Quantity   int             `json:"quantity" gorm:"column:quantity"`
}

// Key returns the effective SKU identifier of the line item
func (li OrderLineItem) Key() SKUKey {
	return KeyForLineItem(li.LineItemID, li.SKU)
}

// OrderAddress is a read-only view of billing/shipping addresses
type OrderAddress struct {
	ID        string         `json:"id" gorm:"column:id;primaryKey"`
	FirstName *string        `json:"first_name" gorm:"column:first_name"`
	LastName  *string        `json:"last_name" gorm:"column:last_name"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// FullName joins the non-empty name parts of the address
func (a *OrderAddress) FullName() string {
	if a == nil {
		return ""
	}
	name := ""
	for _, part := range []*string{a.FirstName, a.LastName} {
		if part == nil || *part == "" {
			continue
		}
		if name != "" {
			name += " "
		}
		name += *part
	}
	return name
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "order"
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_item"
}

// TableName specifies the table name for OrderAddress
func (OrderAddress) TableName() string {
	return "order_address"
}

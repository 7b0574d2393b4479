package models

import "time"

// ReturnStatus represents the review status of a ledger entry.
// New entries are always Pending; later transitions belong to the admin workflow.
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "Pending"
	ReturnStatusApproved ReturnStatus = "Approved"
	ReturnStatusRejected ReturnStatus = "Rejected"
)

// ReturnLedgerEntry is one accepted return line. The table is append-only
// from this service's point of view.
type ReturnLedgerEntry struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	OrderID      string       `json:"order_id" gorm:"type:varchar(255);not null;index:idx_order_return_order_sku"`
	UserName     string       `json:"user_name" gorm:"type:varchar(255)"`
	UserEmail    string       `json:"user_email" gorm:"type:varchar(255);not null"`
	SKU          string       `json:"sku" gorm:"column:sku;type:varchar(255);not null;index:idx_order_return_order_sku"`
	SKUKind      SKUKind      `json:"sku_kind" gorm:"column:sku_kind;type:varchar(20);not null;default:'sku'"`
	ProductName  string       `json:"product_name" gorm:"type:varchar(500)"`
	Qty          int          `json:"qty" gorm:"not null"`
	Price        float64      `json:"price" gorm:"type:numeric(12,2)"` // Major currency units
	OrderStatus  OrderStatus  `json:"order_status" gorm:"type:varchar(50)"`
	ReturnStatus ReturnStatus `json:"return_status" gorm:"type:varchar(50);not null"`
	Remarks      *string      `json:"remarks" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for ReturnLedgerEntry
func (ReturnLedgerEntry) TableName() string {
	return "redington_order_return"
}

// Key returns the SKU identifier recorded on the entry.
// Rows written before sku_kind existed carry the column default and read as real SKUs.
func (e ReturnLedgerEntry) Key() SKUKey {
	return ledgerKey(e.SKU, e.SKUKind)
}

// ReturnAggregate is one grouped row of the ledger for an order
type ReturnAggregate struct {
	SKU            string     `gorm:"column:sku"`
	SKUKind        SKUKind    `gorm:"column:sku_kind"`
	Qty            int        `gorm:"column:qty"`
	LastReturnedAt *time.Time `gorm:"column:last_returned_at"`
}

// Key returns the SKU identifier of the grouped rows
func (a ReturnAggregate) Key() SKUKey {
	return ledgerKey(a.SKU, a.SKUKind)
}

func ledgerKey(sku string, kind SKUKind) SKUKey {
	if kind == SKUKindSynthetic {
		if id, ok := ParseSyntheticSKU(sku); ok {
			return SyntheticSKU(id)
		}
	}
	return RealSKU(sku)
}

// ReturnedQuantity is the cumulative returned quantity for one SKU
type ReturnedQuantity struct {
	Qty            int        `json:"qty"`
	LastReturnedAt *time.Time `json:"last_returned_at"`
}

// ReturnSummary maps each SKU to what has already been returned.
// It is derived from the ledger on every read and never persisted.
type ReturnSummary map[SKUKey]*ReturnedQuantity

// Returned gives the cumulative quantity for key, zero when nothing was returned
func (s ReturnSummary) Returned(key SKUKey) int {
	if q, ok := s[key]; ok {
		return q.Qty
	}
	return 0
}

// Add folds qty returned at the given time into the summary
func (s ReturnSummary) Add(key SKUKey, qty int, at *time.Time) {
	q, ok := s[key]
	if !ok {
		q = &ReturnedQuantity{}
		s[key] = q
	}
	q.Qty += qty
	if at != nil && (q.LastReturnedAt == nil || at.After(*q.LastReturnedAt)) {
		t := *at
		q.LastReturnedAt = &t
	}
}

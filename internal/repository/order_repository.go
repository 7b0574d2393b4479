package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"returns-service/internal/models"
)

// Line items do not change once an order is placed, so they are safe to cache.
// Order rows are never cached because their status moves.
const LineItemCacheTTL = 10 * time.Minute

func lineItemCacheKey(orderID string) string {
	return "returns:order-items:" + orderID
}

// GetOrder retrieves a non-deleted order by ID
func (r *ReturnRepository) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// LockOrder retrieves a non-deleted order with SELECT ... FOR UPDATE.
// Only meaningful on a repository handed out by WithTransaction.
func (r *ReturnRepository) LockOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return &order, nil
}

// GetOrderLineItems returns the order's non-deleted line items ordered by title then id
func (r *ReturnRepository) GetOrderLineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error) {
	if items, ok := r.cachedLineItems(ctx, orderID); ok {
		return items, nil
	}

	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Table("order_item AS oi").
		Select("li.id AS line_item_id, li.variant_sku AS sku, li.title, li.thumbnail, li.unit_price, oi.quantity").
		Joins("JOIN order_line_item AS li ON li.id = oi.item_id").
		Where("oi.order_id = ? AND oi.deleted_at IS NULL AND li.deleted_at IS NULL", orderID).
		Order("li.title ASC, li.id ASC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get order line items: %w", err)
	}

	r.cacheLineItems(ctx, orderID, items)
	return items, nil
}

// GetAddresses loads non-deleted addresses keyed by ID. Missing IDs are absent from the map.
func (r *ReturnRepository) GetAddresses(ctx context.Context, ids ...string) (map[string]models.OrderAddress, error) {
	result := make(map[string]models.OrderAddress, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var addresses []models.OrderAddress
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to get order addresses: %w", err)
	}
	for _, a := range addresses {
		result[a.ID] = a
	}
	return result, nil
}

func (r *ReturnRepository) cachedLineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, bool) {
	if r.redis == nil {
		return nil, false
	}
	val, err := r.redis.Get(ctx, lineItemCacheKey(orderID)).Result()
	if err != nil {
		return nil, false
	}
	var items []models.OrderLineItem
	if err := json.Unmarshal([]byte(val), &items); err != nil {
		r.logger.WithError(err).WithField("orderId", orderID).Debug("Discarding unreadable line item cache entry")
		return nil, false
	}
	return items, true
}

func (r *ReturnRepository) cacheLineItems(ctx context.Context, orderID string, items []models.OrderLineItem) {
	if r.redis == nil || len(items) == 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, lineItemCacheKey(orderID), data, LineItemCacheTTL).Err(); err != nil {
		r.logger.WithError(err).WithField("orderId", orderID).Debug("Failed to cache order line items")
	}
}

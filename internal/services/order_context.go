package services

import (
	"context"
	"errors"
	"strings"

	"returns-service/internal/models"
	"returns-service/internal/repository"
)

// OrderContext is an order together with what the returns flow needs from it
type OrderContext struct {
	Order        *models.Order
	Items        []models.OrderLineItem
	CustomerName string
}

// LoadOrderContext loads an order for a requester without locking it
func (s *ReturnService) LoadOrderContext(ctx context.Context, orderID, email string) (*OrderContext, error) {
	return loadOrderContext(ctx, s.repo, orderID, email, false)
}

// BuildReturnSummary aggregates previously accepted returns for an order and requester
func (s *ReturnService) BuildReturnSummary(ctx context.Context, orderID, email string) (models.ReturnSummary, error) {
	return buildReturnSummary(ctx, s.repo, orderID, email)
}

// loadOrderContext verifies ownership before anything else about the order is read.
// With lock set the order row is taken FOR UPDATE, so repo must be transactional.
func loadOrderContext(ctx context.Context, repo repository.ReturnRepositoryInterface, orderID, email string, lock bool) (*OrderContext, error) {
	var (
		order *models.Order
		err   error
	)
	if lock {
		order, err = repo.LockOrder(ctx, orderID)
	} else {
		order, err = repo.GetOrder(ctx, orderID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, notFoundError("Order not found", err)
		}
		return nil, internalError("failed to load order", err)
	}

	if !emailMatches(order.Email, email) {
		return nil, forbiddenError("Email does not match the order")
	}

	items, err := repo.GetOrderLineItems(ctx, orderID)
	if err != nil {
		return nil, internalError("failed to load order items", err)
	}

	name, err := customerName(ctx, repo, order)
	if err != nil {
		return nil, err
	}

	return &OrderContext{
		Order:        order,
		Items:        items,
		CustomerName: name,
	}, nil
}

func emailMatches(stored, supplied string) bool {
	stored = strings.TrimSpace(stored)
	return stored != "" && strings.EqualFold(stored, strings.TrimSpace(supplied))
}

// customerName prefers the billing address, then the shipping address, then the order email
func customerName(ctx context.Context, repo repository.ReturnRepositoryInterface, order *models.Order) (string, error) {
	var ids []string
	for _, id := range []*string{order.BillingAddressID, order.ShippingAddressID} {
		if id != nil && *id != "" {
			ids = append(ids, *id)
		}
	}

	addresses, err := repo.GetAddresses(ctx, ids...)
	if err != nil {
		return "", internalError("failed to load order addresses", err)
	}

	for _, id := range []*string{order.BillingAddressID, order.ShippingAddressID} {
		if id == nil {
			continue
		}
		if addr, ok := addresses[*id]; ok {
			if name := strings.TrimSpace(addr.FullName()); name != "" {
				return name, nil
			}
		}
	}
	return order.Email, nil
}

func buildReturnSummary(ctx context.Context, repo repository.ReturnRepositoryInterface, orderID, email string) (models.ReturnSummary, error) {
	rows, err := repo.SummarizeReturns(ctx, orderID, strings.TrimSpace(email))
	if err != nil {
		return nil, internalError("failed to load return history", err)
	}

	summary := models.ReturnSummary{}
	for _, row := range rows {
		summary.Add(row.Key(), row.Qty, row.LastReturnedAt)
	}
	return summary, nil
}

package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"returns-service/internal/models"
	"returns-service/internal/repository"
)

const (
	canReturnYes = "yes"
	canReturnNo  = "no"
)

var tracer = otel.Tracer("returns-service/services")

// EventPublisher receives accepted return batches after they are committed
type EventPublisher interface {
	PublishReturnRequested(ctx context.Context, order *models.Order, entries []models.ReturnLedgerEntry)
}

// ReturnService decides return eligibility and records return requests
type ReturnService struct {
	repo      repository.ReturnRepositoryInterface
	publisher EventPublisher
	logger    *logrus.Entry
}

// NewReturnService creates a new ReturnService. publisher may be nil.
func NewReturnService(repo repository.ReturnRepositoryInterface, publisher EventPublisher, logger *logrus.Logger) *ReturnService {
	return &ReturnService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "return-service"),
	}
}

// ReturnLineView is the eligibility of one order line
type ReturnLineView struct {
	SKU          string     `json:"sku"`
	ProductName  string     `json:"product_name"`
	Image        *string    `json:"image"`
	Qty          int        `json:"qty"`
	UnitPrice    float64    `json:"unit_price"`
	TotalPrice   float64    `json:"total_price"`
	ReturnDate   *time.Time `json:"return_date"`
	CanReturn    string     `json:"can_return"`
	ReturnedQty  int        `json:"returned_qty"`
	RemainingQty int        `json:"remaining_qty"`
}

// ReturnRequestResult is the response of a successful return request
type ReturnRequestResult struct {
	Success bool                       `json:"success"`
	Returns []models.ReturnLedgerEntry `json:"returns"`
}

// CheckOrderReturn reports per line item how much can still be returned. It never writes.
func (s *ReturnService) CheckOrderReturn(ctx context.Context, email, orderID string) (views []ReturnLineView, err error) {
	ctx, span := tracer.Start(ctx, "ReturnService.CheckOrderReturn",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() {
		endSpan(span, err)
		eligibilityChecksTotal.WithLabelValues(outcomeLabel(err)).Inc()
	}()

	if email == "" || orderID == "" {
		return nil, validationError("Customer email and order id are required")
	}

	oc, err := loadOrderContext(ctx, s.repo, orderID, email, false)
	if err != nil {
		return nil, err
	}

	summary, err := buildReturnSummary(ctx, s.repo, orderID, email)
	if err != nil {
		return nil, err
	}
	reconcileLegacyKeys(summary, oc.Items)

	views = make([]ReturnLineView, 0, len(oc.Items))
	for _, item := range oc.Items {
		key := item.Key()
		returned := summary.Returned(key)
		remaining := remainingQty(item.Quantity, returned)

		canReturn := canReturnNo
		if oc.Order.Status.AllowsReturns() && remaining > 0 {
			canReturn = canReturnYes
		}

		view := ReturnLineView{
			SKU:          key.String(),
			ProductName:  item.Title,
			Image:        item.Thumbnail,
			Qty:          item.Quantity,
			UnitPrice:    models.MinorToMajorFloat(item.UnitPrice),
			TotalPrice:   models.LineTotal(item.UnitPrice, item.Quantity),
			CanReturn:    canReturn,
			ReturnedQty:  returned,
			RemainingQty: remaining,
		}
		if q, ok := summary[key]; ok {
			view.ReturnDate = q.LastReturnedAt
		}
		views = append(views, view)
	}
	return views, nil
}

// returnableLine is the per-SKU view of an order used to validate a batch.
// Line items sharing a SKU are merged and their ordered quantities summed.
type returnableLine struct {
	key  models.SKUKey
	item models.OrderLineItem
	qty  int
}

// RequestOrderReturn validates a batch of return requests and records it in
// the ledger. Either every line is recorded or none is.
//
// The order row is locked for the duration of the transaction, so concurrent
// requests for one order validate against each other's committed entries.
func (s *ReturnService) RequestOrderReturn(ctx context.Context, input ReturnRequestInput) (result *ReturnRequestResult, err error) {
	email := input.RequesterEmail()
	orderID := input.Order()

	ctx, span := tracer.Start(ctx, "ReturnService.RequestOrderReturn",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.Int("products.count", len(input.Products)),
		))
	defer func() {
		endSpan(span, err)
		returnRequestsTotal.WithLabelValues(outcomeLabel(err)).Inc()
	}()

	if email == "" || orderID == "" {
		return nil, validationError("Customer email and order id are required")
	}
	if len(input.Products) == 0 {
		return nil, validationError("At least one product is required")
	}

	var (
		order   *models.Order
		entries []models.ReturnLedgerEntry
	)
	err = s.repo.WithTransaction(ctx, func(txRepo repository.ReturnRepositoryInterface) error {
		oc, err := loadOrderContext(ctx, txRepo, orderID, email, true)
		if err != nil {
			return err
		}
		if !oc.Order.Status.AllowsReturns() {
			return validationError("Returns can only be requested for invoiced orders.")
		}
		if len(oc.Items) == 0 {
			return validationError("Order has no items that can be returned")
		}

		summary, err := buildReturnSummary(ctx, txRepo, orderID, email)
		if err != nil {
			return err
		}
		reconcileLegacyKeys(summary, oc.Items)

		drafts, err := stageReturnEntries(oc, summary, email, input)
		if err != nil {
			return err
		}

		if err := txRepo.CreateReturnEntries(ctx, drafts); err != nil {
			return internalError("failed to record return", err)
		}
		order = oc.Order
		entries = drafts
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.logger.WithError(err).WithField("orderId", orderID).Error("Return request failed")
		}
		return nil, err
	}

	units := 0
	for _, e := range entries {
		units += e.Qty
	}
	returnUnitsTotal.Add(float64(units))

	s.logger.WithFields(logrus.Fields{
		"orderId": orderID,
		"entries": len(entries),
		"units":   units,
	}).Info("Return request recorded")

	if s.publisher != nil {
		s.publisher.PublishReturnRequested(ctx, order, entries)
	}

	return &ReturnRequestResult{Success: true, Returns: entries}, nil
}

// stageReturnEntries validates every product line and builds the ledger drafts.
// summary is updated in place so repeated SKUs in one batch share the remainder.
func stageReturnEntries(oc *OrderContext, summary models.ReturnSummary, email string, input ReturnRequestInput) ([]models.ReturnLedgerEntry, error) {
	lines := indexReturnableLines(oc.Items)
	remarks := input.remarks()
	drafts := make([]models.ReturnLedgerEntry, 0, len(input.Products))

	for _, p := range input.Products {
		raw := p.RawSKU()
		if raw == "" {
			return nil, validationError("Each product must include a SKU")
		}

		line, ok := resolveLine(lines, raw)
		if !ok {
			return nil, validationError("SKU %s is not part of the order", raw)
		}

		requested, ok := p.RequestedQty()
		if !ok || math.IsNaN(requested) || math.IsInf(requested, 0) {
			return nil, validationError("Invalid return quantity for SKU %s", raw)
		}
		requested = math.Trunc(requested)
		if requested <= 0 {
			return nil, validationError("Invalid return quantity for SKU %s", raw)
		}

		remaining := remainingQty(line.qty, summary.Returned(line.key))
		if requested > float64(remaining) {
			return nil, validationError("Requested quantity for SKU %s exceeds remaining items (%d remaining)", raw, remaining)
		}
		qty := int(requested)
		summary.Add(line.key, qty, nil)

		drafts = append(drafts, models.ReturnLedgerEntry{
			OrderID:      oc.Order.ID,
			UserName:     oc.CustomerName,
			UserEmail:    email,
			SKU:          line.key.String(),
			SKUKind:      line.key.Kind,
			ProductName:  line.item.Title,
			Qty:          qty,
			Price:        models.MinorToMajorFloat(line.item.UnitPrice),
			OrderStatus:  oc.Order.Status,
			ReturnStatus: models.ReturnStatusPending,
			Remarks:      remarks,
		})
	}
	return drafts, nil
}

func indexReturnableLines(items []models.OrderLineItem) map[models.SKUKey]*returnableLine {
	lines := make(map[models.SKUKey]*returnableLine, len(items))
	for _, item := range items {
		key := item.Key()
		if line, ok := lines[key]; ok {
			line.qty += item.Quantity
			continue
		}
		lines[key] = &returnableLine{key: key, item: item, qty: item.Quantity}
	}
	return lines
}

// resolveLine matches a client supplied SKU string. A real SKU wins over the
// "item_<id>" form of a line item without one.
func resolveLine(lines map[models.SKUKey]*returnableLine, raw string) (*returnableLine, bool) {
	if line, ok := lines[models.RealSKU(raw)]; ok {
		return line, true
	}
	if id, ok := models.ParseSyntheticSKU(raw); ok {
		if line, ok := lines[models.SyntheticSKU(id)]; ok {
			return line, true
		}
	}
	return nil, false
}

// reconcileLegacyKeys folds ledger rows written before sku_kind existed into
// the synthetic key they were recorded for. Such rows read back as real SKUs
// spelled "item_<id>"; they are only reassigned when no line item owns that
// spelling as a real SKU.
func reconcileLegacyKeys(summary models.ReturnSummary, items []models.OrderLineItem) {
	realKeys := make(map[models.SKUKey]bool, len(items))
	for _, item := range items {
		if key := item.Key(); !key.IsSynthetic() {
			realKeys[key] = true
		}
	}

	for _, item := range items {
		key := item.Key()
		if !key.IsSynthetic() {
			continue
		}
		legacy := models.RealSKU(key.String())
		q, ok := summary[legacy]
		if !ok || realKeys[legacy] {
			continue
		}
		summary.Add(key, q.Qty, q.LastReturnedAt)
		delete(summary, legacy)
	}
}

func remainingQty(ordered, returned int) int {
	if remaining := ordered - returned; remaining > 0 {
		return remaining
	}
	return 0
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if KindOf(err) == KindInternal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

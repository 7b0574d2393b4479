package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"returns-service/internal/models"
)

const (
	SubjectReturnRequested = "order.return.requested"

	publishTimeout = 10 * time.Second
)

// ReturnItem is one ledger entry carried by a return event
type ReturnItem struct {
	EntryID     uint    `json:"entryId"`
	SKU         string  `json:"sku"`
	SKUKind     string  `json:"skuKind"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// ReturnEvent is published after a return batch is committed
type ReturnEvent struct {
	EventID       string       `json:"eventId"`
	EventType     string       `json:"eventType"`
	OrderID       string       `json:"orderId"`
	OrderStatus   string       `json:"orderStatus"`
	CustomerEmail string       `json:"customerEmail"`
	CustomerName  string       `json:"customerName"`
	Remarks       *string      `json:"remarks,omitempty"`
	Items         []ReturnItem `json:"items"`
	TotalUnits    int          `json:"totalUnits"`
	Timestamp     time.Time    `json:"timestamp"`
}

// messageSink is the part of *nats.Conn the publisher uses
type messageSink interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// Publisher emits return events to NATS. A nil *Publisher is a no-op.
type Publisher struct {
	conn     *nats.Conn
	sink     messageSink
	logger   *logrus.Entry
	inflight sync.WaitGroup
}

// NewPublisher connects to NATS at natsURL
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS_URL not set")
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("returns-service-publisher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := newPublisher(conn, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(sink messageSink, logger *logrus.Logger) *Publisher {
	return &Publisher{
		sink:   sink,
		logger: logger.WithField("component", "returns-events"),
	}
}

// PublishReturnRequested publishes order.return.requested in the background.
// Failures are logged and never reach the caller; the ledger is already committed.
func (p *Publisher) PublishReturnRequested(ctx context.Context, order *models.Order, entries []models.ReturnLedgerEntry) {
	if p == nil || p.sink == nil || order == nil || len(entries) == 0 {
		return
	}

	event := buildReturnEvent(order, entries)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := p.publish(ctx, SubjectReturnRequested, event); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"orderId": event.OrderID,
				"eventId": event.EventID,
			}).Warn("Failed to publish return event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"orderId": event.OrderID,
			"units":   event.TotalUnits,
		}).Debug("Published return event")
	}()
}

// Close waits for in-flight events and drains the NATS connection
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.inflight.Wait()
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}

func (p *Publisher) publish(ctx context.Context, subject string, event *ReturnEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.sink.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return p.sink.FlushWithContext(ctx)
}

func buildReturnEvent(order *models.Order, entries []models.ReturnLedgerEntry) *ReturnEvent {
	first := entries[0]
	event := &ReturnEvent{
		EventID:       uuid.New().String(),
		EventType:     SubjectReturnRequested,
		OrderID:       order.ID,
		OrderStatus:   string(order.Status),
		CustomerEmail: first.UserEmail,
		CustomerName:  first.UserName,
		Remarks:       first.Remarks,
		Items:         make([]ReturnItem, len(entries)),
		Timestamp:     time.Now().UTC(),
	}
	for i, e := range entries {
		event.Items[i] = ReturnItem{
			EntryID:     e.ID,
			SKU:         e.SKU,
			SKUKind:     string(e.SKUKind),
			ProductName: e.ProductName,
			Quantity:    e.Qty,
			UnitPrice:   e.Price,
		}
		event.TotalUnits += e.Qty
	}
	return event
}

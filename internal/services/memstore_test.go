package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"returns-service/internal/models"
	"returns-service/internal/repository"
)

// memStore is an in-memory ReturnRepositoryInterface. Transactions hold the
// store lock from start to commit, which is at least as strong as the per-order
// row lock the database repository takes.
type memStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	items     map[string][]models.OrderLineItem
	addresses map[string]models.OrderAddress
	ledger    []models.ReturnLedgerEntry
	nextID    uint
	now       time.Time

	failCreate error
}

func newMemStore() *memStore {
	return &memStore{
		orders:    map[string]*models.Order{},
		items:     map[string][]models.OrderLineItem{},
		addresses: map[string]models.OrderAddress{},
		now:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addOrder(order *models.Order, items ...models.OrderLineItem) {
	s.orders[order.ID] = order
	s.items[order.ID] = items
}

func (s *memStore) repo() *memRepo {
	return &memRepo{store: s}
}

// returnedQty sums the ledger for a key
func (s *memStore) returnedQty(orderID string, key models.SKUKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, e := range s.ledger {
		if e.OrderID == orderID && e.Key() == key {
			total += e.Qty
		}
	}
	return total
}

func (s *memStore) ledgerLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

type memRepo struct {
	store   *memStore
	inTx    bool
	pending []models.ReturnLedgerEntry
}

var _ repository.ReturnRepositoryInterface = (*memRepo)(nil)

func (r *memRepo) read(fn func()) {
	if !r.inTx {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
	}
	fn()
}

func (r *memRepo) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order *models.Order
	r.read(func() {
		if o, ok := r.store.orders[orderID]; ok {
			cp := *o
			order = &cp
		}
	})
	if order == nil {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (r *memRepo) LockOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return r.GetOrder(ctx, orderID)
}

func (r *memRepo) GetOrderLineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	r.read(func() {
		items = append(items, r.store.items[orderID]...)
	})
	return items, nil
}

func (r *memRepo) GetAddresses(ctx context.Context, ids ...string) (map[string]models.OrderAddress, error) {
	result := map[string]models.OrderAddress{}
	r.read(func() {
		for _, id := range ids {
			if a, ok := r.store.addresses[id]; ok {
				result[id] = a
			}
		}
	})
	return result, nil
}

func (r *memRepo) SummarizeReturns(ctx context.Context, orderID, email string) ([]models.ReturnAggregate, error) {
	var rows []models.ReturnAggregate
	r.read(func() {
		index := map[models.SKUKey]int{}
		for _, e := range r.store.ledger {
			if e.OrderID != orderID || !strings.EqualFold(e.UserEmail, email) {
				continue
			}
			kind := e.SKUKind
			if kind == "" {
				kind = models.SKUKindReal
			}
			k := models.SKUKey{Kind: kind, Value: e.SKU}
			i, ok := index[k]
			if !ok {
				rows = append(rows, models.ReturnAggregate{SKU: e.SKU, SKUKind: kind})
				i = len(rows) - 1
				index[k] = i
			}
			rows[i].Qty += e.Qty
			at := e.CreatedAt
			if rows[i].LastReturnedAt == nil || at.After(*rows[i].LastReturnedAt) {
				rows[i].LastReturnedAt = &at
			}
		}
	})
	return rows, nil
}

func (r *memRepo) CreateReturnEntries(ctx context.Context, entries []models.ReturnLedgerEntry) error {
	if r.store.failCreate != nil {
		return r.store.failCreate
	}
	if r.inTx {
		r.stamp(entries)
		r.pending = append(r.pending, entries...)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.stamp(entries)
	r.store.ledger = append(r.store.ledger, entries...)
	return nil
}

// stamp assigns IDs and timestamps; callers hold the store lock
func (r *memRepo) stamp(entries []models.ReturnLedgerEntry) {
	for i := range entries {
		r.store.nextID++
		r.store.now = r.store.now.Add(time.Minute)
		entries[i].ID = r.store.nextID
		entries[i].CreatedAt = r.store.now
	}
}

func (r *memRepo) WithTransaction(ctx context.Context, fn func(txRepo repository.ReturnRepositoryInterface) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	tx := &memRepo{store: r.store, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	r.store.ledger = append(r.store.ledger, tx.pending...)
	return nil
}

func (r *memRepo) Ping(ctx context.Context) error {
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"returns-service/internal/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// maxTxAttempts bounds retries of transactions aborted by serialization failures or deadlocks
const maxTxAttempts = 3

// ReturnRepositoryInterface is the storage contract of the returns flow.
// Order tables are read-only; the ledger is append-only.
type ReturnRepositoryInterface interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	LockOrder(ctx context.Context, orderID string) (*models.Order, error)
	GetOrderLineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error)
	GetAddresses(ctx context.Context, ids ...string) (map[string]models.OrderAddress, error)

	SummarizeReturns(ctx context.Context, orderID, email string) ([]models.ReturnAggregate, error)
	CreateReturnEntries(ctx context.Context, entries []models.ReturnLedgerEntry) error

	WithTransaction(ctx context.Context, fn func(txRepo ReturnRepositoryInterface) error) error
	Ping(ctx context.Context) error
}

// ReturnRepository implements ReturnRepositoryInterface on top of gorm
type ReturnRepository struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *logrus.Entry
}

// NewReturnRepository creates a repository. redisClient may be nil, in which
// case line items are always read from the database.
func NewReturnRepository(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) *ReturnRepository {
	return &ReturnRepository{
		db:     db,
		redis:  redisClient,
		logger: logger.WithField("component", "returns-repository"),
	}
}

// WithTransaction runs fn inside a database transaction. The repository handed
// to fn is bound to the transaction and bypasses the cache. Transactions that
// fail with a serialization failure or deadlock are retried.
func (r *ReturnRepository) WithTransaction(ctx context.Context, fn func(txRepo ReturnRepositoryInterface) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&ReturnRepository{db: tx, logger: r.logger})
		})
		if err == nil || !isRetryable(err) {
			return err
		}
		r.logger.WithError(err).WithField("attempt", attempt).Warn("Retrying aborted return transaction")
	}
	return err
}

// SummarizeReturns aggregates the ledger for an order and requester email, grouped by SKU
func (r *ReturnRepository) SummarizeReturns(ctx context.Context, orderID, email string) ([]models.ReturnAggregate, error) {
	var rows []models.ReturnAggregate
	err := r.db.WithContext(ctx).
		Model(&models.ReturnLedgerEntry{}).
		Select("sku, sku_kind, COALESCE(SUM(qty), 0) AS qty, MAX(created_at) AS last_returned_at").
		Where("order_id = ? AND LOWER(user_email) = LOWER(?)", orderID, email).
		Group("sku, sku_kind").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize returns: %w", err)
	}
	return rows, nil
}

// CreateReturnEntries inserts all entries in a single statement and fills in their IDs
func (r *ReturnRepository) CreateReturnEntries(ctx context.Context, entries []models.ReturnLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return fmt.Errorf("failed to create return entries: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (r *ReturnRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}

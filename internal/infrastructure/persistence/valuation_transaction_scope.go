package persistence

import (
	"context"

	appvaluation "github.com/erp/stockledger/internal/application/valuation"
	"github.com/erp/stockledger/internal/domain/valuation"
	"gorm.io/gorm"
)

// GormValuationTransactionScope implements the valuation TransactionScope
// using GORM transactions.
type GormValuationTransactionScope struct {
	db *gorm.DB
}

// NewGormValuationTransactionScope creates a new GormValuationTransactionScope.
func NewGormValuationTransactionScope(db *gorm.DB) *GormValuationTransactionScope {
	return &GormValuationTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormValuationTransactionScope) Execute(ctx context.Context, fn func(repos appvaluation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormValuationRepositories{tx: tx}
		return fn(repos)
	})
}

// gormValuationRepositories provides access to the valuation repositories within a transaction.
type gormValuationRepositories struct {
	tx *gorm.DB
}

// ValuationRepo returns the product valuation repository scoped to the current transaction.
func (r *gormValuationRepositories) ValuationRepo() valuation.ProductValuationRepository {
	return NewGormProductValuationRepository(r.tx)
}

// LayerRepo returns the valuation layer repository scoped to the current transaction.
func (r *gormValuationRepositories) LayerRepo() valuation.ValuationLayerRepository {
	return NewGormValuationLayerRepository(r.tx)
}

// HistoryRepo returns the valuation history repository scoped to the current transaction.
func (r *gormValuationRepositories) HistoryRepo() valuation.ValuationHistoryRepository {
	return NewGormValuationHistoryRepository(r.tx)
}

var _ appvaluation.TransactionScope = (*GormValuationTransactionScope)(nil)
var _ appvaluation.TransactionalRepositories = (*gormValuationRepositories)(nil)

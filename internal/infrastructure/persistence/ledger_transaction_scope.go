package persistence

import (
	"context"

	appledger "github.com/erp/stockledger/internal/application/ledger"
	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/valuation"
	"gorm.io/gorm"
)

// GormLedgerTransactionScope implements the ledger TransactionScope using
// GORM transactions. A movement append and its valuation side effects commit
// or roll back as one unit.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope.
func NewGormLedgerTransactionScope(db *gorm.DB) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormLedgerRepositories{tx: tx}
		return fn(repos)
	})
}

// gormLedgerRepositories provides access to all repositories within a transaction.
type gormLedgerRepositories struct {
	tx *gorm.DB
}

// MoveRepo returns the stock move repository scoped to the current transaction.
func (r *gormLedgerRepositories) MoveRepo() ledger.StockMoveRepository {
	return NewGormStockMoveRepository(r.tx)
}

// ValuationRepo returns the product valuation repository scoped to the current transaction.
func (r *gormLedgerRepositories) ValuationRepo() valuation.ProductValuationRepository {
	return NewGormProductValuationRepository(r.tx)
}

// LayerRepo returns the valuation layer repository scoped to the current transaction.
func (r *gormLedgerRepositories) LayerRepo() valuation.ValuationLayerRepository {
	return NewGormValuationLayerRepository(r.tx)
}

// HistoryRepo returns the valuation history repository scoped to the current transaction.
func (r *gormLedgerRepositories) HistoryRepo() valuation.ValuationHistoryRepository {
	return NewGormValuationHistoryRepository(r.tx)
}

var _ appledger.TransactionScope = (*GormLedgerTransactionScope)(nil)
var _ appledger.TransactionalRepositories = (*gormLedgerRepositories)(nil)

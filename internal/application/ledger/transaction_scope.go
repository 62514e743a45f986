package ledger

import (
	"context"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/valuation"
)

// TransactionScope provides transactional access to the ledger and valuation
// repositories. A ledger append and its valuation side effects commit or roll
// back as one unit; a movement must never be visible without its valuation
// update.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories participating
// in a ledger append. All repositories share the same underlying transaction.
type TransactionalRepositories interface {
	// MoveRepo returns the stock move repository scoped to the current transaction
	MoveRepo() ledger.StockMoveRepository
	// ValuationRepo returns the product valuation repository scoped to the current transaction
	ValuationRepo() valuation.ProductValuationRepository
	// LayerRepo returns the valuation layer repository scoped to the current transaction
	LayerRepo() valuation.ValuationLayerRepository
	// HistoryRepo returns the valuation history repository scoped to the current transaction
	HistoryRepo() valuation.ValuationHistoryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests with in-memory repositories.
type NoOpTransactionScope struct {
	moveRepo      ledger.StockMoveRepository
	valuationRepo valuation.ProductValuationRepository
	layerRepo     valuation.ValuationLayerRepository
	historyRepo   valuation.ValuationHistoryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	moveRepo ledger.StockMoveRepository,
	valuationRepo valuation.ProductValuationRepository,
	layerRepo valuation.ValuationLayerRepository,
	historyRepo valuation.ValuationHistoryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		moveRepo:      moveRepo,
		valuationRepo: valuationRepo,
		layerRepo:     layerRepo,
		historyRepo:   historyRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// MoveRepo returns the stock move repository.
func (s *NoOpTransactionScope) MoveRepo() ledger.StockMoveRepository {
	return s.moveRepo
}

// ValuationRepo returns the product valuation repository.
func (s *NoOpTransactionScope) ValuationRepo() valuation.ProductValuationRepository {
	return s.valuationRepo
}

// LayerRepo returns the valuation layer repository.
func (s *NoOpTransactionScope) LayerRepo() valuation.ValuationLayerRepository {
	return s.layerRepo
}

// HistoryRepo returns the valuation history repository.
func (s *NoOpTransactionScope) HistoryRepo() valuation.ValuationHistoryRepository {
	return s.historyRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

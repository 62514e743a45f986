package valuation

import (
	"context"

	"github.com/erp/stockledger/internal/domain/valuation"
)

// TransactionScope provides transactional access to the valuation
// repositories for operations that touch the valuation state outside a
// ledger append (revaluation, standard cost changes, method changes).
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the valuation repositories
// within a transaction.
type TransactionalRepositories interface {
	// ValuationRepo returns the product valuation repository scoped to the current transaction
	ValuationRepo() valuation.ProductValuationRepository
	// LayerRepo returns the valuation layer repository scoped to the current transaction
	LayerRepo() valuation.ValuationLayerRepository
	// HistoryRepo returns the valuation history repository scoped to the current transaction
	HistoryRepo() valuation.ValuationHistoryRepository
}

// NoOpTransactionScope runs callbacks without a real transaction
type NoOpTransactionScope struct {
	valuationRepo valuation.ProductValuationRepository
	layerRepo     valuation.ValuationLayerRepository
	historyRepo   valuation.ValuationHistoryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	valuationRepo valuation.ProductValuationRepository,
	layerRepo valuation.ValuationLayerRepository,
	historyRepo valuation.ValuationHistoryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		valuationRepo: valuationRepo,
		layerRepo:     layerRepo,
		historyRepo:   historyRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
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

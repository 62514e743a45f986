package valuation

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/valueobject"
	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/google/uuid"
)

// ValuationService answers valuation queries and manages valuation policy:
// cost method settings, standard costs, and manual revaluations. Movement
// driven valuation changes flow through the ledger service instead.
type ValuationService struct {
	scope          TransactionScope
	valuationRepo  valuation.ProductValuationRepository
	layerRepo      valuation.ValuationLayerRepository
	historyRepo    valuation.ValuationHistoryRepository
	settingRepo    valuation.CostMethodSettingRepository
	methodResolver *valuation.MethodResolver
}

// NewValuationService creates a new ValuationService
func NewValuationService(
	scope TransactionScope,
	valuationRepo valuation.ProductValuationRepository,
	layerRepo valuation.ValuationLayerRepository,
	historyRepo valuation.ValuationHistoryRepository,
	settingRepo valuation.CostMethodSettingRepository,
) *ValuationService {
	return &ValuationService{
		scope:          scope,
		valuationRepo:  valuationRepo,
		layerRepo:      layerRepo,
		historyRepo:    historyRepo,
		settingRepo:    settingRepo,
		methodResolver: valuation.NewMethodResolver(settingRepo),
	}
}

// ===================== Query Methods =====================

// GetValuation returns the current valuation state for a product
func (s *ValuationService) GetValuation(ctx context.Context, tenantID, productID uuid.UUID) (*ValuationResponse, error) {
	v, err := s.valuationRepo.FindByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	resp := ToValuationResponse(v)
	return &resp, nil
}

// ListValuations returns a paginated view of all product valuations
func (s *ValuationService) ListValuations(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[ValuationResponse], error) {
	page, err := s.valuationRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ValuationResponse, len(page.Items))
	for i, v := range page.Items {
		items[i] = ToValuationResponse(v)
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// GetLayers returns the FIFO cost layers of a product, open and depleted
func (s *ValuationService) GetLayers(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[LayerResponse], error) {
	page, err := s.layerRepo.FindByProduct(ctx, tenantID, productID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]LayerResponse, len(page.Items))
	for i, l := range page.Items {
		items[i] = ToLayerResponse(l)
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// GetHistory returns the valuation audit trail of a product
func (s *ValuationService) GetHistory(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[HistoryResponse], error) {
	page, err := s.historyRepo.FindByProduct(ctx, tenantID, productID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryResponse, len(page.Items))
	for i, h := range page.Items {
		items[i] = ToHistoryResponse(h)
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ResolveMethod returns the costing method that would apply to a product
func (s *ValuationService) ResolveMethod(ctx context.Context, tenantID, productID uuid.UUID, categoryID *uuid.UUID) (valuation.Method, error) {
	return s.methodResolver.Resolve(ctx, tenantID, productID, categoryID)
}

// ===================== Settings Management =====================

// CreateSetting creates a cost method setting at tenant, category, or
// product scope. An existing setting at the same scope target is replaced.
func (s *ValuationService) CreateSetting(ctx context.Context, tenantID uuid.UUID, req CreateSettingRequest) (*SettingResponse, error) {
	existing, err := s.findExistingSetting(ctx, tenantID, req)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if err := existing.ChangeMethod(req.Method); err != nil {
			return nil, err
		}
		existing.UpdatedAt = time.Now()
		if err := s.settingRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		resp := ToSettingResponse(existing)
		return &resp, nil
	}

	setting, err := valuation.NewCostMethodSetting(tenantID, req.Scope, req.Method, req.CategoryID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := s.settingRepo.Create(ctx, setting); err != nil {
		return nil, err
	}
	resp := ToSettingResponse(setting)
	return &resp, nil
}

func (s *ValuationService) findExistingSetting(ctx context.Context, tenantID uuid.UUID, req CreateSettingRequest) (*valuation.CostMethodSetting, error) {
	switch req.Scope {
	case valuation.ScopeTenant:
		return s.settingRepo.FindForTenant(ctx, tenantID)
	case valuation.ScopeCategory:
		if req.CategoryID == nil {
			return nil, shared.ErrNotFound
		}
		return s.settingRepo.FindForCategory(ctx, tenantID, *req.CategoryID)
	case valuation.ScopeProduct:
		if req.ProductID == nil {
			return nil, shared.ErrNotFound
		}
		return s.settingRepo.FindForProduct(ctx, tenantID, *req.ProductID)
	}
	return nil, shared.NewValidationError("INVALID_SCOPE", "Invalid setting scope")
}

// DeleteSetting removes a category or product override. The tenant default
// cannot be deleted, only changed, so method resolution always terminates.
func (s *ValuationService) DeleteSetting(ctx context.Context, tenantID, id uuid.UUID) error {
	setting, err := s.settingRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if setting.Scope == valuation.ScopeTenant {
		return shared.NewBusinessRuleError("TENANT_DEFAULT_PROTECTED", "The tenant default setting cannot be deleted")
	}
	return s.settingRepo.Delete(ctx, tenantID, id)
}

// ListSettings returns all cost method settings for a tenant
func (s *ValuationService) ListSettings(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[SettingResponse], error) {
	page, err := s.settingRepo.ListByTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]SettingResponse, len(page.Items))
	for i, setting := range page.Items {
		items[i] = ToSettingResponse(setting)
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// ===================== Cost Management =====================

// SetStandardCost records the preset cost used by standard costing for a
// product. The valuation record is created on first use if the product has
// never moved.
func (s *ValuationService) SetStandardCost(ctx context.Context, tenantID, productID uuid.UUID, costMinor int64, categoryID *uuid.UUID) (*ValuationResponse, error) {
	var result *ValuationResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.ValuationRepo().FindByProduct(ctx, tenantID, productID)
		created := false
		if errors.Is(err, shared.ErrNotFound) {
			method, rerr := s.methodResolver.Resolve(ctx, tenantID, productID, categoryID)
			if rerr != nil {
				return rerr
			}
			v, err = valuation.NewProductValuation(tenantID, productID, method)
			if err != nil {
				return err
			}
			created = true
		} else if err != nil {
			return err
		}

		if err := v.SetStandardCost(costMinor); err != nil {
			return err
		}

		if created {
			if err := repos.ValuationRepo().Create(ctx, v); err != nil {
				return err
			}
		} else if err := repos.ValuationRepo().Update(ctx, v); err != nil {
			return err
		}

		record := valuation.NewHistoryRecord(v, valuation.ChangeKindStandardCost, nil, 0, 0, 0, time.Now())
		if err := repos.HistoryRepo().Create(ctx, record); err != nil {
			return err
		}

		resp := ToValuationResponse(v)
		result = &resp
		return nil
	})
	return result, err
}

// RevalueInventory rebases a product's total value at its current quantity.
// For FIFO products the open layers are rewritten so future issues carry the
// new cost basis. Revaluation also clears a corruption halt.
func (s *ValuationService) RevalueInventory(ctx context.Context, tenantID uuid.UUID, req RevalueRequest) (*ValuationResponse, error) {
	if req.NewTotalValue < 0 {
		return nil, shared.NewValidationError("INVALID_VALUE", "Total value cannot be negative")
	}

	var result *ValuationResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.ValuationRepo().FindByProduct(ctx, tenantID, req.ProductID)
		if err != nil {
			return err
		}

		oldValue := v.TotalValue
		now := time.Now()
		v.Revalue(req.NewTotalValue, now)

		if v.Method == valuation.MethodFIFO {
			if err := s.rewriteLayers(ctx, repos, v, oldValue); err != nil {
				return err
			}
		}

		if err := repos.ValuationRepo().Update(ctx, v); err != nil {
			return err
		}

		record := valuation.NewHistoryRecord(v, valuation.ChangeKindRevaluation, nil, 0, req.NewTotalValue-oldValue, 0, now)
		if err := repos.HistoryRepo().Create(ctx, record); err != nil {
			return err
		}

		resp := ToValuationResponse(v)
		result = &resp
		return nil
	})
	return result, err
}

// rewriteLayers spreads the revalued total across the open layers in
// proportion to each layer's share of the old value.
func (s *ValuationService) rewriteLayers(ctx context.Context, repos TransactionalRepositories, v *valuation.ProductValuation, oldValue int64) error {
	layers, err := repos.LayerRepo().FindOpenByProduct(ctx, v.TenantID, v.ProductID)
	if err != nil {
		return err
	}
	if len(layers) == 0 || oldValue <= 0 {
		return nil
	}
	for _, layer := range layers {
		share := layer.RemainingValue() * v.TotalValue / oldValue
		unit, _ := valueobject.DivideRoundHalfUp(share, layer.RemainingQuantity)
		layer.UnitCost = unit
		if err := repos.LayerRepo().Update(ctx, layer); err != nil {
			return err
		}
	}
	return nil
}

// SetProductMethod switches the costing method in effect for a product that
// already has a valuation record. Settings control the method for products
// that have not moved yet. The layer set is converted with the method:
// leaving FIFO closes the open layers, entering FIFO with stock on hand
// opens one layer at the current unit cost so the next outbound has layers
// to consume.
func (s *ValuationService) SetProductMethod(ctx context.Context, tenantID, productID uuid.UUID, method valuation.Method) (*ValuationResponse, error) {
	var result *ValuationResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.ValuationRepo().FindByProduct(ctx, tenantID, productID)
		if err != nil {
			return err
		}
		oldMethod := v.Method
		if err := v.ChangeMethod(method); err != nil {
			return err
		}
		if oldMethod != method {
			if err := s.convertLayers(ctx, repos, v, oldMethod); err != nil {
				return err
			}
		}
		if err := repos.ValuationRepo().Update(ctx, v); err != nil {
			return err
		}
		record := valuation.NewHistoryRecord(v, valuation.ChangeKindMethodChange, nil, 0, 0, 0, time.Now())
		if err := repos.HistoryRepo().Create(ctx, record); err != nil {
			return err
		}
		resp := ToValuationResponse(v)
		result = &resp
		return nil
	})
	return result, err
}

// convertLayers reshapes the FIFO layer set after a method change so the
// open layers always mirror the quantity the new method tracks.
func (s *ValuationService) convertLayers(ctx context.Context, repos TransactionalRepositories, v *valuation.ProductValuation, oldMethod valuation.Method) error {
	if oldMethod == valuation.MethodFIFO {
		layers, err := repos.LayerRepo().FindOpenByProduct(ctx, v.TenantID, v.ProductID)
		if err != nil {
			return err
		}
		for _, layer := range layers {
			layer.RemainingQuantity = 0
			if err := repos.LayerRepo().Update(ctx, layer); err != nil {
				return err
			}
		}
		return nil
	}
	if v.Method == valuation.MethodFIFO && v.TotalQuantity > 0 {
		opening, err := valuation.NewValuationLayer(v.TenantID, v.ProductID, uuid.Nil, v.TotalQuantity, v.UnitCost, time.Now())
		if err != nil {
			return err
		}
		return repos.LayerRepo().Create(ctx, opening)
	}
	return nil
}

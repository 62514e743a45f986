package valuation

import (
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// SettingScope represents the level a cost method setting applies to
type SettingScope string

const (
	ScopeTenant   SettingScope = "tenant"
	ScopeCategory SettingScope = "category"
	ScopeProduct  SettingScope = "product"
)

// String returns the string representation of SettingScope
func (s SettingScope) String() string {
	return string(s)
}

// IsValid returns true if the scope is valid
func (s SettingScope) IsValid() bool {
	switch s {
	case ScopeTenant, ScopeCategory, ScopeProduct:
		return true
	}
	return false
}

// CostMethodSetting binds a costing method to a tenant, a product category,
// or a single product. Resolution walks product, then category, then tenant;
// the first match wins.
type CostMethodSetting struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	Scope      SettingScope
	CategoryID *uuid.UUID
	ProductID  *uuid.UUID
	Method     Method
}

// NewCostMethodSetting creates a validated setting for the given scope.
// Category scope requires a category ID, product scope a product ID, and
// tenant scope neither.
func NewCostMethodSetting(tenantID uuid.UUID, scope SettingScope, method Method, categoryID, productID *uuid.UUID) (*CostMethodSetting, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !scope.IsValid() {
		return nil, shared.NewValidationError("INVALID_SCOPE", "Invalid setting scope")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("INVALID_METHOD", "Invalid costing method")
	}

	switch scope {
	case ScopeTenant:
		if categoryID != nil || productID != nil {
			return nil, shared.NewValidationError("INVALID_SCOPE_TARGET", "Tenant scope cannot target a category or product")
		}
	case ScopeCategory:
		if categoryID == nil || *categoryID == uuid.Nil {
			return nil, shared.NewValidationError("INVALID_SCOPE_TARGET", "Category scope requires a category ID")
		}
		if productID != nil {
			return nil, shared.NewValidationError("INVALID_SCOPE_TARGET", "Category scope cannot target a product")
		}
	case ScopeProduct:
		if productID == nil || *productID == uuid.Nil {
			return nil, shared.NewValidationError("INVALID_SCOPE_TARGET", "Product scope requires a product ID")
		}
		if categoryID != nil {
			return nil, shared.NewValidationError("INVALID_SCOPE_TARGET", "Product scope cannot target a category")
		}
	}

	return &CostMethodSetting{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Scope:      scope,
		CategoryID: categoryID,
		ProductID:  productID,
		Method:     method,
	}, nil
}

// ChangeMethod switches the setting to a different costing method
func (s *CostMethodSetting) ChangeMethod(method Method) error {
	if !method.IsValid() {
		return shared.NewValidationError("INVALID_METHOD", "Invalid costing method")
	}
	s.Method = method
	return nil
}

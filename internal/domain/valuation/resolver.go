package valuation

import (
	"context"
	"errors"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// MethodResolver resolves the costing method in effect for a product.
// Precedence: product setting, then category setting, then tenant setting,
// then DefaultMethod.
type MethodResolver struct {
	settings CostMethodSettingRepository
}

// NewMethodResolver creates a method resolver
func NewMethodResolver(settings CostMethodSettingRepository) *MethodResolver {
	return &MethodResolver{settings: settings}
}

// Resolve returns the effective method for a product. CategoryID is the
// product's category when known; pass nil when the product is uncategorized.
func (r *MethodResolver) Resolve(ctx context.Context, tenantID, productID uuid.UUID, categoryID *uuid.UUID) (Method, error) {
	if setting, err := r.settings.FindForProduct(ctx, tenantID, productID); err == nil {
		return setting.Method, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	if categoryID != nil && *categoryID != uuid.Nil {
		if setting, err := r.settings.FindForCategory(ctx, tenantID, *categoryID); err == nil {
			return setting.Method, nil
		} else if !errors.Is(err, shared.ErrNotFound) {
			return "", err
		}
	}

	if setting, err := r.settings.FindForTenant(ctx, tenantID); err == nil {
		return setting.Method, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	return DefaultMethod, nil
}

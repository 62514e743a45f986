package reconciliation

import (
	"time"

	"github.com/erp/stockledger/internal/domain/reconciliation"
	"github.com/erp/stockledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateSessionRequest opens a reconciliation session for a warehouse.
// ScopeProductIDs restricts item generation to the listed products; empty
// means every product with on-hand stock.
type CreateSessionRequest struct {
	WarehouseID     uuid.UUID   `json:"warehouse_id"`
	Notes           string      `json:"notes,omitempty"`
	ScopeProductIDs []uuid.UUID `json:"scope_product_ids,omitempty"`
	CreatedByID     uuid.UUID   `json:"created_by_id"`
}

// RecordCountRequest records a physical count for one product
type RecordCountRequest struct {
	ProductID       uuid.UUID `json:"product_id"`
	CountedQuantity int64     `json:"counted_quantity"`
	Note            string    `json:"note,omitempty"`
}

// SessionItemResponse is the read model for one session line
type SessionItemResponse struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	ExpectedQuantity int64     `json:"expected_quantity"`
	CountedQuantity  *int64    `json:"counted_quantity,omitempty"`
	VarianceQuantity int64     `json:"variance_quantity"`
	UnitCost         int64     `json:"unit_cost"` // Minor currency units
	VarianceValue    int64     `json:"variance_value"`
	Counted          bool      `json:"counted"`
	Skipped          bool      `json:"skipped"`
	Note             string    `json:"note,omitempty"`
}

// SessionResponse is the read model for a reconciliation session.
// TotalVariance is the signed sum of counted minus expected quantities;
// TotalVarianceValue carries the same variance in minor currency units.
type SessionResponse struct {
	ID                        uuid.UUID                    `json:"id"`
	SessionNumber             string                       `json:"session_number"`
	WarehouseID               uuid.UUID                    `json:"warehouse_id"`
	Status                    reconciliation.SessionStatus `json:"status"`
	Notes                     string                       `json:"notes,omitempty"`
	ScopeProductIDs           []uuid.UUID                  `json:"scope_product_ids,omitempty"`
	TotalItems                int                          `json:"total_items"`
	CountedItems              int                          `json:"counted_items"`
	SkippedItems              int                          `json:"skipped_items"`
	VarianceItems             int                          `json:"variance_items"`
	TotalVariance             int64                        `json:"total_variance"`
	TotalVarianceValue        int64                        `json:"total_variance_value"`
	TotalVarianceValueDisplay decimal.Decimal              `json:"total_variance_value_display"`
	Progress                  float64                      `json:"progress"`
	StartedAt                 *time.Time                   `json:"started_at,omitempty"`
	CompletedAt               *time.Time                   `json:"completed_at,omitempty"`
	CancelledAt               *time.Time                   `json:"cancelled_at,omitempty"`
	CreatedByID               uuid.UUID                    `json:"created_by_id"`
	CompletedByID             *uuid.UUID                   `json:"completed_by_id,omitempty"`
	CreatedAt                 time.Time                    `json:"created_at"`
	Items                     []SessionItemResponse        `json:"items,omitempty"`
}

// CompleteSessionResponse reports the outcome of finalizing a session
type CompleteSessionResponse struct {
	Session           SessionResponse `json:"session"`
	AdjustmentsPosted int             `json:"adjustments_posted"`
}

// VarianceReportResponse lists the lines where the count differed from the
// ledger, with the session totals alongside
type VarianceReportResponse struct {
	SessionID                 uuid.UUID             `json:"session_id"`
	SessionNumber             string                `json:"session_number"`
	WarehouseID               uuid.UUID             `json:"warehouse_id"`
	VarianceItems             []SessionItemResponse `json:"variance_items"`
	TotalVariance             int64                 `json:"total_variance"`
	TotalVarianceValue        int64                 `json:"total_variance_value"`
	TotalVarianceValueDisplay decimal.Decimal       `json:"total_variance_value_display"`
}

// ToSessionItemResponse converts a domain item to its read model
func ToSessionItemResponse(item *reconciliation.SessionItem) SessionItemResponse {
	return SessionItemResponse{
		ID:               item.ID,
		ProductID:        item.ProductID,
		ExpectedQuantity: item.ExpectedQuantity,
		CountedQuantity:  item.CountedQuantity,
		VarianceQuantity: item.VarianceQuantity,
		UnitCost:         item.UnitCost,
		VarianceValue:    item.VarianceValue,
		Counted:          item.Counted,
		Skipped:          item.Skipped,
		Note:             item.Note,
	}
}

// ToSessionResponse converts a domain session to its read model
func ToSessionResponse(s *reconciliation.Session) SessionResponse {
	items := make([]SessionItemResponse, len(s.Items))
	for i := range s.Items {
		items[i] = ToSessionItemResponse(&s.Items[i])
	}
	return SessionResponse{
		ID:                        s.ID,
		SessionNumber:             s.SessionNumber,
		WarehouseID:               s.WarehouseID,
		Status:                    s.Status,
		Notes:                     s.Notes,
		ScopeProductIDs:           s.ScopeProductIDs,
		TotalItems:                s.TotalItems,
		CountedItems:              s.CountedItems,
		SkippedItems:              s.SkippedItems,
		VarianceItems:             s.VarianceItems,
		TotalVariance:             s.TotalVariance,
		TotalVarianceValue:        s.TotalVarianceValue,
		TotalVarianceValueDisplay: valueobject.NewMoneyCents(s.TotalVarianceValue).Decimal(),
		Progress:                  s.Progress(),
		StartedAt:                 s.StartedAt,
		CompletedAt:               s.CompletedAt,
		CancelledAt:               s.CancelledAt,
		CreatedByID:               s.CreatedByID,
		CompletedByID:             s.CompletedByID,
		CreatedAt:                 s.CreatedAt,
		Items:                     items,
	}
}

// ToVarianceReportResponse builds the variance report for a session
func ToVarianceReportResponse(s *reconciliation.Session) VarianceReportResponse {
	varianceItems := s.VarianceItemList()
	items := make([]SessionItemResponse, len(varianceItems))
	for i := range varianceItems {
		items[i] = ToSessionItemResponse(&varianceItems[i])
	}
	return VarianceReportResponse{
		SessionID:                 s.ID,
		SessionNumber:             s.SessionNumber,
		WarehouseID:               s.WarehouseID,
		VarianceItems:             items,
		TotalVariance:             s.TotalVariance,
		TotalVarianceValue:        s.TotalVarianceValue,
		TotalVarianceValueDisplay: valueobject.NewMoneyCents(s.TotalVarianceValue).Decimal(),
	}
}

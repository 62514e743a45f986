package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStockMoveTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.StockMoveEntryModel{})
	require.NoError(t, err)

	return db
}

func newReceiptEntry(t *testing.T, tenantID, productID, locationID uuid.UUID, qty, unitCost int64, key string, at time.Time) *ledger.StockMoveEntry {
	t.Helper()
	entry, err := ledger.NewStockMoveEntry(ledger.EntryDraft{
		TenantID:              tenantID,
		ProductID:             productID,
		DestinationLocationID: &locationID,
		MoveKind:              ledger.MoveKindReceipt,
		Quantity:              qty,
		UnitCost:              &unitCost,
		ReferenceKind:         ledger.ReferenceKindPurchaseOrder,
		ReferenceID:           uuid.New(),
		IdempotencyKey:        key,
		OccurredAt:            at,
	})
	require.NoError(t, err)
	return entry
}

func newDeliveryEntry(t *testing.T, tenantID, productID, locationID uuid.UUID, qty int64, key string, at time.Time) *ledger.StockMoveEntry {
	t.Helper()
	entry, err := ledger.NewStockMoveEntry(ledger.EntryDraft{
		TenantID:         tenantID,
		ProductID:        productID,
		SourceLocationID: &locationID,
		MoveKind:         ledger.MoveKindDelivery,
		Quantity:         qty,
		ReferenceKind:    ledger.ReferenceKindSalesOrder,
		ReferenceID:      uuid.New(),
		IdempotencyKey:   key,
		OccurredAt:       at,
	})
	require.NoError(t, err)
	return entry
}

func TestStockMoveRepository_CreateAndFind(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	productID := uuid.New()
	locationID := uuid.New()

	entry := newReceiptEntry(t, tenantID, productID, locationID, 10, 250, "po-1-line-1", time.Now().UTC())
	entry.Metadata = map[string]string{"carrier": "dhl", "batch": "B-77"}
	require.NoError(t, repo.Create(ctx, entry))

	t.Run("finds by ID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tenantID, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, entry.ID, found.ID)
		assert.Equal(t, productID, found.ProductID)
		assert.Equal(t, ledger.MoveKindReceipt, found.MoveKind)
		assert.Equal(t, int64(10), found.Quantity)
		require.NotNil(t, found.UnitCost)
		assert.Equal(t, int64(250), *found.UnitCost)
		require.NotNil(t, found.TotalCost)
		assert.Equal(t, int64(2500), *found.TotalCost)
		require.NotNil(t, found.DestinationLocationID)
		assert.Equal(t, locationID, *found.DestinationLocationID)
		assert.Equal(t, map[string]string{"carrier": "dhl", "batch": "B-77"}, found.Metadata)
	})

	t.Run("finds by idempotency key", func(t *testing.T) {
		found, err := repo.FindByIdempotencyKey(ctx, tenantID, "po-1-line-1")
		require.NoError(t, err)
		assert.Equal(t, entry.ID, found.ID)
	})

	t.Run("returns not found for unknown ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, tenantID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("does not cross tenants", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), entry.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByIdempotencyKey(ctx, uuid.New(), "po-1-line-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestStockMoveRepository_IdempotencyKeyUniquePerTenant(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	productID := uuid.New()
	locationID := uuid.New()
	at := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newReceiptEntry(t, tenantID, productID, locationID, 5, 100, "po-9-line-1", at)))

	t.Run("rejects duplicate key within a tenant", func(t *testing.T) {
		err := repo.Create(ctx, newReceiptEntry(t, tenantID, productID, locationID, 7, 100, "po-9-line-1", at))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("allows the same key for another tenant", func(t *testing.T) {
		err := repo.Create(ctx, newReceiptEntry(t, uuid.New(), productID, locationID, 7, 100, "po-9-line-1", at))
		assert.NoError(t, err)
	})
}

func TestStockMoveRepository_FindByProduct(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	productID := uuid.New()
	locationID := uuid.New()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := make([]*ledger.StockMoveEntry, 5)
	for i := range entries {
		at := base.Add(time.Duration(i) * time.Hour)
		var entry *ledger.StockMoveEntry
		if i == 3 {
			entry = newDeliveryEntry(t, tenantID, productID, locationID, -2, "so-1-line-1", at)
		} else {
			entry = newReceiptEntry(t, tenantID, productID, locationID, int64(i+1), 100, uuid.New().String(), at)
		}
		require.NoError(t, repo.Create(ctx, entry))
		entries[i] = entry
	}
	// Another product's movement must not leak in
	require.NoError(t, repo.Create(ctx, newReceiptEntry(t, tenantID, uuid.New(), locationID, 1, 100, uuid.New().String(), base)))

	t.Run("orders ascending by occurred_at", func(t *testing.T) {
		got, err := repo.FindByProduct(ctx, tenantID, ledger.HistoryQuery{ProductID: productID})
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i := range got {
			assert.Equal(t, entries[i].ID, got[i].ID)
		}
	})

	t.Run("resumes from a keyset cursor without gaps", func(t *testing.T) {
		first, err := repo.FindByProduct(ctx, tenantID, ledger.HistoryQuery{ProductID: productID, Limit: 2})
		require.NoError(t, err)
		require.Len(t, first, 2)

		last := first[len(first)-1]
		rest, err := repo.FindByProduct(ctx, tenantID, ledger.HistoryQuery{
			ProductID: productID,
			AfterTime: &last.OccurredAt,
			AfterID:   &last.ID,
		})
		require.NoError(t, err)
		require.Len(t, rest, 3)
		assert.Equal(t, entries[2].ID, rest[0].ID)
		assert.Equal(t, entries[4].ID, rest[2].ID)
	})

	t.Run("filters by move kind", func(t *testing.T) {
		kind := ledger.MoveKindDelivery
		got, err := repo.FindByProduct(ctx, tenantID, ledger.HistoryQuery{ProductID: productID, MoveKind: &kind})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, entries[3].ID, got[0].ID)
	})

	t.Run("filters by time window", func(t *testing.T) {
		from := base.Add(time.Hour)
		to := base.Add(3 * time.Hour)
		got, err := repo.FindByProduct(ctx, tenantID, ledger.HistoryQuery{ProductID: productID, From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, got, 3)
	})
}

func TestStockMoveRepository_Sums(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	productID := uuid.New()
	mainWH := uuid.New()
	backWH := uuid.New()
	at := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newReceiptEntry(t, tenantID, productID, mainWH, 10, 100, "r1", at)))
	require.NoError(t, repo.Create(ctx, newDeliveryEntry(t, tenantID, productID, mainWH, -3, "d1", at)))

	transfer, err := ledger.NewStockMoveEntry(ledger.EntryDraft{
		TenantID:              tenantID,
		ProductID:             productID,
		SourceLocationID:      &mainWH,
		DestinationLocationID: &backWH,
		MoveKind:              ledger.MoveKindTransfer,
		Quantity:              4,
		ReferenceKind:         ledger.ReferenceKindTransferOrder,
		ReferenceID:           uuid.New(),
		IdempotencyKey:        "t1",
		OccurredAt:            at,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, transfer))

	t.Run("global sum ignores transfers", func(t *testing.T) {
		sum, err := repo.SumQuantityByProduct(ctx, tenantID, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(7), sum)
	})

	t.Run("per-location sum follows both transfer legs", func(t *testing.T) {
		sum, err := repo.SumQuantityByProductAndLocation(ctx, tenantID, productID, mainWH)
		require.NoError(t, err)
		assert.Equal(t, int64(3), sum)

		sum, err = repo.SumQuantityByProductAndLocation(ctx, tenantID, productID, backWH)
		require.NoError(t, err)
		assert.Equal(t, int64(4), sum)
	})

	t.Run("on-hand by location groups per product", func(t *testing.T) {
		otherProduct := uuid.New()
		require.NoError(t, repo.Create(ctx, newReceiptEntry(t, tenantID, otherProduct, mainWH, 6, 50, "r2", at)))

		onHand, err := repo.OnHandByLocation(ctx, tenantID, mainWH)
		require.NoError(t, err)
		assert.Equal(t, int64(3), onHand[productID])
		assert.Equal(t, int64(6), onHand[otherProduct])
	})
}

func TestStockMoveRepository_FindByReference(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	locationID := uuid.New()
	referenceID := uuid.New()
	at := time.Now().UTC()

	for i := 0; i < 3; i++ {
		unitCost := int64(100)
		entry, err := ledger.NewStockMoveEntry(ledger.EntryDraft{
			TenantID:              tenantID,
			ProductID:             uuid.New(),
			DestinationLocationID: &locationID,
			MoveKind:              ledger.MoveKindReceipt,
			Quantity:              int64(i + 1),
			UnitCost:              &unitCost,
			ReferenceKind:         ledger.ReferenceKindPurchaseOrder,
			ReferenceID:           referenceID,
			IdempotencyKey:        uuid.New().String(),
			OccurredAt:            at,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, entry))
	}
	require.NoError(t, repo.Create(ctx, newReceiptEntry(t, tenantID, uuid.New(), locationID, 1, 100, "other-ref", at)))

	got, err := repo.FindByReference(ctx, tenantID, ledger.ReferenceKindPurchaseOrder, referenceID)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestStockMoveRepository_UpdateAnnotation(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	entry := newReceiptEntry(t, tenantID, uuid.New(), uuid.New(), 10, 100, "po-2-line-1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, entry))

	t.Run("patches the reason and nothing else", func(t *testing.T) {
		require.NoError(t, repo.UpdateAnnotation(ctx, tenantID, entry.ID, "damaged pallet recount"))

		found, err := repo.FindByID(ctx, tenantID, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "damaged pallet recount", found.MoveReason)
		assert.Equal(t, int64(10), found.Quantity)
		assert.Equal(t, entry.IdempotencyKey, found.IdempotencyKey)
	})

	t.Run("returns not found for unknown entry", func(t *testing.T) {
		err := repo.UpdateAnnotation(ctx, tenantID, uuid.New(), "x")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestStockMoveRepository_CoreFieldsImmutable(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	entry := newReceiptEntry(t, tenantID, uuid.New(), uuid.New(), 10, 100, "po-3-line-1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, entry))

	t.Run("quantity update is rejected", func(t *testing.T) {
		err := db.Model(&models.StockMoveEntryModel{}).
			Where("id = ?", entry.ID).
			Update("quantity", int64(999)).Error
		assert.ErrorIs(t, err, shared.ErrLedgerImmutable)

		found, err := repo.FindByID(ctx, tenantID, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), found.Quantity)
	})

	t.Run("idempotency key update is rejected", func(t *testing.T) {
		err := db.Model(&models.StockMoveEntryModel{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{"idempotency_key": "rewritten"}).Error
		assert.ErrorIs(t, err, shared.ErrLedgerImmutable)
	})

	t.Run("annotation update still passes", func(t *testing.T) {
		require.NoError(t, repo.UpdateAnnotation(ctx, tenantID, entry.ID, "recount"))
	})
}

func TestStockMoveRepository_FindAll(t *testing.T) {
	db := setupStockMoveTestDB(t)
	repo := NewGormStockMoveRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	locationID := uuid.New()
	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newReceiptEntry(t, tenantID, uuid.New(), locationID, 1, 100, uuid.New().String(), at)))
	}
	require.NoError(t, repo.Create(ctx, newReceiptEntry(t, uuid.New(), uuid.New(), locationID, 1, 100, uuid.New().String(), at)))

	filter := shared.DefaultFilter()
	filter.PageSize = 2

	page, err := repo.FindAll(ctx, tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalPages)
}

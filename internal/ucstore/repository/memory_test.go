package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, repo *MemoryRepository, id string, amount float64) {
	t.Helper()
	now := time.Now().UTC()
	err := repo.CreateOrder(context.Background(),
		&models.Order{ID: id, ProductID: "p", Amount: amount, Status: models.StatusPending, CreatedAt: now, UpdatedAt: now},
		&models.Payment{ID: "pay-" + id, OrderID: id, Provider: models.ProviderShopier, Status: models.PaymentPending, Amount: amount, CreatedAt: now},
	)
	require.NoError(t, err)
}

func TestMemoryRepository_Seed(t *testing.T) {
	repo := NewMemoryRepository()

	products, err := repo.ListProducts(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, products, 5)

	var tiers []int
	for _, p := range products {
		tiers = append(tiers, p.UCAmount)
		assert.True(t, p.Active)
		assert.NotEmpty(t, p.ID)
	}
	assert.Equal(t, []int{60, 325, 660, 1800, 3850}, tiers)
}

func TestMemoryRepository_DeactivateProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	products, _ := repo.ListProducts(ctx, true)
	id := products[0].ID

	require.NoError(t, repo.DeactivateProduct(ctx, id))
	require.NoError(t, repo.DeactivateProduct(ctx, id))

	active, _ := repo.ListProducts(ctx, true)
	all, _ := repo.ListProducts(ctx, false)
	assert.Len(t, active, 4)
	assert.Len(t, all, 5)
	assert.False(t, all[0].Active)

	assert.ErrorIs(t, repo.DeactivateProduct(ctx, "missing"), models.ErrNotFound)
}

func TestMemoryRepository_ListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	newTestOrder(t, repo, "o1", 10)
	newTestOrder(t, repo, "o2", 10)
	newTestOrder(t, repo, "o3", 10)

	_, err := repo.SettleOrder(ctx, models.Settlement{OrderID: "o2", Status: models.StatusPaid, SettledAt: time.Now()})
	require.NoError(t, err)

	all, err := repo.ListOrders(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "o3", all[0].ID)
	assert.Equal(t, "o1", all[2].ID)

	pending, _ := repo.ListOrders(ctx, models.StatusPending, 0)
	assert.Len(t, pending, 2)

	limited, _ := repo.ListOrders(ctx, "", 2)
	assert.Len(t, limited, 2)
}

func TestMemoryRepository_SettleOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	newTestOrder(t, repo, "o1", 19.99)

	s := models.Settlement{OrderID: "o1", Status: models.StatusPaid, TransactionID: "TXN1", SettledAt: time.Now()}

	first, err := repo.SettleOrder(ctx, s)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.False(t, first.Duplicate)

	second, err := repo.SettleOrder(ctx, s)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.True(t, second.Duplicate)

	stats, _ := repo.GetOrderStats(ctx)
	assert.Equal(t, int64(1), stats.PaidOrders)
	assert.Equal(t, int64(0), stats.PendingOrders)
	assert.InDelta(t, 19.99, stats.TotalRevenue, 0.001)

	payment, _ := repo.GetPaymentByOrder(ctx, "o1")
	assert.Equal(t, models.PaymentSuccess, payment.Status)
	assert.Equal(t, "TXN1", payment.TransactionID)
}

func TestMemoryRepository_SettleOrderConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	newTestOrder(t, repo, "o1", 89.99)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.SettleOrder(ctx, models.Settlement{OrderID: "o1", Status: models.StatusPaid, TransactionID: "TXN", SettledAt: time.Now()})
			if assert.NoError(t, err) && res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	stats, _ := repo.GetOrderStats(ctx)
	assert.InDelta(t, 89.99, stats.TotalRevenue, 0.001)
	assert.Equal(t, int64(1), stats.PaidOrders)
}

func TestMemoryRepository_SettleOrderFailedIsTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	newTestOrder(t, repo, "o1", 10)

	res, err := repo.SettleOrder(ctx, models.Settlement{OrderID: "o1", Status: models.StatusFailed, TransactionID: "T1", SettledAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = repo.SettleOrder(ctx, models.Settlement{OrderID: "o1", Status: models.StatusPaid, TransactionID: "T2", SettledAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.False(t, res.Duplicate)
	assert.Equal(t, models.StatusFailed, res.Order.Status)

	stats, _ := repo.GetOrderStats(ctx)
	assert.Equal(t, int64(1), stats.FailedOrders)
	assert.Equal(t, int64(0), stats.PendingOrders)
	assert.Zero(t, stats.TotalRevenue)
}

func TestMemoryRepository_SettleUnknownOrder(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.SettleOrder(context.Background(), models.Settlement{OrderID: "nope", Status: models.StatusPaid})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryRepository_ProductsFollowSortOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	products, err := repo.ListProducts(ctx, false)
	require.NoError(t, err)

	last := products[len(products)-1]
	last.SortOrder = 0
	require.NoError(t, repo.UpdateProduct(ctx, &last))

	products, err = repo.ListProducts(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, last.ID, products[0].ID)
	assert.Equal(t, 0, products[0].SortOrder)
}

func TestMemoryRepository_AuditLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now().UTC()

	details := map[string]any{"price": 30.0}
	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{ID: "1", Action: "product.update", EntityType: "product", EntityID: "p1", Details: details, CreatedAt: now}))
	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{ID: "2", Action: "admin.login", EntityType: "admin", EntityID: "admin", CreatedAt: now}))
	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{ID: "3", Action: "product.delete", EntityType: "product", EntityID: "p1", CreatedAt: now}))
	details["price"] = 99.0

	all, err := repo.ListAuditLogs(ctx, models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].ID)
	assert.Equal(t, 30.0, all[2].Details["price"])

	byType, _ := repo.ListAuditLogs(ctx, models.AuditFilter{EntityType: "product"})
	assert.Len(t, byType, 2)

	byAction, _ := repo.ListAuditLogs(ctx, models.AuditFilter{Action: "admin.login"})
	require.Len(t, byAction, 1)
	assert.Equal(t, "2", byAction[0].ID)

	limited, _ := repo.ListAuditLogs(ctx, models.AuditFilter{Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, "3", limited[0].ID)
}

package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("update payment: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(assert.AnError))
}

// newPostgresRepository connects to UCSTORE_TEST_DATABASE_URI or skips the test
func newPostgresRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	uri := os.Getenv("UCSTORE_TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("UCSTORE_TEST_DATABASE_URI is not set")
	}
	repo := NewPostgresRepository()
	require.NoError(t, repo.InitDB(uri))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newPostgresOrder(t *testing.T, repo *PostgresRepository) *models.Order {
	t.Helper()
	ctx := context.Background()
	products, err := repo.ListProducts(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, products)

	now := time.Now().UTC()
	o := &models.Order{
		ID: uuid.New().String(), ProductID: products[0].ID, ProductTitle: products[0].Title,
		UCAmount: products[0].UCAmount, Amount: products[0].DiscountPrice,
		PlayerID: "123456", PlayerName: "P", Status: models.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
	p := &models.Payment{
		ID: uuid.New().String(), OrderID: o.ID, Provider: models.ProviderShopier, ProviderRef: "ref",
		Status: models.PaymentPending, Amount: o.Amount, CreatedAt: now,
	}
	require.NoError(t, repo.CreateOrder(ctx, o, p))
	return o
}

func TestPostgresRepository_SettleOrder(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()
	order := newPostgresOrder(t, repo)
	before, err := repo.GetOrderStats(ctx)
	require.NoError(t, err)

	txID := "TXN-" + uuid.New().String()
	settle := models.Settlement{OrderID: order.ID, Status: models.StatusPaid, TransactionID: txID, SettledAt: time.Now().UTC()}

	var wg sync.WaitGroup
	results := make([]*models.SettlementResult, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := repo.SettleOrder(ctx, settle)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, models.StatusPaid, res.Order.Status)
		if res.Applied {
			applied++
		} else {
			assert.True(t, res.Duplicate)
		}
	}
	assert.Equal(t, 1, applied)

	after, err := repo.GetOrderStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.PaidOrders+1, after.PaidOrders)
	assert.InDelta(t, before.TotalRevenue+order.Amount, after.TotalRevenue, 0.001)

	_, err = repo.SettleOrder(ctx, models.Settlement{OrderID: "missing", Status: models.StatusPaid})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresRepository_TransactionReplayedOnOtherOrders(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()
	txID := "TXN-" + uuid.New().String()

	orders := make([]*models.Order, 5)
	for i := range orders {
		orders[i] = newPostgresOrder(t, repo)
	}

	var wg sync.WaitGroup
	results := make([]*models.SettlementResult, len(orders))
	for i, o := range orders {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res, err := repo.SettleOrder(ctx, models.Settlement{
				OrderID: id, Status: models.StatusPaid, TransactionID: txID, SettledAt: time.Now().UTC(),
			})
			assert.NoError(t, err)
			results[i] = res
		}(i, o.ID)
	}
	wg.Wait()

	applied := 0
	for _, res := range results {
		require.NotNil(t, res)
		if res.Applied {
			applied++
			continue
		}
		assert.True(t, res.Duplicate)
		assert.Equal(t, models.StatusPending, res.Order.Status)
	}
	assert.Equal(t, 1, applied)
}

func TestPostgresRepository_AuditLogs(t *testing.T) {
	repo := newPostgresRepository(t)
	ctx := context.Background()
	entityID := uuid.New().String()

	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{
		ID: uuid.New().String(), Action: "product.update", EntityType: "product", EntityID: entityID,
		Actor: "admin", Details: map[string]any{"price": 30.0}, CreatedAt: time.Now().UTC(),
	}))

	logs, err := repo.ListAuditLogs(ctx, models.AuditFilter{Action: "product.update", Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entityID, logs[0].EntityID)
	assert.Equal(t, 30.0, logs[0].Details["price"])
}

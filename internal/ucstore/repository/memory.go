package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/25x8/uc-store/internal/ucstore/utils"
)

// MemoryRepository implements Repository in process memory. It is used when no
// database URI is configured and in tests.
type MemoryRepository struct {
	mu           sync.RWMutex
	products     []*models.Product
	orders       []*models.Order
	ordersByID   map[string]*models.Order
	payments     map[string]*models.Payment // by order id
	transactions map[string]string          // transaction id -> order id
	stats        models.OrderStats
	auditLogs    []models.AuditLog
}

// NewMemoryRepository creates a repository seeded with the initial catalog
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{
		ordersByID:   make(map[string]*models.Order),
		payments:     make(map[string]*models.Payment),
		transactions: make(map[string]string),
	}
	for _, p := range SeedProducts(time.Now().UTC()) {
		p := p
		r.products = append(r.products, &p)
	}
	return r
}

// InitDB is a no-op for the in-memory store
func (r *MemoryRepository) InitDB(string) error { return nil }

// Close is a no-op for the in-memory store
func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) findProduct(id string) *models.Product {
	for _, p := range r.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *MemoryRepository) ListProducts(_ context.Context, activeOnly bool) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if activeOnly && !p.Active {
			continue
		}
		products = append(products, *p)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].SortOrder < products[j].SortOrder
	})
	return products, nil
}

func (r *MemoryRepository) GetProduct(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.findProduct(id)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) UpdateProduct(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findProduct(product.ID)
	if p == nil {
		return fmt.Errorf("product %s: %w", product.ID, models.ErrNotFound)
	}
	createdAt := p.CreatedAt
	*p = *product
	p.CreatedAt = createdAt
	return nil
}

func (r *MemoryRepository) DeactivateProduct(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findProduct(id)
	if p == nil {
		return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	if p.Active {
		p.Active = false
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *MemoryRepository) CreateOrder(_ context.Context, order *models.Order, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ordersByID[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	o := *order
	p := *payment
	r.orders = append(r.orders, &o)
	r.ordersByID[o.ID] = &o
	r.payments[o.ID] = &p
	r.stats.TotalOrders++
	r.stats.PendingOrders++
	return nil
}

func (r *MemoryRepository) GetOrder(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.ordersByID[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) GetPaymentByOrder(_ context.Context, orderID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[orderID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) ListOrders(_ context.Context, status string, limit int) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]models.Order, 0)
	for i := len(r.orders) - 1; i >= 0; i-- {
		o := r.orders[i]
		if status != "" && o.Status != status {
			continue
		}
		orders = append(orders, *o)
		if limit > 0 && len(orders) == limit {
			break
		}
	}
	return orders, nil
}

// SettleOrder performs the pending -> terminal compare-and-set under the write
// lock, together with the payment and counter updates.
func (r *MemoryRepository) SettleOrder(_ context.Context, s models.Settlement) (*models.SettlementResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.ordersByID[s.OrderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", s.OrderID, models.ErrNotFound)
	}

	_, replayed := r.transactions[s.TransactionID]
	replayed = replayed && s.TransactionID != ""

	applied := false
	if !replayed && o.Status == models.StatusPending {
		applied = true
		o.Status = s.Status
		o.UpdatedAt = s.SettledAt

		p := r.payments[o.ID]
		p.VerifiedAt = &s.SettledAt
		p.TransactionID = s.TransactionID
		if s.TransactionID != "" {
			r.transactions[s.TransactionID] = o.ID
		}

		r.stats.PendingOrders--
		if s.Status == models.StatusPaid {
			paidAt := s.SettledAt
			o.PaidAt = &paidAt
			p.Status = models.PaymentSuccess
			r.stats.PaidOrders++
			r.stats.TotalRevenue = utils.Round2(r.stats.TotalRevenue + o.Amount)
		} else {
			p.Status = models.PaymentFailed
			r.stats.FailedOrders++
		}
	}

	cp := *o
	return &models.SettlementResult{
		Order:     &cp,
		Applied:   applied,
		Duplicate: !applied && (replayed || o.Status == s.Status),
	}, nil
}

func (r *MemoryRepository) GetOrderStats(_ context.Context) (*models.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := r.stats
	return &stats, nil
}

func (r *MemoryRepository) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *entry
	if e.Details != nil {
		details := make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			details[k] = v
		}
		e.Details = details
	}
	r.auditLogs = append(r.auditLogs, e)
	return nil
}

func (r *MemoryRepository) ListAuditLogs(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logs := make([]models.AuditLog, 0)
	for i := len(r.auditLogs) - 1; i >= 0; i-- {
		e := r.auditLogs[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		logs = append(logs, e)
		if filter.Limit > 0 && len(logs) == filter.Limit {
			break
		}
	}
	return logs, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/25x8/uc-store/internal/ucstore/logger"
	"github.com/25x8/uc-store/internal/ucstore/models"
	"github.com/25x8/uc-store/internal/ucstore/repository"
	"github.com/google/uuid"
)

// CreateOrderRequest is the public order placement input
type CreateOrderRequest struct {
	ProductID  string `json:"productId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// CreatedOrder is a freshly placed order with its checkout
type CreatedOrder struct {
	Order    *models.Order
	Payment  *models.Payment
	Checkout *Checkout
}

// OrderDetail pairs an order with its payment record
type OrderDetail struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment"`
}

// PaymentCallback is the payload the provider posts back
type PaymentCallback struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Signature     string `json:"signature,omitempty"`
}

// OrderService implements order placement, lookup and settlement
type OrderService struct {
	repo    repository.Repository
	gateway *ShopierGateway
	audit   *Auditor
	now     func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(repo repository.Repository, gateway *ShopierGateway) *OrderService {
	return &OrderService{repo: repo, gateway: gateway, audit: NewAuditor(repo), now: time.Now}
}

// Create places a pending order for an existing product
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.ProductID == "" || req.PlayerID == "" || req.PlayerName == "" {
		return nil, fmt.Errorf("productId, playerId and playerName are required: %w", models.ErrValidation)
	}
	if len(req.PlayerID) < MinPlayerIDLength {
		return nil, fmt.Errorf("player id must be at least %d characters: %w", MinPlayerIDLength, models.ErrValidation)
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, models.ErrNotFound)
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:           uuid.New().String(),
		ProductID:    product.ID,
		ProductTitle: product.Title,
		UCAmount:     product.UCAmount,
		Amount:       product.DiscountPrice,
		PlayerID:     req.PlayerID,
		PlayerName:   req.PlayerName,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	providerRef := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	checkout, err := s.gateway.Checkout(order, providerRef)
	if err != nil {
		return nil, fmt.Errorf("build checkout: %w", err)
	}
	order.PaymentURL = checkout.PaymentURL

	payment := &models.Payment{
		ID:          uuid.New().String(),
		OrderID:     order.ID,
		Provider:    models.ProviderShopier,
		ProviderRef: providerRef,
		Status:      models.PaymentPending,
		Amount:      order.Amount,
		CreatedAt:   now,
	}

	if err := s.repo.CreateOrder(ctx, order, payment); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, logger.ActionOrderCreate, "order", order.ID,
		"product_id", order.ProductID, "player_id", order.PlayerID, "amount", order.Amount)

	return &CreatedOrder{Order: order, Payment: payment, Checkout: checkout}, nil
}

// Get returns an order together with its payment
func (s *OrderService) Get(ctx context.Context, id string) (*OrderDetail, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}

	payment, err := s.repo.GetPaymentByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Payment: payment}, nil
}

// List returns orders newest first, optionally restricted to one status
func (s *OrderService) List(ctx context.Context, status string) ([]models.Order, error) {
	if status != "" && !models.IsOrderStatus(status) {
		return nil, fmt.Errorf("unknown order status %q: %w", status, models.ErrValidation)
	}
	return s.repo.ListOrders(ctx, status, 0)
}

// Recent returns the n most recent orders
func (s *OrderService) Recent(ctx context.Context, n int) ([]models.Order, error) {
	return s.repo.ListOrders(ctx, "", n)
}

// Stats returns the dashboard counters
func (s *OrderService) Stats(ctx context.Context) (*models.OrderStats, error) {
	return s.repo.GetOrderStats(ctx)
}

// Settle applies a provider callback. Redelivered callbacks are reported as
// duplicates and change nothing.
func (s *OrderService) Settle(ctx context.Context, cb PaymentCallback) (*models.SettlementResult, error) {
	cb.OrderID = strings.TrimSpace(cb.OrderID)
	if cb.OrderID == "" {
		return nil, fmt.Errorf("orderId is required: %w", models.ErrValidation)
	}

	order, err := s.repo.GetOrder(ctx, cb.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("order %s: %w", cb.OrderID, models.ErrNotFound)
	}

	if !s.gateway.ValidCallback(order.ID, order.Amount, cb.Signature) {
		s.audit.Record(ctx, logger.ActionCallbackRejected, "order", order.ID, "reason", "signature_mismatch")
		return nil, fmt.Errorf("callback signature mismatch for order %s: %w", order.ID, models.ErrForbidden)
	}

	target := NormalizeCallbackStatus(cb.Status)
	res, err := s.repo.SettleOrder(ctx, models.Settlement{
		OrderID:       order.ID,
		Status:        target,
		TransactionID: strings.TrimSpace(cb.TransactionID),
		SettledAt:     s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if res.Applied {
		s.audit.Record(ctx, logger.ActionOrderStatusChange, "order", order.ID,
			"from", models.StatusPending, "to", target, "transaction_id", cb.TransactionID)
	}
	return res, nil
}

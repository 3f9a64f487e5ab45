package models

import (
	"time"
)

// Product represents a UC bundle offered in the catalog
type Product struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	UCAmount        int       `json:"ucAmount"`
	Price           float64   `json:"price"`
	DiscountPrice   float64   `json:"discountPrice"`
	DiscountPercent float64   `json:"discountPercent"`
	Active          bool      `json:"active"`
	SortOrder       int       `json:"sortOrder"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ProductUpdate carries a partial product update. Nil fields are left untouched.
type ProductUpdate struct {
	Title           *string  `json:"title,omitempty"`
	UCAmount        *int     `json:"ucAmount,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	DiscountPrice   *float64 `json:"discountPrice,omitempty"`
	DiscountPercent *float64 `json:"discountPercent,omitempty"`
	Active          *bool    `json:"active,omitempty"`
	SortOrder       *int     `json:"sortOrder,omitempty"`
}

// Order represents a purchase of a single bundle for a player
type Order struct {
	ID           string     `json:"id"`
	ProductID    string     `json:"productId"`
	ProductTitle string     `json:"productTitle"`
	UCAmount     int        `json:"ucAmount"`
	Amount       float64    `json:"amount"`
	PlayerID     string     `json:"playerId"`
	PlayerName   string     `json:"playerName"`
	Status       string     `json:"status"`
	PaymentURL   string     `json:"paymentUrl,omitempty"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Payment is the provider-side record paired one-to-one with an order
type Payment struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"orderId"`
	Provider      string     `json:"provider"`
	ProviderRef   string     `json:"providerRef"`
	TransactionID string     `json:"transactionId,omitempty"`
	Status        string     `json:"status"`
	Amount        float64    `json:"amount"`
	CreatedAt     time.Time  `json:"createdAt"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
}

// OrderStats holds the dashboard counters
type OrderStats struct {
	TotalOrders   int64   `json:"totalOrders"`
	PaidOrders    int64   `json:"paidOrders"`
	PendingOrders int64   `json:"pendingOrders"`
	FailedOrders  int64   `json:"failedOrders"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// Settlement is the outcome a payment callback asks to apply to an order
type Settlement struct {
	OrderID       string
	Status        string // StatusPaid or StatusFailed
	TransactionID string
	SettledAt     time.Time
}

// SettlementResult reports what a settlement actually did
type SettlementResult struct {
	Order     *Order
	Applied   bool
	Duplicate bool
}

// Player is a resolved game account
type Player struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// AdminIdentity identifies an authenticated administrator
type AdminIdentity struct {
	Username  string `json:"username"`
	SessionID string `json:"-"`
}

// AdminSession is an issued bearer credential
type AdminSession struct {
	ID        string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuditLog is a persisted record of an administrative or payment action
type AuditLog struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Actor      string         `json:"actor,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// AuditFilter narrows an audit log query. Empty fields match everything.
type AuditFilter struct {
	Action     string
	EntityType string
	Limit      int
}

// Order statuses
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// Payment statuses
const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// ProviderShopier is the only supported payment provider
const ProviderShopier = "shopier"

// IsOrderStatus reports whether s is a known order status
func IsOrderStatus(s string) bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed:
		return true
	}
	return false
}

package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/25x8/uc-store/internal/ucstore/models"
)

// DefaultShopierPaymentURL is the hosted checkout page of the provider
const DefaultShopierPaymentURL = "https://www.shopier.com/ShowProduct/api_pay4.php"

// Checkout is what the client needs to hand the buyer over to the provider
type Checkout struct {
	PaymentURL  string `json:"paymentUrl"`
	PaymentData string `json:"paymentData"`
	Signature   string `json:"signature,omitempty"`
}

// ShopierConfig configures the Shopier gateway
type ShopierConfig struct {
	APIKey      string
	APISecret   string
	PaymentURL  string
	CallbackURL string
	ReturnURL   string
}

// ShopierGateway builds signed checkouts and authenticates callbacks
type ShopierGateway struct {
	cfg ShopierConfig
}

// NewShopierGateway creates a new gateway
func NewShopierGateway(cfg ShopierConfig) *ShopierGateway {
	if cfg.PaymentURL == "" {
		cfg.PaymentURL = DefaultShopierPaymentURL
	}
	return &ShopierGateway{cfg: cfg}
}

type shopierPaymentData struct {
	APIKey          string `json:"API_key"`
	WebsiteIndex    int    `json:"website_index"`
	PlatformOrderID string `json:"platform_order_id"`
	ProductName     string `json:"product_name"`
	ProductType     int    `json:"product_type"`
	PlayerID        string `json:"buyer_id_nr"`
	TotalOrderValue string `json:"total_order_value"`
	Currency        int    `json:"currency"`
	CallbackURL     string `json:"callback_url,omitempty"`
	ReturnURL       string `json:"return_url,omitempty"`
	RandomNr        string `json:"random_nr"`
}

// Checkout builds the signed payment payload for order. providerRef is sent as
// the provider's random_nr and stored on the pending payment.
func (g *ShopierGateway) Checkout(order *models.Order, providerRef string) (*Checkout, error) {
	returnURL := ""
	if g.cfg.ReturnURL != "" {
		returnURL = g.cfg.ReturnURL + "/order/" + url.PathEscape(order.ID) + "/status"
	}

	data := shopierPaymentData{
		APIKey:          g.cfg.APIKey,
		WebsiteIndex:    1,
		PlatformOrderID: order.ID,
		ProductName:     fmt.Sprintf("%s - %d UC", order.ProductTitle, order.UCAmount),
		ProductType:     0, // digital goods
		PlayerID:        order.PlayerID,
		TotalOrderValue: formatAmount(order.Amount),
		Currency:        0, // TRY
		CallbackURL:     g.cfg.CallbackURL,
		ReturnURL:       returnURL,
		RandomNr:        providerRef,
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	checkout := &Checkout{
		PaymentURL:  g.cfg.PaymentURL,
		PaymentData: encoded,
	}
	if g.cfg.APISecret != "" {
		mac := hmac.New(sha256.New, []byte(g.cfg.APISecret))
		mac.Write([]byte(encoded))
		checkout.Signature = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	}
	return checkout, nil
}

// VerifiesCallbacks reports whether callbacks must carry a valid signature
func (g *ShopierGateway) VerifiesCallbacks() bool {
	return g.cfg.APISecret != ""
}

// CallbackSignature returns the hex HMAC-SHA256 of orderID and amount
func (g *ShopierGateway) CallbackSignature(orderID string, amount float64) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.APISecret))
	mac.Write([]byte(orderID + formatAmount(amount)))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidCallback checks a received callback signature in constant time
func (g *ShopierGateway) ValidCallback(orderID string, amount float64, signature string) bool {
	if !g.VerifiesCallbacks() {
		return true
	}
	expected := g.CallbackSignature(orderID, amount)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// NormalizeCallbackStatus maps provider status values onto order statuses
func NormalizeCallbackStatus(status string) string {
	switch status {
	case "success", "1":
		return models.StatusPaid
	default:
		return models.StatusFailed
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

package models

import "time"

// Order lifecycle statuses. The forward path is fixed; cancelled and
// refunded are terminal side exits.
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusProcessing     = "processing"
	OrderStatusPacked         = "packed"
	OrderStatusShipped        = "shipped"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRefunded       = "refunded"
)

// Address is stored on the order as a snapshot, not a reference.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Order struct {
	ID          uint64 `json:"id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`

	Items           []*OrderItem `json:"items,omitempty"`
	ShippingAddress Address      `json:"shipping_address"`
	BillingAddress  Address      `json:"billing_address"`

	PaymentIntentID  string `json:"payment_intent_id,omitempty"`
	ShippingOptionID string `json:"shipping_option_id"`
	ZoneID           string `json:"zone_id"`

	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`

	TrackingNumber string            `json:"tracking_number,omitempty"`
	Schedule       *DeliverySchedule `json:"schedule,omitempty"`

	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
	NextCheckAt    time.Time  `json:"next_check_at"`
	CheckFailCount int32      `json:"check_fail_count"`
	LastError      *string    `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID             uint64 `json:"id"`
	OrderID        uint64 `json:"order_id"`
	ProductID      uint64 `json:"product_id"`
	ProductName    string `json:"product_name"`
	Category       string `json:"category"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int64  `json:"quantity"`
}

// TrackingEntry is one append-only record of the order's status at a point
// in time. Internal entries are hidden from customers.
type TrackingEntry struct {
	ID        uint64    `json:"id"`
	OrderID   uint64    `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Location  *string   `json:"location,omitempty"`
	Driver    *string   `json:"driver,omitempty"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

type Review struct {
	ID        uint64    `json:"id"`
	ProductID uint64    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LoyaltyAccount struct {
	UserID    string    `json:"user_id"`
	Points    int64     `json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoyaltyEntry is the append-only ledger behind the balance. Positive delta
// is an earn, negative is a redemption.
type LoyaltyEntry struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"user_id"`
	OrderID   *uint64   `json:"order_id,omitempty"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type PromoCode struct {
	Code             string    `json:"code"`
	PercentOff       int       `json:"percent_off,omitempty"`
	AmountOffCents   int64     `json:"amount_off_cents,omitempty"`
	MinSubtotalCents int64     `json:"min_subtotal_cents"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsActive         bool      `json:"is_active"`
}

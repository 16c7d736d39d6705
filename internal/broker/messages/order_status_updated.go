package messages

import "time"

// OrderStatusUpdated is published by courier-worker after each courier feed
// check and consumed by market-api, which applies it to storage. Either
// Status or Error is set, never both.
type OrderStatusUpdated struct {
	OrderID   uint64    `json:"order_id"`
	CheckedAt time.Time `json:"checked_at"`

	Status   string  `json:"status,omitempty"`
	Message  string  `json:"message,omitempty"`
	Location *string `json:"location,omitempty"`
	Driver   *string `json:"driver,omitempty"`

	NextCheckAt time.Time `json:"next_check_at"`

	Error *string `json:"error,omitempty"`
}

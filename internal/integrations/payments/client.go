package payments

import "context"

// Intent statuses as reported by the gateway.
const (
	IntentStatusRequiresConfirmation = "requires_confirmation"
	IntentStatusSucceeded            = "succeeded"
	IntentStatusDeclined             = "declined"
)

type Intent struct {
	ID          string
	AmountCents int64
	Currency    string
	OrderRef    string
	Status      string
}

type Refund struct {
	ID          string
	IntentID    string
	AmountCents int64
	Reason      string
}

// Client is the payment gateway boundary. Amounts are minor currency units.
type Client interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, orderRef string) (*Intent, error)
	Confirm(ctx context.Context, intentID string) (*Intent, error)
	// Refund with amountCents <= 0 refunds the full intent amount.
	Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*Refund, error)
}

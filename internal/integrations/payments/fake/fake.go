package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/FreshOps/MarketBox/internal/integrations/payments"
	"github.com/pkg/errors"
)

// FakeClient stands in for the payment gateway in dev and tests. Outcomes
// are deterministic per order reference: refs ending in "DECLINE" fail
// confirmation, everything else succeeds.
type FakeClient struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*payments.Intent
}

func New() *FakeClient {
	return &FakeClient{intents: map[string]*payments.Intent{}}
}

func (f *FakeClient) CreateIntent(ctx context.Context, amountCents int64, currency, orderRef string) (*payments.Intent, error) {
	if amountCents < 0 {
		return nil, errors.New("negative amount")
	}
	if currency == "" {
		currency = "usd"
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++

	h := fnv.New32a()
	_, _ = h.Write([]byte(orderRef))
	in := &payments.Intent{
		ID:          fmt.Sprintf("pi_fake_%08x_%d", h.Sum32(), f.seq),
		AmountCents: amountCents,
		Currency:    currency,
		OrderRef:    orderRef,
		Status:      payments.IntentStatusRequiresConfirmation,
	}
	f.intents[in.ID] = in
	return in, nil
}

func (f *FakeClient) Confirm(ctx context.Context, intentID string) (*payments.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	in, ok := f.intents[intentID]
	if !ok {
		return nil, errors.Errorf("unknown intent %s", intentID)
	}
	if len(in.OrderRef) >= 7 && in.OrderRef[len(in.OrderRef)-7:] == "DECLINE" {
		in.Status = payments.IntentStatusDeclined
	} else {
		in.Status = payments.IntentStatusSucceeded
	}
	return in, nil
}

func (f *FakeClient) Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*payments.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	in, ok := f.intents[intentID]
	if !ok {
		return nil, errors.Errorf("unknown intent %s", intentID)
	}
	if in.Status != payments.IntentStatusSucceeded {
		return nil, errors.Errorf("intent %s was never captured", intentID)
	}
	if amountCents <= 0 || amountCents > in.AmountCents {
		amountCents = in.AmountCents
	}
	f.seq++
	return &payments.Refund{
		ID:          fmt.Sprintf("re_fake_%d", f.seq),
		IntentID:    intentID,
		AmountCents: amountCents,
		Reason:      reason,
	}, nil
}

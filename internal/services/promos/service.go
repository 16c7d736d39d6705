package promos

import (
	"strings"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrUnknownCode  = errors.New("unknown promo code")
	ErrExpiredCode  = errors.New("promo code has expired")
	ErrBelowMinimum = errors.New("cart below the code's minimum subtotal")
)

// codes is static reference data, same as delivery zones. A percent code
// and an amount code are mutually exclusive per entry.
var codes = []*models.PromoCode{
	{Code: "FRESH10", PercentOff: 10, MinSubtotalCents: 1500, ExpiresAt: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true},
	{Code: "SAVE5", AmountOffCents: 500, MinSubtotalCents: 2500, ExpiresAt: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true},
	{Code: "WELCOME", AmountOffCents: 300, MinSubtotalCents: 0, ExpiresAt: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true},
	{Code: "SUMMER24", PercentOff: 15, MinSubtotalCents: 2000, ExpiresAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), IsActive: true},
	{Code: "STAFFONLY", PercentOff: 50, MinSubtotalCents: 0, ExpiresAt: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: false},
}

type Service struct {
	now func() time.Time
}

func New() *Service {
	return &Service{now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func byCode(code string) (*models.PromoCode, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range codes {
		if c.Code == code {
			return c, true
		}
	}
	return nil, false
}

// Discount validates the code against the subtotal and returns the discount
// in cents. Percent discounts round down.
func (s *Service) Discount(code string, subtotalCents int64) (int64, error) {
	c, ok := byCode(code)
	if !ok || !c.IsActive {
		return 0, ErrUnknownCode
	}
	if s.now().After(c.ExpiresAt) {
		return 0, ErrExpiredCode
	}
	if subtotalCents < c.MinSubtotalCents {
		return 0, ErrBelowMinimum
	}

	var discount int64
	if c.PercentOff > 0 {
		discount = subtotalCents * int64(c.PercentOff) / 100
	} else {
		discount = c.AmountOffCents
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount, nil
}

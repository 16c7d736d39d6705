package promos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
}

func TestDiscount_PercentAndAmount(t *testing.T) {
	s := New().WithClock(testClock())

	d, err := s.Discount("FRESH10", 2000)
	require.NoError(t, err)
	require.EqualValues(t, 200, d)

	d, err = s.Discount("SAVE5", 3000)
	require.NoError(t, err)
	require.EqualValues(t, 500, d)

	// codes are case-insensitive
	d, err = s.Discount("  welcome ", 100)
	require.NoError(t, err)
	require.EqualValues(t, 100, d) // capped at subtotal
}

func TestDiscount_Rejections(t *testing.T) {
	s := New().WithClock(testClock())

	_, err := s.Discount("NOPE", 5000)
	require.ErrorIs(t, err, ErrUnknownCode)

	_, err = s.Discount("STAFFONLY", 5000)
	require.ErrorIs(t, err, ErrUnknownCode)

	_, err = s.Discount("SUMMER24", 5000)
	require.ErrorIs(t, err, ErrExpiredCode)

	_, err = s.Discount("SAVE5", 2499)
	require.ErrorIs(t, err, ErrBelowMinimum)
}

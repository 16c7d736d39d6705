package fake

import (
	"context"
	"testing"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFakeClient_GetUpdate(t *testing.T) {
	c := New()
	upd, err := c.GetUpdate(context.Background(), "MB-AAAA1111", models.OrderStatusShipped)
	require.NoError(t, err)
	require.NotEmpty(t, upd.Status)
	require.NotNil(t, upd.Location)
	require.NotNil(t, upd.Driver)
	require.False(t, upd.At.IsZero())
}

func TestFakeClient_Deterministic(t *testing.T) {
	c := New()
	a, err := c.GetUpdate(context.Background(), "MB-AAAA1111", models.OrderStatusShipped)
	require.NoError(t, err)
	b, err := c.GetUpdate(context.Background(), "MB-AAAA1111", models.OrderStatusShipped)
	require.NoError(t, err)
	require.Equal(t, a.Status, b.Status)
	require.Equal(t, *a.Driver, *b.Driver)
}

func TestFakeClient_NeverMovesBackwards(t *testing.T) {
	c := New()
	order := []string{
		models.OrderStatusShipped,
		models.OrderStatusOutForDelivery,
		models.OrderStatusDelivered,
	}
	idx := map[string]int{}
	for i, s := range order {
		idx[s] = i
	}
	for _, cur := range order {
		upd, err := c.GetUpdate(context.Background(), "MB-BBBB2222", cur)
		require.NoError(t, err)
		require.GreaterOrEqual(t, idx[upd.Status], idx[cur])
	}
}

func TestFakeClient_DeliveredStaysDelivered(t *testing.T) {
	c := New()
	upd, err := c.GetUpdate(context.Background(), "MB-CCCC3333", models.OrderStatusDelivered)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusDelivered, upd.Status)
	require.Equal(t, "Delivered to door", *upd.Location)
}

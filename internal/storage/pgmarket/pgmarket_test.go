package pgmarket

import (
	"context"
	"testing"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "marketbox_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/marketbox_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGMarket_RepoFlow(t *testing.T) {
	ctx := context.Background()
	st := startStorage(t)

	// catalog
	milk, err := st.UpsertProduct(ctx, &models.Product{
		SKU: "MILK-1L", Name: "Whole Milk 1L", Category: models.CategoryDairy,
		PriceCents: 349, WeightGrams: 1030, Stock: 20, IsActive: true,
	})
	require.NoError(t, err)
	require.NotZero(t, milk.ID)

	rice, err := st.UpsertProduct(ctx, &models.Product{
		SKU: "RICE-5KG", Name: "Basmati Rice 5kg", Category: models.CategoryPantry,
		PriceCents: 1299, WeightGrams: 5000, Stock: 8, IsActive: true,
	})
	require.NoError(t, err)

	dairy, err := st.ListProducts(ctx, models.CategoryDairy, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, dairy, 1)
	require.Equal(t, milk.ID, dairy[0].ID)

	found, err := st.ListProducts(ctx, "", "rice", 10, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)

	// stock moves in one batch; overdraw fails the whole batch
	require.NoError(t, st.AdjustStock(ctx, map[uint64]int64{milk.ID: -2, rice.ID: -1}))
	err = st.AdjustStock(ctx, map[uint64]int64{rice.ID: -100})
	require.ErrorIs(t, err, ErrOutOfStock)
	rice2, err := st.GetProduct(ctx, rice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 7, rice2.Stock)

	// cart
	cart, err := st.GetOrCreateCart(ctx, "u-100")
	require.NoError(t, err)
	require.Empty(t, cart.Items)

	require.NoError(t, st.SetCartItem(ctx, cart.ID, &models.CartItem{
		ProductID: milk.ID, Quantity: 2, UnitPriceCents: milk.PriceCents,
		ProductName: milk.Name, ProductCategory: milk.Category, WeightGrams: milk.WeightGrams,
	}))
	require.NoError(t, st.SetCartItem(ctx, cart.ID, &models.CartItem{
		ProductID: milk.ID, Quantity: 3, UnitPriceCents: milk.PriceCents,
		ProductName: milk.Name, ProductCategory: milk.Category, WeightGrams: milk.WeightGrams,
	}))

	cart, err = st.GetOrCreateCart(ctx, "u-100")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.EqualValues(t, 3, cart.Items[0].Quantity)

	require.NoError(t, st.ClearCart(ctx, cart.ID))

	// order
	now := time.Now().UTC()
	order, err := st.CreateOrder(ctx, &models.Order{
		OrderNumber: "ORD-1001", UserID: "u-100", Status: models.OrderStatusPending,
		ShippingOptionID: "standard", ZoneID: "downtown",
		SubtotalCents: 1047, TaxCents: 84, ShippingCents: 499, TotalCents: 1630,
		ShippingAddress: models.Address{Line1: "1 Main St", PostalCode: "10001"},
		BillingAddress:  models.Address{Line1: "1 Main St", PostalCode: "10001"},
		TrackingNumber:  "MB-TESTTRK1",
		NextCheckAt:     now.Add(time.Hour),
		Items: []*models.OrderItem{
			{ProductID: milk.ID, ProductName: milk.Name, Category: milk.Category, UnitPriceCents: 349, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, order.ID)
	require.Len(t, order.Items, 1)

	got, err := st.GetOrderByNumber(ctx, "ORD-1001")
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)

	_, err = st.GetOrder(ctx, 999999)
	require.ErrorIs(t, err, ErrNotFound)

	// the initial public entry is written with the order
	entries, err := st.ListTrackingEntries(ctx, order.ID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, models.OrderStatusPending, entries[0].Status)

	// claim + lease
	_, err = st.db.Exec(ctx, `UPDATE orders SET next_check_at = now() - interval '1 minute' WHERE id = $1`, order.ID)
	require.NoError(t, err)

	lease := 10 * time.Second
	due, err := st.ClaimDueDeliveries(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, order.ID, due[0].ID)
	require.WithinDuration(t, now.Add(lease), due[0].NextCheckAt, 2*time.Second)

	// a second claim right away sees nothing: the lease pushed next_check_at out
	due2, err := st.ClaimDueDeliveries(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Empty(t, due2)

	// successful check moves status and appends an entry together
	loc := "Distribution center"
	require.NoError(t, st.ApplyStatusUpdate(ctx, StatusUpdate{
		OrderID:     order.ID,
		CheckedAt:   now,
		Status:      models.OrderStatusConfirmed,
		Message:     "Order confirmed",
		Location:    &loc,
		NextCheckAt: now.Add(30 * time.Minute),
	}))

	got, err = st.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, got.Status)
	require.Zero(t, got.CheckFailCount)

	entries, err = st.ListTrackingEntries(ctx, order.ID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, got.Status, entries[0].Status)

	// failed check only bumps bookkeeping
	checkErr := "feed timeout"
	require.NoError(t, st.ApplyStatusUpdate(ctx, StatusUpdate{
		OrderID:     order.ID,
		CheckedAt:   now,
		Error:       &checkErr,
		NextCheckAt: now.Add(5 * time.Minute),
	}))

	got, err = st.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusConfirmed, got.Status)
	require.EqualValues(t, 1, got.CheckFailCount)
	require.NotNil(t, got.LastError)

	require.NoError(t, st.TouchNextCheck(ctx, order.ID))
}

func TestPGMarket_ReviewsAndLoyalty(t *testing.T) {
	ctx := context.Background()
	st := startStorage(t)

	p, err := st.UpsertProduct(ctx, &models.Product{
		SKU: "APL-1KG", Name: "Apples 1kg", Category: models.CategoryFreshProduce,
		PriceCents: 499, Stock: 50, IsActive: true,
	})
	require.NoError(t, err)

	_, err = st.CreateReview(ctx, &models.Review{ProductID: p.ID, UserID: "u-1", Rating: 4, Title: "Crisp"})
	require.NoError(t, err)
	// same user reviews again, replaces instead of duplicating
	_, err = st.CreateReview(ctx, &models.Review{ProductID: p.ID, UserID: "u-1", Rating: 5, Title: "Even better"})
	require.NoError(t, err)
	_, err = st.CreateReview(ctx, &models.Review{ProductID: p.ID, UserID: "u-2", Rating: 3})
	require.NoError(t, err)

	count, avg, err := st.ReviewSummary(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.InDelta(t, 4.0, avg, 0.01)

	reviews, err := st.ListReviews(ctx, p.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	// loyalty ledger
	_, err = st.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{UserID: "u-1", Delta: 120, Reason: "order delivered"})
	require.NoError(t, err)
	_, err = st.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{UserID: "u-1", Delta: -50, Reason: "redeemed at checkout"})
	require.NoError(t, err)

	_, err = st.AddLoyaltyEntry(ctx, &models.LoyaltyEntry{UserID: "u-1", Delta: -100, Reason: "redeemed at checkout"})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	acc, err := st.LoyaltyBalance(ctx, "u-1")
	require.NoError(t, err)
	require.EqualValues(t, 70, acc.Points)

	entries, err := st.ListLoyaltyEntries(ctx, "u-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/FreshOps/MarketBox/internal/integrations/courierfeed"
	"github.com/FreshOps/MarketBox/internal/models"
)

// FakeClient simulates a courier dispatch feed: no real fleet exists, so
// progress is derived deterministically from (trackingNumber, status).
// Roughly two thirds of checks advance the order one step along the route.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

var route = []string{
	models.OrderStatusShipped,
	models.OrderStatusOutForDelivery,
	models.OrderStatusDelivered,
}

var drivers = []string{"Alexis R.", "Marcus T.", "Priya K.", "Jonas B.", "Sofia M."}

var waypoints = []string{
	"Fulfillment center",
	"Sorting hub",
	"Neighborhood depot",
	"2 blocks away",
	"At your address",
}

func (f *FakeClient) GetUpdate(ctx context.Context, trackingNumber, currentStatus string) (courierfeed.Update, error) {
	now := time.Now().UTC()

	h := fnv.New32a()
	_, _ = h.Write([]byte(trackingNumber))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(currentStatus))
	v := h.Sum32()

	status := currentStatus
	if next, ok := nextOnRoute(currentStatus); ok && v%3 != 0 {
		status = next
	}

	driver := drivers[v%uint32(len(drivers))]
	location := waypoints[v%uint32(len(waypoints))]
	if status == models.OrderStatusDelivered {
		location = "Delivered to door"
	}

	return courierfeed.Update{
		Status:   status,
		Message:  "Courier scan",
		Location: &location,
		Driver:   &driver,
		At:       now,
	}, nil
}

func nextOnRoute(status string) (string, bool) {
	for i, s := range route {
		if s == status && i+1 < len(route) {
			return route[i+1], true
		}
	}
	// Orders not yet shipped enter the route at its first stop.
	if status == models.OrderStatusPacked {
		return route[0], true
	}
	return "", false
}

package courierfeed

import (
	"context"
	"time"
)

// Update is one observation from the courier feed: where the order is and
// which lifecycle status it has reached.
type Update struct {
	Status   string
	Message  string
	Location *string
	Driver   *string
	At       time.Time
}

// Client is the courier feed boundary. currentStatus is the order's status
// as last persisted; implementations return either the same status (no
// movement yet) or the next one on the route.
type Client interface {
	GetUpdate(ctx context.Context, trackingNumber, currentStatus string) (Update, error)
}

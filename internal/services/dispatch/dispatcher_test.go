package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/FreshOps/MarketBox/internal/broker/messages"
	"github.com/FreshOps/MarketBox/internal/integrations/courierfeed"
	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

type fakeRL struct {
	allowed bool
	count   int64
	err     error
}

func (r fakeRL) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	return r.allowed, r.count, r.err
}

type fakeFeed struct {
	upd courierfeed.Update
	err error
}

func (f fakeFeed) GetUpdate(ctx context.Context, trackingNumber, currentStatus string) (courierfeed.Update, error) {
	return f.upd, f.err
}

func TestDispatcher_processOne_okPublishes(t *testing.T) {
	fp := &fakeProducer{}
	driver := "Sam K."
	d := New(nil, fakeFeed{
		upd: courierfeed.Update{
			Status:  models.OrderStatusOutForDelivery,
			Message: "Courier is on the way",
			Driver:  &driver,
		},
	}, fp, fakeRL{allowed: true}, "order.status.updated")

	o := &models.Order{ID: 42, TrackingNumber: "MB-ABCD1234", Status: models.OrderStatusShipped}
	require.NoError(t, d.processOne(context.Background(), o))
	require.Equal(t, 1, fp.calls)
	require.Equal(t, "order.status.updated", fp.topic)
	require.Equal(t, []byte("42"), fp.key)

	var msg messages.OrderStatusUpdated
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.Equal(t, uint64(42), msg.OrderID)
	require.Equal(t, models.OrderStatusOutForDelivery, msg.Status)
	require.NotNil(t, msg.Driver)
	require.Nil(t, msg.Error)
	require.False(t, msg.NextCheckAt.IsZero())
}

func TestDispatcher_processOne_errorBackoff(t *testing.T) {
	fp := &fakeProducer{}
	d := New(nil, fakeFeed{err: errors.New("boom")}, fp, nil, "order.status.updated")

	o := &models.Order{ID: 1, TrackingNumber: "MB-X", Status: models.OrderStatusShipped, CheckFailCount: 2}
	require.NoError(t, d.processOne(context.Background(), o))
	require.Equal(t, 1, fp.calls)

	var msg messages.OrderStatusUpdated
	require.NoError(t, json.Unmarshal(fp.value, &msg))
	require.NotNil(t, msg.Error)
	require.Empty(t, msg.Status)
}

func TestDispatcher_WithSettings(t *testing.T) {
	fp := &fakeProducer{}
	d := New(nil, fakeFeed{}, fp, nil, "t").
		WithSettings(5*time.Second, 7, 9, 11*time.Second, 13)
	require.Equal(t, 5*time.Second, d.pollInterval)
	require.Equal(t, 7, d.batchSize)
	require.Equal(t, 9, d.concurrency)
	require.Equal(t, 11*time.Second, d.lease)
	require.Equal(t, int64(13), d.rateLimitPerMinute)
}

package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// SlotReservations persists delivery slot bookings as per-slot counters.
// The counter expires on its own once the slot's day is long past, so no
// cleanup job is needed.
type SlotReservations struct {
	c   *redis.Client
	ttl time.Duration
}

func NewSlotReservations(addr string, ttl time.Duration) *SlotReservations {
	if ttl <= 0 {
		ttl = 8 * 24 * time.Hour
	}
	return &SlotReservations{
		c:   redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

func slotKey(slotID string) string {
	return fmt.Sprintf("slot:%s:booked", slotID)
}

// Reserve takes one unit of slot capacity. remaining is capacity already
// consumed before this call (seeded bookings excluded). When the INCR lands
// past the limit the reservation is rolled back and ok=false is returned.
func (sr *SlotReservations) Reserve(ctx context.Context, slotID string, limit int64) (bool, error) {
	key := slotKey(slotID)
	pipe := sr.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sr.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrap(err, "redis reserve slot")
	}
	if incr.Val() > limit {
		if err := sr.c.Decr(ctx, key).Err(); err != nil {
			return false, errors.Wrap(err, "redis rollback reservation")
		}
		return false, nil
	}
	return true, nil
}

// Release gives one unit back, e.g. when payment fails after booking.
func (sr *SlotReservations) Release(ctx context.Context, slotID string) error {
	n, err := sr.c.Decr(ctx, slotKey(slotID)).Result()
	if err != nil {
		return errors.Wrap(err, "redis release slot")
	}
	if n < 0 {
		// Never let a stray release open phantom capacity.
		if err := sr.c.Incr(ctx, slotKey(slotID)).Err(); err != nil {
			return errors.Wrap(err, "redis clamp reservation")
		}
	}
	return nil
}

// Reserved returns the live booking count for a slot.
func (sr *SlotReservations) Reserved(ctx context.Context, slotID string) (int64, error) {
	n, err := sr.c.Get(ctx, slotKey(slotID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "redis get reservations")
	}
	return n, nil
}

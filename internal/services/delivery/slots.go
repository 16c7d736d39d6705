package delivery

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/pkg/errors"
)

const (
	slotHorizonDays  = 7
	slotLengthHours  = 2
	firstSlotHour    = 9  // 9-11 is the earliest window
	lastSlotHour     = 19 // 19-21: no window may end later than 9 PM
	perishableCutoff = 18 // start hour must be <= 18:00 for cold-chain goods

	minLeadTime = 2 * time.Hour
)

// ReservationSource reports live bookings for a slot, on top of the seeded
// figures. Nil means no live reservation system is wired (tests).
type ReservationSource interface {
	Reserved(ctx context.Context, slotID string) (int64, error)
}

// SlotGenerator lazily produces candidate delivery windows for the next
// seven days. It is restartable: Restart rewinds to the first candidate.
// Unavailable slots, full slots and (for perishable carts) windows starting
// after the cold-chain cutoff are filtered out before they are returned.
type SlotGenerator struct {
	zone         *models.DeliveryZone
	option       *models.ShippingOption
	perishable   bool
	reservations ReservationSource

	now func() time.Time

	day  int
	hour int
}

func NewSlotGenerator(zone *models.DeliveryZone, option *models.ShippingOption, perishableCart bool, reservations ReservationSource) *SlotGenerator {
	g := &SlotGenerator{
		zone:         zone,
		option:       option,
		perishable:   perishableCart,
		reservations: reservations,
		now:          time.Now,
	}
	g.Restart()
	return g
}

// WithClock overrides the time source. Tests only.
func (g *SlotGenerator) WithClock(now func() time.Time) *SlotGenerator {
	g.now = now
	g.Restart()
	return g
}

func (g *SlotGenerator) Restart() {
	g.day = 0
	g.hour = firstSlotHour
}

// Next returns the next offerable slot, or ok=false when the 7-day horizon
// is exhausted.
func (g *SlotGenerator) Next(ctx context.Context) (*models.DeliverySlot, bool, error) {
	now := g.now()
	earliest := now.Add(minLeadTime)

	for g.day < slotHorizonDays {
		day, hour := g.day, g.hour

		g.hour += slotLengthHours
		if g.hour > lastSlotHour {
			g.hour = firstSlotHour
			g.day++
		}

		start := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location()).
			AddDate(0, 0, day)
		if start.Before(earliest) {
			continue
		}

		slot := g.buildSlot(start)
		if !slot.Available {
			continue
		}
		if g.perishable && !slot.PerishableCompatible {
			continue
		}

		if g.reservations != nil {
			reserved, err := g.reservations.Reserved(ctx, slot.ID)
			if err != nil {
				return nil, false, errors.Wrap(err, "read slot reservations")
			}
			slot.Booked += reserved
		}
		if slot.Booked >= slot.Capacity {
			continue
		}

		return slot, true, nil
	}
	return nil, false, nil
}

// Collect drains up to limit slots. limit <= 0 means the whole horizon.
func (g *SlotGenerator) Collect(ctx context.Context, limit int) ([]*models.DeliverySlot, error) {
	var out []*models.DeliverySlot
	for {
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
		s, ok, err := g.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, s)
	}
}

func (g *SlotGenerator) buildSlot(start time.Time) *models.DeliverySlot {
	id := SlotID(g.zone.ID, start)
	capacity, booked, available := seededFigures(id)
	return &models.DeliverySlot{
		ID:                   id,
		StartTime:            start,
		EndTime:              start.Add(slotLengthHours * time.Hour),
		Available:            available,
		Capacity:             capacity,
		Booked:               booked,
		PriceCents:           g.option.PriceCents,
		PerishableCompatible: start.Hour() <= perishableCutoff,
	}
}

// seededFigures stands in for a real reservation system: capacity 4..10,
// part of it pre-booked, ~80% of windows have a van at all. Deterministic
// per slot ID so repeated queries see the same windows.
func seededFigures(id string) (capacity, booked int64, available bool) {
	v := slotSeed(id)
	capacity = int64(4 + v%7)
	booked = int64(v) % capacity
	available = v%5 != 0
	return capacity, booked, available
}

func SlotID(zoneID string, start time.Time) string {
	return fmt.Sprintf("%s:%s:%d", zoneID, start.Format("2006-01-02"), start.Hour())
}

// ParseSlotID recovers the zone and window start encoded in a slot ID.
func ParseSlotID(id string, loc *time.Location) (zoneID string, start time.Time, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 {
		return "", time.Time{}, errors.Errorf("malformed slot id %q", id)
	}
	day, err := time.ParseInLocation("2006-01-02", parts[1], loc)
	if err != nil {
		return "", time.Time{}, errors.Wrapf(err, "malformed slot date in %q", id)
	}
	hour, err := strconv.Atoi(parts[2])
	if err != nil || hour < firstSlotHour || hour > lastSlotHour || (hour-firstSlotHour)%slotLengthHours != 0 {
		return "", time.Time{}, errors.Errorf("malformed slot hour in %q", id)
	}
	return parts[0], day.Add(time.Duration(hour) * time.Hour), nil
}

// slotSeed makes the placeholder availability figures deterministic per
// slot, so repeated queries (and tests) see the same windows.
func slotSeed(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32()
}

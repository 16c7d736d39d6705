package delivery

import (
	"context"
	"strings"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrSlotRequired = errors.New("shipping option requires a delivery slot")
	ErrSlotExpired  = errors.New("delivery slot has already started")
	ErrSlotFull     = errors.New("delivery slot is fully booked")
)

// ReservationStore persists slot bookings. Reserve must be atomic against
// concurrent checkouts for the same slot.
type ReservationStore interface {
	ReservationSource
	Reserve(ctx context.Context, slotID string, limit int64) (bool, error)
	Release(ctx context.Context, slotID string) error
}

// ConfirmSchedule builds the DeliverySchedule for a checkout selection.
// A scheduling-required option without a chosen slot is rejected here even
// though the UI disables the action, since the API can be called directly.
func ConfirmSchedule(option *models.ShippingOption, slot *models.DeliverySlot, instructions string, contactless, signature bool) (*models.DeliverySchedule, error) {
	if option.RequiresScheduling && slot == nil {
		return nil, ErrSlotRequired
	}
	sched := &models.DeliverySchedule{
		SpecialInstructions: instructions,
		Contactless:         contactless,
		SignatureRequired:   signature,
	}
	if slot != nil {
		sched.SlotID = slot.ID
		sched.Date = slot.StartTime
	}
	return sched, nil
}

// Scheduler books slots at order confirmation time.
type Scheduler struct {
	store ReservationStore
	now   func() time.Time
}

func NewScheduler(store ReservationStore) *Scheduler {
	return &Scheduler{store: store, now: time.Now}
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Book re-validates the slot from its identifier-encoded zone/date/hour and
// takes one unit of capacity. The window must not have started yet.
func (s *Scheduler) Book(ctx context.Context, slotID string) error {
	now := s.now()
	zoneID, start, err := ParseSlotID(slotID, now.Location())
	if err != nil {
		return err
	}
	if _, ok := ZoneByID(zoneID); !ok {
		return ErrUnavailable
	}
	if !start.After(now) {
		return ErrSlotExpired
	}

	// Recompute the seeded figures the slot was offered with; live
	// reservations may only consume what the seed left free.
	capacity, seededBooked, available := seededFigures(slotID)
	if !available {
		return ErrSlotFull
	}
	limit := capacity - seededBooked
	if limit <= 0 {
		return ErrSlotFull
	}

	ok, err := s.store.Reserve(ctx, slotID, limit)
	if err != nil {
		return errors.Wrap(err, "reserve slot")
	}
	if !ok {
		return ErrSlotFull
	}
	return nil
}

// Cancel returns a previously booked unit, e.g. after a failed payment.
func (s *Scheduler) Cancel(ctx context.Context, slotID string) error {
	return s.store.Release(ctx, slotID)
}

// NewTrackingNumber mints the human-visible tracking code for an order.
func NewTrackingNumber() string {
	return "MB-" + strings.ToUpper(uuid.NewString()[:8])
}

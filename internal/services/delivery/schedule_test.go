package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestConfirmSchedule_SlotRequired(t *testing.T) {
	scheduled, _ := OptionByID("scheduled")
	_, err := ConfirmSchedule(scheduled, nil, "", false, false)
	require.ErrorIs(t, err, ErrSlotRequired)
}

func TestConfirmSchedule_StandardNeedsNoSlot(t *testing.T) {
	sched, err := ConfirmSchedule(DefaultOption(), nil, "leave at door", true, false)
	require.NoError(t, err)
	require.Empty(t, sched.SlotID)
	require.True(t, sched.Contactless)
	require.Equal(t, "leave at door", sched.SpecialInstructions)
}

func TestConfirmSchedule_WithSlot(t *testing.T) {
	scheduled, _ := OptionByID("scheduled")
	start := time.Date(2026, 9, 3, 11, 0, 0, 0, time.UTC)
	slot := &models.DeliverySlot{ID: SlotID("downtown", start), StartTime: start}

	sched, err := ConfirmSchedule(scheduled, slot, "", false, true)
	require.NoError(t, err)
	require.Equal(t, slot.ID, sched.SlotID)
	require.Equal(t, start, sched.Date)
	require.True(t, sched.SignatureRequired)
}

func TestScheduler_Book_PastSlotRejected(t *testing.T) {
	now := time.Date(2026, 9, 3, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(&fakeReservations{counts: map[string]int64{}}).WithClock(testClock(now))

	err := s.Book(context.Background(), "downtown:2026-09-03:11")
	require.ErrorIs(t, err, ErrSlotExpired)

	// The window that starts exactly now has started.
	err = s.Book(context.Background(), "downtown:2026-09-03:12")
	require.Error(t, err) // hour 12 is not a valid boundary either way
}

func TestScheduler_Book_UnknownZone(t *testing.T) {
	now := time.Date(2026, 9, 3, 8, 0, 0, 0, time.UTC)
	s := NewScheduler(&fakeReservations{counts: map[string]int64{}}).WithClock(testClock(now))

	err := s.Book(context.Background(), "atlantis:2026-09-03:11")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestScheduler_Book_MalformedID(t *testing.T) {
	s := NewScheduler(&fakeReservations{counts: map[string]int64{}})
	require.Error(t, s.Book(context.Background(), "not-a-slot"))
}

func TestScheduler_BookAndCancel(t *testing.T) {
	now := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	zone, _ := ZoneByID("downtown")

	// Pick a slot the generator actually offers so the seeded figures
	// leave free capacity.
	g := NewSlotGenerator(zone, DefaultOption(), false, nil).WithClock(testClock(now))
	open, err := g.Collect(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, open, 1)
	slot := open[0]

	store := &fakeReservations{counts: map[string]int64{}}
	s := NewScheduler(store).WithClock(testClock(now))

	free := slot.Capacity - slot.Booked
	for i := int64(0); i < free; i++ {
		require.NoError(t, s.Book(context.Background(), slot.ID))
	}
	require.ErrorIs(t, s.Book(context.Background(), slot.ID), ErrSlotFull)

	require.NoError(t, s.Cancel(context.Background(), slot.ID))
	require.NoError(t, s.Book(context.Background(), slot.ID))
}

func TestNewTrackingNumber(t *testing.T) {
	a := NewTrackingNumber()
	b := NewTrackingNumber()
	require.NotEqual(t, a, b)
	require.Regexp(t, `^MB-[0-9A-F]{8}$`, a)
}

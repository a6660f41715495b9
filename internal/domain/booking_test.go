package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{"draft to held", StatusDraft, StatusHeld, true},
		{"held to awaiting_payment", StatusHeld, StatusAwaitingPayment, true},
		{"awaiting_payment to confirmed", StatusAwaitingPayment, StatusConfirmed, true},
		{"held to confirmed fast path", StatusHeld, StatusConfirmed, true},
		{"confirmed to completed", StatusConfirmed, StatusCompleted, true},
		{"confirmed to no_show", StatusConfirmed, StatusNoShow, true},
		{"held to expired", StatusHeld, StatusExpired, true},
		{"awaiting_payment to expired", StatusAwaitingPayment, StatusExpired, true},
		{"draft to cancelled", StatusDraft, StatusCancelled, true},
		{"confirmed to cancelled", StatusConfirmed, StatusCancelled, true},

		{"draft to confirmed", StatusDraft, StatusConfirmed, false},
		{"draft to awaiting_payment", StatusDraft, StatusAwaitingPayment, false},
		{"expired to confirmed", StatusExpired, StatusConfirmed, false},
		{"cancelled to held", StatusCancelled, StatusHeld, false},
		{"completed to cancelled", StatusCompleted, StatusCancelled, false},
		{"expired to cancelled", StatusExpired, StatusCancelled, false},
		{"cancelled to cancelled", StatusCancelled, StatusCancelled, false},
		{"completed to no_show", StatusCompleted, StatusNoShow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestBooking_CanBeCancelled(t *testing.T) {
	cancellable := []BookingStatus{StatusDraft, StatusHeld, StatusAwaitingPayment, StatusConfirmed, StatusNoShow}
	for _, st := range cancellable {
		b := &Booking{Status: st}
		assert.True(t, b.CanBeCancelled(), "status %s", st)
	}

	terminal := []BookingStatus{StatusCompleted, StatusCancelled, StatusExpired}
	for _, st := range terminal {
		b := &Booking{Status: st}
		assert.False(t, b.CanBeCancelled(), "status %s", st)
	}
}

func TestBooking_IsSlotBlocking(t *testing.T) {
	blocking := []BookingStatus{StatusHeld, StatusAwaitingPayment, StatusConfirmed}
	for _, st := range blocking {
		b := &Booking{Status: st}
		assert.True(t, b.IsSlotBlocking(), "status %s", st)
	}

	free := []BookingStatus{StatusDraft, StatusCompleted, StatusNoShow, StatusCancelled, StatusExpired}
	for _, st := range free {
		b := &Booking{Status: st}
		assert.False(t, b.IsSlotBlocking(), "status %s", st)
	}
}

func TestBooking_CanBeConfirmed(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	tests := []struct {
		name        string
		booking     Booking
		confirmable bool
	}{
		{"awaiting_payment with live hold", Booking{Status: StatusAwaitingPayment, HoldExpiresAt: &future}, true},
		{"held fast path with live hold", Booking{Status: StatusHeld, HoldExpiresAt: &future}, true},
		{"awaiting_payment without hold timestamp", Booking{Status: StatusAwaitingPayment}, true},

		// Истекший, но еще не переведенный свипером в expired холд
		// подтверждать нельзя: его слот мог занять более новый холд
		{"awaiting_payment with lapsed hold", Booking{Status: StatusAwaitingPayment, HoldExpiresAt: &past}, false},
		{"held with lapsed hold", Booking{Status: StatusHeld, HoldExpiresAt: &past}, false},

		{"draft", Booking{Status: StatusDraft, HoldExpiresAt: &future}, false},
		{"expired", Booking{Status: StatusExpired}, false},
		{"confirmed", Booking{Status: StatusConfirmed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.confirmable, tt.booking.CanBeConfirmed(now))
		})
	}
}

func TestBooking_HoldActive(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	tests := []struct {
		name    string
		booking Booking
		active  bool
	}{
		{"held with live hold", Booking{Status: StatusHeld, HoldExpiresAt: &future}, true},
		{"awaiting_payment with live hold", Booking{Status: StatusAwaitingPayment, HoldExpiresAt: &future}, true},
		{"held with expired hold", Booking{Status: StatusHeld, HoldExpiresAt: &past}, false},
		{"confirmed has no hold", Booking{Status: StatusConfirmed, HoldExpiresAt: &future}, false},
		{"no hold timestamp", Booking{Status: StatusHeld}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, tt.booking.HoldActive(now))
		})
	}
}

func TestBooking_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(startOffset, durMin int) *Booking {
		start := base.Add(time.Duration(startOffset) * time.Minute)
		return &Booking{
			StartTime: start,
			EndTime:   start.Add(time.Duration(durMin) * time.Minute),
		}
	}

	a := mk(0, 30)

	assert.True(t, a.Overlaps(mk(15, 30)), "partial overlap")
	assert.True(t, a.Overlaps(mk(0, 30)), "same interval")
	assert.True(t, a.Overlaps(mk(-15, 30)), "overlap from before")
	assert.True(t, a.Overlaps(mk(10, 5)), "contained interval")

	// Полуоткрытые интервалы: соприкосновение границами не конфликт
	assert.False(t, a.Overlaps(mk(30, 30)), "adjacent after")
	assert.False(t, a.Overlaps(mk(-30, 30)), "adjacent before")
	assert.False(t, a.Overlaps(mk(60, 30)), "disjoint")
}

package domain

import (
	"time"
)

// BookingStatus represents the status of a private-call booking
type BookingStatus string

const (
	StatusDraft           BookingStatus = "draft"
	StatusHeld            BookingStatus = "held"
	StatusAwaitingPayment BookingStatus = "awaiting_payment"
	StatusConfirmed       BookingStatus = "confirmed"
	StatusCompleted       BookingStatus = "completed"
	StatusNoShow          BookingStatus = "no_show"
	StatusCancelled       BookingStatus = "cancelled"
	StatusExpired         BookingStatus = "expired"
)

// CallType represents the kind of private call being booked
type CallType string

const (
	CallTypeVideo CallType = "video"
	CallTypeAudio CallType = "audio"
)

// CancelActor кто инициировал отмену бронирования
type CancelActor string

const (
	CancelledByUser      CancelActor = "user"
	CancelledByPerformer CancelActor = "performer"
	CancelledBySystem    CancelActor = "system"
)

// Booking represents a private-call booking in the system
type Booking struct {
	ID              string
	UserID          int64
	PerformerID     int64
	SlotID          *string
	CallType        CallType
	DurationMinutes int
	PriceCents      int64
	Currency        string
	StartTime       time.Time // UTC
	EndTime         time.Time // UTC, derived = StartTime + DurationMinutes
	Status          BookingStatus

	// HoldExpiresAt non-nil only while status is held/awaiting_payment
	HoldExpiresAt   *time.Time
	RulesAcceptedAt *time.Time

	CancelReason *string
	CancelledBy  *CancelActor
	CancelledAt  *time.Time
	CompletedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal returns true if the booking is in a terminal state
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case StatusCompleted, StatusNoShow, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsSlotBlocking returns true if the booking counts toward performer slot conflicts
func (b *Booking) IsSlotBlocking() bool {
	switch b.Status {
	case StatusHeld, StatusAwaitingPayment, StatusConfirmed:
		return true
	}
	return false
}

// CanBeCancelled returns true if the booking can still be cancelled
func (b *Booking) CanBeCancelled() bool {
	switch b.Status {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return false
	}
	return true
}

// CanBeConfirmed reports whether the booking can transition to confirmed
// at the given time. Direct held -> confirmed is an explicitly supported
// fast path for providers that skip the separate rules-acceptance step.
// A lapsed hold is not confirmable even before the sweeper expires the
// booking: the slot may already be claimed by a newer hold.
func (b *Booking) CanBeConfirmed(now time.Time) bool {
	if b.Status != StatusAwaitingPayment && b.Status != StatusHeld {
		return false
	}
	return b.HoldExpiresAt == nil || b.HoldExpiresAt.After(now)
}

// HoldActive returns true if the booking holds a live claim on the slot at the given time
func (b *Booking) HoldActive(now time.Time) bool {
	if b.HoldExpiresAt == nil {
		return false
	}
	return (b.Status == StatusHeld || b.Status == StatusAwaitingPayment) && b.HoldExpiresAt.After(now)
}

// Overlaps reports whether two bookings claim intersecting [start, end) intervals
func (b *Booking) Overlaps(other *Booking) bool {
	return b.StartTime.Before(other.EndTime) && other.StartTime.Before(b.EndTime)
}

// CanTransition проверяет допустимость перехода статусов по state machine
func CanTransition(from, to BookingStatus) bool {
	switch to {
	case StatusHeld:
		return from == StatusDraft
	case StatusAwaitingPayment:
		return from == StatusHeld
	case StatusConfirmed:
		return from == StatusAwaitingPayment || from == StatusHeld
	case StatusCompleted, StatusNoShow:
		return from == StatusConfirmed
	case StatusExpired:
		return from == StatusHeld || from == StatusAwaitingPayment
	case StatusCancelled:
		return from != StatusCompleted && from != StatusCancelled && from != StatusExpired
	}
	return false
}

package domain

import "time"

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentCreated           PaymentStatus = "created"
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Provider платежный провайдер
type Provider string

const (
	ProviderCardpay   Provider = "cardpay"
	ProviderCryptopay Provider = "cryptopay"
)

// KnownProvider reports whether the provider is one we integrate with
func KnownProvider(p Provider) bool {
	return p == ProviderCardpay || p == ProviderCryptopay
}

// Payment represents a payment attempt for a booking.
// Exactly one payment per booking is active; superseded payments are retained for history.
type Payment struct {
	ID        string
	BookingID string
	Provider  Provider

	// ProviderPaymentID nil until the provider assigns its own id
	ProviderPaymentID *string
	PaymentLink       string
	AmountCents       int64
	Currency          string
	Status            PaymentStatus

	// ExpiresAt advisory checkout deadline surfaced to callers;
	// authoritative hold expiry lives on the booking
	ExpiresAt    *time.Time
	PaidAt       *time.Time
	RefundedAt   *time.Time
	RefundReason *string

	// Metadata provider correlation data (paymentId, userId, planId, ...)
	Metadata map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPaid returns true if the payment has been settled (including refunded ones)
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentPaid || p.Status == PaymentRefunded || p.Status == PaymentPartiallyRefunded
}

// CanBeRefunded returns true if the payment can accept a (further) refund
func (p *Payment) CanBeRefunded() bool {
	return p.Status == PaymentPaid || p.Status == PaymentPartiallyRefunded
}

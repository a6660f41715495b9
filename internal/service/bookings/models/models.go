package models

import (
	"time"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// Request модели

// CreateBookingRequest запрос на создание бронирования (draft)
type CreateBookingRequest struct {
	UserID          int64           `json:"userId"`
	PerformerID     int64           `json:"performerId"`
	SlotID          *string         `json:"slotId,omitempty"`
	CallType        domain.CallType `json:"callType"`
	DurationMinutes int             `json:"durationMinutes"`
	PriceCents      int64           `json:"priceCents"`
	Currency        string          `json:"currency"`
	StartTime       time.Time       `json:"startTime"`
}

// HoldBookingRequest запрос на холд слота
type HoldBookingRequest struct {
	UserID      int64 `json:"userId"`
	HoldMinutes int   `json:"holdMinutes,omitempty"`
}

// ConfirmRulesRequest запрос на принятие правил звонка
// После принятия создается платеж у выбранного провайдера
type ConfirmRulesRequest struct {
	UserID   int64           `json:"userId"`
	Provider domain.Provider `json:"provider"`
}

// CancelBookingRequest запрос на отмену бронирования
type CancelBookingRequest struct {
	UserID      int64              `json:"userId"`
	Reason      string             `json:"reason"`
	CancelledBy domain.CancelActor `json:"cancelledBy"`
}

// CompleteBookingRequest запрос на завершение звонка
// ActualDurationMinutes nil означает, что звонок шел всю забронированную длительность
type CompleteBookingRequest struct {
	ActualDurationMinutes *int `json:"actualDurationMinutes,omitempty"`
}

// Response модели

// BookingResponse представление бронирования для API
type BookingResponse struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"userId"`
	PerformerID     int64      `json:"performerId"`
	SlotID          *string    `json:"slotId,omitempty"`
	CallType        string     `json:"callType"`
	DurationMinutes int        `json:"durationMinutes"`
	PriceCents      int64      `json:"priceCents"`
	Currency        string     `json:"currency"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         time.Time  `json:"endTime"`
	Status          string     `json:"status"`
	HoldExpiresAt   *time.Time `json:"holdExpiresAt,omitempty"`
	RulesAcceptedAt *time.Time `json:"rulesAcceptedAt,omitempty"`
	CancelReason    *string    `json:"cancelReason,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// PaymentResponse представление платежа для API
type PaymentResponse struct {
	ID                string     `json:"id"`
	BookingID         string     `json:"bookingId"`
	Provider          string     `json:"provider"`
	ProviderPaymentID *string    `json:"providerPaymentId,omitempty"`
	PaymentLink       string     `json:"paymentLink"`
	AmountCents       int64      `json:"amountCents"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
}

// ConfirmRulesResponse бронирование вместе с созданным платежом
type ConfirmRulesResponse struct {
	Booking *BookingResponse `json:"booking"`
	Payment *PaymentResponse `json:"payment"`
}

// CompleteBookingResponse результат завершения звонка
type CompleteBookingResponse struct {
	Booking     *BookingResponse `json:"booking"`
	RefundCents int64            `json:"refundCents"`
	RefundKind  string           `json:"refundKind,omitempty"`
}

// BookingListResponse список бронирований
type BookingListResponse struct {
	Bookings []*BookingResponse `json:"bookings"`
}

// FromDomainBooking конвертирует domain.Booking в API модель
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		PerformerID:     b.PerformerID,
		SlotID:          b.SlotID,
		CallType:        string(b.CallType),
		DurationMinutes: b.DurationMinutes,
		PriceCents:      b.PriceCents,
		Currency:        b.Currency,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		Status:          string(b.Status),
		HoldExpiresAt:   b.HoldExpiresAt,
		RulesAcceptedAt: b.RulesAcceptedAt,
		CancelReason:    b.CancelReason,
		CancelledAt:     b.CancelledAt,
		CompletedAt:     b.CompletedAt,
		CreatedAt:       b.CreatedAt,
	}
}

// FromDomainPayment конвертирует domain.Payment в API модель
func FromDomainPayment(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID,
		BookingID:         p.BookingID,
		Provider:          string(p.Provider),
		ProviderPaymentID: p.ProviderPaymentID,
		PaymentLink:       p.PaymentLink,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		Status:            string(p.Status),
		ExpiresAt:         p.ExpiresAt,
	}
}

// FromDomainBookingList конвертирует список бронирований
func FromDomainBookingList(bookings []*domain.Booking) *BookingListResponse {
	out := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, FromDomainBooking(b))
	}
	return &BookingListResponse{Bookings: out}
}

package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	bookingRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/booking"
	paymentRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/payment"
)

type stubBookingRepo struct {
	booking    *domain.Booking
	getErr     error
	confirmErr error
	confirmed  []string
	cancelled  []string
}

func (r *stubBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.booking, nil
}

func (r *stubBookingRepo) Confirm(ctx context.Context, id string) error {
	if r.confirmErr != nil {
		return r.confirmErr
	}
	r.confirmed = append(r.confirmed, id)
	return nil
}

func (r *stubBookingRepo) Cancel(ctx context.Context, id string, reason string, actor domain.CancelActor) error {
	r.cancelled = append(r.cancelled, id)
	return nil
}

type stubPaymentRepo struct {
	payment       *domain.Payment
	byIDErr       error
	byProviderErr error
	attached      []string
	markedPending []string
	markedPaid    []string
	markedFailed  []string
}

func (r *stubPaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	if r.byIDErr != nil {
		return nil, r.byIDErr
	}
	return r.payment, nil
}

func (r *stubPaymentRepo) GetByProviderPaymentID(ctx context.Context, provider domain.Provider, providerPaymentID string) (*domain.Payment, error) {
	if r.byProviderErr != nil {
		return nil, r.byProviderErr
	}
	return r.payment, nil
}

func (r *stubPaymentRepo) AttachProviderPaymentID(ctx context.Context, id, providerPaymentID string) error {
	r.attached = append(r.attached, providerPaymentID)
	return nil
}

func (r *stubPaymentRepo) MarkPending(ctx context.Context, id string) error {
	r.markedPending = append(r.markedPending, id)
	return nil
}

func (r *stubPaymentRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	r.markedPaid = append(r.markedPaid, id)
	return nil
}

func (r *stubPaymentRepo) MarkFailed(ctx context.Context, id string) error {
	r.markedFailed = append(r.markedFailed, id)
	return nil
}

type passthroughTxManager struct{}

func (passthroughTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func testPayment() *domain.Payment {
	return &domain.Payment{
		ID:        "pay-1",
		BookingID: "bk-1",
		Provider:  domain.ProviderCardpay,
		Status:    domain.PaymentPending,
	}
}

func testBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{ID: "bk-1", Status: status}
}

func paidEvent() *domain.NormalizedWebhookEvent {
	return &domain.NormalizedWebhookEvent{
		Provider:          domain.ProviderCardpay,
		EventID:           "pay-1",
		PaymentID:         "pay-1",
		ProviderPaymentID: "tx-9",
		Outcome:           domain.OutcomePaid,
	}
}

func TestApply_PaidConfirmsBooking(t *testing.T) {
	bookings := &stubBookingRepo{booking: testBooking(domain.StatusAwaitingPayment)}
	payments := &stubPaymentRepo{payment: testPayment()}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	err := svc.Apply(context.Background(), paidEvent())
	require.NoError(t, err)

	assert.Equal(t, []string{"pay-1"}, payments.markedPaid)
	assert.Equal(t, []string{"bk-1"}, bookings.confirmed)
	assert.Equal(t, []string{"tx-9"}, payments.attached)
}

func TestApply_PendingOnlyMarksPayment(t *testing.T) {
	bookings := &stubBookingRepo{booking: testBooking(domain.StatusAwaitingPayment)}
	payments := &stubPaymentRepo{payment: testPayment()}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	evt := paidEvent()
	evt.Outcome = domain.OutcomePending

	err := svc.Apply(context.Background(), evt)
	require.NoError(t, err)

	assert.Equal(t, []string{"pay-1"}, payments.markedPending)
	assert.Empty(t, bookings.confirmed)
	assert.Empty(t, bookings.cancelled)
}

func TestApply_FinalFailureCancelsBooking(t *testing.T) {
	bookings := &stubBookingRepo{booking: testBooking(domain.StatusAwaitingPayment)}
	payments := &stubPaymentRepo{payment: testPayment()}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	evt := paidEvent()
	evt.Outcome = domain.OutcomeFailed
	evt.Final = true

	err := svc.Apply(context.Background(), evt)
	require.NoError(t, err)

	assert.Equal(t, []string{"pay-1"}, payments.markedFailed)
	assert.Equal(t, []string{"bk-1"}, bookings.cancelled)
}

func TestApply_RetryableFailureKeepsBooking(t *testing.T) {
	bookings := &stubBookingRepo{booking: testBooking(domain.StatusAwaitingPayment)}
	payments := &stubPaymentRepo{payment: testPayment()}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	evt := paidEvent()
	evt.Outcome = domain.OutcomeFailed
	evt.Final = false

	err := svc.Apply(context.Background(), evt)
	require.NoError(t, err)

	assert.Equal(t, []string{"pay-1"}, payments.markedFailed)
	// Не финальный отказ: пользователь может оплатить повторно
	assert.Empty(t, bookings.cancelled)
}

func TestApply_LatePaidOnExpiredBookingRejected(t *testing.T) {
	bookings := &stubBookingRepo{
		booking:    testBooking(domain.StatusExpired),
		confirmErr: bookingRepo.ErrInvalidStatus,
	}
	payments := &stubPaymentRepo{payment: testPayment()}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	err := svc.Apply(context.Background(), paidEvent())
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, bookings.confirmed)
}

func TestApply_ResolvesByProviderPaymentID(t *testing.T) {
	bookings := &stubBookingRepo{booking: testBooking(domain.StatusAwaitingPayment)}
	payments := &stubPaymentRepo{
		payment: testPayment(),
		byIDErr: paymentRepo.ErrPaymentNotFound,
	}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	err := svc.Apply(context.Background(), paidEvent())
	require.NoError(t, err)
	assert.Equal(t, []string{"pay-1"}, payments.markedPaid)
}

func TestApply_UnresolvablePayment(t *testing.T) {
	bookings := &stubBookingRepo{booking: testBooking(domain.StatusAwaitingPayment)}
	payments := &stubPaymentRepo{
		byIDErr:       paymentRepo.ErrPaymentNotFound,
		byProviderErr: paymentRepo.ErrPaymentNotFound,
	}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	err := svc.Apply(context.Background(), paidEvent())
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestApply_MissingBooking(t *testing.T) {
	bookings := &stubBookingRepo{getErr: bookingRepo.ErrBookingNotFound}
	payments := &stubPaymentRepo{payment: testPayment()}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	err := svc.Apply(context.Background(), paidEvent())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestApply_SkipsAttachWhenAlreadySet(t *testing.T) {
	existing := "tx-old"
	payment := testPayment()
	payment.ProviderPaymentID = &existing

	bookings := &stubBookingRepo{booking: testBooking(domain.StatusAwaitingPayment)}
	payments := &stubPaymentRepo{payment: payment}
	svc := NewService(bookings, payments, passthroughTxManager{}, nopLogger{})

	err := svc.Apply(context.Background(), paidEvent())
	require.NoError(t, err)
	assert.Empty(t, payments.attached)
}

package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	bookingRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/booking"
	paymentRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/payment"
	"github.com/kir4ng/PCS-BookingService/internal/service/bookings/models"
	"github.com/kir4ng/PCS-BookingService/pkg/ptr"
)

type fakeBookingRepo struct {
	bookings map[string]*domain.Booking

	holdErr        error
	confirmErr     error
	cancelErr      error
	completeErr    error
	confirmedRules []string
	cancelled      []string
	completed      []string
}

func newFakeBookingRepo(bookings ...*domain.Booking) *fakeBookingRepo {
	r := &fakeBookingRepo{bookings: map[string]*domain.Booking{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *fakeBookingRepo) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	booking.CreatedAt = time.Now().UTC()
	r.bookings[booking.ID] = booking
	return booking, nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrBookingNotFound
	}
	return b, nil
}

func (r *fakeBookingRepo) Hold(ctx context.Context, id string, holdExpiresAt time.Time) error {
	if r.holdErr != nil {
		return r.holdErr
	}
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	b.Status = domain.StatusHeld
	b.HoldExpiresAt = &holdExpiresAt
	return nil
}

func (r *fakeBookingRepo) ConfirmRules(ctx context.Context, id string, acceptedAt time.Time) error {
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if b.Status != domain.StatusHeld {
		return bookingRepo.ErrInvalidStatus
	}
	b.Status = domain.StatusAwaitingPayment
	b.RulesAcceptedAt = &acceptedAt
	r.confirmedRules = append(r.confirmedRules, id)
	return nil
}

func (r *fakeBookingRepo) Confirm(ctx context.Context, id string) error {
	if r.confirmErr != nil {
		return r.confirmErr
	}
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if !b.CanBeConfirmed(time.Now().UTC()) {
		return bookingRepo.ErrInvalidStatus
	}
	b.Status = domain.StatusConfirmed
	b.HoldExpiresAt = nil
	return nil
}

func (r *fakeBookingRepo) Cancel(ctx context.Context, id string, reason string, actor domain.CancelActor) error {
	if r.cancelErr != nil {
		return r.cancelErr
	}
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if !b.CanBeCancelled() {
		return bookingRepo.ErrInvalidStatus
	}
	b.Status = domain.StatusCancelled
	r.cancelled = append(r.cancelled, id)
	return nil
}

func (r *fakeBookingRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	if r.completeErr != nil {
		return r.completeErr
	}
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if b.Status != domain.StatusConfirmed {
		return bookingRepo.ErrInvalidStatus
	}
	b.Status = domain.StatusCompleted
	b.CompletedAt = &completedAt
	r.completed = append(r.completed, id)
	return nil
}

func (r *fakeBookingRepo) MarkNoShow(ctx context.Context, id string) error {
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrBookingNotFound
	}
	if b.Status != domain.StatusConfirmed {
		return bookingRepo.ErrInvalidStatus
	}
	b.Status = domain.StatusNoShow
	return nil
}

func (r *fakeBookingRepo) ListByUser(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.UserID != userID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBookingRepo) ListByPerformer(ctx context.Context, performerID int64, from, to *time.Time, activeOnly bool) ([]*domain.Booking, error) {
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.PerformerID != performerID {
			continue
		}
		if activeOnly && !b.IsSlotBlocking() {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

type fakePaymentRepo struct {
	created []*domain.Payment
	latest  *domain.Payment
}

func (r *fakePaymentRepo) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	r.created = append(r.created, payment)
	return payment, nil
}

func (r *fakePaymentRepo) GetLatestByBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	if r.latest == nil {
		return nil, paymentRepo.ErrPaymentNotFound
	}
	return r.latest, nil
}

type fakeRefundEngine struct {
	refunds []int64
	reasons []string
	kind    domain.RefundKind
	err     error
}

func (e *fakeRefundEngine) ProcessRefund(ctx context.Context, bookingID string, amountCents int64, reason string) (int64, domain.RefundKind, error) {
	if e.err != nil {
		return 0, "", e.err
	}
	e.refunds = append(e.refunds, amountCents)
	e.reasons = append(e.reasons, reason)
	if e.kind == "" {
		e.kind = domain.RefundPartial
	}
	return amountCents, e.kind, nil
}

type fakeTxManager struct{}

func (fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTxManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLinker struct{}

func (fakeLinker) CheckoutLink(paymentID string, amountCents int64, currency string) string {
	return "https://pay.example/" + paymentID
}

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func newTestService(bookings *fakeBookingRepo, payments *fakePaymentRepo, refunds *fakeRefundEngine) *Service {
	return NewService(
		bookings,
		payments,
		map[domain.Provider]CheckoutLinker{domain.ProviderCardpay: fakeLinker{}},
		refunds,
		fakeTxManager{},
		nopLogger{},
		15,
	)
}

func draftBooking(id string) *domain.Booking {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Booking{
		ID:              id,
		UserID:          7,
		PerformerID:     9,
		CallType:        domain.CallTypeVideo,
		DurationMinutes: 30,
		PriceCents:      1500,
		Currency:        "USD",
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		Status:          domain.StatusDraft,
	}
}

func validCreateRequest() *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		UserID:          7,
		PerformerID:     9,
		CallType:        domain.CallTypeVideo,
		DurationMinutes: 30,
		PriceCents:      1500,
		Currency:        "USD",
		StartTime:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreate_BuildsDraftWithDerivedEndTime(t *testing.T) {
	repo := newFakeBookingRepo()
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	resp, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, resp.StartTime.Add(30*time.Minute), resp.EndTime)
	assert.Nil(t, resp.HoldExpiresAt)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newFakeBookingRepo(), &fakePaymentRepo{}, &fakeRefundEngine{})

	mutate := []struct {
		name string
		fn   func(req *models.CreateBookingRequest)
	}{
		{"missing user", func(r *models.CreateBookingRequest) { r.UserID = 0 }},
		{"missing performer", func(r *models.CreateBookingRequest) { r.PerformerID = 0 }},
		{"bad call type", func(r *models.CreateBookingRequest) { r.CallType = "hologram" }},
		{"duration too short", func(r *models.CreateBookingRequest) { r.DurationMinutes = 1 }},
		{"duration too long", func(r *models.CreateBookingRequest) { r.DurationMinutes = 600 }},
		{"negative price", func(r *models.CreateBookingRequest) { r.PriceCents = -1 }},
		{"missing currency", func(r *models.CreateBookingRequest) { r.Currency = "" }},
		{"missing start", func(r *models.CreateBookingRequest) { r.StartTime = time.Time{} }},
	}

	for _, tt := range mutate {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.fn(req)
			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestHold_SetsHoldExpiry(t *testing.T) {
	repo := newFakeBookingRepo(draftBooking("bk-1"))
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	resp, err := svc.Hold(context.Background(), "bk-1", &models.HoldBookingRequest{UserID: 7})
	require.NoError(t, err)

	assert.Equal(t, "held", resp.Status)
	require.NotNil(t, resp.HoldExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), *resp.HoldExpiresAt, 5*time.Second)
}

func TestHold_SlotConflict(t *testing.T) {
	repo := newFakeBookingRepo(draftBooking("bk-1"))
	repo.holdErr = bookingRepo.ErrSlotNotAvailable
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	_, err := svc.Hold(context.Background(), "bk-1", &models.HoldBookingRequest{UserID: 7})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestHold_HoldMinutesOutOfRange(t *testing.T) {
	repo := newFakeBookingRepo(draftBooking("bk-1"))
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	_, err := svc.Hold(context.Background(), "bk-1", &models.HoldBookingRequest{UserID: 7, HoldMinutes: 90})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConfirmRules_CreatesPayment(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusHeld
	expiry := time.Now().UTC().Add(10 * time.Minute)
	b.HoldExpiresAt = &expiry

	repo := newFakeBookingRepo(b)
	payments := &fakePaymentRepo{}
	svc := newTestService(repo, payments, &fakeRefundEngine{})

	resp, err := svc.ConfirmRules(context.Background(), "bk-1", &models.ConfirmRulesRequest{
		UserID:   7,
		Provider: domain.ProviderCardpay,
	})
	require.NoError(t, err)

	assert.Equal(t, "awaiting_payment", resp.Booking.Status)
	require.Len(t, payments.created, 1)

	p := payments.created[0]
	assert.Equal(t, int64(1500), p.AmountCents)
	assert.Equal(t, domain.PaymentCreated, p.Status)
	assert.Equal(t, "https://pay.example/"+p.ID, p.PaymentLink)
	assert.Equal(t, p.ID, p.Metadata["paymentId"])
	assert.Equal(t, "7", p.Metadata["userId"])
	assert.Equal(t, "bk-1", p.Metadata["bookingId"])
}

func TestConfirmRules_UnknownProvider(t *testing.T) {
	repo := newFakeBookingRepo(draftBooking("bk-1"))
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	_, err := svc.ConfirmRules(context.Background(), "bk-1", &models.ConfirmRulesRequest{
		UserID:   7,
		Provider: "paypal",
	})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestConfirmRules_RequiresHeldStatus(t *testing.T) {
	repo := newFakeBookingRepo(draftBooking("bk-1"))
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	_, err := svc.ConfirmRules(context.Background(), "bk-1", &models.ConfirmRulesRequest{
		UserID:   7,
		Provider: domain.ProviderCardpay,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestConfirm_LiveHoldConfirmed(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusAwaitingPayment
	expiry := time.Now().UTC().Add(10 * time.Minute)
	b.HoldExpiresAt = &expiry

	repo := newFakeBookingRepo(b)
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	resp, err := svc.Confirm(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp.Status)
}

func TestConfirm_LapsedHoldRejected(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusAwaitingPayment
	lapsed := time.Now().UTC().Add(-time.Minute)
	b.HoldExpiresAt = &lapsed

	repo := newFakeBookingRepo(b)
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	// Холд истек, но sweeper еще не перевел бронь в expired: слот мог
	// занять более новый холд, поздний confirm обязан быть отклонен
	_, err := svc.Confirm(context.Background(), "bk-1")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, domain.StatusAwaitingPayment, b.Status)
}

func TestCancel_PaidBookingGetsFullRefund(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusConfirmed

	repo := newFakeBookingRepo(b)
	payments := &fakePaymentRepo{latest: &domain.Payment{
		ID:        "pay-1",
		BookingID: "bk-1",
		Status:    domain.PaymentPaid,
	}}
	refunds := &fakeRefundEngine{}
	svc := newTestService(repo, payments, refunds)

	err := svc.Cancel(context.Background(), "bk-1", &models.CancelBookingRequest{
		UserID:      7,
		Reason:      "schedule conflict",
		CancelledBy: domain.CancelledByUser,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"bk-1"}, repo.cancelled)
	assert.Equal(t, []int64{1500}, refunds.refunds)
}

func TestCancel_UnpaidBookingNoRefund(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusHeld

	repo := newFakeBookingRepo(b)
	refunds := &fakeRefundEngine{}
	svc := newTestService(repo, &fakePaymentRepo{}, refunds)

	err := svc.Cancel(context.Background(), "bk-1", &models.CancelBookingRequest{
		UserID:      7,
		Reason:      "changed my mind",
		CancelledBy: domain.CancelledByUser,
	})
	require.NoError(t, err)
	assert.Empty(t, refunds.refunds)
}

func TestCancel_TerminalStatusRejected(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusExpired

	repo := newFakeBookingRepo(b)
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	err := svc.Cancel(context.Background(), "bk-1", &models.CancelBookingRequest{
		UserID:      7,
		Reason:      "late",
		CancelledBy: domain.CancelledByUser,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestComplete_EarlyEndRefund(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusConfirmed

	repo := newFakeBookingRepo(b)
	refunds := &fakeRefundEngine{}
	svc := newTestService(repo, &fakePaymentRepo{}, refunds)

	// $15.00 за 30 минут, звонок закончился на 12-й: возврат $9.00
	resp, err := svc.Complete(context.Background(), "bk-1", &models.CompleteBookingRequest{
		ActualDurationMinutes: ptr.Ptr(12),
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", resp.Booking.Status)
	assert.Equal(t, int64(900), resp.RefundCents)
	assert.Equal(t, string(domain.RefundPartial), resp.RefundKind)
	assert.Equal(t, []string{"early_call_end"}, refunds.reasons)
}

func TestComplete_FullDurationNoRefund(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusConfirmed

	repo := newFakeBookingRepo(b)
	refunds := &fakeRefundEngine{}
	svc := newTestService(repo, &fakePaymentRepo{}, refunds)

	resp, err := svc.Complete(context.Background(), "bk-1", &models.CompleteBookingRequest{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), resp.RefundCents)
	assert.Empty(t, refunds.refunds)
}

func TestComplete_RequiresConfirmed(t *testing.T) {
	repo := newFakeBookingRepo(draftBooking("bk-1"))
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	_, err := svc.Complete(context.Background(), "bk-1", &models.CompleteBookingRequest{})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestMarkNoShow(t *testing.T) {
	b := draftBooking("bk-1")
	b.Status = domain.StatusConfirmed

	repo := newFakeBookingRepo(b)
	svc := newTestService(repo, &fakePaymentRepo{}, &fakeRefundEngine{})

	require.NoError(t, svc.MarkNoShow(context.Background(), "bk-1"))
	assert.Equal(t, domain.StatusNoShow, repo.bookings["bk-1"].Status)

	// Повторная отметка падает: бронь уже не confirmed
	assert.ErrorIs(t, svc.MarkNoShow(context.Background(), "bk-1"), ErrInvalidStatus)
}

func TestGetUserBookings_InvalidStatusFilter(t *testing.T) {
	svc := newTestService(newFakeBookingRepo(), &fakePaymentRepo{}, &fakeRefundEngine{})

	_, err := svc.GetUserBookings(context.Background(), 7, ptr.Ptr("bogus"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

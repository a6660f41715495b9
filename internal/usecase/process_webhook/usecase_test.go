package process_webhook

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	"github.com/kir4ng/PCS-BookingService/internal/infra/storage/idempotency"
	"github.com/kir4ng/PCS-BookingService/internal/service/reconciler"
)

type stubAdapter struct {
	delivery     *domain.WebhookDelivery
	decodeErr    error
	event        *domain.NormalizedWebhookEvent
	normalizeErr error
}

func (a *stubAdapter) Decode(body []byte, header http.Header) (*domain.WebhookDelivery, error) {
	if a.decodeErr != nil {
		return nil, a.decodeErr
	}
	return a.delivery, nil
}

func (a *stubAdapter) Normalize(d *domain.WebhookDelivery) (*domain.NormalizedWebhookEvent, error) {
	if a.normalizeErr != nil {
		return nil, a.normalizeErr
	}
	return a.event, nil
}

type stubLock struct {
	acquireErr error
	acquired   []string
	released   []string
}

func (l *stubLock) TryAcquire(ctx context.Context, key string) error {
	if l.acquireErr != nil {
		return l.acquireErr
	}
	l.acquired = append(l.acquired, key)
	return nil
}

func (l *stubLock) Release(ctx context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}

type stubReplay struct {
	seen     bool
	seenErr  error
	recorded []string
}

func (r *stubReplay) Seen(ctx context.Context, key string) (bool, error) {
	return r.seen, r.seenErr
}

func (r *stubReplay) Record(ctx context.Context, key string) error {
	r.recorded = append(r.recorded, key)
	return nil
}

type stubAudit struct {
	records []*domain.WebhookEventRecord
}

func (a *stubAudit) Create(ctx context.Context, rec *domain.WebhookEventRecord) error {
	a.records = append(a.records, rec)
	return nil
}

type stubReconciler struct {
	applyErr error
	applied  []*domain.NormalizedWebhookEvent
}

func (r *stubReconciler) Apply(ctx context.Context, evt *domain.NormalizedWebhookEvent) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	r.applied = append(r.applied, evt)
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func validDelivery() *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		Provider:         domain.ProviderCardpay,
		EventID:          "pay-123",
		IdempotencyKey:   "cardpay:pay-123:1",
		RawStatus:        "ACCEPTED",
		PaymentHint:      "pay-123",
		SignaturePresent: true,
		SignatureValid:   true,
		Payload:          []byte(`{}`),
	}
}

func validEvent() *domain.NormalizedWebhookEvent {
	return &domain.NormalizedWebhookEvent{
		Provider:       domain.ProviderCardpay,
		EventID:        "pay-123",
		IdempotencyKey: "cardpay:pay-123:1",
		PaymentID:      "pay-123",
		Outcome:        domain.OutcomePaid,
	}
}

type fixture struct {
	adapter    *stubAdapter
	lock       *stubLock
	replay     *stubReplay
	audit      *stubAudit
	reconciler *stubReconciler
	uc         *UseCase
}

func newFixture() *fixture {
	f := &fixture{
		adapter:    &stubAdapter{delivery: validDelivery(), event: validEvent()},
		lock:       &stubLock{},
		replay:     &stubReplay{},
		audit:      &stubAudit{},
		reconciler: &stubReconciler{},
	}
	f.uc = NewUseCase(f.adapter, f.lock, f.replay, f.audit, f.reconciler, nil, nopLogger{})
	return f
}

func TestExecute_HappyPath(t *testing.T) {
	f := newFixture()

	result, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, result)

	assert.Equal(t, []string{"cardpay:pay-123:1"}, f.lock.acquired)
	assert.Equal(t, []string{"cardpay:pay-123:1"}, f.lock.released)
	assert.Equal(t, []string{"cardpay:pay-123:1"}, f.replay.recorded)
	require.Len(t, f.audit.records, 1)
	assert.True(t, f.audit.records[0].IsValidSignature)
	require.Len(t, f.reconciler.applied, 1)
	assert.Equal(t, domain.OutcomePaid, f.reconciler.applied[0].Outcome)
}

func TestExecute_LockHeldIsDuplicate(t *testing.T) {
	f := newFixture()
	f.lock.acquireErr = idempotency.ErrLockHeld

	result, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)

	// Дубликат в пределах лока не трогает ни audit, ни состояние
	assert.Empty(t, f.audit.records)
	assert.Empty(t, f.reconciler.applied)
	assert.Empty(t, f.replay.recorded)
}

func TestExecute_ReplaySeenIsDuplicate(t *testing.T) {
	f := newFixture()
	f.replay.seen = true

	result, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)

	assert.Empty(t, f.reconciler.applied)
	assert.Empty(t, f.replay.recorded)
	// Лок снят даже на duplicate-пути
	assert.Equal(t, []string{"cardpay:pay-123:1"}, f.lock.released)
}

func TestExecute_MissingSignature(t *testing.T) {
	f := newFixture()
	f.adapter.delivery.SignaturePresent = false
	f.adapter.delivery.SignatureValid = false

	_, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, ErrMissingSignature)

	// Audit-запись есть, состояние не менялось
	require.Len(t, f.audit.records, 1)
	assert.False(t, f.audit.records[0].IsValidSignature)
	assert.Empty(t, f.reconciler.applied)
	assert.Empty(t, f.replay.recorded)
}

func TestExecute_InvalidSignature(t *testing.T) {
	f := newFixture()
	f.adapter.delivery.SignatureValid = false

	_, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, f.reconciler.applied)
}

func TestExecute_DecodeFailure(t *testing.T) {
	f := newFixture()
	f.adapter.decodeErr = errors.New("garbage body")

	_, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`x`), http.Header{})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, f.lock.acquired)

	// Неразобранная доставка тоже оставляет audit-запись с сырым телом
	require.Len(t, f.audit.records, 1)
	assert.Equal(t, domain.ProviderCardpay, f.audit.records[0].Provider)
	assert.Equal(t, []byte(`x`), f.audit.records[0].Payload)
	assert.False(t, f.audit.records[0].IsValidSignature)
}

func TestExecute_NormalizeFailure(t *testing.T) {
	f := newFixture()
	f.adapter.normalizeErr = errors.New("unknown state")

	_, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, f.reconciler.applied)
	assert.Empty(t, f.replay.recorded)
}

func TestExecute_TestEventShortCircuits(t *testing.T) {
	f := newFixture()
	f.adapter.delivery.TestEvent = true

	result, err := f.uc.Execute(context.Background(), domain.ProviderCryptopay, []byte(`{}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, ResultTestEvent, result)

	assert.Empty(t, f.lock.acquired)
	assert.Empty(t, f.reconciler.applied)
	assert.Empty(t, f.replay.recorded)

	// Тест-событие журналируется, но состояние не трогает
	require.Len(t, f.audit.records, 1)
}

func TestExecute_ApplyErrorsMapped(t *testing.T) {
	tests := []struct {
		name     string
		applyErr error
		wantErr  error
	}{
		{"invalid status", reconciler.ErrInvalidStatus, ErrInvalidStatus},
		{"payment not found", reconciler.ErrPaymentNotFound, ErrPaymentNotFound},
		{"booking not found", reconciler.ErrBookingNotFound, ErrBookingNotFound},
		{"internal", errors.New("db down"), ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.reconciler.applyErr = tt.applyErr

			_, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
			assert.ErrorIs(t, err, tt.wantErr)
			// Ключ не фиксируется в replay-сторе: доставку можно повторить
			assert.Empty(t, f.replay.recorded)
		})
	}
}

func TestExecute_RepeatedDeliveriesSingleApply(t *testing.T) {
	f := newFixture()

	// Первая доставка применяется
	result, err := f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, result)

	// Повторные доставки после записи в replay-стор не применяются
	f.replay.seen = true
	for i := 0; i < 3; i++ {
		result, err = f.uc.Execute(context.Background(), domain.ProviderCardpay, []byte(`{}`), http.Header{})
		require.NoError(t, err)
		assert.Equal(t, ResultDuplicate, result)
	}

	assert.Len(t, f.reconciler.applied, 1)
}

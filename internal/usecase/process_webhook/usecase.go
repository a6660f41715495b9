// Package process_webhook пайплайн обработки входящего платежного вебхука:
// разбор, дедупликация, audit, проверка подписи, нормализация и применение.
package process_webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	"github.com/kir4ng/PCS-BookingService/internal/infra/storage/idempotency"
	"github.com/kir4ng/PCS-BookingService/internal/service/reconciler"
)

// Result итог обработки доставки
type Result string

const (
	// ResultProcessed событие применено к состоянию
	ResultProcessed Result = "processed"
	// ResultDuplicate повторная доставка, состояние не менялось
	ResultDuplicate Result = "duplicate"
	// ResultTestEvent тестовая доставка провайдера, состояние не менялось
	ResultTestEvent Result = "test_event"
)

// UseCase use case обработки вебхука одного провайдера
type UseCase struct {
	adapter Adapter
	lock    IdempotencyLock
	replay  ReplayStore
	audit   AuditRepository
	applier Reconciler
	metrics Metrics
	logger  Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	adapter Adapter,
	lock IdempotencyLock,
	replay ReplayStore,
	audit AuditRepository,
	applier Reconciler,
	metrics Metrics,
	logger Logger,
) *UseCase {
	return &UseCase{
		adapter: adapter,
		lock:    lock,
		replay:  replay,
		audit:   audit,
		applier: applier,
		metrics: metrics,
		logger:  logger,
	}
}

// Execute обрабатывает доставку вебхука.
//
// Порядок шагов фиксирован: разбор -> тест-событие -> лок -> audit ->
// подпись -> replay -> нормализация -> применение -> запись в replay-стор.
// Audit-запись пишется до проверки подписи, чтобы невалидные доставки
// тоже оставляли след; неразобранные доставки и тест-события журналируются
// тем же образом. Лок снимается при выходе: поздние повторы ловит
// replay-стор, ранние (пока идет обработка) - лок.
func (uc *UseCase) Execute(ctx context.Context, provider domain.Provider, body []byte, header http.Header) (Result, error) {
	delivery, err := uc.adapter.Decode(body, header)
	if err != nil {
		uc.logger.Warn("ProcessWebhook: provider=%s decode failed: %v", provider, err)
		// Журналируем сырое тело: у неразобранной доставки нет ни ключа, ни полей события
		uc.writeAudit(ctx, &domain.WebhookDelivery{Provider: provider, Payload: body})
		uc.count(provider, "invalid_payload")
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if delivery.TestEvent {
		uc.logger.Info("ProcessWebhook: provider=%s event=%s test event acknowledged", provider, delivery.EventID)
		uc.writeAudit(ctx, delivery)
		uc.count(provider, "test_event")
		return ResultTestEvent, nil
	}

	if err := uc.lock.TryAcquire(ctx, delivery.IdempotencyKey); err != nil {
		if errors.Is(err, idempotency.ErrLockHeld) {
			uc.logger.Info("ProcessWebhook: provider=%s key=%s lock held, duplicate delivery",
				provider, delivery.IdempotencyKey)
			uc.count(provider, "duplicate")
			return ResultDuplicate, nil
		}
		uc.count(provider, "error")
		return "", fmt.Errorf("%w: acquire lock: %v", ErrInternal, err)
	}
	defer func() {
		if err := uc.lock.Release(context.WithoutCancel(ctx), delivery.IdempotencyKey); err != nil {
			// Не критично: лок добьет TTL
			uc.logger.Warn("ProcessWebhook: release lock key=%s: %v", delivery.IdempotencyKey, err)
		}
	}()

	uc.writeAudit(ctx, delivery)

	if !delivery.SignaturePresent {
		uc.logger.Warn("ProcessWebhook: provider=%s event=%s missing signature", provider, delivery.EventID)
		uc.count(provider, "missing_signature")
		return "", ErrMissingSignature
	}
	if !delivery.SignatureValid {
		uc.logger.Warn("ProcessWebhook: provider=%s event=%s invalid signature", provider, delivery.EventID)
		uc.count(provider, "invalid_signature")
		return "", ErrInvalidSignature
	}

	seen, err := uc.replay.Seen(ctx, delivery.IdempotencyKey)
	if err != nil {
		uc.count(provider, "error")
		return "", fmt.Errorf("%w: replay check: %v", ErrInternal, err)
	}
	if seen {
		uc.logger.Info("ProcessWebhook: provider=%s key=%s already processed, replay",
			provider, delivery.IdempotencyKey)
		uc.count(provider, "duplicate")
		return ResultDuplicate, nil
	}

	event, err := uc.adapter.Normalize(delivery)
	if err != nil {
		uc.logger.Warn("ProcessWebhook: provider=%s event=%s normalize failed: %v",
			provider, delivery.EventID, err)
		uc.count(provider, "invalid_payload")
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := uc.applier.Apply(ctx, event); err != nil {
		return "", uc.mapApplyError(provider, delivery.EventID, err)
	}

	if err := uc.replay.Record(ctx, delivery.IdempotencyKey); err != nil {
		// Событие уже применено; повтор после истечения лока приведет к
		// отклонению на уровне переходов состояний, но след оставляем в логе
		uc.logger.Error("ProcessWebhook: record replay key=%s: %v", delivery.IdempotencyKey, err)
	}

	uc.logger.Info("ProcessWebhook: provider=%s event=%s outcome=%s processed",
		provider, event.EventID, event.Outcome)
	uc.count(provider, "processed")
	return ResultProcessed, nil
}

// writeAudit пишет audit-запись доставки; ошибка записи не прерывает пайплайн
func (uc *UseCase) writeAudit(ctx context.Context, d *domain.WebhookDelivery) {
	rec := &domain.WebhookEventRecord{
		Provider:         d.Provider,
		EventID:          d.EventID,
		Status:           d.RawStatus,
		StateCode:        d.StateCode,
		Payload:          d.Payload,
		IsValidSignature: d.SignaturePresent && d.SignatureValid,
	}
	if d.PaymentHint != "" {
		hint := d.PaymentHint
		rec.PaymentID = &hint
	}
	if err := uc.audit.Create(ctx, rec); err != nil {
		uc.logger.Error("ProcessWebhook: audit write provider=%s event=%s: %v", d.Provider, d.EventID, err)
	}
}

func (uc *UseCase) mapApplyError(provider domain.Provider, eventID string, err error) error {
	switch {
	case errors.Is(err, reconciler.ErrPaymentNotFound):
		uc.count(provider, "not_found")
		return ErrPaymentNotFound
	case errors.Is(err, reconciler.ErrBookingNotFound):
		uc.count(provider, "not_found")
		return ErrBookingNotFound
	case errors.Is(err, reconciler.ErrInvalidStatus):
		uc.count(provider, "invalid_status")
		return ErrInvalidStatus
	default:
		uc.logger.Error("ProcessWebhook: provider=%s event=%s apply failed: %v", provider, eventID, err)
		uc.count(provider, "error")
		return fmt.Errorf("%w: apply: %v", ErrInternal, err)
	}
}

func (uc *UseCase) count(provider domain.Provider, outcome string) {
	if uc.metrics != nil {
		uc.metrics.IncWebhookEvent(string(provider), outcome)
	}
}

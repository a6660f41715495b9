package process_webhook

import (
	"context"
	"net/http"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// Adapter интерфейс адаптера вебхуков провайдера
type Adapter interface {
	Decode(body []byte, header http.Header) (*domain.WebhookDelivery, error)
	Normalize(d *domain.WebhookDelivery) (*domain.NormalizedWebhookEvent, error)
}

// IdempotencyLock интерфейс короткого лока доставок (секунды-минуты)
type IdempotencyLock interface {
	TryAcquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// ReplayStore интерфейс долгого стора обработанных ключей (дни)
type ReplayStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string) error
}

// AuditRepository интерфейс журнала входящих доставок
type AuditRepository interface {
	Create(ctx context.Context, rec *domain.WebhookEventRecord) error
}

// Reconciler интерфейс применения нормализованных событий к состоянию
type Reconciler interface {
	Apply(ctx context.Context, evt *domain.NormalizedWebhookEvent) error
}

// Metrics интерфейс метрик пайплайна
type Metrics interface {
	IncWebhookEvent(provider, outcome string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

package domain

import "time"

// WebhookOutcome итог платежа, извлеченный из вебхука провайдера
type WebhookOutcome string

const (
	OutcomePending WebhookOutcome = "pending"
	OutcomePaid    WebhookOutcome = "paid"
	OutcomeFailed  WebhookOutcome = "failed"
)

// WebhookEventRecord audit-запись входящего вебхука
// Пишется для каждой доставки (валидной и нет) до любых изменений состояния
type WebhookEventRecord struct {
	ID               int64
	Provider         Provider
	EventID          string
	PaymentID        *string
	Status           string
	StateCode        *int
	Payload          []byte
	IsValidSignature bool
	CreatedAt        time.Time
}

// WebhookDelivery разобранная, но еще не провалидированная доставка вебхука.
// Содержит ровно столько, сколько нужно шагам пайплайна до валидации:
// ключ идемпотентности, поля audit-записи и результат проверки подписи.
type WebhookDelivery struct {
	Provider Provider

	EventID        string
	IdempotencyKey string

	RawStatus string
	StateCode *int

	// PaymentHint наш payment id из payload, если извлекается (для audit-записи)
	PaymentHint string

	SignaturePresent bool
	SignatureValid   bool

	// TestEvent тестовая доставка провайдера: подтверждается без изменения состояния
	TestEvent bool

	Payload []byte
}

// NormalizedWebhookEvent единое представление вебхука любого провайдера.
// Адаптеры провайдеров переводят сырые payload'ы в эту форму,
// чтобы reconciler никогда не ветвился по формату провайдера.
type NormalizedWebhookEvent struct {
	Provider Provider

	// EventID идентификатор доставки у провайдера (для crypto) или referenceId (для card)
	EventID string

	// IdempotencyKey детерминированный ключ дедупликации доставок
	IdempotencyKey string

	// ProviderPaymentID идентификатор платежа на стороне провайдера
	ProviderPaymentID string

	// PaymentID наш идентификатор платежа из metadata (если провайдер его вернул)
	PaymentID string

	// UserID из metadata, для логов
	UserID string

	Outcome WebhookOutcome

	// Final true, если провайдер сигнализирует окончательность неуспеха
	// (повторная оплата по этому платежу невозможна)
	Final bool

	// StateCode числовой код состояния карточного провайдера (nil для crypto)
	StateCode *int

	// RawStatus статус в терминах провайдера, для audit-записи
	RawStatus string
}

package cryptopay

import (
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// webhookPayload сырой payload крипто-провайдера.
// Провайдер шлет два поколения формата: плоское (v1) и с вложенным
// объектом payment (v2). Оба разбираются в одну структуру.
type webhookPayload struct {
	EventID     string            `json:"eventId"`
	Status      string            `json:"status"`
	ID          string            `json:"id"`
	Metadata    map[string]string `json:"metadata"`
	IsTestEvent bool              `json:"isTestEvent"`

	// Payment вложенный объект формата v2; при наличии его поля приоритетны
	Payment *struct {
		ID       string            `json:"id"`
		Status   string            `json:"status"`
		Metadata map[string]string `json:"metadata"`
	} `json:"payment"`
}

// statusOutcome маппинг статуса провайдера на исход и признак окончательности.
// failed не финален (оплату можно повторить), cancelled/expired закрывают платеж.
var statusOutcome = map[string]struct {
	outcome domain.WebhookOutcome
	final   bool
}{
	"paid":       {domain.OutcomePaid, false},
	"completed":  {domain.OutcomePaid, false},
	"pending":    {domain.OutcomePending, false},
	"processing": {domain.OutcomePending, false},
	"failed":     {domain.OutcomeFailed, false},
	"cancelled":  {domain.OutcomeFailed, true},
	"expired":    {domain.OutcomeFailed, true},
}

// WebhookAdapter разбирает и нормализует вебхуки крипто-провайдера
type WebhookAdapter struct {
	apiToken string
}

// NewWebhookAdapter создает адаптер вебхуков
func NewWebhookAdapter(apiToken string) *WebhookAdapter {
	return &WebhookAdapter{apiToken: apiToken}
}

// Decode разбирает тело доставки и проверяет токен из заголовков.
// Провайдер передает токен либо как Authorization: Bearer <token>,
// либо в X-Api-Signature. Результат проверки кладется в
// SignaturePresent/SignatureValid, решение принимает пайплайн.
func (a *WebhookAdapter) Decode(body []byte, header http.Header) (*domain.WebhookDelivery, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	// v1 может прислать идентификатор доставки только в id,
	// v2 - во вложенном payment.id
	eventID := p.EventID
	if eventID == "" {
		eventID = p.ID
	}
	if eventID == "" && p.Payment != nil {
		eventID = p.Payment.ID
	}
	if eventID == "" {
		return nil, ErrMissingEventID
	}

	status := p.Status
	if p.Payment != nil && p.Payment.Status != "" {
		status = p.Payment.Status
	}

	d := &domain.WebhookDelivery{
		Provider:       domain.ProviderCryptopay,
		EventID:        eventID,
		IdempotencyKey: fmt.Sprintf("cryptopay:%s", eventID),
		RawStatus:      status,
		PaymentHint:    metadataOf(&p)["paymentId"],
		TestEvent:      p.IsTestEvent,
		Payload:        body,
	}

	if token, present := extractToken(header); present {
		d.SignaturePresent = true
		d.SignatureValid = hmac.Equal([]byte(token), []byte(a.apiToken))
	}
	return d, nil
}

// Normalize переводит провалидированную доставку в единую форму событий
func (a *WebhookAdapter) Normalize(d *domain.WebhookDelivery) (*domain.NormalizedWebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(d.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	status := strings.ToLower(d.RawStatus)
	mapping, ok := statusOutcome[status]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, d.RawStatus)
	}

	providerPaymentID := p.ID
	if p.Payment != nil && p.Payment.ID != "" {
		providerPaymentID = p.Payment.ID
	}

	meta := metadataOf(&p)
	if meta["paymentId"] == "" && providerPaymentID == "" {
		return nil, ErrNoPaymentReference
	}

	return &domain.NormalizedWebhookEvent{
		Provider:          domain.ProviderCryptopay,
		EventID:           d.EventID,
		IdempotencyKey:    d.IdempotencyKey,
		ProviderPaymentID: providerPaymentID,
		PaymentID:         meta["paymentId"],
		UserID:            meta["userId"],
		Outcome:           mapping.outcome,
		Final:             mapping.final,
		RawStatus:         d.RawStatus,
	}, nil
}

// metadataOf возвращает metadata с приоритетом вложенного payment (v2)
func metadataOf(p *webhookPayload) map[string]string {
	if p.Payment != nil && p.Payment.Metadata != nil {
		return p.Payment.Metadata
	}
	if p.Metadata != nil {
		return p.Metadata
	}
	return map[string]string{}
}

// extractToken достает токен из Authorization (Bearer) или X-Api-Signature
func extractToken(header http.Header) (string, bool) {
	if auth := header.Get("Authorization"); auth != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(auth, prefix) {
			return strings.TrimPrefix(auth, prefix), true
		}
		return auth, true
	}
	if sig := header.Get("X-Api-Signature"); sig != "" {
		return sig, true
	}
	return "", false
}

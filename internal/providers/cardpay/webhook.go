package cardpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// webhookPayload сырой payload карточного провайдера.
// Подпись передается в теле (x_signature), а не в заголовке.
type webhookPayload struct {
	ReferenceID          string `json:"referenceId"`
	TransactionStateCode *int   `json:"transactionStateCode"`
	TransactionState     string `json:"transactionState"`
	PaymentID            string `json:"paymentId"`
	XSignature           string `json:"x_signature"`
}

// WebhookAdapter разбирает и нормализует вебхуки карточного провайдера
type WebhookAdapter struct {
	secretKey string
}

// NewWebhookAdapter создает адаптер вебхуков
func NewWebhookAdapter(secretKey string) *WebhookAdapter {
	return &WebhookAdapter{secretKey: secretKey}
}

// Decode разбирает тело доставки и проверяет подпись.
// Ошибки разбора возвращаются как ErrMalformedPayload/ErrMissingReference;
// отсутствующая или неверная подпись ошибкой не является, результат проверки
// кладется в SignaturePresent/SignatureValid для решения на уровне пайплайна.
func (a *WebhookAdapter) Decode(body []byte, _ http.Header) (*domain.WebhookDelivery, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.ReferenceID == "" || p.TransactionStateCode == nil {
		return nil, ErrMissingReference
	}

	d := &domain.WebhookDelivery{
		Provider:       domain.ProviderCardpay,
		EventID:        p.ReferenceID,
		IdempotencyKey: fmt.Sprintf("cardpay:%s:%d", p.ReferenceID, *p.TransactionStateCode),
		RawStatus:      p.TransactionState,
		StateCode:      p.TransactionStateCode,
		// referenceId в checkout-ссылке - это наш payment id
		PaymentHint: p.ReferenceID,
		Payload:     body,
	}
	if d.RawStatus == "" {
		d.RawStatus = strconv.Itoa(*p.TransactionStateCode)
	}

	if p.XSignature != "" {
		d.SignaturePresent = true
		d.SignatureValid = a.verify(&p)
	}
	return d, nil
}

// Normalize переводит провалидированную доставку в единую форму событий
func (a *WebhookAdapter) Normalize(d *domain.WebhookDelivery) (*domain.NormalizedWebhookEvent, error) {
	if d.StateCode == nil {
		return nil, ErrMissingReference
	}
	mapping, ok := stateOutcome[*d.StateCode]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStateCode, *d.StateCode)
	}

	var p webhookPayload
	if err := json.Unmarshal(d.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.PaymentID == "" && p.ReferenceID == "" {
		return nil, ErrNoPaymentReference
	}

	return &domain.NormalizedWebhookEvent{
		Provider:       domain.ProviderCardpay,
		EventID:        d.EventID,
		IdempotencyKey: d.IdempotencyKey,
		// referenceId в checkout-ссылке - это наш payment id,
		// провайдерский идентификатор транзакции приходит в paymentId
		ProviderPaymentID: p.PaymentID,
		PaymentID:         p.ReferenceID,
		Outcome:           mapping.outcome,
		Final:             mapping.final,
		StateCode:         d.StateCode,
		RawStatus:         d.RawStatus,
	}, nil
}

// verify проверяет HMAC-SHA256 подпись над каноничной строкой
// referenceId:stateCode:paymentId
func (a *WebhookAdapter) verify(p *webhookPayload) bool {
	expected := Sign(a.secretKey, p.ReferenceID, *p.TransactionStateCode, p.PaymentID)
	return hmac.Equal([]byte(expected), []byte(p.XSignature))
}

// Sign вычисляет подпись вебхука. Экспортирована для тестов и
// инструментов воспроизведения доставок.
func Sign(secretKey, referenceID string, stateCode int, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	fmt.Fprintf(mac, "%s:%d:%s", referenceID, stateCode, paymentID)
	return hex.EncodeToString(mac.Sum(nil))
}

// Package cardpay интеграция с карточным платежным провайдером:
// ссылки на оплату, возвраты и разбор входящих вебхуков.
package cardpay

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент карточного провайдера
type Client struct {
	secretKey       string
	checkoutBaseURL string
	logger          Logger
}

// NewClient создает клиент карточного провайдера
func NewClient(secretKey, checkoutBaseURL string, logger Logger) *Client {
	return &Client{
		secretKey:       secretKey,
		checkoutBaseURL: checkoutBaseURL,
		logger:          logger,
	}
}

// CheckoutLink строит ссылку на платежную страницу провайдера.
// Наш payment id передается как referenceId и возвращается провайдером в вебхуке.
func (c *Client) CheckoutLink(paymentID string, amountCents int64, currency string) string {
	q := url.Values{}
	q.Set("referenceId", paymentID)
	q.Set("amount", fmt.Sprintf("%d.%02d", amountCents/100, amountCents%100))
	q.Set("currency", currency)
	return fmt.Sprintf("%s/checkout?%s", c.checkoutBaseURL, q.Encode())
}

// Refund фиксирует возврат по карточному платежу.
// Фактический расчет с держателем карты выполняется на стороне провайдера
// вне этого сервиса; здесь возврат логируется для сверки.
func (c *Client) Refund(ctx context.Context, payment *domain.Payment, amountCents int64, reason string) error {
	if payment.Provider != domain.ProviderCardpay {
		return fmt.Errorf("cardpay: refund for foreign provider %q", payment.Provider)
	}

	providerID := ""
	if payment.ProviderPaymentID != nil {
		providerID = *payment.ProviderPaymentID
	}

	c.logger.Info("Refund: payment id=%s providerPaymentId=%s amount=%d currency=%s reason=%s",
		payment.ID, providerID, amountCents, payment.Currency, reason)
	return nil
}

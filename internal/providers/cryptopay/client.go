// Package cryptopay интеграция с крипто-платежным провайдером:
// ссылки на оплату, возвраты и разбор входящих вебхуков.
package cryptopay

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

// Client клиент крипто-провайдера
type Client struct {
	apiToken        string
	checkoutBaseURL string
	logger          Logger
}

// NewClient создает клиент крипто-провайдера
func NewClient(apiToken, checkoutBaseURL string, logger Logger) *Client {
	return &Client{
		apiToken:        apiToken,
		checkoutBaseURL: checkoutBaseURL,
		logger:          logger,
	}
}

// CheckoutLink строит ссылку на платежную страницу провайдера.
// Наш payment id уходит провайдеру в metadata и возвращается в вебхуке.
func (c *Client) CheckoutLink(paymentID string, amountCents int64, currency string) string {
	q := url.Values{}
	q.Set("payment_id", paymentID)
	q.Set("amount_cents", fmt.Sprintf("%d", amountCents))
	q.Set("currency", currency)
	return fmt.Sprintf("%s/pay?%s", c.checkoutBaseURL, q.Encode())
}

// Refund фиксирует возврат по крипто-платежу. Перевод средств обратно
// выполняется провайдером вне этого сервиса; здесь возврат логируется для сверки.
func (c *Client) Refund(ctx context.Context, payment *domain.Payment, amountCents int64, reason string) error {
	if payment.Provider != domain.ProviderCryptopay {
		return fmt.Errorf("cryptopay: refund for foreign provider %q", payment.Provider)
	}

	providerID := ""
	if payment.ProviderPaymentID != nil {
		providerID = *payment.ProviderPaymentID
	}

	c.logger.Info("Refund: payment id=%s providerPaymentId=%s amount=%d currency=%s reason=%s",
		payment.ID, providerID, amountCents, payment.Currency, reason)
	return nil
}

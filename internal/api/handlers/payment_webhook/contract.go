package payment_webhook

import (
	"context"
	"net/http"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	processWebhook "github.com/kir4ng/PCS-BookingService/internal/usecase/process_webhook"
)

type ProcessWebhookUseCase interface {
	Execute(ctx context.Context, provider domain.Provider, body []byte, header http.Header) (processWebhook.Result, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Package payment_webhook HTTP обработчик входящих вебхуков платежных
// провайдеров. Один обработчик на провайдера, различаются адаптером в use case.
package payment_webhook

import (
	"errors"
	"io"
	"net/http"

	"github.com/kir4ng/PCS-BookingService/internal/api/handlers"
	"github.com/kir4ng/PCS-BookingService/internal/domain"
	processWebhook "github.com/kir4ng/PCS-BookingService/internal/usecase/process_webhook"
)

// maxBodyBytes лимит размера тела вебхука
const maxBodyBytes = 1 << 20

// ackResponse успешный ответ провайдеру.
// Duplicate и TestEvent подтверждаются как успех: провайдер не должен
// ретраить доставку, которую мы уже видели или которая ничего не меняет.
type ackResponse struct {
	Success   bool `json:"success"`
	Duplicate bool `json:"duplicate,omitempty"`
	TestEvent bool `json:"testEvent,omitempty"`
}

type Handler struct {
	provider domain.Provider
	useCase  ProcessWebhookUseCase
	logger   Logger
}

func NewHandler(provider domain.Provider, useCase ProcessWebhookUseCase, logger Logger) *Handler {
	return &Handler{
		provider: provider,
		useCase:  useCase,
		logger:   logger,
	}
}

// Handle POST /webhooks/{provider}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("POST /webhooks/%s - Failed to read body: %v", h.provider, err)
		handlers.RespondBadRequest(w, handlers.CodeInvalidPayload)
		return
	}

	result, err := h.useCase.Execute(r.Context(), h.provider, body, r.Header)
	if err != nil {
		switch {
		case errors.Is(err, processWebhook.ErrMissingSignature):
			handlers.RespondBadRequest(w, handlers.CodeMissingSignature)

		case errors.Is(err, processWebhook.ErrInvalidSignature):
			handlers.RespondUnauthorized(w, handlers.CodeInvalidSignature)

		case errors.Is(err, processWebhook.ErrInvalidPayload):
			handlers.RespondBadRequest(w, handlers.CodeInvalidPayload)

		case errors.Is(err, processWebhook.ErrPaymentNotFound),
			errors.Is(err, processWebhook.ErrBookingNotFound):
			handlers.RespondNotFound(w, handlers.CodeBookingNotFound)

		case errors.Is(err, processWebhook.ErrInvalidStatus):
			handlers.RespondBadRequest(w, handlers.CodeInvalidStatus)

		default:
			h.logger.Error("POST /webhooks/%s - Failed: %v", h.provider, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	resp := ackResponse{Success: true}
	switch result {
	case processWebhook.ResultDuplicate:
		resp.Duplicate = true
	case processWebhook.ResultTestEvent:
		resp.TestEvent = true
	}
	handlers.RespondJSON(w, http.StatusOK, resp)
}

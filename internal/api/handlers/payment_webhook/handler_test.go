package payment_webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	processWebhook "github.com/kir4ng/PCS-BookingService/internal/usecase/process_webhook"
)

type stubUseCase struct {
	result processWebhook.Result
	err    error
	calls  int
}

func (u *stubUseCase) Execute(ctx context.Context, provider domain.Provider, body []byte, header http.Header) (processWebhook.Result, error) {
	u.calls++
	return u.result, u.err
}

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func doRequest(t *testing.T, uc *stubUseCase) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(domain.ProviderCardpay, uc, nopLogger{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/cardpay", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle_Processed(t *testing.T) {
	rec := doRequest(t, &stubUseCase{result: processWebhook.ResultProcessed})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotContains(t, resp, "duplicate")
}

func TestHandle_DuplicateAcknowledged(t *testing.T) {
	rec := doRequest(t, &stubUseCase{result: processWebhook.ResultDuplicate})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["duplicate"])
}

func TestHandle_TestEventAcknowledged(t *testing.T) {
	rec := doRequest(t, &stubUseCase{result: processWebhook.ResultTestEvent})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["testEvent"])
}

func TestHandle_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing signature", processWebhook.ErrMissingSignature, http.StatusBadRequest, "missing_signature"},
		{"invalid signature", processWebhook.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
		{"invalid payload", processWebhook.ErrInvalidPayload, http.StatusBadRequest, "invalid_payload"},
		{"payment not found", processWebhook.ErrPaymentNotFound, http.StatusNotFound, "booking_not_found"},
		{"booking not found", processWebhook.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
		{"invalid status", processWebhook.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
		{"internal", processWebhook.ErrInternal, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, &stubUseCase{err: tt.err})

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.wantCode, resp["error"])
		})
	}
}

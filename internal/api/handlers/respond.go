// Package handlers общие помощники HTTP слоя: JSON ответы с единым
// конвертом ошибок и декодирование запросов.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Коды ошибок API. Возвращаются в поле error конверта ошибки.
const (
	CodeInvalidInput     = "invalid_input"
	CodeSlotUnavailable  = "slot_unavailable"
	CodeBookingNotFound  = "booking_not_found"
	CodeInvalidStatus    = "invalid_status"
	CodeForbidden        = "forbidden"
	CodeMissingSignature = "missing_signature"
	CodeInvalidSignature = "invalid_signature"
	CodeInvalidPayload   = "invalid_payload"
	CodeProviderError    = "provider_error"
	CodeInternalError    = "internal_error"
)

// ErrorResponse конверт ошибки API
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RespondJSON пишет JSON ответ с заданным статусом
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// RespondError пишет конверт ошибки с заданным статусом и кодом
func RespondError(w http.ResponseWriter, status int, code string) {
	RespondJSON(w, status, ErrorResponse{Success: false, Error: code})
}

// RespondBadRequest пишет 400 с кодом ошибки
func RespondBadRequest(w http.ResponseWriter, code string) {
	RespondError(w, http.StatusBadRequest, code)
}

// RespondUnauthorized пишет 401 с кодом ошибки
func RespondUnauthorized(w http.ResponseWriter, code string) {
	RespondError(w, http.StatusUnauthorized, code)
}

// RespondForbidden пишет 403
func RespondForbidden(w http.ResponseWriter) {
	RespondError(w, http.StatusForbidden, CodeForbidden)
}

// RespondNotFound пишет 404 с кодом ошибки
func RespondNotFound(w http.ResponseWriter, code string) {
	RespondError(w, http.StatusNotFound, code)
}

// RespondConflict пишет 409 с кодом ошибки
func RespondConflict(w http.ResponseWriter, code string) {
	RespondError(w, http.StatusConflict, code)
}

// RespondInternalError пишет 500
func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, CodeInternalError)
}

// DecodeJSON декодирует JSON тело запроса в v
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

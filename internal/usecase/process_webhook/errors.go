package process_webhook

import "errors"

var (
	// ErrMissingSignature доставка без подписи/токена
	ErrMissingSignature = errors.New("missing signature")

	// ErrInvalidSignature подпись/токен не прошли проверку
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPayload payload не разбирается или не нормализуется
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrPaymentNotFound платеж из вебхука не разрешается в наш платеж
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrBookingNotFound платеж ссылается на несуществующую бронь
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidStatus недопустимый переход состояния
	ErrInvalidStatus = errors.New("invalid status transition")

	// ErrInternal внутренняя ошибка пайплайна
	ErrInternal = errors.New("process_webhook: internal error")
)

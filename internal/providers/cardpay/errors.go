package cardpay

import "errors"

var (
	// ErrMissingReference возвращается, когда в payload нет referenceId или кода состояния
	ErrMissingReference = errors.New("cardpay: missing referenceId or transactionStateCode")

	// ErrMalformedPayload возвращается при нечитаемом JSON
	ErrMalformedPayload = errors.New("cardpay: malformed payload")

	// ErrUnknownStateCode возвращается при неизвестном коде состояния транзакции
	ErrUnknownStateCode = errors.New("cardpay: unknown transaction state code")

	// ErrNoPaymentReference возвращается, когда payload не ссылается ни на один наш платеж
	ErrNoPaymentReference = errors.New("cardpay: no payment reference in payload")
)

package idempotency

import "errors"

var (
	// ErrLockHeld возвращается, когда лок по ключу уже удерживается конкурентной доставкой
	ErrLockHeld = errors.New("idempotency.repository: lock already held")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("idempotency.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("idempotency.repository: failed to execute query")
)

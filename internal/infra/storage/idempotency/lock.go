// Package idempotency реализует два независимых TTL-хранилища поверх PostgreSQL:
//
//   - короткий лок (~60s) - взаимное исключение конкурентных доставок одного вебхука;
//   - долгий replay-стор (~30 дней) - отсев повторных доставок, пришедших
//     уже после истечения лока.
//
// Один TTL на оба случая не работает: 30-дневный лок заблокировал бы легитимные
// повторы другого состояния, а 60-секундный replay-стор пропускал бы поздние доставки.
// Оба хранилища разделяются всеми инстансами сервиса через БД - in-process
// кэши недопустимы при нескольких worker-процессах.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/kir4ng/PCS-BookingService/pkg/dbmetrics"
	"github.com/kir4ng/PCS-BookingService/pkg/psqlbuilder"
)

type DBExecutor = dbmetrics.DBExecutor

// LockRepository короткоживущий лок по ключу идемпотентности
type LockRepository struct {
	db  DBExecutor
	ttl time.Duration
}

// NewLockRepository создает лок-репозиторий с указанным TTL
func NewLockRepository(db DBExecutor, ttl time.Duration) *LockRepository {
	return &LockRepository{db: db, ttl: ttl}
}

// TryAcquire пытается захватить лок одним атомарным запросом, без ожидания.
// Просроченный лок перехватывается тем же INSERT ... ON CONFLICT.
// Возвращает ErrLockHeld, если лок удерживается живой конкурентной доставкой.
func (r *LockRepository) TryAcquire(ctx context.Context, key string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("idempotency_locks").
		Columns("key", "locked_at", "expires_at").
		Values(key, squirrel.Expr("NOW()"), squirrel.Expr("NOW() + make_interval(secs => ?)", r.ttl.Seconds())).
		Suffix(`ON CONFLICT (key) DO UPDATE
			SET locked_at = NOW(), expires_at = EXCLUDED.expires_at
			WHERE idempotency_locks.expires_at < NOW()`).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: TryAcquire - build query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: TryAcquire - execute query: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: TryAcquire - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrLockHeld
	}

	return nil
}

// Release снимает лок по ключу
// Ошибка снятия не критична: лок в любом случае умрет по TTL
func (r *LockRepository) Release(ctx context.Context, key string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("idempotency_locks").
		Where(squirrel.Eq{"key": key}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Release - build query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Release - execute query: %v", ErrExecQuery, err)
	}

	return nil
}

// PurgeExpired удаляет протухшие записи локов (вызывается sweeper'ом)
func (r *LockRepository) PurgeExpired(ctx context.Context) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("idempotency_locks").
		Where(squirrel.Expr("expires_at < NOW()")).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: PurgeExpired - build query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: PurgeExpired - execute query: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: PurgeExpired - get rows affected: %v", ErrExecQuery, err)
	}

	return rowsAffected, nil
}

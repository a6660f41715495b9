package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/kir4ng/PCS-BookingService/pkg/dbmetrics"
	"github.com/kir4ng/PCS-BookingService/pkg/psqlbuilder"
)

// ReplayRepository долгоживущий стор принятых ключей идемпотентности.
// Ловит доставки, пришедшие уже после истечения короткого лока
// (провайдер может повторить доставку спустя часы).
type ReplayRepository struct {
	db  DBExecutor
	ttl time.Duration
}

// NewReplayRepository создает replay-репозиторий с указанным TTL
func NewReplayRepository(db DBExecutor, ttl time.Duration) *ReplayRepository {
	return &ReplayRepository{db: db, ttl: ttl}
}

// Seen проверяет, обрабатывался ли ключ ранее (в пределах TTL)
func (r *ReplayRepository) Seen(ctx context.Context, key string) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		From("processed_webhook_keys").
		Where(squirrel.Eq{"key": key}).
		Where(squirrel.Expr("expires_at >= NOW()")).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: Seen - build query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: Seen - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	seen := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("%w: Seen - rows error: %v", ErrExecQuery, err)
	}

	return seen, nil
}

// Record фиксирует ключ как обработанный
// Повторная запись того же ключа - no-op (ON CONFLICT DO NOTHING)
func (r *ReplayRepository) Record(ctx context.Context, key string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("processed_webhook_keys").
		Columns("key", "processed_at", "expires_at").
		Values(key, squirrel.Expr("NOW()"), squirrel.Expr("NOW() + make_interval(secs => ?)", r.ttl.Seconds())).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Record - build query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Record - execute query: %v", ErrExecQuery, err)
	}

	return nil
}

// PurgeExpired удаляет протухшие ключи (вызывается sweeper'ом)
func (r *ReplayRepository) PurgeExpired(ctx context.Context) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("processed_webhook_keys").
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

// Package webhookevent хранит audit-записи входящих вебхуков.
// Записи пишутся до любых изменений состояния и независимо от валидности
// подписи - это воспроизводимый журнал, а не механизм идемпотентности.
package webhookevent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	"github.com/kir4ng/PCS-BookingService/pkg/dbmetrics"
	"github.com/kir4ng/PCS-BookingService/pkg/psqlbuilder"
)

var (
	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("webhookevent.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("webhookevent.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("webhookevent.repository: failed to scan row")
)

type DBExecutor = dbmetrics.DBExecutor

// Repository репозиторий audit-журнала вебхуков
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create пишет audit-запись входящего вебхука
func (r *Repository) Create(ctx context.Context, record *domain.WebhookEventRecord) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("webhook_events").
		Columns(
			"provider",
			"event_id",
			"payment_id",
			"status",
			"state_code",
			"payload",
			"is_valid_signature",
		).
		Values(
			record.Provider,
			record.EventID,
			record.PaymentID,
			record.Status,
			record.StateCode,
			record.Payload,
			record.IsValidSignature,
		).
		Suffix("RETURNING id, created_at").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// ListByPayment возвращает audit-записи по платежу (для диагностики)
func (r *Repository) ListByPayment(ctx context.Context, paymentID string) ([]*domain.WebhookEventRecord, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"provider",
		"event_id",
		"payment_id",
		"status",
		"state_code",
		"payload",
		"is_valid_signature",
		"created_at",
	).
		From("webhook_events").
		Where(squirrel.Eq{"payment_id": paymentID}).
		OrderBy("created_at ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListByPayment - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByPayment - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	records := make([]*domain.WebhookEventRecord, 0)
	for rows.Next() {
		var record domain.WebhookEventRecord
		err := rows.Scan(
			&record.ID,
			&record.Provider,
			&record.EventID,
			&record.PaymentID,
			&record.Status,
			&record.StateCode,
			&record.Payload,
			&record.IsValidSignature,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: ListByPayment - scan row: %v", ErrScanRow, err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByPayment - rows error: %v", ErrScanRow, err)
	}

	return records, nil
}

package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	"github.com/kir4ng/PCS-BookingService/pkg/dbmetrics"
	"github.com/kir4ng/PCS-BookingService/pkg/psqlbuilder"
)

type DBExecutor = dbmetrics.DBExecutor

var paymentColumns = []string{
	"id",
	"booking_id",
	"provider",
	"provider_payment_id",
	"payment_link",
	"amount_cents",
	"currency",
	"status",
	"expires_at",
	"paid_at",
	"refunded_at",
	"refund_reason",
	"metadata",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с платежами
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория платежей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новый платеж
func (r *Repository) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	metadata, err := json.Marshal(payment.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - marshal metadata: %v", ErrBuildQuery, err)
	}

	query, args, err := psqlbuilder.Insert("payments").
		Columns(
			"id",
			"booking_id",
			"provider",
			"provider_payment_id",
			"payment_link",
			"amount_cents",
			"currency",
			"status",
			"expires_at",
			"metadata",
		).
		Values(
			payment.ID,
			payment.BookingID,
			payment.Provider,
			payment.ProviderPaymentID,
			payment.PaymentLink,
			payment.AmountCents,
			payment.Currency,
			payment.Status,
			payment.ExpiresAt,
			metadata,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	payment.CreatedAt = createdAt.Time
	payment.UpdatedAt = updatedAt.Time

	return payment, nil
}

// GetByID получает платеж по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id}, "GetByID")
}

// GetByProviderPaymentID получает платеж по идентификатору на стороне провайдера
func (r *Repository) GetByProviderPaymentID(ctx context.Context, provider domain.Provider, providerPaymentID string) (*domain.Payment, error) {
	return r.getOne(ctx, squirrel.Eq{
		"provider":            provider,
		"provider_payment_id": providerPaymentID,
	}, "GetByProviderPaymentID")
}

// GetLatestByBooking получает последний (активный) платеж бронирования
// Исторические платежи сохраняются; актуальным считается последний созданный
func (r *Repository) GetLatestByBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetLatestByBooking - build select query: %v", ErrBuildQuery, err)
	}

	payment, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetLatestByBooking - scan payment: %v", ErrScanRow, err)
	}

	return payment, nil
}

// AttachProviderPaymentID привязывает идентификатор платежа у провайдера
func (r *Repository) AttachProviderPaymentID(ctx context.Context, id, providerPaymentID string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("payments").
		Set("provider_payment_id", providerPaymentID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: AttachProviderPaymentID - build update query: %v", ErrBuildQuery, err)
	}

	return r.execExpectingRow(ctx, executor, query, args, "AttachProviderPaymentID", id, false)
}

// MarkPending переводит платеж в pending (провайдер начал обработку)
func (r *Repository) MarkPending(ctx context.Context, id string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("payments").
		Set("status", domain.PaymentPending).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.PaymentCreated),
			string(domain.PaymentPending),
		}}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkPending - build update query: %v", ErrBuildQuery, err)
	}

	return r.execExpectingRow(ctx, executor, query, args, "MarkPending", id, true)
}

// MarkPaid переводит платеж в paid, фиксируя момент оплаты
// Допустим только из created/pending/failed (повторная попытка оплаты)
func (r *Repository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("payments").
		Set("status", domain.PaymentPaid).
		Set("paid_at", paidAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.PaymentCreated),
			string(domain.PaymentPending),
			string(domain.PaymentFailed),
		}}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkPaid - build update query: %v", ErrBuildQuery, err)
	}

	return r.execExpectingRow(ctx, executor, query, args, "MarkPaid", id, true)
}

// MarkFailed переводит платеж в failed
func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("payments").
		Set("status", domain.PaymentFailed).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.PaymentCreated),
			string(domain.PaymentPending),
		}}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkFailed - build update query: %v", ErrBuildQuery, err)
	}

	return r.execExpectingRow(ctx, executor, query, args, "MarkFailed", id, true)
}

// MarkRefunded переводит оплаченный платеж в refunded/partially_refunded
// Сумма платежа (amount_cents) при возврате не изменяется
func (r *Repository) MarkRefunded(ctx context.Context, id string, kind domain.RefundKind, reason string, refundedAt time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("payments").
		Set("status", string(kind)).
		Set("refunded_at", refundedAt).
		Set("refund_reason", reason).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.PaymentPaid),
			string(domain.PaymentPartiallyRefunded),
		}}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkRefunded - build update query: %v", ErrBuildQuery, err)
	}

	return r.execExpectingRow(ctx, executor, query, args, "MarkRefunded", id, true)
}

func (r *Repository) getOne(ctx context.Context, where squirrel.Eq, op string) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From("payments").
		Where(where).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	payment, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan payment: %v", ErrScanRow, op, err)
	}

	return payment, nil
}

// execExpectingRow выполняет UPDATE, классифицируя нулевой результат:
// платежа нет, либо (при conditional=true) его статус не допускает переход
func (r *Repository) execExpectingRow(
	ctx context.Context,
	executor DBExecutor,
	query string,
	args []interface{},
	op string,
	id string,
	conditional bool,
) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	if rowsAffected == 0 {
		if !conditional {
			return ErrPaymentNotFound
		}
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInvalidStatus
	}

	return nil
}

func scanPayment(row *sql.Row) (*domain.Payment, error) {
	var payment domain.Payment
	var metadata []byte
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Provider,
		&payment.ProviderPaymentID,
		&payment.PaymentLink,
		&payment.AmountCents,
		&payment.Currency,
		&payment.Status,
		&payment.ExpiresAt,
		&payment.PaidAt,
		&payment.RefundedAt,
		&payment.RefundReason,
		&metadata,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &payment.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	payment.CreatedAt = createdAt.Time
	payment.UpdatedAt = updatedAt.Time

	return &payment, nil
}

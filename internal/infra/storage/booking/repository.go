package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/kir4ng/PCS-BookingService/internal/domain"
	"github.com/kir4ng/PCS-BookingService/pkg/dbmetrics"
	"github.com/kir4ng/PCS-BookingService/pkg/psqlbuilder"
)

var bookingColumns = []string{
	"id",
	"user_id",
	"performer_id",
	"slot_id",
	"call_type",
	"duration_minutes",
	"price_cents",
	"currency",
	"start_time",
	"end_time",
	"status",
	"hold_expires_at",
	"rules_accepted_at",
	"cancel_reason",
	"cancelled_by",
	"cancelled_at",
	"completed_at",
	"created_at",
	"updated_at",
}

// slotBlockingStatuses статусы, участвующие в проверке пересечения интервалов
var slotBlockingStatuses = []string{
	string(domain.StatusHeld),
	string(domain.StatusAwaitingPayment),
	string(domain.StatusConfirmed),
}

// holdingStatuses статусы, блокирующие слот только при живом холде.
// Истекший, но еще не переведенный свипером в expired холд слот не держит.
var holdingStatuses = []string{
	string(domain.StatusHeld),
	string(domain.StatusAwaitingPayment),
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование в статусе draft
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"id",
			"user_id",
			"performer_id",
			"slot_id",
			"call_type",
			"duration_minutes",
			"price_cents",
			"currency",
			"start_time",
			"end_time",
			"status",
		).
		Values(
			booking.ID,
			booking.UserID,
			booking.PerformerID,
			booking.SlotID,
			booking.CallType,
			booking.DurationMinutes,
			booking.PriceCents,
			booking.Currency,
			booking.StartTime,
			booking.EndTime,
			booking.Status,
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

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// Hold атомарно переводит draft-бронь в held, если интервал перформера свободен.
// Проверка доступности и установка статуса выполняются одним условным UPDATE:
// раздельные чтение и запись допускали бы два конкурентных успешных холда.
func (r *Repository) Hold(ctx context.Context, id string, holdExpiresAt time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusHeld).
		Set("hold_expires_at", holdExpiresAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.StatusDraft}).
		Where(squirrel.Expr(
			`NOT EXISTS (
				SELECT 1 FROM bookings b2
				WHERE b2.performer_id = bookings.performer_id
				  AND b2.id <> bookings.id
				  AND (b2.status = ? OR (b2.status = ANY(?) AND b2.hold_expires_at > NOW()))
				  AND b2.start_time < bookings.end_time
				  AND b2.end_time > bookings.start_time
			)`,
			domain.StatusConfirmed,
			pq.Array(holdingStatuses),
		)).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Hold - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Hold - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Hold - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		// Условие не сработало: выясняем, почему именно
		return r.classifyConditionalMiss(ctx, id, domain.StatusDraft)
	}

	return nil
}

// ConfirmRules переводит held -> awaiting_payment, фиксируя момент принятия правил
func (r *Repository) ConfirmRules(ctx context.Context, id string, acceptedAt time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusAwaitingPayment).
		Set("rules_accepted_at", acceptedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.StatusHeld}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: ConfirmRules - build update query: %v", ErrBuildQuery, err)
	}

	return r.execConditional(ctx, executor, query, args, "ConfirmRules", id)
}

// Confirm переводит awaiting_payment|held -> confirmed и снимает холд.
// Прямой переход held -> confirmed оставлен как явный fast path
// для провайдеров без отдельного шага принятия правил.
// Истекший холд не подтверждается, даже если sweeper еще не перевел
// бронь в expired: слот к этому моменту мог занять другой холд.
func (r *Repository) Confirm(ctx context.Context, id string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusConfirmed).
		Set("hold_expires_at", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.StatusAwaitingPayment),
			string(domain.StatusHeld),
		}}).
		Where(squirrel.Or{
			squirrel.Eq{"hold_expires_at": nil},
			squirrel.Expr("hold_expires_at > NOW()"),
		}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Confirm - build update query: %v", ErrBuildQuery, err)
	}

	return r.execConditional(ctx, executor, query, args, "Confirm", id)
}

// Cancel отменяет бронирование с указанием причины и инициатора, снимая холд
func (r *Repository) Cancel(ctx context.Context, id string, reason string, actor domain.CancelActor) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusCancelled).
		Set("cancel_reason", reason).
		Set("cancelled_by", actor).
		Set("cancelled_at", squirrel.Expr("NOW()")).
		Set("hold_expires_at", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.NotEq{"status": []string{
			string(domain.StatusCompleted),
			string(domain.StatusCancelled),
			string(domain.StatusExpired),
		}}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Cancel - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Cancel - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Cancel - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		// Либо брони нет, либо она уже в терминальном статусе
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInvalidStatus
	}

	return nil
}

// Complete переводит confirmed -> completed
func (r *Repository) Complete(ctx context.Context, id string, completedAt time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusCompleted).
		Set("completed_at", completedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.StatusConfirmed}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Complete - build update query: %v", ErrBuildQuery, err)
	}

	return r.execConditional(ctx, executor, query, args, "Complete", id)
}

// MarkNoShow переводит confirmed -> no_show
func (r *Repository) MarkNoShow(ctx context.Context, id string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusNoShow).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.StatusConfirmed}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkNoShow - build update query: %v", ErrBuildQuery, err)
	}

	return r.execConditional(ctx, executor, query, args, "MarkNoShow", id)
}

// ExpireHeld пакетно переводит все брони с истекшим холдом в expired.
// Один условный UPDATE: операция идемпотентна и безопасна при конкурентном
// запуске из нескольких инстансов (повторный прогон по пустому множеству - no-op).
func (r *Repository) ExpireHeld(ctx context.Context, now time.Time) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusExpired).
		Set("hold_expires_at", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"status": []string{
			string(domain.StatusHeld),
			string(domain.StatusAwaitingPayment),
		}}).
		Where(squirrel.Lt{"hold_expires_at": now}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: ExpireHeld - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: ExpireHeld - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: ExpireHeld - get rows affected: %v", ErrExecQuery, err)
	}

	return rowsAffected, nil
}

// ListByUser получает бронирования пользователя, опционально фильтруя по статусу
func (r *Repository) ListByUser(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("start_time DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByUser - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByUser - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListByPerformer получает бронирования перформера за период.
// При activeOnly=true возвращаются только брони, блокирующие слот
// (held, awaiting_payment, confirmed) - это предикат доступности.
func (r *Repository) ListByPerformer(ctx context.Context, performerID int64, from, to *time.Time, activeOnly bool) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"performer_id": performerID}).
		OrderBy("start_time ASC")

	if from != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"end_time": *from})
	}
	if to != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"start_time": *to})
	}
	if activeOnly {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": slotBlockingStatuses})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByPerformer - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByPerformer - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// execConditional выполняет условный UPDATE и классифицирует нулевой результат:
// брони нет вообще, либо бронь в недопустимом для перехода статусе
func (r *Repository) execConditional(
	ctx context.Context,
	executor DBExecutor,
	query string,
	args []interface{},
	op string,
	id string,
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
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return ErrInvalidStatus
	}

	return nil
}

// classifyConditionalMiss выясняет причину несработавшего Hold:
// брони нет, бронь не в draft, или (при подходящем статусе) занят интервал
func (r *Repository) classifyConditionalMiss(ctx context.Context, id string, expected ...domain.BookingStatus) error {
	booking, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, status := range expected {
		if booking.Status == status {
			// Статус подходил - значит, не прошла проверка пересечения интервалов
			return ErrSlotNotAvailable
		}
	}

	return ErrInvalidStatus
}

func scanBooking(row *sql.Row) (*domain.Booking, error) {
	var booking domain.Booking
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.PerformerID,
		&booking.SlotID,
		&booking.CallType,
		&booking.DurationMinutes,
		&booking.PriceCents,
		&booking.Currency,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Status,
		&booking.HoldExpiresAt,
		&booking.RulesAcceptedAt,
		&booking.CancelReason,
		&booking.CancelledBy,
		&booking.CancelledAt,
		&booking.CompletedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return &booking, nil
}

func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.PerformerID,
			&booking.SlotID,
			&booking.CallType,
			&booking.DurationMinutes,
			&booking.PriceCents,
			&booking.Currency,
			&booking.StartTime,
			&booking.EndTime,
			&booking.Status,
			&booking.HoldExpiresAt,
			&booking.RulesAcceptedAt,
			&booking.CancelReason,
			&booking.CancelledBy,
			&booking.CancelledAt,
			&booking.CompletedAt,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %v", ErrScanRow, err)
		}

		booking.CreatedAt = createdAt.Time
		booking.UpdatedAt = updatedAt.Time

		bookings = append(bookings, &booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}

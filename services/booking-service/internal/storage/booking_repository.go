package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
)

var (
	// ErrSlotTaken is returned when the appointments exclusion constraint rejects
	// an insert: another booking for the same staff member overlaps.
	ErrSlotTaken = errors.New("time slot already booked")
	ErrNotFound  = errors.New("not found")
)

type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

const appointmentColumns = `
	id::text, business_id::text, staff_id::text, service_id, client_name, client_phone,
	appointment_date, start_minute, duration_minutes, status, cancelled_at,
	COALESCE(cancellation_reason, ''), created_at`

// ListBookingsForDate returns the non-cancelled appointments of one staff member
// on date, ordered by start.
func (r *BookingRepository) ListBookingsForDate(ctx context.Context, key model.ScheduleKey, date time.Time) ([]availability.Booking, error) {
	ctx, span := db.StartSpan(ctx, "appointments.list_bookings")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, start_minute, duration_minutes, status
		FROM appointments
		WHERE business_id = $1
			AND staff_id = $2
			AND appointment_date = $3
			AND status <> 'cancelled'
		ORDER BY start_minute ASC
	`, key.BusinessID, key.StaffID, dateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Booking
	for rows.Next() {
		var b availability.Booking
		var start int
		var status string
		if err := rows.Scan(&b.ID, &start, &b.DurationMinutes, &status); err != nil {
			return nil, err
		}
		b.Start = availability.TimeOfDay(start)
		b.Status = availability.BookingStatus(status)
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Create inserts appt together with its outbox event. appt.ID must be set by the
// caller so the event payload can reference it.
func (r *BookingRepository) Create(ctx context.Context, appt *model.Appointment, evt outbox.Event) error {
	ctx, span := db.StartSpan(ctx, "appointments.create")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, business_id, staff_id, service_id, client_name, client_phone, appointment_date, start_minute, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, appt.ID, appt.BusinessID, appt.StaffID, appt.ServiceID, appt.ClientName, appt.ClientPhone,
		dateOnly(appt.Date), int(appt.Start), appt.DurationMinutes, string(appt.Status)).Scan(&appt.CreatedAt)
	if err != nil {
		if IsConflict(err) {
			span.RecordError(err)
			return fmt.Errorf("%w: %s %s", ErrSlotTaken, appt.Date.Format(time.DateOnly), availability.Span(appt.Start, appt.DurationMinutes))
		}
		return err
	}

	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return tx.Commit(ctx)
}

// Cancel marks an appointment cancelled and writes the event produced by
// buildEvent in the same transaction. Cancelling twice is a no-op that returns
// the stored appointment with changed=false.
func (r *BookingRepository) Cancel(ctx context.Context, businessID, appointmentID, reason string, buildEvent func(model.Appointment) (outbox.Event, error)) (model.Appointment, bool, error) {
	ctx, span := db.StartSpan(ctx, "appointments.cancel")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
		FOR UPDATE
	`, appointmentID, businessID))
	if err != nil {
		if IsNotFound(err) {
			return model.Appointment{}, false, ErrNotFound
		}
		return model.Appointment{}, false, err
	}
	if appt.Status == availability.StatusCancelled {
		return appt, false, nil
	}

	var cancelledAt time.Time
	if err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE id = $1 AND business_id = $2
		RETURNING cancelled_at
	`, appointmentID, businessID, reason).Scan(&cancelledAt); err != nil {
		return model.Appointment{}, false, err
	}
	appt.Status = availability.StatusCancelled
	appt.CancelledAt = &cancelledAt
	appt.CancelReason = reason

	evt, err := buildEvent(appt)
	if err != nil {
		return model.Appointment{}, false, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, false, fmt.Errorf("write outbox event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

// ListByDate is the agenda of one staff member, cancelled appointments included.
func (r *BookingRepository) ListByDate(ctx context.Context, key model.ScheduleKey, date time.Time) ([]model.Appointment, error) {
	ctx, span := db.StartSpan(ctx, "appointments.list_by_date")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND staff_id = $2 AND appointment_date = $3
		ORDER BY start_minute ASC, created_at ASC
	`, key.BusinessID, key.StaffID, dateOnly(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var start int
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.StaffID,
		&appt.ServiceID,
		&appt.ClientName,
		&appt.ClientPhone,
		&appt.Date,
		&start,
		&appt.DurationMinutes,
		&status,
		&appt.CancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Start = availability.TimeOfDay(start)
	appt.Status = availability.BookingStatus(status)
	return appt, nil
}

// IsConflict reports an exclusion constraint violation (SQLSTATE 23P01).
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

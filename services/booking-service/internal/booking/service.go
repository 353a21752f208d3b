package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrSlotTaken means a concurrent booking won the slot and a fresh check
	// confirmed it is occupied.
	ErrSlotTaken = errors.New("time slot already booked")
	// ErrSlotUnavailable is wrapped by *UnavailableError.
	ErrSlotUnavailable = errors.New("time slot unavailable")
	ErrNotFound        = errors.New("appointment not found")
)

// UnavailableError carries the engine decision that rejected a booking.
type UnavailableError struct {
	Decision availability.Decision
}

func (e *UnavailableError) Error() string {
	if e.Decision.Conflict != nil {
		return fmt.Sprintf("%s: %s (%s)", ErrSlotUnavailable, e.Decision.Reason, e.Decision.Conflict)
	}
	return fmt.Sprintf("%s: %s", ErrSlotUnavailable, e.Decision.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrSlotUnavailable }

type ScheduleStore interface {
	GetDayConfiguration(ctx context.Context, key model.ScheduleKey, wd time.Weekday) (availability.DayConfiguration, error)
	GetWeek(ctx context.Context, key model.ScheduleKey) (availability.WeekSchedule, error)
	ReplaceDay(ctx context.Context, key model.ScheduleKey, cfg availability.DayConfiguration) error
}

type BookingStore interface {
	ListBookingsForDate(ctx context.Context, key model.ScheduleKey, date time.Time) ([]availability.Booking, error)
	ListByDate(ctx context.Context, key model.ScheduleKey, date time.Time) ([]model.Appointment, error)
	Create(ctx context.Context, appt *model.Appointment, evt outbox.Event) error
	Cancel(ctx context.Context, businessID, appointmentID, reason string, buildEvent func(model.Appointment) (outbox.Event, error)) (model.Appointment, bool, error)
}

type Config struct {
	Step     int
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	schedules ScheduleStore
	bookings  BookingStore
	logger    *slog.Logger
	step      int
	location  *time.Location
	now       func() time.Time
	tracer    trace.Tracer
}

func NewService(schedules ScheduleStore, bookings BookingStore, logger *slog.Logger, cfg Config) *Service {
	if cfg.Step <= 0 {
		cfg.Step = availability.DefaultStep
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		schedules: schedules,
		bookings:  bookings,
		logger:    logger,
		step:      cfg.Step,
		location:  cfg.Location,
		now:       cfg.Now,
		tracer:    otel.Tracer("booking"),
	}
}

func (s *Service) Step() int { return s.step }

type SlotsQuery struct {
	Key             model.ScheduleKey
	Date            time.Time
	DurationMinutes int
}

type SlotsResult struct {
	Date            time.Time
	DurationMinutes int
	Step            int
	Slots           []availability.Slot
}

// Slots evaluates the whole grid of a day. Starts already in the past are
// reported unavailable.
func (s *Service) Slots(ctx context.Context, q SlotsQuery) (SlotsResult, error) {
	ctx, span := s.tracer.Start(ctx, "booking.slots", trace.WithAttributes(keyAttrs(q.Key, q.Date)...))
	defer span.End()

	if err := checkKey(q.Key); err != nil {
		return SlotsResult{}, err
	}
	date := civilDate(q.Date)
	cfg, bookings, err := s.snapshot(ctx, q.Key, date)
	if err != nil {
		return SlotsResult{}, err
	}

	slots, err := availability.ComputeAvailableSlots(date, q.DurationMinutes, cfg, bookings, s.step)
	if err != nil {
		if !errors.Is(err, availability.ErrConfigurationInconsistent) {
			return SlotsResult{}, err
		}
		s.warnInconsistent(q.Key, cfg.Weekday, err)
	}
	if cutoff, ok := s.pastCutoff(date); ok {
		slots = availability.HidePast(slots, cutoff)
	}
	return SlotsResult{Date: date, DurationMinutes: q.DurationMinutes, Step: s.step, Slots: slots}, nil
}

type CheckQuery struct {
	Key             model.ScheduleKey
	Date            time.Time
	Start           availability.TimeOfDay
	DurationMinutes int
}

// Check decides a single candidate slot against a fresh snapshot.
func (s *Service) Check(ctx context.Context, q CheckQuery) (availability.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "booking.check", trace.WithAttributes(keyAttrs(q.Key, q.Date)...))
	defer span.End()

	if err := checkKey(q.Key); err != nil {
		return availability.Decision{}, err
	}
	d, err := s.check(ctx, q)
	if err == nil {
		span.SetAttributes(attribute.Bool("slot.available", d.Available), attribute.String("slot.reason", string(d.Reason)))
	}
	return d, err
}

func (s *Service) check(ctx context.Context, q CheckQuery) (availability.Decision, error) {
	date := civilDate(q.Date)
	cfg, bookings, err := s.snapshot(ctx, q.Key, date)
	if err != nil {
		return availability.Decision{}, err
	}
	d, err := availability.CheckSlot(date, q.Start, q.DurationMinutes, cfg, bookings)
	if err != nil {
		if !errors.Is(err, availability.ErrConfigurationInconsistent) {
			return availability.Decision{}, err
		}
		s.warnInconsistent(q.Key, cfg.Weekday, err)
	}
	if d.Available {
		if cutoff, ok := s.pastCutoff(date); ok && q.Start < cutoff {
			return availability.Decision{Reason: availability.ReasonInPast}, nil
		}
	}
	return d, nil
}

type BookRequest struct {
	Key             model.ScheduleKey
	ServiceID       string
	ClientName      string
	ClientPhone     string
	Date            time.Time
	Start           availability.TimeOfDay
	DurationMinutes int
}

// Book checks the slot and inserts the appointment. The check is advisory: the
// storage layer rejects overlapping inserts. On such a rejection the slot is
// checked again once and, if it looks free, the insert is retried once.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.book", trace.WithAttributes(keyAttrs(req.Key, req.Date)...))
	defer span.End()

	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	if err := checkKey(req.Key); err != nil {
		return model.Appointment{}, err
	}
	if req.ServiceID == "" || req.ClientName == "" {
		return model.Appointment{}, fmt.Errorf("%w: service_id and client_name are required", availability.ErrInvalidInput)
	}

	q := CheckQuery{Key: req.Key, Date: req.Date, Start: req.Start, DurationMinutes: req.DurationMinutes}
	d, err := s.check(ctx, q)
	if err != nil {
		return model.Appointment{}, err
	}
	if !d.Available {
		return model.Appointment{}, &UnavailableError{Decision: d}
	}

	appt := model.Appointment{
		ID:              uuid.NewString(),
		BusinessID:      req.Key.BusinessID,
		StaffID:         req.Key.StaffID,
		ServiceID:       req.ServiceID,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		Date:            civilDate(req.Date),
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
		Status:          availability.StatusScheduled,
	}
	evt, err := BookedEvent(appt)
	if err != nil {
		return model.Appointment{}, err
	}

	err = s.bookings.Create(ctx, &appt, evt)
	if err == nil {
		s.logger.Info("appointment booked", "appointment_id", appt.ID, "business_id", appt.BusinessID, "staff_id", appt.StaffID, "date", appt.Date.Format(time.DateOnly), "start", appt.Start.String())
		return appt, nil
	}
	if !errors.Is(err, storage.ErrSlotTaken) {
		span.RecordError(err)
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("booking conflict, rechecking slot", "business_id", appt.BusinessID, "staff_id", appt.StaffID, "date", appt.Date.Format(time.DateOnly), "start", appt.Start.String())
	d, err = s.check(ctx, q)
	if err != nil {
		return model.Appointment{}, err
	}
	if !d.Available {
		if d.Reason == availability.ReasonBooked {
			return model.Appointment{}, fmt.Errorf("%w: %s", ErrSlotTaken, d.Conflict)
		}
		return model.Appointment{}, &UnavailableError{Decision: d}
	}
	if err := s.bookings.Create(ctx, &appt, evt); err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			return model.Appointment{}, ErrSlotTaken
		}
		span.RecordError(err)
		return model.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	s.logger.Info("appointment booked after retry", "appointment_id", appt.ID, "business_id", appt.BusinessID)
	return appt, nil
}

type CancelRequest struct {
	BusinessID    string
	AppointmentID string
	Reason        string
}

// Cancel frees the appointment's time range. Cancelling an already cancelled
// appointment returns it unchanged.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (model.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.cancel")
	defer span.End()

	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.BusinessID == "" || req.AppointmentID == "" {
		return model.Appointment{}, fmt.Errorf("%w: business_id and appointment_id are required", availability.ErrInvalidInput)
	}
	if _, err := uuid.Parse(req.BusinessID); err != nil {
		return model.Appointment{}, fmt.Errorf("%w: business_id %q is not a uuid", availability.ErrInvalidInput, req.BusinessID)
	}
	if _, err := uuid.Parse(req.AppointmentID); err != nil {
		return model.Appointment{}, ErrNotFound
	}

	appt, changed, err := s.bookings.Cancel(ctx, req.BusinessID, req.AppointmentID, strings.TrimSpace(req.Reason), CancelledEvent)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, fmt.Errorf("cancel appointment: %w", err)
	}
	if changed {
		s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "business_id", appt.BusinessID)
	}
	return appt, nil
}

// Agenda lists every appointment of a staff member on one date.
func (s *Service) Agenda(ctx context.Context, key model.ScheduleKey, date time.Time) ([]model.Appointment, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return s.bookings.ListByDate(ctx, key, civilDate(date))
}

func (s *Service) Schedule(ctx context.Context, key model.ScheduleKey) (availability.WeekSchedule, error) {
	if err := checkKey(key); err != nil {
		return availability.WeekSchedule{}, err
	}
	return s.schedules.GetWeek(ctx, key)
}

// UpdateDay stores one weekday after validating it. Existing appointments are
// left untouched even if they no longer fit.
func (s *Service) UpdateDay(ctx context.Context, key model.ScheduleKey, cfg availability.DayConfiguration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.schedules.ReplaceDay(ctx, key, cfg); err != nil {
		return fmt.Errorf("replace schedule day: %w", err)
	}
	s.logger.Info("schedule day updated", "business_id", key.BusinessID, "staff_id", key.StaffID, "weekday", cfg.Weekday.String(), "active", cfg.Active)
	return nil
}

// snapshot re-reads configuration and bookings. Nothing is cached so that
// schedule edits apply to the next request.
func (s *Service) snapshot(ctx context.Context, key model.ScheduleKey, date time.Time) (availability.DayConfiguration, []availability.Booking, error) {
	cfg, err := s.schedules.GetDayConfiguration(ctx, key, date.Weekday())
	if err != nil {
		return availability.DayConfiguration{}, nil, fmt.Errorf("load day configuration: %w", err)
	}
	if !cfg.Active {
		return cfg, nil, nil
	}
	bookings, err := s.bookings.ListBookingsForDate(ctx, key, date)
	if err != nil {
		return availability.DayConfiguration{}, nil, fmt.Errorf("load bookings: %w", err)
	}
	return cfg, bookings, nil
}

// pastCutoff returns the first start still bookable on date, judged in the
// business time zone. ok is false for future dates.
func (s *Service) pastCutoff(date time.Time) (availability.TimeOfDay, bool) {
	now := s.now().In(s.location)
	today := civilDate(now)
	switch {
	case date.Before(today):
		return availability.MinutesPerDay, true
	case date.Equal(today):
		return availability.Clock(now.Hour(), now.Minute()), true
	default:
		return 0, false
	}
}

func (s *Service) warnInconsistent(key model.ScheduleKey, wd time.Weekday, err error) {
	s.logger.Warn("day configuration inconsistent, treating day as closed",
		"business_id", key.BusinessID,
		"staff_id", key.StaffID,
		"weekday", wd.String(),
		"err", err,
	)
}

// checkKey requires both ids to be UUIDs, the type of the key columns.
func checkKey(key model.ScheduleKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: business_id and staff_id are required", availability.ErrInvalidInput)
	}
	if _, err := uuid.Parse(key.BusinessID); err != nil {
		return fmt.Errorf("%w: business_id %q is not a uuid", availability.ErrInvalidInput, key.BusinessID)
	}
	if _, err := uuid.Parse(key.StaffID); err != nil {
		return fmt.Errorf("%w: staff_id %q is not a uuid", availability.ErrInvalidInput, key.StaffID)
	}
	return nil
}

// civilDate drops the clock and zone, keeping the calendar date.
func civilDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func keyAttrs(key model.ScheduleKey, date time.Time) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("business.id", key.BusinessID),
		attribute.String("staff.id", key.StaffID),
		attribute.String("booking.date", date.Format(time.DateOnly)),
	}
}

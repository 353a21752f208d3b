// Package memstore holds in-memory schedule and appointment stores with the
// same observable behavior as the Postgres repositories: ids must be UUIDs and
// overlapping live appointments are rejected. Tests use them in place of a
// database.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
)

// Schedules keeps one week per schedule key. Unknown keys are closed all week.
type Schedules struct {
	mu    sync.Mutex
	weeks map[model.ScheduleKey]availability.WeekSchedule
}

func NewSchedules() *Schedules {
	return &Schedules{weeks: map[model.ScheduleKey]availability.WeekSchedule{}}
}

// Set stores cfg without validation so inconsistent rows can be simulated.
func (s *Schedules) Set(key model.ScheduleKey, cfg availability.DayConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	week, ok := s.weeks[key]
	if !ok {
		week = availability.NewWeekSchedule()
	}
	week[cfg.Weekday] = cfg
	s.weeks[key] = week
}

func (s *Schedules) GetDayConfiguration(_ context.Context, key model.ScheduleKey, wd time.Weekday) (availability.DayConfiguration, error) {
	if err := checkKey(key); err != nil {
		return availability.DayConfiguration{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	week, ok := s.weeks[key]
	if !ok {
		return availability.ClosedDay(wd), nil
	}
	return week.Day(wd), nil
}

func (s *Schedules) GetWeek(_ context.Context, key model.ScheduleKey) (availability.WeekSchedule, error) {
	if err := checkKey(key); err != nil {
		return availability.WeekSchedule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	week, ok := s.weeks[key]
	if !ok {
		return availability.NewWeekSchedule(), nil
	}
	return week, nil
}

func (s *Schedules) ReplaceDay(_ context.Context, key model.ScheduleKey, cfg availability.DayConfiguration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.Set(key, cfg)
	return nil
}

// Bookings rejects overlapping live appointments with storage.ErrSlotTaken,
// like the appointments exclusion constraint.
type Bookings struct {
	mu      sync.Mutex
	appts   []model.Appointment
	events  []outbox.Event
	creates int

	// BeforeCreate, when set, runs before each insert attempt with the
	// 1-based attempt number. A non-nil error aborts the attempt.
	BeforeCreate func(attempt int) error
}

func NewBookings() *Bookings {
	return &Bookings{}
}

// Insert stores appt directly, skipping overlap checks and events.
func (b *Bookings) Insert(appt model.Appointment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appts = append(b.appts, appt)
}

func (b *Bookings) Events() []outbox.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]outbox.Event(nil), b.events...)
}

func (b *Bookings) Creates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creates
}

func (b *Bookings) ListBookingsForDate(_ context.Context, key model.ScheduleKey, date time.Time) ([]availability.Booking, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []availability.Booking
	for _, a := range b.appts {
		if sameDay(a, key, date) && a.Status != availability.StatusCancelled {
			out = append(out, a.Booking())
		}
	}
	return out, nil
}

func (b *Bookings) ListByDate(_ context.Context, key model.ScheduleKey, date time.Time) ([]model.Appointment, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Appointment
	for _, a := range b.appts {
		if sameDay(a, key, date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (b *Bookings) Create(_ context.Context, appt *model.Appointment, evt outbox.Event) error {
	for _, id := range []string{appt.ID, appt.BusinessID, appt.StaffID} {
		if err := checkUUID(id); err != nil {
			return err
		}
	}
	b.mu.Lock()
	b.creates++
	attempt := b.creates
	hook := b.BeforeCreate
	b.mu.Unlock()
	if hook != nil {
		if err := hook(attempt); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := model.ScheduleKey{BusinessID: appt.BusinessID, StaffID: appt.StaffID}
	iv := availability.Span(appt.Start, appt.DurationMinutes)
	for _, a := range b.appts {
		if sameDay(a, key, appt.Date) && a.Booking().Occupies() && iv.Overlaps(a.Booking().Interval()) {
			return storage.ErrSlotTaken
		}
	}
	appt.CreatedAt = time.Now().UTC()
	b.appts = append(b.appts, *appt)
	b.events = append(b.events, evt)
	return nil
}

func (b *Bookings) Cancel(_ context.Context, businessID, id, reason string, buildEvent func(model.Appointment) (outbox.Event, error)) (model.Appointment, bool, error) {
	if err := checkUUID(businessID); err != nil {
		return model.Appointment{}, false, err
	}
	if err := checkUUID(id); err != nil {
		return model.Appointment{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, a := range b.appts {
		if a.ID != id || a.BusinessID != businessID {
			continue
		}
		if a.Status == availability.StatusCancelled {
			return a, false, nil
		}
		now := time.Now().UTC()
		a.Status = availability.StatusCancelled
		a.CancelledAt = &now
		a.CancelReason = reason
		evt, err := buildEvent(a)
		if err != nil {
			return model.Appointment{}, false, err
		}
		b.appts[i] = a
		b.events = append(b.events, evt)
		return a, true, nil
	}
	return model.Appointment{}, false, storage.ErrNotFound
}

// checkUUID fails like a uuid column given malformed text.
func checkUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid input syntax for type uuid: %q", id)
	}
	return nil
}

func checkKey(key model.ScheduleKey) error {
	if err := checkUUID(key.BusinessID); err != nil {
		return err
	}
	return checkUUID(key.StaffID)
}

func sameDay(a model.Appointment, key model.ScheduleKey, date time.Time) bool {
	return a.BusinessID == key.BusinessID && a.StaffID == key.StaffID &&
		a.Date.Year() == date.Year() && a.Date.YearDay() == date.YearDay()
}

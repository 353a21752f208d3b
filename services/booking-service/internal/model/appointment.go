package model

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
)

type Appointment struct {
	ID              string
	BusinessID      string
	StaffID         string
	ServiceID       string
	ClientName      string
	ClientPhone     string
	Date            time.Time
	Start           availability.TimeOfDay
	DurationMinutes int
	Status          availability.BookingStatus
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
}

func (a Appointment) End() availability.TimeOfDay {
	return a.Start.Add(a.DurationMinutes)
}

func (a Appointment) Booking() availability.Booking {
	return availability.Booking{
		ID:              a.ID,
		Start:           a.Start,
		DurationMinutes: a.DurationMinutes,
		Status:          a.Status,
	}
}

// ScheduleKey names the resource whose working hours and bookings are being
// evaluated. Every lookup carries it explicitly.
type ScheduleKey struct {
	BusinessID string
	StaffID    string
}

func (k ScheduleKey) Valid() bool {
	return k.BusinessID != "" && k.StaffID != ""
}

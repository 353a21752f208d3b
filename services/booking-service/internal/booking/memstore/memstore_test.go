package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
)

var key = model.ScheduleKey{BusinessID: uuid.NewString(), StaffID: uuid.NewString()}

func TestRejectsMalformedIDs(t *testing.T) {
	ctx := context.Background()
	bad := model.ScheduleKey{BusinessID: "biz-1", StaffID: key.StaffID}

	if _, err := NewSchedules().GetDayConfiguration(ctx, bad, time.Wednesday); err == nil {
		t.Fatal("expected error for non-uuid business_id")
	}
	if _, err := NewBookings().ListBookingsForDate(ctx, bad, time.Now()); err == nil {
		t.Fatal("expected error for non-uuid business_id")
	}
	appt := &model.Appointment{ID: uuid.NewString(), BusinessID: key.BusinessID, StaffID: "staff-1", Start: availability.Clock(9, 0), DurationMinutes: 30}
	if err := NewBookings().Create(ctx, appt, outbox.Event{}); err == nil {
		t.Fatal("expected error for non-uuid staff_id")
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	b := NewBookings()
	date := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	newAppt := func(start availability.TimeOfDay, minutes int) *model.Appointment {
		return &model.Appointment{
			ID: uuid.NewString(), BusinessID: key.BusinessID, StaffID: key.StaffID,
			Date: date, Start: start, DurationMinutes: minutes, Status: availability.StatusScheduled,
		}
	}

	if err := b.Create(ctx, newAppt(availability.Clock(9, 0), 60), outbox.Event{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := b.Create(ctx, newAppt(availability.Clock(9, 30), 30), outbox.Event{}); !errors.Is(err, storage.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := b.Create(ctx, newAppt(availability.Clock(10, 0), 30), outbox.Event{}); err != nil {
		t.Fatalf("adjacent slot must be accepted: %v", err)
	}
	if len(b.Events()) != 2 {
		t.Fatalf("expected 2 events, got %d", len(b.Events()))
	}
}

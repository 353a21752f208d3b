package availability

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

// 2026-01-28 is a Wednesday.
var wednesday = time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

func workday() DayConfiguration {
	return DayConfiguration{
		Weekday: time.Wednesday,
		Active:  true,
		Opening: Clock(8, 0),
		Closing: Clock(18, 0),
	}
}

func withLunch(cfg DayConfiguration) DayConfiguration {
	lunch := Interval{Start: Clock(12, 0), End: Clock(13, 0)}
	cfg.LunchBreak = &lunch
	return cfg
}

func mustAvailable(t *testing.T, start TimeOfDay, duration int, cfg DayConfiguration, bookings []Booking) bool {
	t.Helper()
	ok, err := IsSlotAvailable(wednesday, start, duration, cfg, bookings)
	if err != nil {
		t.Fatalf("IsSlotAvailable(%s, %d) returned error: %v", start, duration, err)
	}
	return ok
}

func TestIsSlotAvailable_BoundaryExactness(t *testing.T) {
	cfg := workday()
	if mustAvailable(t, Clock(17, 31), 30, cfg, nil) {
		t.Fatal("expected 17:31+30 to be unavailable (ends after closing)")
	}
	if !mustAvailable(t, Clock(17, 30), 30, cfg, nil) {
		t.Fatal("expected 17:30+30 to be available (ends exactly at closing)")
	}
	if mustAvailable(t, Clock(7, 59), 30, cfg, nil) {
		t.Fatal("expected 07:59 to be unavailable (starts before opening)")
	}
	if !mustAvailable(t, Clock(8, 0), 30, cfg, nil) {
		t.Fatal("expected 08:00 to be available (starts exactly at opening)")
	}
}

func TestIsSlotAvailable_AdjacencyAllowedOverlapRejected(t *testing.T) {
	cfg := workday()
	bookings := []Booking{{ID: "a", Start: Clock(10, 0), DurationMinutes: 30, Status: StatusScheduled}}

	if !mustAvailable(t, Clock(10, 30), 30, cfg, bookings) {
		t.Fatal("expected back-to-back slot 10:30 to be available")
	}
	if !mustAvailable(t, Clock(9, 30), 30, cfg, bookings) {
		t.Fatal("expected slot ending at 10:00 to be available")
	}

	d, err := CheckSlot(wednesday, Clock(10, 15), 30, cfg, bookings)
	if err != nil {
		t.Fatalf("CheckSlot: %v", err)
	}
	if d.Available || d.Reason != ReasonBooked {
		t.Fatalf("expected booked rejection, got %+v", d)
	}
	if d.Conflict == nil || *d.Conflict != (Interval{Start: Clock(10, 0), End: Clock(10, 30)}) {
		t.Fatalf("expected conflict 10:00-10:30, got %v", d.Conflict)
	}
}

func TestIsSlotAvailable_LunchBreak(t *testing.T) {
	cfg := withLunch(workday())

	d, err := CheckSlot(wednesday, Clock(11, 45), 30, cfg, nil)
	if err != nil {
		t.Fatalf("CheckSlot: %v", err)
	}
	if d.Available || d.Reason != ReasonLunchBreak {
		t.Fatalf("expected lunch break rejection, got %+v", d)
	}
	if !mustAvailable(t, Clock(11, 0), 30, cfg, nil) {
		t.Fatal("expected 11:00-11:30 to be available")
	}
	if !mustAvailable(t, Clock(13, 0), 30, cfg, nil) {
		t.Fatal("expected 13:00-13:30 to be available")
	}
}

func TestIsSlotAvailable_CustomBlocks(t *testing.T) {
	cfg := workday()
	cfg.CustomBlocks = []Block{
		{Name: "team meeting", Interval: Interval{Start: Clock(15, 0), End: Clock(15, 30)}},
		{Name: "training", Interval: Interval{Start: Clock(15, 15), End: Clock(16, 0)}},
	}

	d, err := CheckSlot(wednesday, Clock(15, 45), 30, cfg, nil)
	if err != nil {
		t.Fatalf("CheckSlot: %v", err)
	}
	if d.Available || d.Reason != ReasonBlocked {
		t.Fatalf("expected blocked rejection, got %+v", d)
	}
	if d.Conflict == nil || *d.Conflict != (Interval{Start: Clock(15, 0), End: Clock(16, 0)}) {
		t.Fatalf("expected merged conflict 15:00-16:00, got %v", d.Conflict)
	}
	if !mustAvailable(t, Clock(16, 0), 60, cfg, nil) {
		t.Fatal("expected 16:00 to be available after the merged block")
	}
	if !mustAvailable(t, Clock(14, 0), 60, cfg, nil) {
		t.Fatal("expected 14:00-15:00 to be available before the block")
	}
}

func TestIsSlotAvailable_CancelledBookingsDoNotBlock(t *testing.T) {
	cfg := workday()
	bookings := []Booking{
		{ID: "c", Start: Clock(10, 0), DurationMinutes: 60, Status: StatusCancelled},
		{ID: "z", Start: Clock(10, 0), DurationMinutes: 0, Status: StatusScheduled},
	}
	if !mustAvailable(t, Clock(10, 0), 60, cfg, bookings) {
		t.Fatal("expected cancelled and zero-length bookings to be ignored")
	}

	bookings = append(bookings, Booking{ID: "done", Start: Clock(10, 30), DurationMinutes: 30, Status: StatusCompleted})
	if mustAvailable(t, Clock(10, 0), 60, cfg, bookings) {
		t.Fatal("expected completed booking to block")
	}
}

func TestCheckSlot_InactiveDay(t *testing.T) {
	cfg := workday()
	cfg.Active = false
	d, err := CheckSlot(wednesday, Clock(10, 0), 30, cfg, nil)
	if err != nil {
		t.Fatalf("CheckSlot: %v", err)
	}
	if d.Available || d.Reason != ReasonClosed {
		t.Fatalf("expected closed rejection, got %+v", d)
	}
}

func TestCheckSlot_InvalidInput(t *testing.T) {
	cfg := workday()
	cases := []struct {
		name     string
		date     time.Time
		start    TimeOfDay
		duration int
	}{
		{"zero duration", wednesday, Clock(10, 0), 0},
		{"negative duration", wednesday, Clock(10, 0), -15},
		{"duration longer than a day", wednesday, Clock(10, 0), MinutesPerDay + 1},
		{"duration near max int", wednesday, Clock(10, 0), math.MaxInt - 100},
		{"negative start", wednesday, -1, 30},
		{"start past midnight", wednesday, MinutesPerDay, 30},
		{"zero date", time.Time{}, Clock(10, 0), 30},
		{"weekday mismatch", wednesday.AddDate(0, 0, 1), Clock(10, 0), 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CheckSlot(tc.date, tc.start, tc.duration, cfg, nil)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCheckSlot_InvalidInputOnClosedDay(t *testing.T) {
	cfg := workday()
	cfg.Active = false
	if _, err := CheckSlot(wednesday, Clock(10, 0), 0, cfg, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput before the closed-day check, got %v", err)
	}
}

func TestCheckSlot_InconsistentConfiguration(t *testing.T) {
	cfg := workday()
	cfg.Opening, cfg.Closing = Clock(18, 0), Clock(8, 0)
	d, err := CheckSlot(wednesday, Clock(10, 0), 30, cfg, nil)
	if !errors.Is(err, ErrConfigurationInconsistent) {
		t.Fatalf("expected ErrConfigurationInconsistent, got %v", err)
	}
	if d.Available || d.Reason != ReasonInconsistent {
		t.Fatalf("expected unavailable decision, got %+v", d)
	}
}

func TestComputeAvailableSlots_InactiveDay(t *testing.T) {
	cfg := workday()
	cfg.Active = false
	bookings := []Booking{{Start: Clock(9, 0), DurationMinutes: 30, Status: StatusScheduled}}
	slots, err := ComputeAvailableSlots(wednesday, 30, cfg, bookings, 0)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on an inactive day, got %d", len(slots))
	}
}

func TestComputeAvailableSlots_GridCount(t *testing.T) {
	cfg := workday()
	cfg.Closing = Clock(12, 0)
	slots, err := ComputeAvailableSlots(wednesday, 30, cfg, nil, 30)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 grid points, got %d", len(slots))
	}
	if slots[0].Start != Clock(8, 0) || slots[7].Start != Clock(11, 30) {
		t.Fatalf("unexpected grid bounds %s..%s", slots[0].Start, slots[7].Start)
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start <= slots[i-1].Start {
			t.Fatalf("grid not chronological at %d", i)
		}
	}
}

func TestComputeAvailableSlots_DefaultStep(t *testing.T) {
	cfg := workday()
	cfg.Opening, cfg.Closing = Clock(9, 0), Clock(10, 0)
	slots, err := ComputeAvailableSlots(wednesday, 15, cfg, nil, 0)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots: %v", err)
	}
	if len(slots) != 2 || slots[1].Start != Clock(9, 30) {
		t.Fatalf("expected 30 minute default grid, got %+v", slots)
	}
}

func TestComputeAvailableSlots_Deterministic(t *testing.T) {
	cfg := withLunch(workday())
	bookings := []Booking{{Start: Clock(9, 0), DurationMinutes: 60, Status: StatusScheduled}}
	first, err := ComputeAvailableSlots(wednesday, 45, cfg, bookings, 15)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots: %v", err)
	}
	second, err := ComputeAvailableSlots(wednesday, 45, cfg, bookings, 15)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical results for identical inputs")
	}
}

func TestComputeAvailableSlots_EndToEnd(t *testing.T) {
	cfg := withLunch(workday())
	bookings := []Booking{
		{ID: "b1", Start: Clock(9, 0), DurationMinutes: 60, Status: StatusScheduled},
		{ID: "b2", Start: Clock(14, 0), DurationMinutes: 30, Status: StatusScheduled},
	}
	slots, err := ComputeAvailableSlots(wednesday, 60, cfg, bookings, 30)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots: %v", err)
	}
	if len(slots) != 20 {
		t.Fatalf("expected 20 grid points between 08:00 and 17:30, got %d", len(slots))
	}

	unavailable := map[TimeOfDay]bool{
		Clock(8, 30):  true, // 08:30-09:30 overlaps the 09:00 booking
		Clock(9, 0):   true,
		Clock(9, 30):  true, // 09:30-10:30 overlaps the 09:00 booking
		Clock(11, 30): true, // runs into lunch
		Clock(12, 0):  true,
		Clock(12, 30): true,
		Clock(13, 30): true, // overlaps the 14:00 booking
		Clock(14, 0):  true,
		Clock(17, 30): true, // ends after closing
	}
	for _, s := range slots {
		if s.Available == unavailable[s.Start] {
			t.Fatalf("slot %s: available=%v, expected %v", s.Start, s.Available, !unavailable[s.Start])
		}
	}
	starts := AvailableStarts(slots)
	if starts[len(starts)-1] != Clock(17, 0) {
		t.Fatalf("expected last available start 17:00, got %s", starts[len(starts)-1])
	}
}

func TestComputeAvailableSlots_InvalidInput(t *testing.T) {
	cfg := workday()
	if _, err := ComputeAvailableSlots(wednesday, 0, cfg, nil, 30); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero duration, got %v", err)
	}
	if _, err := ComputeAvailableSlots(wednesday, 30, cfg, nil, -5); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative step, got %v", err)
	}
	if _, err := ComputeAvailableSlots(wednesday, math.MaxInt-100, cfg, nil, 30); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for huge duration, got %v", err)
	}
	if _, err := ComputeAvailableSlots(wednesday, 30, cfg, nil, math.MaxInt); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for huge step, got %v", err)
	}
}

func TestComputeAvailableSlots_StepBounds(t *testing.T) {
	cfg := DayConfiguration{Weekday: time.Wednesday, Active: true, Opening: Clock(8, 0), Closing: Clock(8, 30)}
	slots, err := ComputeAvailableSlots(wednesday, 30, cfg, nil, MinutesPerDay)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots: %v", err)
	}
	if len(slots) != 1 || slots[0].Start != Clock(8, 0) || !slots[0].Available {
		t.Fatalf("expected the single grid point 08:00, got %+v", slots)
	}

	ok, err := IsSlotAvailable(wednesday, Clock(0, 0), MinutesPerDay, cfg, nil)
	if err != nil || ok {
		t.Fatalf("a whole-day slot exceeds business hours, got %v %v", ok, err)
	}
}

func TestComputeAvailableSlots_InconsistentConfiguration(t *testing.T) {
	cfg := workday()
	cfg.CustomBlocks = []Block{{Name: "late", Interval: Interval{Start: Clock(17, 30), End: Clock(19, 0)}}}
	slots, err := ComputeAvailableSlots(wednesday, 30, cfg, nil, 30)
	if !errors.Is(err, ErrConfigurationInconsistent) {
		t.Fatalf("expected ErrConfigurationInconsistent, got %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no availability, got %d slots", len(slots))
	}
}

func TestHidePast(t *testing.T) {
	slots := []Slot{
		{Start: Clock(9, 0), Available: true},
		{Start: Clock(9, 30), Available: true},
		{Start: Clock(10, 0), Available: false},
	}
	out := HidePast(slots, Clock(9, 30))
	if out[0].Available || !out[1].Available || out[2].Available {
		t.Fatalf("unexpected result %+v", out)
	}
	if !slots[0].Available {
		t.Fatal("HidePast must not modify its input")
	}
}

package availability

import (
	"errors"
	"fmt"
	"time"
)

// DefaultStep is the grid spacing of offered start times.
const DefaultStep = 30

var (
	// ErrInvalidInput marks caller contract violations (bad duration, time or date).
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfigurationInconsistent marks stored day configurations that break their
	// invariants. The day is treated as closed.
	ErrConfigurationInconsistent = errors.New("day configuration inconsistent")
)

type BookingStatus string

const (
	StatusScheduled BookingStatus = "scheduled"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is an existing appointment on the date being evaluated.
type Booking struct {
	ID              string        `json:"id,omitempty"`
	Start           TimeOfDay     `json:"start"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          BookingStatus `json:"status"`
}

// Occupies reports whether the booking blocks its time range. Only scheduled and
// completed bookings do; zero-length rows occupy nothing.
func (b Booking) Occupies() bool {
	if b.DurationMinutes <= 0 {
		return false
	}
	return b.Status == StatusScheduled || b.Status == StatusCompleted
}

func (b Booking) Interval() Interval {
	return Span(b.Start, b.DurationMinutes)
}

// Reason explains why a candidate slot was rejected.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonClosed       Reason = "closed"
	ReasonOutsideHours Reason = "outside_hours"
	ReasonLunchBreak   Reason = "lunch_break"
	ReasonBlocked      Reason = "blocked"
	ReasonBooked       Reason = "booked"
	ReasonInconsistent Reason = "configuration_inconsistent"
	// ReasonInPast is never produced by the engine; callers that refuse starts
	// before the current time report it.
	ReasonInPast       Reason = "in_past"
)

// Decision is the outcome of checking one candidate slot. Conflict holds the
// interval that caused the rejection when there is one.
type Decision struct {
	Available bool      `json:"available"`
	Reason    Reason    `json:"reason,omitempty"`
	Conflict  *Interval `json:"conflict,omitempty"`
}

func rejected(reason Reason, conflict *Interval) Decision {
	return Decision{Reason: reason, Conflict: conflict}
}

// Slot is one grid point of a day and whether a booking can start there.
type Slot struct {
	Start     TimeOfDay `json:"start"`
	Available bool      `json:"available"`
}

// CheckSlot decides whether an appointment of duration minutes can start at
// start on date. cfg must be the configuration of date's weekday.
//
// Malformed input returns ErrInvalidInput. An inconsistent configuration returns
// an unavailable decision together with ErrConfigurationInconsistent so the
// caller can log it; the day is treated as closed.
func CheckSlot(date time.Time, start TimeOfDay, duration int, cfg DayConfiguration, bookings []Booking) (Decision, error) {
	if err := checkDate(date, cfg); err != nil {
		return Decision{}, err
	}
	if !start.Valid() {
		return Decision{}, fmt.Errorf("%w: start %d outside 0..%d", ErrInvalidInput, int(start), MinutesPerDay-1)
	}
	if err := checkDuration(duration); err != nil {
		return Decision{}, err
	}
	if !cfg.Active {
		return rejected(ReasonClosed, nil), nil
	}
	if err := cfg.Validate(); err != nil {
		return rejected(ReasonInconsistent, nil), err
	}
	return decide(Span(start, duration), cfg, cfg.MergedBlocks(), bookings), nil
}

// IsSlotAvailable is CheckSlot reduced to its boolean outcome.
func IsSlotAvailable(date time.Time, start TimeOfDay, duration int, cfg DayConfiguration, bookings []Booking) (bool, error) {
	d, err := CheckSlot(date, start, duration, cfg, bookings)
	return d.Available, err
}

// ComputeAvailableSlots evaluates every grid point opening+k*step strictly before
// closing. A step of 0 selects DefaultStep. Inactive days yield no slots; an
// inconsistent configuration yields no slots and ErrConfigurationInconsistent.
func ComputeAvailableSlots(date time.Time, duration int, cfg DayConfiguration, bookings []Booking, step int) ([]Slot, error) {
	if err := checkDate(date, cfg); err != nil {
		return nil, err
	}
	if err := checkDuration(duration); err != nil {
		return nil, err
	}
	if step == 0 {
		step = DefaultStep
	}
	if step < 0 || step > MinutesPerDay {
		return nil, fmt.Errorf("%w: step must be in 1..%d, got %d", ErrInvalidInput, MinutesPerDay, step)
	}
	if !cfg.Active {
		return []Slot{}, nil
	}
	if err := cfg.Validate(); err != nil {
		return []Slot{}, err
	}

	blocks := cfg.MergedBlocks()
	slots := make([]Slot, 0, int(cfg.Closing-cfg.Opening)/step+1)
	for g := cfg.Opening; g < cfg.Closing; g = g.Add(step) {
		d := decide(Span(g, duration), cfg, blocks, bookings)
		slots = append(slots, Slot{Start: g, Available: d.Available})
	}
	return slots, nil
}

// decide runs the ordered checks against an already validated, active day.
func decide(candidate Interval, cfg DayConfiguration, blocks []Interval, bookings []Booking) Decision {
	if candidate.Start < cfg.Opening || candidate.End > cfg.Closing {
		hours := cfg.Hours()
		return rejected(ReasonOutsideHours, &hours)
	}
	if cfg.LunchBreak != nil && candidate.Overlaps(*cfg.LunchBreak) {
		lunch := *cfg.LunchBreak
		return rejected(ReasonLunchBreak, &lunch)
	}
	for _, b := range blocks {
		if candidate.Overlaps(b) {
			return rejected(ReasonBlocked, &b)
		}
	}
	for _, bk := range bookings {
		if !bk.Occupies() {
			continue
		}
		iv := bk.Interval()
		if candidate.Overlaps(iv) {
			return rejected(ReasonBooked, &iv)
		}
	}
	return Decision{Available: true}
}

// checkDuration bounds duration to one day so start+duration cannot wrap.
func checkDuration(duration int) error {
	if duration <= 0 || duration > MinutesPerDay {
		return fmt.Errorf("%w: duration must be in 1..%d minutes, got %d", ErrInvalidInput, MinutesPerDay, duration)
	}
	return nil
}

func checkDate(date time.Time, cfg DayConfiguration) error {
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if date.Weekday() != cfg.Weekday {
		return fmt.Errorf("%w: configuration is for %s but %s is a %s", ErrInvalidInput, cfg.Weekday, date.Format(time.DateOnly), date.Weekday())
	}
	return nil
}

// AvailableStarts keeps the start times of the available slots.
func AvailableStarts(slots []Slot) []TimeOfDay {
	var out []TimeOfDay
	for _, s := range slots {
		if s.Available {
			out = append(out, s.Start)
		}
	}
	return out
}

// HidePast returns a copy of slots with every start before cutoff marked unavailable.
func HidePast(slots []Slot, cutoff TimeOfDay) []Slot {
	out := make([]Slot, len(slots))
	for i, s := range slots {
		if s.Start < cutoff {
			s.Available = false
		}
		out[i] = s
	}
	return out
}

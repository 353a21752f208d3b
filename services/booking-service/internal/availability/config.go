package availability

import (
	"fmt"
	"time"
)

// Block is a named window in which no appointment may be placed (staff meeting,
// cleaning, training...).
type Block struct {
	Name string `json:"name"`
	Interval
}

// DayConfiguration is the working-hour setup of one weekday for one schedule owner.
type DayConfiguration struct {
	Weekday      time.Weekday `json:"weekday"`
	Active       bool         `json:"active"`
	Opening      TimeOfDay    `json:"opening"`
	Closing      TimeOfDay    `json:"closing"`
	LunchBreak   *Interval    `json:"lunch_break,omitempty"`
	CustomBlocks []Block      `json:"custom_blocks,omitempty"`
}

// ClosedDay is the configuration used when nothing is stored for a weekday.
func ClosedDay(wd time.Weekday) DayConfiguration {
	return DayConfiguration{Weekday: wd}
}

// Validate checks the stored invariants. Inactive days are always consistent:
// their hours are never consulted.
func (c DayConfiguration) Validate() error {
	if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrConfigurationInconsistent, int(c.Weekday))
	}
	if !c.Active {
		return nil
	}
	if !c.Opening.Valid() || !c.Closing.Valid() {
		return fmt.Errorf("%w: %s hours %s-%s out of range", ErrConfigurationInconsistent, c.Weekday, c.Opening, c.Closing)
	}
	if c.Opening >= c.Closing {
		return fmt.Errorf("%w: %s opening %s not before closing %s", ErrConfigurationInconsistent, c.Weekday, c.Opening, c.Closing)
	}
	hours := c.Hours()
	if c.LunchBreak != nil {
		if !c.LunchBreak.Valid() || !hours.Contains(*c.LunchBreak) {
			return fmt.Errorf("%w: %s lunch break %s outside business hours %s", ErrConfigurationInconsistent, c.Weekday, c.LunchBreak, hours)
		}
	}
	for _, b := range c.CustomBlocks {
		if !b.Interval.Valid() || !hours.Contains(b.Interval) {
			return fmt.Errorf("%w: %s block %q %s outside business hours %s", ErrConfigurationInconsistent, c.Weekday, b.Name, b.Interval, hours)
		}
	}
	return nil
}

func (c DayConfiguration) Hours() Interval {
	return Interval{Start: c.Opening, End: c.Closing}
}

// MergedBlocks returns the custom blocks coalesced into disjoint intervals.
func (c DayConfiguration) MergedBlocks() []Interval {
	raw := make([]Interval, 0, len(c.CustomBlocks))
	for _, b := range c.CustomBlocks {
		raw = append(raw, b.Interval)
	}
	return MergeIntervals(raw)
}

// BlockedIntervals is the lunch break plus the custom blocks, merged.
func (c DayConfiguration) BlockedIntervals() []Interval {
	blocked := c.MergedBlocks()
	if c.LunchBreak != nil {
		blocked = MergeIntervals(append(blocked, *c.LunchBreak))
	}
	return blocked
}

// OpenWindows is the effective working time of the day: business hours minus
// every blocked interval. Inactive or inconsistent days have no open windows.
func (c DayConfiguration) OpenWindows() []Interval {
	if !c.Active || c.Validate() != nil {
		return nil
	}
	return Subtract(c.Hours(), c.BlockedIntervals())
}

// WeekSchedule holds one DayConfiguration per weekday, indexed by time.Weekday.
type WeekSchedule [7]DayConfiguration

func NewWeekSchedule() WeekSchedule {
	var w WeekSchedule
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		w[wd] = ClosedDay(wd)
	}
	return w
}

func (w WeekSchedule) Day(wd time.Weekday) DayConfiguration {
	cfg := w[wd]
	cfg.Weekday = wd
	return cfg
}

func (w WeekSchedule) ForDate(date time.Time) DayConfiguration {
	return w.Day(date.Weekday())
}

// Validate returns the first inconsistency found across the week.
func (w WeekSchedule) Validate() error {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if err := w.Day(wd).Validate(); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
)

// ErrInvalidSchedule is returned by validate when any day is inconsistent.
var ErrInvalidSchedule = errors.New("schedule has inconsistent days")

type ScheduleFlags struct {
	Schedule string `help:"Week schedule JSON file (array of day configurations)." type:"existingfile" required:"" short:"s"`
}

type DayFlags struct {
	ScheduleFlags `embed:""`
	Bookings      string `help:"Bookings JSON file (array of bookings for the date)." type:"existingfile" short:"b"`
	Date          string `help:"Date to evaluate (YYYY-MM-DD)." required:"" short:"d"`
	Duration      int    `help:"Appointment length in minutes." required:"" short:"m"`
}

type SlotsCmd struct {
	DayFlags      `embed:""`
	Step          int  `help:"Grid spacing in minutes." default:"30"`
	AvailableOnly bool `help:"Only print bookable start times."`
	JSON          bool `help:"Print JSON instead of a table." name:"json"`
}

func (cmd *SlotsCmd) Run(ctx *Context) error {
	date, cfg, bookings, err := cmd.load()
	if err != nil {
		return err
	}
	slots, err := availability.ComputeAvailableSlots(date, cmd.Duration, cfg, bookings, cmd.Step)
	if err != nil && !errors.Is(err, availability.ErrConfigurationInconsistent) {
		return err
	}
	if err != nil {
		fmt.Fprintf(ctx.Out, "warning: %v; day treated as closed\n", err)
	}
	if cmd.AvailableOnly {
		kept := slots[:0]
		for _, s := range slots {
			if s.Available {
				kept = append(kept, s)
			}
		}
		slots = kept
	}

	if cmd.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(slots)
	}
	if len(slots) == 0 {
		fmt.Fprintf(ctx.Out, "no slots on %s (%s)\n", date.Format(time.DateOnly), date.Weekday())
		return nil
	}
	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tAVAILABLE")
	for _, s := range slots {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Start, s.Start.Add(cmd.Duration), yesNo(s.Available))
	}
	return tw.Flush()
}

type CheckCmd struct {
	DayFlags `embed:""`
	Start    string `help:"Start time (HH:MM)." required:""`
}

func (cmd *CheckCmd) Run(ctx *Context) error {
	start, err := availability.ParseTimeOfDay(cmd.Start)
	if err != nil {
		return err
	}
	date, cfg, bookings, err := cmd.load()
	if err != nil {
		return err
	}
	d, err := availability.CheckSlot(date, start, cmd.Duration, cfg, bookings)
	if err != nil && !errors.Is(err, availability.ErrConfigurationInconsistent) {
		return err
	}
	candidate := availability.Span(start, cmd.Duration)
	if d.Available {
		fmt.Fprintf(ctx.Out, "%s %s: available\n", date.Format(time.DateOnly), candidate)
		return nil
	}
	line := fmt.Sprintf("%s %s: unavailable (%s)", date.Format(time.DateOnly), candidate, d.Reason)
	if d.Conflict != nil {
		line += " conflicts with " + d.Conflict.String()
	}
	fmt.Fprintln(ctx.Out, line)
	return nil
}

type WindowsCmd struct {
	ScheduleFlags `embed:""`
}

func (cmd *WindowsCmd) Run(ctx *Context) error {
	week, err := loadWeek(cmd.Schedule)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WEEKDAY\tHOURS\tOPEN WINDOWS")
	for _, cfg := range week {
		if !cfg.Active {
			fmt.Fprintf(tw, "%s\tclosed\t-\n", cfg.Weekday)
			continue
		}
		windows := cfg.OpenWindows()
		parts := make([]string, 0, len(windows))
		for _, w := range windows {
			parts = append(parts, w.String())
		}
		open := strings.Join(parts, " ")
		if open == "" {
			open = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cfg.Weekday, cfg.Hours(), open)
	}
	return tw.Flush()
}

type ValidateCmd struct {
	ScheduleFlags `embed:""`
}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	week, err := loadWeek(cmd.Schedule)
	if err != nil {
		return err
	}
	bad := 0
	for _, cfg := range week {
		if err := cfg.Validate(); err != nil {
			bad++
			fmt.Fprintf(ctx.Out, "%s: %v\n", cfg.Weekday, err)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%w: %d of 7", ErrInvalidSchedule, bad)
	}
	fmt.Fprintln(ctx.Out, "schedule OK")
	return nil
}

func (f DayFlags) load() (time.Time, availability.DayConfiguration, []availability.Booking, error) {
	date, err := time.Parse(time.DateOnly, f.Date)
	if err != nil {
		return time.Time{}, availability.DayConfiguration{}, nil, fmt.Errorf("%w: date %q", availability.ErrInvalidInput, f.Date)
	}
	week, err := loadWeek(f.Schedule)
	if err != nil {
		return time.Time{}, availability.DayConfiguration{}, nil, err
	}
	var bookings []availability.Booking
	if f.Bookings != "" {
		if err := readJSON(f.Bookings, &bookings); err != nil {
			return time.Time{}, availability.DayConfiguration{}, nil, err
		}
	}
	return date, week.ForDate(date), bookings, nil
}

// loadWeek reads an array of day configurations. Weekdays not listed are
// closed; a weekday listed twice is an error.
func loadWeek(path string) (availability.WeekSchedule, error) {
	var days []availability.DayConfiguration
	if err := readJSON(path, &days); err != nil {
		return availability.WeekSchedule{}, err
	}
	week := availability.NewWeekSchedule()
	seen := map[time.Weekday]bool{}
	for _, d := range days {
		if d.Weekday < time.Sunday || d.Weekday > time.Saturday {
			return week, fmt.Errorf("%s: weekday %d out of range", path, int(d.Weekday))
		}
		if seen[d.Weekday] {
			return week, fmt.Errorf("%s: %s listed twice", path, d.Weekday)
		}
		seen[d.Weekday] = true
		week[d.Weekday] = d
	}
	return week, nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

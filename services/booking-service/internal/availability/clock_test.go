package availability

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:05")
	if err != nil {
		t.Fatalf("ParseTimeOfDay: %v", err)
	}
	if got != Clock(9, 5) {
		t.Fatalf("expected 545, got %d", int(got))
	}
	if got.String() != "09:05" {
		t.Fatalf("expected 09:05, got %s", got)
	}

	for _, bad := range []string{"", "9", "24:01", "25:00", "12:60", "12:5", "ab:cd", "-1:00"} {
		if _, err := ParseTimeOfDay(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseTimeOfDay(%q): expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestTimeOfDay_EndOfDayRoundTrip(t *testing.T) {
	in := Interval{Start: Clock(22, 0), End: MinutesPerDay}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"start":"22:00","end":"24:00"}` {
		t.Fatalf("unexpected json %s", raw)
	}
	var out Interval
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in || !out.Valid() {
		t.Fatalf("round trip changed %v into %v", in, out)
	}

	end, err := ParseTimeOfDay("24:00")
	if err != nil || end != MinutesPerDay {
		t.Fatalf("expected 24:00 to parse as %d, got %d %v", MinutesPerDay, int(end), err)
	}
	if end.Valid() {
		t.Fatal("24:00 must not be a valid start")
	}
}

func TestInterval_Overlaps(t *testing.T) {
	a := Interval{Start: Clock(10, 0), End: Clock(10, 30)}
	if a.Overlaps(Interval{Start: Clock(10, 30), End: Clock(11, 0)}) {
		t.Fatal("touching intervals must not overlap")
	}
	if a.Overlaps(Interval{Start: Clock(9, 30), End: Clock(10, 0)}) {
		t.Fatal("touching intervals must not overlap")
	}
	if !a.Overlaps(Interval{Start: Clock(10, 15), End: Clock(10, 45)}) {
		t.Fatal("expected partial overlap")
	}
	if !a.Overlaps(Interval{Start: Clock(9, 0), End: Clock(12, 0)}) {
		t.Fatal("expected containment to overlap")
	}
}

func TestMergeIntervals(t *testing.T) {
	in := []Interval{
		{Start: Clock(15, 0), End: Clock(15, 30)},
		{Start: Clock(9, 0), End: Clock(9, 30)},
		{Start: Clock(15, 15), End: Clock(16, 0)},
		{Start: Clock(9, 30), End: Clock(10, 0)},
	}
	got := MergeIntervals(in)
	want := []Interval{
		{Start: Clock(9, 0), End: Clock(10, 0)},
		{Start: Clock(15, 0), End: Clock(16, 0)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if in[0].Start != Clock(15, 0) {
		t.Fatal("MergeIntervals must not reorder its input")
	}
}

func TestSubtract(t *testing.T) {
	base := Interval{Start: Clock(8, 0), End: Clock(18, 0)}
	got := Subtract(base, []Interval{
		{Start: Clock(12, 0), End: Clock(13, 0)},
		{Start: Clock(7, 0), End: Clock(8, 30)},
		{Start: Clock(17, 0), End: Clock(18, 0)},
	})
	want := []Interval{
		{Start: Clock(8, 30), End: Clock(12, 0)},
		{Start: Clock(13, 0), End: Clock(17, 0)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDayConfiguration_JSON(t *testing.T) {
	raw := `{"weekday":3,"active":true,"opening":"08:00","closing":"18:00",
		"lunch_break":{"start":"12:00","end":"13:00"},
		"custom_blocks":[{"name":"meeting","start":"15:00","end":"15:30"}]}`
	var cfg DayConfiguration
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Weekday != time.Wednesday || cfg.Opening != Clock(8, 0) || cfg.Closing != Clock(18, 0) {
		t.Fatalf("unexpected hours %+v", cfg)
	}
	if cfg.LunchBreak == nil || cfg.LunchBreak.End != Clock(13, 0) {
		t.Fatalf("unexpected lunch %+v", cfg.LunchBreak)
	}
	if len(cfg.CustomBlocks) != 1 || cfg.CustomBlocks[0].Name != "meeting" || cfg.CustomBlocks[0].Start != Clock(15, 0) {
		t.Fatalf("unexpected blocks %+v", cfg.CustomBlocks)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDayConfiguration_OpenWindows(t *testing.T) {
	cfg := withLunch(workday())
	cfg.CustomBlocks = []Block{{Name: "meeting", Interval: Interval{Start: Clock(16, 0), End: Clock(16, 30)}}}
	got := cfg.OpenWindows()
	want := []Interval{
		{Start: Clock(8, 0), End: Clock(12, 0)},
		{Start: Clock(13, 0), End: Clock(16, 0)},
		{Start: Clock(16, 30), End: Clock(18, 0)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	cfg.Active = false
	if len(cfg.OpenWindows()) != 0 {
		t.Fatal("expected no open windows on an inactive day")
	}
}

func TestDayConfiguration_Validate(t *testing.T) {
	closed := ClosedDay(time.Monday)
	closed.Opening, closed.Closing = Clock(18, 0), Clock(8, 0)
	if err := closed.Validate(); err != nil {
		t.Fatalf("inactive day must always validate, got %v", err)
	}

	cfg := workday()
	lunch := Interval{Start: Clock(7, 0), End: Clock(8, 30)}
	cfg.LunchBreak = &lunch
	if err := cfg.Validate(); !errors.Is(err, ErrConfigurationInconsistent) {
		t.Fatalf("expected lunch outside hours to be inconsistent, got %v", err)
	}

	week := NewWeekSchedule()
	week[time.Wednesday] = workday()
	if err := week.Validate(); err != nil {
		t.Fatalf("week Validate: %v", err)
	}
	if !week.ForDate(wednesday).Active {
		t.Fatal("expected Wednesday to be active")
	}
	if week.ForDate(wednesday.AddDate(0, 0, 1)).Active {
		t.Fatal("expected Thursday to be closed")
	}
}

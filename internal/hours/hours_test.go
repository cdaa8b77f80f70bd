package hours

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestStringFromAdd(t *testing.T) {
	type add struct {
		day            time.Weekday
		sh, sm, eh, em int
	}
	tests := []struct {
		name     string
		adds     []add
		expected string
	}{
		{"no range", nil, ""},
		{"single day single range", []add{{time.Monday, 8, 0, 13, 30}}, "L: 08:00-13:30"},
		{"unpadded values", []add{{time.Monday, 7, 10, 14, 3}}, "L: 07:10-14:03"},
		{"two intervals", []add{{time.Monday, 8, 0, 13, 30}, {time.Monday, 15, 30, 20, 0}}, "L: 08:00-13:30 y 15:30-20:00"},
		{"out of order intervals", []add{{time.Monday, 15, 30, 20, 0}, {time.Monday, 8, 0, 13, 30}}, "L: 08:00-13:30 y 15:30-20:00"},
		{"overlaps start of existing", []add{{time.Monday, 14, 0, 20, 0}, {time.Monday, 10, 0, 16, 0}}, "L: 10:00-20:00"},
		{"within existing", []add{{time.Monday, 10, 0, 20, 0}, {time.Monday, 14, 0, 16, 0}}, "L: 10:00-20:00"},
		{"overlaps end of existing", []add{{time.Monday, 10, 0, 16, 0}, {time.Monday, 14, 0, 20, 0}}, "L: 10:00-20:00"},
		{"joins existing ones", []add{{time.Monday, 10, 0, 14, 0}, {time.Monday, 16, 0, 20, 0}, {time.Monday, 12, 0, 18, 0}}, "L: 10:00-20:00"},
		{
			"keeps intervals around the merge",
			[]add{{time.Monday, 4, 0, 5, 0}, {time.Monday, 10, 0, 14, 0}, {time.Monday, 16, 0, 20, 0}, {time.Monday, 12, 0, 18, 0}, {time.Monday, 21, 0, 22, 0}},
			"L: 04:00-05:00 y 10:00-20:00 y 21:00-22:00",
		},
		{"touching intervals are not merged", []add{{time.Monday, 8, 0, 14, 59}, {time.Monday, 15, 0, 20, 0}}, "L: 08:00-14:59 y 15:00-20:00"},
		{"full day", []add{{time.Monday, 0, 0, 23, 59}}, "L: 24H"},
		{"tuesday", []add{{time.Tuesday, 10, 0, 14, 0}}, "M: 10:00-14:00"},
		{"wednesday", []add{{time.Wednesday, 10, 0, 14, 0}}, "X: 10:00-14:00"},
		{"thursday", []add{{time.Thursday, 10, 0, 14, 0}}, "J: 10:00-14:00"},
		{"friday", []add{{time.Friday, 10, 0, 14, 0}}, "V: 10:00-14:00"},
		{"saturday", []add{{time.Saturday, 10, 0, 14, 0}}, "S: 10:00-14:00"},
		{"sunday", []add{{time.Sunday, 10, 0, 14, 0}}, "D: 10:00-14:00"},
		{"consecutive days different intervals", []add{{time.Monday, 8, 0, 13, 30}, {time.Tuesday, 10, 0, 13, 30}}, "L: 08:00-13:30; M: 10:00-13:30"},
		{"consecutive days collapse", []add{{time.Monday, 8, 0, 13, 30}, {time.Tuesday, 8, 0, 13, 30}}, "L-M: 08:00-13:30"},
		{"separated days do not collapse", []add{{time.Monday, 8, 0, 13, 30}, {time.Wednesday, 8, 0, 13, 30}}, "L: 08:00-13:30; X: 08:00-13:30"},
		{"three consecutive days", []add{{time.Monday, 8, 0, 13, 30}, {time.Tuesday, 8, 0, 13, 30}, {time.Wednesday, 8, 0, 13, 30}}, "L-X: 08:00-13:30"},
		{"no wrap from sunday to monday", []add{{time.Sunday, 8, 0, 9, 0}, {time.Monday, 8, 0, 9, 0}}, "L: 08:00-09:00; D: 08:00-09:00"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			oh := New()
			for _, a := range test.adds {
				oh.Add(a.day, a.sh, a.sm, a.eh, a.em)
			}
			if got := oh.String(); got != test.expected {
				t.Errorf("String() = %q, expected %q", got, test.expected)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input    string
		expected TimeOfDay
		hasError bool
	}{
		{"nocolon", TimeOfDay{}, true},
		{"hh:12", TimeOfDay{}, true},
		{"12:mm", TimeOfDay{}, true},
		{"24:12", TimeOfDay{}, true},
		{"-1:12", TimeOfDay{}, true},
		{"12:-1", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"23:59", TimeOfDay{23, 59}, false},
		{"00:00", TimeOfDay{0, 0}, false},
		{"1:2", TimeOfDay{1, 2}, false},
		{"01:02", TimeOfDay{1, 2}, false},
	}

	for _, test := range tests {
		result, err := ParseTime(test.input)
		if test.hasError {
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("ParseTime(%q) expected ErrInvalid, got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTime(%q) unexpected error: %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("ParseTime(%q) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input    string
		expected Interval
		hasError bool
	}{
		{"nodash", Interval{}, true},
		{"24H", Interval{TimeOfDay{0, 0}, TimeOfDay{23, 59}}, false},
		{"bad-12:34", Interval{}, true},
		{"12:34-bad", Interval{}, true},
		{"12:34-02:30", Interval{}, true},
		{"12:34-12:30", Interval{}, true},
		{"12:34-12:34", Interval{}, true},
		{"12:34-22:30", Interval{TimeOfDay{12, 34}, TimeOfDay{22, 30}}, false},
		{"22:00-00:00", Interval{TimeOfDay{22, 0}, TimeOfDay{23, 59}}, false},
		{"1:00-2:00-3:00", Interval{}, true},
	}

	for _, test := range tests {
		result, err := ParseInterval(test.input)
		if test.hasError {
			if err == nil {
				t.Errorf("ParseInterval(%q) expected error but got %v", test.input, result)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseInterval(%q) unexpected error: %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("ParseInterval(%q) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestParseIntervals(t *testing.T) {
	got, err := ParseIntervals("00:00-10:00 y 12:34-22:30")
	if err != nil {
		t.Fatalf("ParseIntervals() unexpected error: %v", err)
	}
	expected := []Interval{
		{TimeOfDay{0, 0}, TimeOfDay{10, 0}},
		{TimeOfDay{12, 34}, TimeOfDay{22, 30}},
	}
	if !slices.Equal(got, expected) {
		t.Errorf("ParseIntervals() = %v, expected %v", got, expected)
	}

	if _, err := ParseIntervals("BAD"); err == nil {
		t.Error("ParseIntervals(\"BAD\") expected error")
	}
}

func TestParseDay(t *testing.T) {
	codes := map[string]time.Weekday{
		"L": time.Monday,
		"M": time.Tuesday,
		"X": time.Wednesday,
		"J": time.Thursday,
		"V": time.Friday,
		"S": time.Saturday,
		"D": time.Sunday,
	}
	for code, expected := range codes {
		got, err := ParseDay(code)
		if err != nil {
			t.Errorf("ParseDay(%q) unexpected error: %v", code, err)
		}
		if got != expected {
			t.Errorf("ParseDay(%q) = %v, expected %v", code, got, expected)
		}
	}
	if _, err := ParseDay("BAD"); !errors.Is(err, ErrInvalid) {
		t.Errorf("ParseDay(\"BAD\") expected ErrInvalid, got %v", err)
	}
}

func TestParseDayRange(t *testing.T) {
	tests := []struct {
		input    string
		expected []time.Weekday
		hasError bool
	}{
		{"M", []time.Weekday{time.Tuesday}, false},
		{"BAD", nil, true},
		{"M-BAD", nil, true},
		{"M-X", []time.Weekday{time.Tuesday, time.Wednesday}, false},
		{"M-J", []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday}, false},
		{"J-M", []time.Weekday{time.Thursday, time.Friday, time.Saturday, time.Sunday, time.Monday, time.Tuesday}, false},
		{"L-D", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}, false},
		{"L-M-X", nil, true},
	}

	for _, test := range tests {
		got, err := ParseDayRange(test.input)
		if test.hasError {
			if err == nil {
				t.Errorf("ParseDayRange(%q) expected error, got %v", test.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDayRange(%q) unexpected error: %v", test.input, err)
		}
		if !slices.Equal(got, test.expected) {
			t.Errorf("ParseDayRange(%q) = %v, expected %v", test.input, got, test.expected)
		}
	}
}

func TestParseEntry(t *testing.T) {
	for _, bad := range []string{"no colon", "BAD: 14:00-22:00", "M-J: BAD", "L: 08:00-10:00: 12:00-13:00"} {
		if _, _, err := ParseEntry(bad); err == nil {
			t.Errorf("ParseEntry(%q) expected error", bad)
		}
	}

	days, intervals, err := ParseEntry("V-S: 3:00-12:00 y 14:00-22:00")
	if err != nil {
		t.Fatalf("ParseEntry() unexpected error: %v", err)
	}
	if !slices.Equal(days, []time.Weekday{time.Friday, time.Saturday}) {
		t.Errorf("ParseEntry() days = %v", days)
	}
	expected := []Interval{
		{TimeOfDay{3, 0}, TimeOfDay{12, 0}},
		{TimeOfDay{14, 0}, TimeOfDay{22, 0}},
	}
	if !slices.Equal(intervals, expected) {
		t.Errorf("ParseEntry() intervals = %v, expected %v", intervals, expected)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		hasError bool
	}{
		{"L-M: 08:00-13:30", "L-M: 08:00-13:30", false},
		{"L-M: 08:00-13:30; V: 24H", "L-M: 08:00-13:30; V: 24H", false},
		{"L-M: 08:00-13:30;V: 24H", "L-M: 08:00-13:30; V: 24H", false},
		{"L-D: 24H", "L-D: 24H", false},
		{"L: 22:00-00:00", "L: 22:00-23:59", false},
		{"S-L: 10:00-14:00", "L: 10:00-14:00; S-D: 10:00-14:00", false},
		{"L-V: 08:00-14:00; L-V: 16:00-20:00", "L-V: 08:00-14:00 y 16:00-20:00", false},
		{"L-M: 08:00-13:30; V: BAD", "", true},
		{"L: 22:00-02:00", "", true},
		{"", "", true},
	}

	for _, test := range tests {
		oh, err := Parse(test.input)
		if test.hasError {
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse(%q) expected ErrInvalid, got %v", test.input, err)
			}
			if oh != nil {
				t.Errorf("Parse(%q) expected no value, got %q", test.input, oh)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", test.input, err)
			continue
		}
		if got := oh.String(); got != test.expected {
			t.Errorf("Parse(%q).String() = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	specs := []string{
		"L-D: 24H",
		"L-V: 06:00-22:00; S-D: 08:00-14:00",
		"L: 08:00-13:30; X: 08:00-13:30",
		"J-M: 07:00-23:00",
		"M: 8:00-14:59 y 15:00-20:00; D: 24H",
		"L-S: 07:00-14:00 y 16:00-21:30; D: 09:00-13:00",
	}
	for _, spec := range specs {
		parsed, err := Parse(spec)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", spec, err)
		}
		again, err := Parse(parsed.String())
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", parsed.String(), err)
		}
		if !parsed.Equal(again) {
			t.Errorf("round trip of %q changed the schedule: %q", spec, again)
		}
	}
}

func TestIsEmptyAndAlwaysOpen(t *testing.T) {
	if !New().IsEmpty() {
		t.Error("New() should be empty")
	}
	if AlwaysOpen().IsEmpty() {
		t.Error("AlwaysOpen() should not be empty")
	}
	if got := AlwaysOpen().String(); got != "L-D: 24H" {
		t.Errorf("AlwaysOpen().String() = %q", got)
	}
}

func TestTextMarshaling(t *testing.T) {
	var oh OpeningHours
	if err := oh.UnmarshalText([]byte("L-V: 08:00-20:00")); err != nil {
		t.Fatalf("UnmarshalText() unexpected error: %v", err)
	}
	text, err := oh.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() unexpected error: %v", err)
	}
	if string(text) != "L-V: 08:00-20:00" {
		t.Errorf("MarshalText() = %q", text)
	}
	if err := oh.UnmarshalText([]byte("whatever")); err == nil {
		t.Error("UnmarshalText() expected error for malformed schedule")
	}
}

func TestParseFrench(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		hasError bool
	}{
		{"", "", true},
		{"Dimanche08.10-20.00", "D: 08:10-20:00", false},
		{"Dimanche 08.10-12.00 et 13.10-20.00", "D: 08:10-12:00 y 13:10-20:00", false},
		{"Automate-24-24", "L-D: 24H", false},
		{"Dimanche08.10-20.00, Lundi09.00-19.00", "L: 09:00-19:00; D: 08:10-20:00", false},
		{"Lundi13.30-02.20", "L: 13:30-23:59; M: 00:00-02:20", false},
		{"Lundi08.00-00.00", "L: 08:00-23:59", false},
		{"Dimanche, Lundi09.00-19.00", "L: 09:00-19:00", false},
		{"Dimanche08.10-20.00, BadDay09.00-19.00", "", true},
		{"Dimanche 08.00-10.00 et 11.00-13.00 et 14.00-16.00", "", true},
		{"Dimanche bad et 13.30-20.20", "", true},
		{"Dimanche 12:30-13:30", "", true},
	}

	for _, test := range tests {
		oh, err := ParseFrench(test.input)
		if test.hasError {
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("ParseFrench(%q) expected ErrInvalid, got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFrench(%q) unexpected error: %v", test.input, err)
			continue
		}
		if got := oh.String(); got != test.expected {
			t.Errorf("ParseFrench(%q).String() = %q, expected %q", test.input, got, test.expected)
		}
	}
}

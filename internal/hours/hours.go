// Package hours parses, formats and evaluates weekly opening schedules as
// published by the Spanish fuel price feed, e.g. "L-V: 07:00-22:00; S: 24H".
package hours

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every parse failure.
var ErrInvalid = errors.New("invalid opening hours")

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	daysPerWeek    = 7
	minutesPerWeek = daysPerWeek * minutesPerDay

	entrySeparator = ";"
	daysSeparator  = ": "
	conjunction    = " y "
	fullDayToken   = "24H"
)

// Day codes in week order, Monday first.
var dayCodes = [daysPerWeek]string{"L", "M", "X", "J", "V", "S", "D"}

// TimeOfDay is a wall clock time with minute resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) minutes() int {
	return t.Hour*minutesPerHour + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func timeOfDay(minutes int) TimeOfDay {
	return TimeOfDay{Hour: minutes / minutesPerHour, Minute: minutes % minutesPerHour}
}

// Interval is an opening period within a single day. Both ends are inclusive.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

var fullDay = Interval{Start: TimeOfDay{0, 0}, End: TimeOfDay{23, 59}}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// OpeningHours holds, for every day of the week, a sorted list of
// non-overlapping intervals. The zero value has no schedule at all.
type OpeningHours struct {
	days [daysPerWeek][]Interval
}

// New returns an empty schedule.
func New() *OpeningHours {
	return &OpeningHours{}
}

// AlwaysOpen returns a schedule open the whole week ("L-D: 24H").
func AlwaysOpen() *OpeningHours {
	oh := New()
	for i := range oh.days {
		oh.days[i] = []Interval{fullDay}
	}
	return oh
}

func dayIndex(d time.Weekday) int {
	return (int(d) + daysPerWeek - 1) % daysPerWeek
}

func weekdayAt(index int) time.Weekday {
	return time.Weekday((index + 1) % daysPerWeek)
}

// Add inserts an interval on the given day. Intervals overlapping existing
// ones are merged with them.
func (oh *OpeningHours) Add(day time.Weekday, startHour, startMinute, endHour, endMinute int) {
	oh.insert(dayIndex(day), Interval{
		Start: TimeOfDay{startHour, startMinute},
		End:   TimeOfDay{endHour, endMinute},
	})
}

func (oh *OpeningHours) insert(index int, iv Interval) {
	start, end := iv.Start.minutes(), iv.End.minutes()
	kept := make([]Interval, 0, len(oh.days[index])+1)
	for _, cur := range oh.days[index] {
		cs, ce := cur.Start.minutes(), cur.End.minutes()
		if cs <= end && start <= ce {
			start = min(start, cs)
			end = max(end, ce)
			continue
		}
		kept = append(kept, cur)
	}
	kept = append(kept, Interval{Start: timeOfDay(start), End: timeOfDay(end)})
	slices.SortFunc(kept, func(a, b Interval) int {
		return a.Start.minutes() - b.Start.minutes()
	})
	oh.days[index] = kept
}

// Intervals returns a copy of the intervals of the given day.
func (oh *OpeningHours) Intervals(day time.Weekday) []Interval {
	return slices.Clone(oh.days[dayIndex(day)])
}

// IsEmpty reports whether no day has any interval.
func (oh *OpeningHours) IsEmpty() bool {
	for _, d := range oh.days {
		if len(d) > 0 {
			return false
		}
	}
	return true
}

// Equal reports whether both schedules have the same intervals every day.
func (oh *OpeningHours) Equal(other *OpeningHours) bool {
	if oh == nil || other == nil {
		return oh == other
	}
	for i := range oh.days {
		if !slices.Equal(oh.days[i], other.days[i]) {
			return false
		}
	}
	return true
}

// String returns the canonical form. Adjacent days with identical intervals
// are collapsed into a day range; the range never wraps past Sunday.
func (oh *OpeningHours) String() string {
	var formatted [daysPerWeek]string
	for i, d := range oh.days {
		formatted[i] = formatIntervals(d)
	}

	var entries []string
	for i := 0; i < daysPerWeek; {
		if formatted[i] == "" {
			i++
			continue
		}
		j := i
		for j+1 < daysPerWeek && formatted[j+1] == formatted[i] {
			j++
		}
		days := dayCodes[i]
		if j > i {
			days += "-" + dayCodes[j]
		}
		entries = append(entries, days+daysSeparator+formatted[i])
		i = j + 1
	}
	return strings.Join(entries, entrySeparator+" ")
}

func formatIntervals(intervals []Interval) string {
	if len(intervals) == 1 && intervals[0] == fullDay {
		return fullDayToken
	}
	parts := make([]string, len(intervals))
	for i, iv := range intervals {
		parts[i] = iv.String()
	}
	return strings.Join(parts, conjunction)
}

// MarshalText encodes the schedule in its canonical form.
func (oh *OpeningHours) MarshalText() ([]byte, error) {
	return []byte(oh.String()), nil
}

// UnmarshalText parses a schedule in the feed format.
func (oh *OpeningHours) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*oh = *parsed
	return nil
}

// Parse parses a whole schedule. Any malformed entry makes the whole
// schedule invalid.
func Parse(spec string) (*OpeningHours, error) {
	oh := New()
	for _, entry := range strings.Split(spec, entrySeparator) {
		days, intervals, err := ParseEntry(strings.TrimSpace(entry))
		if err != nil {
			return nil, err
		}
		for _, d := range days {
			for _, iv := range intervals {
				oh.insert(dayIndex(d), iv)
			}
		}
	}
	return oh, nil
}

// ParseEntry parses a "<days>: <intervals>" entry.
func ParseEntry(spec string) ([]time.Weekday, []Interval, error) {
	parts := strings.Split(spec, daysSeparator)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("%w: malformed entry %q", ErrInvalid, spec)
	}
	days, err := ParseDayRange(parts[0])
	if err != nil {
		return nil, nil, err
	}
	intervals, err := ParseIntervals(parts[1])
	if err != nil {
		return nil, nil, err
	}
	return days, intervals, nil
}

// ParseDayRange parses a single day code or an inclusive "start-end" range.
// Ranges whose end precedes the start wrap around the end of the week.
func ParseDayRange(spec string) ([]time.Weekday, error) {
	bounds := strings.Split(spec, "-")
	if len(bounds) > 2 {
		return nil, fmt.Errorf("%w: malformed day range %q", ErrInvalid, spec)
	}
	first, err := ParseDay(bounds[0])
	if err != nil {
		return nil, err
	}
	if len(bounds) == 1 {
		return []time.Weekday{first}, nil
	}
	last, err := ParseDay(bounds[1])
	if err != nil {
		return nil, err
	}

	from, to := dayIndex(first), dayIndex(last)
	count := (to-from+daysPerWeek)%daysPerWeek + 1
	days := make([]time.Weekday, 0, count)
	for i := 0; i < count; i++ {
		days = append(days, weekdayAt((from+i)%daysPerWeek))
	}
	return days, nil
}

// ParseDay parses a day code (L, M, X, J, V, S, D).
func ParseDay(code string) (time.Weekday, error) {
	for i, c := range dayCodes {
		if c == code {
			return weekdayAt(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown day %q", ErrInvalid, code)
}

// ParseIntervals parses a conjunction separated list of intervals.
func ParseIntervals(spec string) ([]Interval, error) {
	parts := strings.Split(spec, conjunction)
	intervals := make([]Interval, 0, len(parts))
	for _, p := range parts {
		iv, err := ParseInterval(p)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}

// ParseInterval parses "HH:MM-HH:MM" or "24H". An end of 00:00 stands for
// the end of the day.
func ParseInterval(spec string) (Interval, error) {
	if spec == fullDayToken {
		return fullDay, nil
	}
	bounds := strings.Split(spec, "-")
	if len(bounds) != 2 {
		return Interval{}, fmt.Errorf("%w: malformed interval %q", ErrInvalid, spec)
	}
	start, err := ParseTime(bounds[0])
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseTime(bounds[1])
	if err != nil {
		return Interval{}, err
	}
	return newInterval(start, end, spec)
}

func newInterval(start, end TimeOfDay, spec string) (Interval, error) {
	if end.minutes() == 0 {
		end = fullDay.End
	}
	if end.minutes() <= start.minutes() {
		return Interval{}, fmt.Errorf("%w: interval %q does not end after it starts", ErrInvalid, spec)
	}
	return Interval{Start: start, End: end}, nil
}

// ParseTime parses "H:M" with hours in 0-23 and minutes in 0-59. Zero
// padding is optional.
func ParseTime(spec string) (TimeOfDay, error) {
	return parseClock(spec, ":")
}

func parseClock(spec, sep string) (TimeOfDay, error) {
	parts := strings.Split(spec, sep)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: malformed time %q", ErrInvalid, spec)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: bad hour in %q", ErrInvalid, spec)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: bad minute in %q", ErrInvalid, spec)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

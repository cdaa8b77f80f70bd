package hours

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	frenchAlwaysOpen  = "Automate-24-24"
	frenchConjunction = " et "
	frenchMaxPerDay   = 2
)

var frenchDays = map[string]time.Weekday{
	"Lundi":    time.Monday,
	"Mardi":    time.Tuesday,
	"Mercredi": time.Wednesday,
	"Jeudi":    time.Thursday,
	"Vendredi": time.Friday,
	"Samedi":   time.Saturday,
	"Dimanche": time.Sunday,
}

// ParseFrench parses the schedule format of the French open data feed:
// comma separated day elements such as "Lundi07.00-12.00 et 14.00-19.00",
// or "Automate-24-24" for unattended stations. Intervals ending before they
// start run past midnight into the following day.
func ParseFrench(spec string) (*OpeningHours, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("%w: empty schedule", ErrInvalid)
	}
	oh := New()
	for _, element := range strings.Split(spec, ",") {
		if err := oh.addFrenchElement(strings.TrimSpace(element)); err != nil {
			return nil, err
		}
	}
	return oh, nil
}

func (oh *OpeningHours) addFrenchElement(spec string) error {
	if spec == frenchAlwaysOpen {
		for i := range oh.days {
			oh.insert(i, fullDay)
		}
		return nil
	}

	nameEnd := strings.IndexFunc(spec, func(r rune) bool { return !unicode.IsLetter(r) })
	if nameEnd < 0 {
		nameEnd = len(spec)
	}
	day, ok := frenchDays[spec[:nameEnd]]
	if !ok {
		return fmt.Errorf("%w: unknown day in %q", ErrInvalid, spec)
	}

	times := strings.TrimSpace(spec[nameEnd:])
	if times == "" {
		// Listed without times: closed that day.
		return nil
	}
	parts := strings.Split(times, frenchConjunction)
	if len(parts) > frenchMaxPerDay {
		return fmt.Errorf("%w: too many intervals in %q", ErrInvalid, spec)
	}
	for _, p := range parts {
		if err := oh.addFrenchInterval(dayIndex(day), p); err != nil {
			return err
		}
	}
	return nil
}

func (oh *OpeningHours) addFrenchInterval(index int, spec string) error {
	bounds := strings.Split(spec, "-")
	if len(bounds) != 2 {
		return fmt.Errorf("%w: malformed interval %q", ErrInvalid, spec)
	}
	start, err := parseClock(bounds[0], ".")
	if err != nil {
		return err
	}
	end, err := parseClock(bounds[1], ".")
	if err != nil {
		return err
	}

	if end.minutes() != 0 && end.minutes() < start.minutes() {
		oh.insert(index, Interval{Start: start, End: fullDay.End})
		oh.insert((index+1)%daysPerWeek, Interval{Start: TimeOfDay{}, End: end})
		return nil
	}
	iv, err := newInterval(start, end, spec)
	if err != nil {
		return err
	}
	oh.insert(index, iv)
	return nil
}

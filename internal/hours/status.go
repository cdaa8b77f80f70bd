package hours

import "time"

// Status is the opening state at a given instant.
type Status struct {
	Open bool
	// NextChange is the nearest instant at which Open flips. It is nil when
	// the schedule never changes: open all week or without any interval.
	NextChange *time.Time
}

// span is an interval measured in minutes since Monday 00:00.
type span struct {
	start, end int
}

func (oh *OpeningHours) spans() []span {
	var spans []span
	for i, d := range oh.days {
		base := i * minutesPerDay
		for _, iv := range d {
			spans = append(spans, span{base + iv.Start.minutes(), base + iv.End.minutes()})
		}
	}
	return spans
}

// Status evaluates the schedule at the given instant, using loc to get the
// local weekday and time. A nil loc means UTC.
func (oh *OpeningHours) Status(at time.Time, loc *time.Location) Status {
	if loc == nil {
		loc = time.UTC
	}
	spans := oh.spans()
	if len(spans) == 0 {
		return Status{}
	}

	local := at.In(loc)
	today := dayIndex(local.Weekday())
	now := today*minutesPerDay + local.Hour()*minutesPerHour + local.Minute()

	for i, s := range spans {
		if s.start > now || now > s.end {
			continue
		}
		end, always := closingMinute(spans, i)
		if always {
			return Status{Open: true}
		}
		if end%minutesPerDay == minutesPerDay-1 {
			// Open until the end of the day: closes at the next midnight.
			end++
		}
		next := localInstant(local, today, end)
		if !next.After(at) {
			// Within the last open minute: it flips once that minute is over.
			next = next.Add(time.Minute)
		}
		return Status{Open: true, NextChange: &next}
	}

	opening := spans[0].start + minutesPerWeek
	for _, s := range spans {
		if s.start > now {
			opening = s.start
			break
		}
	}
	next := localInstant(local, today, opening)
	return Status{Open: false, NextChange: &next}
}

// closingMinute follows the spans after spans[i] while they continue the
// opening (starting at most one minute after the previous end), wrapping
// into the following week. It reports true when the opening never ends.
func closingMinute(spans []span, i int) (int, bool) {
	n := len(spans)
	end := spans[i].end
	for k := 1; k <= n; k++ {
		offset := (i + k) / n * minutesPerWeek
		next := spans[(i+k)%n]
		if next.start+offset > end+1 {
			return end, false
		}
		if k == n {
			return 0, true
		}
		end = max(end, next.end+offset)
	}
	return end, false
}

// localInstant converts a minute counted from the Monday of the week of
// local into an instant in local's zone.
func localInstant(local time.Time, today, minute int) time.Time {
	days := minute/minutesPerDay - today
	m := minute % minutesPerDay
	return time.Date(local.Year(), local.Month(), local.Day()+days,
		m/minutesPerHour, m%minutesPerHour, 0, 0, local.Location())
}

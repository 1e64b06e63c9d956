package feature

import (
	"time"

	"github.com/sells-group/collision-cli/internal/model"
)

// Temporal holds the calendar features of one timestamp.
// A zero timestamp yields the zero Temporal (empty names, nil hour and month).
type Temporal struct {
	DayOfWeek string
	HourOfDay *int
	TimeOfDay model.TimeOfDay
	Month     *int
}

// TemporalFeatures derives weekday, hour, time-of-day bucket and month.
func TemporalFeatures(ts model.Timestamp) Temporal {
	if ts.IsZero() {
		return Temporal{}
	}
	hour := ts.Hour()
	month := int(ts.Month())
	return Temporal{
		DayOfWeek: ts.Weekday().String(),
		HourOfDay: &hour,
		TimeOfDay: BucketHour(hour),
		Month:     &month,
	}
}

// BucketHour assigns an hour to the right-open intervals
// [0,6) Night, [6,12) Morning, [12,18) Afternoon, [18,24) Evening.
// Hours outside 0..23 have no bucket.
func BucketHour(hour int) model.TimeOfDay {
	switch {
	case hour < 0:
		return ""
	case hour < 6:
		return model.TimeOfDayNight
	case hour < 12:
		return model.TimeOfDayMorning
	case hour < 18:
		return model.TimeOfDayAfternoon
	case hour < 24:
		return model.TimeOfDayEvening
	default:
		return ""
	}
}

// Weekdays lists day names Monday first, the order the dashboard offers them in.
func Weekdays() []string {
	return []string{
		time.Monday.String(), time.Tuesday.String(), time.Wednesday.String(),
		time.Thursday.String(), time.Friday.String(), time.Saturday.String(),
		time.Sunday.String(),
	}
}

// MonthName returns the English month name for 1..12, or "" otherwise.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()
}

// ParseMonth accepts "3", "March" or "mar" and returns 1..12.
func ParseMonth(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	numeric := true
	for i, r := range s {
		if r < '0' || r > '9' {
			numeric = false
			break
		}
		if i < 2 {
			n = n*10 + int(r-'0')
		}
	}
	if numeric {
		if len(s) > 2 {
			return 0, false
		}
		return n, n >= 1 && n <= 12
	}
	ls := normalize(s)
	for m := 1; m <= 12; m++ {
		name := normalize(time.Month(m).String())
		if ls == name || (len(ls) == 3 && name[:3] == ls) {
			return m, true
		}
	}
	return 0, false
}

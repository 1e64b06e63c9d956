package dashboard

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/collision-cli/internal/feature"
	"github.com/sells-group/collision-cli/internal/store"
)

// Hour-range bounds accepted by the time-range filter.
const (
	minHour = 0
	maxHour = 24
)

// Selection echoes a filter in readable form.
type Selection struct {
	Boroughs   string `json:"boroughs,omitempty"`
	Months     string `json:"selected_months,omitempty"`
	Days       string `json:"selected_days,omitempty"`
	Factors    string `json:"contributing_factors,omitempty"`
	Vehicles   string `json:"vehicle_types,omitempty"`
	TimeFilter string `json:"time_filter,omitempty"`
}

// ParseFilter reads the collision filter from query parameters. Every list
// parameter is repeatable; an absent parameter places no constraint, while a
// parameter present with only blank values selects nothing.
func ParseFilter(q url.Values) (store.CollisionFilter, error) {
	f := store.CollisionFilter{
		Boroughs: listParam(q, "borough"),
		Days:     listParam(q, "day"),
		Factors:  listParam(q, "factor"),
		Vehicles: listParam(q, "vehicle"),
	}
	if vals := listParam(q, "month"); vals != nil {
		f.Months = make([]int, 0, len(vals))
		for _, v := range vals {
			m, ok := feature.ParseMonth(v)
			if !ok {
				return f, eris.Errorf("dashboard: invalid month %q", v)
			}
			f.Months = append(f.Months, m)
		}
	}

	_, hasMin := q["hour_min"]
	_, hasMax := q["hour_max"]
	_, hasTOD := q["time_of_day"]
	switch {
	case hasTOD && (hasMin || hasMax):
		return f, eris.New("dashboard: use either time_of_day or hour_min/hour_max, not both")
	case hasTOD:
		f.TimesOfDay = listParam(q, "time_of_day")
	case hasMin || hasMax:
		lo, err := intParam(q, "hour_min", minHour)
		if err != nil {
			return f, err
		}
		hi, err := intParam(q, "hour_max", maxHour)
		if err != nil {
			return f, err
		}
		if lo < minHour || hi > maxHour || lo > hi {
			return f, eris.Errorf("dashboard: invalid hour range %d-%d", lo, hi)
		}
		f.HourMin, f.HourMax = &lo, &hi
	}

	limit, err := intParam(q, "limit", 0)
	if err != nil {
		return f, err
	}
	if limit < 0 {
		return f, eris.Errorf("dashboard: invalid limit %d", limit)
	}
	f.Limit = limit
	return f, nil
}

// listParam returns the trimmed non-blank values of key: nil when the key is
// absent, empty and non-nil when every value is blank.
func listParam(q url.Values, key string) []string {
	vals, ok := q[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Errorf("dashboard: invalid %s %q", key, v)
	}
	return n, nil
}

// Describe renders the selection summary, month numbers as English names.
func Describe(f store.CollisionFilter) Selection {
	months := make([]string, 0, len(f.Months))
	for _, m := range f.Months {
		months = append(months, feature.MonthName(m))
	}
	sel := Selection{
		Boroughs: strings.Join(f.Boroughs, ", "),
		Months:   strings.Join(months, ", "),
		Days:     strings.Join(f.Days, ", "),
		Factors:  strings.Join(f.Factors, ", "),
		Vehicles: strings.Join(f.Vehicles, ", "),
	}
	switch {
	case f.TimesOfDay != nil:
		sel.TimeFilter = strings.Join(f.TimesOfDay, ", ")
	case f.HourMin != nil && f.HourMax != nil:
		sel.TimeFilter = strconv.Itoa(*f.HourMin) + "-" + strconv.Itoa(*f.HourMax) + "h"
	}
	return sel
}

// Pairs lists the non-empty selection fields as label/value pairs.
func (s Selection) Pairs() [][2]string {
	var out [][2]string
	for _, p := range [][2]string{
		{"Boroughs", s.Boroughs},
		{"Selected Months", s.Months},
		{"Selected Day(s)", s.Days},
		{"Contributing Factor(s)", s.Factors},
		{"Vehicle Type(s)", s.Vehicles},
		{"Time Filter", s.TimeFilter},
	} {
		if p[1] != "" {
			out = append(out, p)
		}
	}
	return out
}

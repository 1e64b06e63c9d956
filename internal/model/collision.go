// Package model defines the collision records that flow through the pipeline.
package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SeverityCategory is the Low/Medium/High bucket of a severity score.
type SeverityCategory string

const (
	SeverityLow    SeverityCategory = "Low"
	SeverityMedium SeverityCategory = "Medium"
	SeverityHigh   SeverityCategory = "High"
)

// TimeOfDay is a 6-hour bucket of the crash hour.
type TimeOfDay string

const (
	TimeOfDayNight     TimeOfDay = "Night"
	TimeOfDayMorning   TimeOfDay = "Morning"
	TimeOfDayAfternoon TimeOfDay = "Afternoon"
	TimeOfDayEvening   TimeOfDay = "Evening"
)

// Placeholder values written by the cleaning and categorization steps.
const (
	Unknown            = "Unknown"
	Unspecified        = "Unspecified"
	UnknownFactorGroup = "Unknown/Other"
	NoiseCluster       = -1
)

// TimestampLayout is the layout used when timestamps are written to CSV.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a crash date+time. The zero value means the source could not be parsed.
type Timestamp struct {
	time.Time
}

// MarshalText writes the timestamp in TimestampLayout, or nothing when zero.
func (t Timestamp) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return []byte{}, nil
	}
	return []byte(t.Format(TimestampLayout)), nil
}

// UnmarshalText accepts TimestampLayout or RFC 3339. Empty input yields the zero value.
func (t *Timestamp) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339, "2006-01-02 15:04"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return eris.Errorf("model: invalid timestamp %q", s)
}

// Counts holds the eight injury/fatality columns of a collision.
type Counts struct {
	PersonsInjured     int `csv:"number_of_persons_injured" json:"number_of_persons_injured"`
	PersonsKilled      int `csv:"number_of_persons_killed" json:"number_of_persons_killed"`
	PedestriansInjured int `csv:"number_of_pedestrians_injured" json:"number_of_pedestrians_injured"`
	PedestriansKilled  int `csv:"number_of_pedestrians_killed" json:"number_of_pedestrians_killed"`
	CyclistInjured     int `csv:"number_of_cyclist_injured" json:"number_of_cyclist_injured"`
	CyclistKilled      int `csv:"number_of_cyclist_killed" json:"number_of_cyclist_killed"`
	MotoristInjured    int `csv:"number_of_motorist_injured" json:"number_of_motorist_injured"`
	MotoristKilled     int `csv:"number_of_motorist_killed" json:"number_of_motorist_killed"`
}

// TotalDeaths sums the four killed columns.
func (c Counts) TotalDeaths() int {
	return c.PersonsKilled + c.PedestriansKilled + c.CyclistKilled + c.MotoristKilled
}

// TotalInjuries sums the four injured columns.
func (c Counts) TotalInjuries() int {
	return c.PersonsInjured + c.PedestriansInjured + c.CyclistInjured + c.MotoristInjured
}

// CleanCollision is one row of clean_collision_data.csv.
type CleanCollision struct {
	Latitude      float64   `csv:"latitude" json:"latitude"`
	Longitude     float64   `csv:"longitude" json:"longitude"`
	CrashDateTime Timestamp `csv:"crash_datetime" json:"crash_datetime"`
	Counts
	ContributingFactor1 string `csv:"contributing_factor_vehicle_1" json:"contributing_factor_vehicle_1"`
	ContributingFactor2 string `csv:"contributing_factor_vehicle_2" json:"contributing_factor_vehicle_2"`
	ContributingFactor3 string `csv:"contributing_factor_vehicle_3" json:"contributing_factor_vehicle_3"`
	ContributingFactor4 string `csv:"contributing_factor_vehicle_4" json:"contributing_factor_vehicle_4"`
	ContributingFactor5 string `csv:"contributing_factor_vehicle_5" json:"contributing_factor_vehicle_5"`
	VehicleType1        string `csv:"vehicle_type_code_1" json:"vehicle_type_code_1"`
	VehicleType2        string `csv:"vehicle_type_code_2" json:"vehicle_type_code_2"`
	VehicleType3        string `csv:"vehicle_type_code_3" json:"vehicle_type_code_3"`
	VehicleType4        string `csv:"vehicle_type_code_4" json:"vehicle_type_code_4"`
	VehicleType5        string `csv:"vehicle_type_code_5" json:"vehicle_type_code_5"`
}

// Factors returns the five contributing-factor codes in column order.
func (c CleanCollision) Factors() [5]string {
	return [5]string{
		c.ContributingFactor1, c.ContributingFactor2, c.ContributingFactor3,
		c.ContributingFactor4, c.ContributingFactor5,
	}
}

// Collision is an enriched record: one row of processed_collision_data.csv and
// of the Collisions table. Secondary factor and vehicle codes are not carried.
type Collision struct {
	Latitude      float64   `csv:"latitude" json:"latitude"`
	Longitude     float64   `csv:"longitude" json:"longitude"`
	CrashDateTime Timestamp `csv:"crash_datetime" json:"crash_datetime"`
	Counts
	ContributingFactor string `csv:"contributing_factor_vehicle_1" json:"contributing_factor_vehicle_1"`
	VehicleType        string `csv:"vehicle_type_code_1" json:"vehicle_type_code_1"`

	ContributingFactorCategory string           `csv:"contributing_factor_category" json:"contributing_factor_category"`
	TotalDeaths                int              `csv:"total_deaths" json:"total_deaths"`
	TotalInjuries              int              `csv:"total_injuries" json:"total_injuries"`
	SeverityScore              int              `csv:"severity_score" json:"severity_score"`
	SeverityCategory           SeverityCategory `csv:"severity_category" json:"severity_category"`
	DayOfWeek                  string           `csv:"day_of_week" json:"day_of_week"`
	HourOfDay                  *int             `csv:"hour_of_day" json:"hour_of_day"`
	TimeOfDay                  TimeOfDay        `csv:"time_of_day" json:"time_of_day"`
	Month                      *int             `csv:"month" json:"month"`
	VehicleCategory            string           `csv:"vehicle_category" json:"vehicle_category"`
	LocationGrid               string           `csv:"location_grid" json:"location_grid"`
	CrashRate                  float64          `csv:"crash_rate" json:"crash_rate"`
	CollisionCluster           int              `csv:"collision_cluster" json:"collision_cluster"`
	Borough                    string           `csv:"borough,omitempty" json:"borough,omitempty"`
}

// CollisionRow is the projection of a Collision onto the columns persisted in the
// collisions table. Query results and exports carry rows, not full records.
type CollisionRow struct {
	Latitude                   float64          `json:"latitude"`
	Longitude                  float64          `json:"longitude"`
	Borough                    string           `json:"borough"`
	SeverityScore              int              `json:"severity_score"`
	SeverityCategory           SeverityCategory `json:"severity_category"`
	CrashRate                  float64          `json:"crash_rate"`
	DayOfWeek                  string           `json:"day_of_week"`
	HourOfDay                  *int             `json:"hour_of_day"`
	TimeOfDay                  TimeOfDay        `json:"time_of_day"`
	Month                      *int             `json:"month"`
	VehicleCategory            string           `json:"vehicle_category"`
	ContributingFactorCategory string           `json:"contributing_factor_category"`
	LocationGrid               string           `json:"location_grid"`
	CollisionCluster           int              `json:"collision_cluster"`
}

// Row projects c onto its persisted columns.
func (c *Collision) Row() CollisionRow {
	return CollisionRow{
		Latitude:                   c.Latitude,
		Longitude:                  c.Longitude,
		Borough:                    c.Borough,
		SeverityScore:              c.SeverityScore,
		SeverityCategory:           c.SeverityCategory,
		CrashRate:                  c.CrashRate,
		DayOfWeek:                  c.DayOfWeek,
		HourOfDay:                  c.HourOfDay,
		TimeOfDay:                  c.TimeOfDay,
		Month:                      c.Month,
		VehicleCategory:            c.VehicleCategory,
		ContributingFactorCategory: c.ContributingFactorCategory,
		LocationGrid:               c.LocationGrid,
		CollisionCluster:           c.CollisionCluster,
	}
}

// Rows projects every record; the result is never nil.
func Rows(cs []Collision) []CollisionRow {
	out := make([]CollisionRow, len(cs))
	for i := range cs {
		out[i] = cs[i].Row()
	}
	return out
}

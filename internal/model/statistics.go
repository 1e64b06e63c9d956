package model

import "time"

// Borough is a named bounding box. Containment is inclusive on every edge.
type Borough struct {
	Name   string  `json:"borough_name"`
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// GlobalStatistics is the precomputed summary of the Collisions table.
// It is rebuilt in full whenever the table is rebuilt; Version changes on every rebuild.
type GlobalStatistics struct {
	Version              string             `json:"version"`
	ComputedAt           time.Time          `json:"computed_at"`
	TotalCollisions      int                `json:"total_collisions"`
	AvgCrashRate         float64            `json:"avg_crash_rate"`
	MostFrequentBorough  string             `json:"most_frequent_borough"`
	PeakCollisionTime    string             `json:"peak_collision_time"`
	SeverityDistribution map[string]float64 `json:"severity_distribution"`
	MostFrequentDay      string             `json:"most_frequent_day"`
	MostCommonFactor     string             `json:"most_common_factor"`
	MostCommonVehicle    string             `json:"most_common_vehicle"`
}

package feature

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/cluster"
	"github.com/sells-group/collision-cli/internal/model"
)

// Options configures Engineer.
type Options struct {
	Cluster        cluster.ChunkOptions
	Seed           uint64
	FactorFallback bool // pick the first informative factor of vehicles 1..5 instead of vehicle 1
}

// Result is the output of Engineer.
type Result struct {
	Records []model.Collision
	Before  map[model.SeverityCategory]int // category counts before balancing
	After   map[model.SeverityCategory]int
}

// Enrich derives every per-record feature of a clean collision. Crash rate and
// cluster label need the whole dataset and are left at their zero values.
func Enrich(c model.CleanCollision, factorFallback bool) model.Collision {
	factor := c.ContributingFactor1
	if factorFallback {
		factor = PrimaryFactor(c.Factors())
	}
	score := SeverityScore(c.Counts)
	t := TemporalFeatures(c.CrashDateTime)
	vehicle := NormalizeVehicleType(c.VehicleType1)

	return model.Collision{
		Latitude:                   c.Latitude,
		Longitude:                  c.Longitude,
		CrashDateTime:              c.CrashDateTime,
		Counts:                     c.Counts,
		ContributingFactor:         factor,
		VehicleType:                vehicle,
		ContributingFactorCategory: FactorCategory(factor),
		TotalDeaths:                c.TotalDeaths(),
		TotalInjuries:              c.TotalInjuries(),
		SeverityScore:              score,
		SeverityCategory:           Categorize(score),
		DayOfWeek:                  t.DayOfWeek,
		HourOfDay:                  t.HourOfDay,
		TimeOfDay:                  t.TimeOfDay,
		Month:                      t.Month,
		VehicleCategory:            VehicleCategory(vehicle),
		LocationGrid:               LocationGrid(c.Latitude, c.Longitude),
		CollisionCluster:           cluster.Noise,
	}
}

// Engineer enriches clean records, computes crash rates and chunked cluster labels
// over the full ordered dataset, then downsamples the Low category.
func Engineer(ctx context.Context, clean []model.CleanCollision, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "feature"))

	records := make([]model.Collision, len(clean))
	for i := range clean {
		records[i] = Enrich(clean[i], opts.FactorFallback)
	}
	log.Info("derived record features", zap.Int("records", len(records)))

	ApplyCrashRates(records)

	points := make([]cluster.Point, len(records))
	for i := range records {
		points[i] = cluster.Point{Lat: records[i].Latitude, Lon: records[i].Longitude}
	}
	labels, err := cluster.ClusterInChunks(ctx, points, opts.Cluster)
	if err != nil {
		return nil, eris.Wrap(err, "feature: cluster collisions")
	}
	for i := range records {
		records[i].CollisionCluster = labels[i]
	}

	before := CategoryCounts(records)
	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	balanced := Downsample(records, model.SeverityLow, seed)
	after := CategoryCounts(balanced)

	log.Info("balanced severity categories",
		zap.Int("low_before", before[model.SeverityLow]),
		zap.Int("low_after", after[model.SeverityLow]),
		zap.Int("medium", after[model.SeverityMedium]),
		zap.Int("high", after[model.SeverityHigh]),
	)

	return &Result{Records: balanced, Before: before, After: after}, nil
}

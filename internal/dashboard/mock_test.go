package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/collision-cli/internal/ml"
	"github.com/sells-group/collision-cli/internal/model"
	"github.com/sells-group/collision-cli/internal/store"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	mock.Mock
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return nil }

func (m *mockStore) ReplaceBoroughs(ctx context.Context, boroughs []model.Borough) error {
	return m.Called(ctx, boroughs).Error(0)
}

func (m *mockStore) ReplaceCollisions(ctx context.Context, records []model.Collision) (int64, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) SaveGlobalStatistics(ctx context.Context, st model.GlobalStatistics) error {
	return m.Called(ctx, st).Error(0)
}

func (m *mockStore) GlobalStatistics(ctx context.Context) (*model.GlobalStatistics, error) {
	args := m.Called(ctx)
	gs, _ := args.Get(0).(*model.GlobalStatistics)
	return gs, args.Error(1)
}

func (m *mockStore) Boroughs(ctx context.Context) ([]model.Borough, error) {
	args := m.Called(ctx)
	bs, _ := args.Get(0).([]model.Borough)
	return bs, args.Error(1)
}

func (m *mockStore) QueryCollisions(ctx context.Context, f store.CollisionFilter) ([]model.Collision, error) {
	args := m.Called(ctx, f)
	rows, _ := args.Get(0).([]model.Collision)
	return rows, args.Error(1)
}

func (m *mockStore) AllCollisions(ctx context.Context) ([]model.Collision, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]model.Collision)
	return rows, args.Error(1)
}

func (m *mockStore) DistinctValues(ctx context.Context, column string) ([]string, error) {
	args := m.Called(ctx, column)
	vals, _ := args.Get(0).([]string)
	return vals, args.Error(1)
}

func (m *mockStore) AvgCrashRate(ctx context.Context, q store.CrashRateQuery) (float64, bool, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}

var testBoroughs = []model.Borough{
	{Name: "Manhattan", LatMin: 40.700, LatMax: 40.882, LonMin: -74.019, LonMax: -73.907},
	{Name: "Brooklyn", LatMin: 40.570, LatMax: 40.739, LonMin: -74.041, LonMax: -73.855},
}

func record(lat, lon, rate float64, sev model.SeverityCategory, tod model.TimeOfDay, month int, borough string) model.Collision {
	return model.Collision{
		Latitude:                   lat,
		Longitude:                  lon,
		CrashRate:                  rate,
		SeverityCategory:           sev,
		DayOfWeek:                  "Monday",
		TimeOfDay:                  tod,
		Month:                      &month,
		VehicleCategory:            "Passenger Vehicle",
		ContributingFactorCategory: "Human Error",
		Borough:                    borough,
	}
}

// testPredictor trains a small forest that separates severity by crash rate.
func testPredictor(t *testing.T) *ml.Predictor {
	t.Helper()
	var records []model.Collision
	for i := range 12 {
		j := float64(i) * 0.001
		records = append(records,
			record(40.60+j, -73.95, 0.5, model.SeverityLow, model.TimeOfDayMorning, 1, "Brooklyn"),
			record(40.75+j, -73.98, 4, model.SeverityMedium, model.TimeOfDayEvening, 6, "Manhattan"),
			record(40.76+j, -73.97, 12, model.SeverityHigh, model.TimeOfDayNight, 12, "Manhattan"),
		)
	}
	opts := ml.DefaultTrainOptions()
	opts.Forest.NEstimators = 8
	opts.Forest.MaxDepth = 6
	opts.SMOTE.Neighbors = 3
	opts.SkipLogistic = true

	res, err := ml.Train(context.Background(), records, opts)
	require.NoError(t, err)
	p, err := ml.NewPredictor(res.Artifact)
	require.NoError(t, err)
	return p
}

package dashboard

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/collision-cli/internal/metrics"
	"github.com/sells-group/collision-cli/internal/store"
)

func formStore() *mockStore {
	st := &mockStore{}
	st.On("Boroughs", mock.Anything).Return(testBoroughs, nil)
	st.On("DistinctValues", mock.Anything, "contributing_factor_category").Return([]string{"Human Error"}, nil)
	st.On("DistinctValues", mock.Anything, "vehicle_category").Return([]string{"Passenger Vehicle"}, nil)
	st.On("DistinctValues", mock.Anything, "day_of_week").Return([]string{"Monday"}, nil)
	st.On("DistinctValues", mock.Anything, "time_of_day").Return([]string{"Morning", "Night"}, nil)
	return st
}

func TestPredictForm(t *testing.T) {
	h := New(formStore(), nil, nil, Options{}).Handler()
	rec := do(t, h, http.MethodGet, "/api/predict/form?borough=Brooklyn", "")
	require.Equal(t, http.StatusOK, rec.Code)

	form := decode[PredictForm](t, rec)
	assert.Equal(t, "Brooklyn", form.Borough)
	assert.Equal(t, []string{"Manhattan", "Brooklyn"}, form.Boroughs)
	assert.InDelta(t, 40.570, form.Latitude.Min, 1e-12)
	assert.InDelta(t, 40.739, form.Latitude.Max, 1e-12)
	assert.InDelta(t, 40.6545, form.Latitude.Value, 1e-9)
	assert.InDelta(t, -73.948, form.Longitude.Value, 1e-9)
	assert.InDelta(t, 0.001, form.Latitude.Step, 1e-12)
	assert.Len(t, form.Options["month"], 12)
	assert.Equal(t, "January", form.Options["month"][0])
	assert.Equal(t, []string{"Morning", "Night"}, form.Options["time_of_day"])
}

func TestPredictForm_DefaultsToFirstBorough(t *testing.T) {
	rec := do(t, New(formStore(), nil, nil, Options{}).Handler(), http.MethodGet, "/api/predict/form", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Manhattan", decode[PredictForm](t, rec).Borough)
}

func TestPredictForm_UnknownBorough(t *testing.T) {
	rec := do(t, New(formStore(), nil, nil, Options{}).Handler(), http.MethodGet, "/api/predict/form?borough=Hoboken", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredict_NoModel(t *testing.T) {
	rec := do(t, New(&mockStore{}, nil, nil, Options{}).Handler(), http.MethodPost, "/api/predict", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

const highInput = `{
	"borough": "Manhattan",
	"latitude": 40.765,
	"longitude": -73.97,
	"contributing_factor_category": "Human Error",
	"vehicle_category": "Passenger Vehicle",
	"month": "December",
	"day_of_week": "Monday",
	"time_of_day": "Night"
}`

func TestPredict(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	st := &mockStore{}
	st.On("Boroughs", mock.Anything).Return(testBoroughs, nil)
	st.On("AvgCrashRate", mock.Anything, store.CrashRateQuery{
		Borough: "Manhattan", TimeOfDay: "Night", Month: 12, Day: "Monday",
	}).Return(12.0, true, nil)

	h := New(st, testPredictor(t), m, Options{}).Handler()
	rec := do(t, h, http.MethodPost, "/api/predict", highInput)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[PredictResponse](t, rec)
	assert.Equal(t, "High", got.Label)
	assert.True(t, got.CrashRateFound)
	assert.InDelta(t, 12.0, got.CrashRate, 1e-12)
	assert.Empty(t, got.Missing)

	sum := 0.0
	for _, p := range got.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	n, err := testutil.GatherAndCount(m.Registry(), "collision_predictions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPredict_MissingCrashRateUsesZero(t *testing.T) {
	st := &mockStore{}
	st.On("Boroughs", mock.Anything).Return(testBoroughs, nil)
	st.On("AvgCrashRate", mock.Anything, mock.Anything).Return(0.0, false, nil)

	body := `{"borough":"Brooklyn","latitude":40.6,"longitude":-73.95,"month":1,"day_of_week":"Monday","time_of_day":"Morning"}`
	rec := do(t, New(st, testPredictor(t), nil, Options{}).Handler(), http.MethodPost, "/api/predict", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[PredictResponse](t, rec)
	assert.False(t, got.CrashRateFound)
	assert.Equal(t, 0.0, got.CrashRate)
	assert.NotEmpty(t, got.Label)
}

func TestPredict_BadRequests(t *testing.T) {
	st := &mockStore{}
	st.On("Boroughs", mock.Anything).Return(testBoroughs, nil)
	h := New(st, testPredictor(t), nil, Options{}).Handler()

	for name, body := range map[string]string{
		"malformed":       `{`,
		"no borough":      `{"latitude":40.7,"longitude":-73.9,"month":1,"day_of_week":"Monday","time_of_day":"Night"}`,
		"no coordinates":  `{"borough":"Manhattan","month":1,"day_of_week":"Monday","time_of_day":"Night"}`,
		"no month":        `{"borough":"Manhattan","latitude":40.75,"longitude":-73.95,"day_of_week":"Monday","time_of_day":"Night"}`,
		"bad month":       `{"borough":"Manhattan","latitude":40.75,"longitude":-73.95,"month":13,"day_of_week":"Monday","time_of_day":"Night"}`,
		"unknown borough": `{"borough":"Hoboken","latitude":40.75,"longitude":-73.95,"month":1,"day_of_week":"Monday","time_of_day":"Night"}`,
		"outside box":     `{"borough":"Manhattan","latitude":40.60,"longitude":-73.95,"month":1,"day_of_week":"Monday","time_of_day":"Night"}`,
	} {
		rec := do(t, h, http.MethodPost, "/api/predict", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	st.AssertNotCalled(t, "AvgCrashRate", mock.Anything, mock.Anything)
}

func TestParseMonthJSON(t *testing.T) {
	for raw, want := range map[string]int{`3`: 3, `"3"`: 3, `"Sept"`: 0, `"sep"`: 9, `"October"`: 10} {
		got, err := parseMonthJSON(json.RawMessage(raw))
		if want == 0 {
			assert.Error(t, err, raw)
			continue
		}
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := parseMonthJSON(json.RawMessage(`null`))
	assert.Error(t, err)
	_, err = parseMonthJSON(nil)
	assert.Error(t, err)
}

package dashboard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/feature"
	"github.com/sells-group/collision-cli/internal/geo"
	"github.com/sells-group/collision-cli/internal/ml"
	"github.com/sells-group/collision-cli/internal/store"
)

// sliderStep is the coordinate granularity offered by the prediction form.
const sliderStep = 0.001

// maxPredictBody bounds the prediction request body.
const maxPredictBody = 1 << 16

// Slider describes one coordinate input of the prediction form.
type Slider struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Value float64 `json:"value"`
	Step  float64 `json:"step"`
}

// PredictForm is the explicit state of the prediction form for one borough.
// Changing borough means requesting a new form.
type PredictForm struct {
	Borough   string              `json:"borough"`
	Boroughs  []string            `json:"boroughs"`
	Latitude  Slider              `json:"latitude"`
	Longitude Slider              `json:"longitude"`
	Options   map[string][]string `json:"options"`
}

// PredictRequest is the body of POST /api/predict. Month may be 1-12 or a name.
type PredictRequest struct {
	Borough                    string          `json:"borough"`
	Latitude                   *float64        `json:"latitude"`
	Longitude                  *float64        `json:"longitude"`
	ContributingFactorCategory string          `json:"contributing_factor_category"`
	VehicleCategory            string          `json:"vehicle_category"`
	Month                      json.RawMessage `json:"month"`
	DayOfWeek                  string          `json:"day_of_week"`
	TimeOfDay                  string          `json:"time_of_day"`
}

// PredictResponse is the classifier's answer plus the crash rate it was given.
type PredictResponse struct {
	ml.Prediction
	CrashRate      float64 `json:"crash_rate"`
	CrashRateFound bool    `json:"crash_rate_found"`
}

// formColumns are the select inputs offered by the prediction form.
var formColumns = []string{"contributing_factor_category", "vehicle_category", "day_of_week", "time_of_day"}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	bs, err := s.boroughs(r)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(bs) == 0 {
		s.writeError(w, http.StatusNotFound, "no boroughs loaded; run the load stage")
		return
	}

	name := r.URL.Query().Get("borough")
	if name == "" {
		name = bs[0].Name
	}
	b, ok := geo.Find(bs, name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown borough "+name)
		return
	}

	form := PredictForm{
		Borough:   b.Name,
		Boroughs:  make([]string, 0, len(bs)),
		Latitude:  slider(b.LatMin, b.LatMax),
		Longitude: slider(b.LonMin, b.LonMax),
		Options:   make(map[string][]string, len(formColumns)+1),
	}
	for _, x := range bs {
		form.Boroughs = append(form.Boroughs, x.Name)
	}
	for _, col := range formColumns {
		vals, err := s.distinctValues(r, col)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		form.Options[col] = vals
	}
	months := make([]string, 12)
	for m := 1; m <= 12; m++ {
		months[m-1] = feature.MonthName(m)
	}
	form.Options["month"] = months

	s.writeJSON(w, http.StatusOK, form)
}

func slider(lo, hi float64) Slider {
	return Slider{Min: lo, Max: hi, Value: (lo + hi) / 2, Step: sliderStep}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.predictor == nil {
		s.writeError(w, http.StatusServiceUnavailable, "model not loaded")
		return
	}

	var req PredictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	month, err := req.validate()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bs, err := s.boroughs(r)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	b, ok := geo.Find(bs, req.Borough)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown borough "+req.Borough)
		return
	}
	lat, lon := *req.Latitude, *req.Longitude
	if lat < b.LatMin || lat > b.LatMax || lon < b.LonMin || lon > b.LonMax {
		s.writeError(w, http.StatusBadRequest, "coordinates outside "+b.Name)
		return
	}

	rate, found, err := s.store.AvgCrashRate(r.Context(), store.CrashRateQuery{
		Borough:   req.Borough,
		TimeOfDay: req.TimeOfDay,
		Month:     month,
		Day:       req.DayOfWeek,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !found {
		s.log.Warn("no collisions match prediction inputs, crash rate set to 0",
			zap.String("borough", req.Borough),
			zap.String("time_of_day", req.TimeOfDay),
			zap.Int("month", month),
			zap.String("day_of_week", req.DayOfWeek),
		)
	}

	start := time.Now()
	pred, err := s.predictor.Predict(map[string]string{
		"borough":                      req.Borough,
		"time_of_day":                  req.TimeOfDay,
		"contributing_factor_category": req.ContributingFactorCategory,
		"vehicle_category":             req.VehicleCategory,
		"crash_rate":                   strconv.FormatFloat(rate, 'g', -1, 64),
		"latitude":                     strconv.FormatFloat(lat, 'g', -1, 64),
		"longitude":                    strconv.FormatFloat(lon, 'g', -1, 64),
		"month":                        strconv.Itoa(month),
		"day_of_week":                  req.DayOfWeek,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ObservePrediction(pred.Label)
	}
	s.log.Info("prediction served",
		zap.String("severity_category", pred.Label),
		zap.Duration("elapsed", time.Since(start)),
	)
	s.writeJSON(w, http.StatusOK, PredictResponse{Prediction: pred, CrashRate: rate, CrashRateFound: found})
}

// validate checks required fields and returns the month as 1..12.
func (req *PredictRequest) validate() (int, error) {
	switch {
	case req.Borough == "":
		return 0, eris.New("borough is required")
	case req.Latitude == nil || req.Longitude == nil:
		return 0, eris.New("latitude and longitude are required")
	case req.DayOfWeek == "":
		return 0, eris.New("day_of_week is required")
	case req.TimeOfDay == "":
		return 0, eris.New("time_of_day is required")
	}
	return parseMonthJSON(req.Month)
}

// parseMonthJSON accepts a JSON number 1-12 or a month name or numeric string.
func parseMonthJSON(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, eris.New("month is required")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 1 || n > 12 {
			return 0, eris.Errorf("invalid month %d", n)
		}
		return n, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, eris.Errorf("invalid month %s", raw)
	}
	m, ok := feature.ParseMonth(str)
	if !ok {
		return 0, eris.Errorf("invalid month %q", str)
	}
	return m, nil
}


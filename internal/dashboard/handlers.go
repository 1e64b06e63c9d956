package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	"github.com/sells-group/collision-cli/internal/model"
	"github.com/sells-group/collision-cli/internal/stats"
	"github.com/sells-group/collision-cli/internal/store"
)

// Cache keys.
const (
	keyStats    = "stats"
	keyBoroughs = "boroughs"
	keyValues   = "values:"
)

// UserStatistics summarizes one filtered query.
type UserStatistics struct {
	FilteredCollisions   int                `json:"filtered_collisions"`
	AvgCrashRate         float64            `json:"avg_crash_rate"`
	PeakCollisionTime    string             `json:"peak_collision_time"`
	SeverityDistribution map[string]float64 `json:"severity_distribution"`
}

// CollisionsResponse is the body of GET /api/collisions.
type CollisionsResponse struct {
	Count      int                  `json:"count"`
	Rows       []model.CollisionRow `json:"rows"`
	Statistics *UserStatistics      `json:"statistics,omitempty"`
	Selection  Selection            `json:"selection"`
}

// cached returns the value under key, loading and storing it on a miss.
// Load errors are not cached.
func cached[T any](s *Server, key string, load func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.Set(key, v, cache.DefaultExpiration)
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"model_ready": s.predictor != nil,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	gs, err := cached(s, keyStats, func() (*model.GlobalStatistics, error) {
		return s.store.GlobalStatistics(r.Context())
	})
	if errors.Is(err, store.ErrNoStatistics) {
		s.writeError(w, http.StatusNotFound, "global statistics not computed; run the load stage")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, gs)
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	column := chi.URLParam(r, "column")
	if !store.IsDistinctColumn(column) {
		s.writeError(w, http.StatusBadRequest, "unsupported column "+column)
		return
	}
	vals, err := s.distinctValues(r, column)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"column": column, "values": vals})
}

// distinctValues reads a column's values through the cache. Boroughs omit the
// Unknown placeholder so selections stay within the city.
func (s *Server) distinctValues(r *http.Request, column string) ([]string, error) {
	return cached(s, keyValues+column, func() ([]string, error) {
		vals, err := s.store.DistinctValues(r.Context(), column)
		if err != nil || column != "borough" {
			return vals, err
		}
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			if v != model.Unknown {
				out = append(out, v)
			}
		}
		return out, nil
	})
}

func (s *Server) boroughs(r *http.Request) ([]model.Borough, error) {
	return cached(s, keyBoroughs, func() ([]model.Borough, error) {
		return s.store.Boroughs(r.Context())
	})
}

func (s *Server) handleBoroughs(w http.ResponseWriter, r *http.Request) {
	bs, err := s.boroughs(r)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bs)
}

func (s *Server) handleCollisions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.store.QueryCollisions(r.Context(), f)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	resp := CollisionsResponse{Count: len(rows), Rows: model.Rows(rows), Selection: Describe(f)}
	if len(rows) > 0 {
		resp.Statistics = userStatistics(rows)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func userStatistics(rows []model.Collision) *UserStatistics {
	st := stats.Compute(rows)
	return &UserStatistics{
		FilteredCollisions:   st.TotalCollisions,
		AvgCrashRate:         st.AvgCrashRate,
		PeakCollisionTime:    st.PeakCollisionTime,
		SeverityDistribution: st.SeverityDistribution,
	}
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := s.store.QueryCollisions(r.Context(), f)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	points := make([][2]float64, 0, len(rows))
	for i := range rows {
		points = append(points, [2]float64{rows[i].Latitude, rows[i].Longitude})
	}
	s.writeJSON(w, http.StatusOK, points)
}

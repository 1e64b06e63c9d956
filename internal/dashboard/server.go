// Package dashboard serves the read-only collision explorer and severity
// predictor over HTTP.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/collision-cli/internal/metrics"
	"github.com/sells-group/collision-cli/internal/ml"
	"github.com/sells-group/collision-cli/internal/store"
)

// DefaultCacheTTL applies when Options.CacheTTL is zero.
const DefaultCacheTTL = 5 * time.Minute

// Options configures a Server.
type Options struct {
	CacheTTL    time.Duration
	CORSOrigins []string
}

// Server holds the dashboard's dependencies. The store and predictor are only
// read; the cache and metrics are safe for concurrent use.
type Server struct {
	store     store.Store
	predictor *ml.Predictor // nil disables the prediction endpoints
	metrics   *metrics.Metrics
	cache     *cache.Cache
	origins   []string
	log       *zap.Logger
}

// New creates a dashboard server. m may be nil.
func New(st store.Store, p *ml.Predictor, m *metrics.Metrics, opts Options) *Server {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:     st,
		predictor: p,
		metrics:   m,
		cache:     cache.New(ttl, 2*ttl),
		origins:   origins,
		log:       zap.L().With(zap.String("component", "dashboard")),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/values/{column}", s.handleValues)
		r.Get("/boroughs", s.handleBoroughs)
		r.Get("/collisions", s.handleCollisions)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/predict/form", s.handlePredictForm)
		r.Post("/predict", s.handlePredict)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "dashboard: listen")
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "dashboard: shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "dashboard: listen")
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

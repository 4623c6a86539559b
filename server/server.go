// Package server exposes the catalog and the ranker over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-nextbook/analytics"
	"github.com/aluiziolira/go-nextbook/catalog"
	"github.com/aluiziolira/go-nextbook/config"
	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/ranker"
)

type cacheKey struct {
	by    ranker.Mode
	query string
	n     int
}

// Server answers recommendation and dashboard requests for one immutable catalog.
type Server struct {
	cfg       config.RecommendConfig
	catalog   *catalog.Catalog
	cache     *lru.Cache[cacheKey, []models.Recommendation]
	validate  *validator.Validate
	Metrics   *Metrics
	dashboard analytics.Dashboard // catalog charts for cfg.TopK, no recommendations
}

// New builds a server for cat. A zero CacheSize disables result caching.
func New(cat *catalog.Catalog, cfg config.RecommendConfig) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("recommend config: %w", err)
	}
	if cat == nil {
		cat = catalog.New(nil)
	}

	s := &Server{
		cfg:       cfg,
		catalog:   cat,
		validate:  newValidator(cfg.MaxN),
		Metrics:   NewMetrics(),
		dashboard: analytics.Build(cat.Books(), nil, cfg.TopK),
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[cacheKey, []models.Recommendation](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create recommendation cache: %w", err)
		}
		s.cache = cache
	}
	s.Metrics.SetCatalogSize(cat.Len())
	return s, nil
}

// Recommend ranks the catalog for query, serving repeated requests from the
// cache. The second return value reports a cache hit.
func (s *Server) Recommend(by ranker.Mode, query string, n int) ([]models.Recommendation, bool, error) {
	// Ranking sees the same trimmed query the cache is keyed on.
	query = strings.TrimSpace(query)
	key := cacheKey{by: by, query: strings.ToLower(query), n: n}
	if s.cache != nil {
		if recs, ok := s.cache.Get(key); ok {
			s.Metrics.CacheHit()
			return slices.Clone(recs), true, nil
		}
		s.Metrics.CacheMiss()
	}

	start := time.Now()
	recs, err := ranker.Rank(by, query, s.catalog.Books(), n)
	if err != nil {
		return nil, false, err
	}
	s.Metrics.ObserveRank(string(by), time.Since(start))

	if s.cache != nil {
		s.cache.Add(key, slices.Clone(recs))
	}
	return recs, false, nil
}

// Dashboard returns chart data for the catalog with the rating comparison of recs.
func (s *Server) Dashboard(recs []models.Recommendation, top int) analytics.Dashboard {
	if top != s.cfg.TopK {
		return analytics.Build(s.catalog.Books(), recs, top)
	}
	d := s.dashboard
	d.Ratings = analytics.RatingComparison(recs)
	return d
}

// Router wires the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/view", s.handleView)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, codeNotFound, "no route for "+r.URL.Path)
	})
	return r
}

// ListenAndServe serves the router on cfg.Addr until ctx is cancelled, then
// shuts down within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("serving recommendations",
			slog.String("addr", cfg.Addr),
			slog.Int("books", s.catalog.Len()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]any{
		"status": "ok",
		"books":  s.catalog.Len(),
	}, Metadata{})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseOptionsRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	options := s.catalog.Titles()
	if req.By == string(ranker.ByAuthor) {
		options = s.catalog.Authors()
	}
	if options == nil {
		options = []string{}
	}
	respondData(w, options, Metadata{Count: len(options)})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, ViewRecommendations)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, ViewAnalytics)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, r, "")
}

// serveView builds the ViewState for a request and renders the selected view.
// An empty fixed view takes the view from the query string.
func (s *Server) serveView(w http.ResponseWriter, r *http.Request, fixed View) {
	req, err := s.parseRecommendRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	state := ViewState{
		View:  fixed,
		Query: req.Query,
		By:    ranker.Mode(req.By),
		N:     req.N,
		Top:   req.Top,
	}
	if state.View == "" {
		state.View = View(req.View)
	}

	render, err := SelectView(state)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	start := time.Now()
	page, err := render(s, state)
	if err != nil {
		if errors.Is(err, ranker.ErrInvalidArgument) {
			respondError(w, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		slog.Error("render view", slog.String("view", string(state.View)), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, codeInternal, "failed to render view")
		return
	}

	respondData(w, page.Data, Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Count:       page.Count,
		Cached:      page.Cached,
	})
}

// logRequests logs every request and records it in the HTTP metrics under
// its route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.Metrics.ObserveRequest(route, strconv.Itoa(status), elapsed)

		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
			slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

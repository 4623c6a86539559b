package server

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/aluiziolira/go-nextbook/catalog"
	"github.com/aluiziolira/go-nextbook/config"
	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/parser"
	"github.com/aluiziolira/go-nextbook/ranker"
)

func book(id, title, authors string, rating float64) *models.Book {
	return &models.Book{
		ID:            id,
		Title:         title,
		CleanTitle:    parser.CleanTitle(title),
		Authors:       authors,
		AverageRating: rating,
	}
}

func duneCatalog() *catalog.Catalog {
	return catalog.New([]*models.Book{
		book("1", "Dune", "Frank Herbert", 4.5),
		book("2", "Dune Messiah", "Frank Herbert", 4.0),
		book("3", "Foundation", "Isaac Asimov", 4.3),
	})
}

func newTestServer(t *testing.T, cat *catalog.Catalog) *Server {
	t.Helper()
	s, err := New(cat, config.DefaultConfig().Recommend)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s
}

type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *APIError       `json:"error"`
}

func get(t *testing.T, handler http.Handler, target string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v (body %q)", target, err, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	return rec.Code, env
}

func recTitles(t *testing.T, raw json.RawMessage) []string {
	t.Helper()
	var recs []models.Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		t.Fatalf("decode recommendations: %v", err)
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Title)
	}
	return out
}

func TestRecommendationsEndpoint(t *testing.T) {
	handler := newTestServer(t, duneCatalog()).Router()

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{name: "by title excludes self", target: "/api/v1/recommendations?q=Dune&by=title&n=2", want: []string{"Dune Messiah", "Foundation"}},
		{name: "by author", target: "/api/v1/recommendations?q=Frank+Herbert&by=author&n=5", want: []string{"Dune", "Dune Messiah", "Foundation"}},
		{name: "mode is case insensitive", target: "/api/v1/recommendations?q=isaac+asimov&by=AUTHOR&n=1", want: []string{"Foundation"}},
		{name: "default mode is title", target: "/api/v1/recommendations?q=Dune&n=1", want: []string{"Dune Messiah"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := get(t, handler, tt.target)
			if code != http.StatusOK || env.Status != "success" {
				t.Fatalf("code=%d status=%q error=%+v", code, env.Status, env.Error)
			}
			if got := recTitles(t, env.Data); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("titles = %v, want %v", got, tt.want)
			}
			if env.Metadata.Count != len(tt.want) {
				t.Fatalf("count = %d, want %d", env.Metadata.Count, len(tt.want))
			}
		})
	}
}

func TestRecommendationsValidation(t *testing.T) {
	handler := newTestServer(t, duneCatalog()).Router()

	tests := []struct {
		name    string
		target  string
		wantMsg string
	}{
		{name: "missing query", target: "/api/v1/recommendations?by=title", wantMsg: "q is required"},
		{name: "unknown mode", target: "/api/v1/recommendations?q=Dune&by=genre", wantMsg: "by must be one of"},
		{name: "zero n", target: "/api/v1/recommendations?q=Dune&n=0", wantMsg: "n must be at least 1"},
		{name: "n above max", target: "/api/v1/recommendations?q=Dune&n=11", wantMsg: "n must be at most 10"},
		{name: "non integer n", target: "/api/v1/recommendations?q=Dune&n=five", wantMsg: "n must be an integer"},
		{name: "unknown view", target: "/api/v1/view?q=Dune&view=settings", wantMsg: "view must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := get(t, handler, tt.target)
			if code != http.StatusBadRequest {
				t.Fatalf("code = %d, want 400", code)
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != codeValidation {
				t.Fatalf("unexpected envelope: %+v", env)
			}
			if !strings.Contains(env.Error.Message, tt.wantMsg) {
				t.Fatalf("message = %q, want it to contain %q", env.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestRecommendationsCached(t *testing.T) {
	s := newTestServer(t, duneCatalog())
	handler := s.Router()

	_, first := get(t, handler, "/api/v1/recommendations?q=Dune&n=2")
	if first.Metadata.Cached {
		t.Fatal("first request should not be cached")
	}
	_, second := get(t, handler, "/api/v1/recommendations?q=%20dune%20&n=2")
	if !second.Metadata.Cached {
		t.Fatal("repeat request with different case should hit the cache")
	}
	if !reflect.DeepEqual(recTitles(t, first.Data), recTitles(t, second.Data)) {
		t.Fatal("cached result differs from ranked result")
	}

	_, other := get(t, handler, "/api/v1/recommendations?q=Dune&n=1")
	if other.Metadata.Cached {
		t.Fatal("different n must not share a cache entry")
	}
}

func TestRecommendNoCache(t *testing.T) {
	cfg := config.DefaultConfig().Recommend
	cfg.CacheSize = 0
	s, err := New(duneCatalog(), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, cached, err := s.Recommend(ranker.ByTitle, "Dune", 2)
		if err != nil {
			t.Fatalf("recommend: %v", err)
		}
		if cached {
			t.Fatal("cache disabled, nothing should be cached")
		}
	}
}

func TestRecommendCachedResultIsCopy(t *testing.T) {
	s := newTestServer(t, duneCatalog())
	recs, _, err := s.Recommend(ranker.ByTitle, "Dune", 2)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	recs[0].Title = "mutated"

	again, cached, err := s.Recommend(ranker.ByTitle, "Dune", 2)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !cached || again[0].Title != "Dune Messiah" {
		t.Fatalf("cached=%v first=%q", cached, again[0].Title)
	}
}

func TestRecommendTrimsQueryBeforeCaching(t *testing.T) {
	s := newTestServer(t, duneCatalog())
	if _, _, err := s.Recommend(ranker.ByTitle, "Dune ", 2); err != nil {
		t.Fatalf("recommend: %v", err)
	}

	recs, cached, err := s.Recommend(ranker.ByTitle, "Dune", 2)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !cached {
		t.Fatal("query differing only in surrounding space should hit the cache")
	}
	want := []string{"Dune Messiah", "Foundation"}
	got := make([]string, 0, len(recs))
	for _, r := range recs {
		got = append(got, r.Title)
		if ranker.TitleSimilarity("Dune", r.Title) == 1.0 {
			t.Fatalf("cached result contains self match %q", r.Title)
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("titles = %v, want %v", got, want)
	}
}

func TestRecommendInvalidMode(t *testing.T) {
	s := newTestServer(t, duneCatalog())
	if _, _, err := s.Recommend(ranker.Mode("genre"), "Dune", 2); !errors.Is(err, ranker.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEmptyCatalog(t *testing.T) {
	handler := newTestServer(t, catalog.New(nil)).Router()

	code, env := get(t, handler, "/api/v1/recommendations?q=Dune")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if got := recTitles(t, env.Data); len(got) != 0 {
		t.Fatalf("expected no recommendations, got %v", got)
	}
	if string(env.Data) != "[]" {
		t.Fatalf("data = %s, want []", env.Data)
	}

	_, options := get(t, handler, "/api/v1/options")
	if string(options.Data) != "[]" {
		t.Fatalf("options = %s, want []", options.Data)
	}
}

func TestOptionsEndpoint(t *testing.T) {
	cat := catalog.New([]*models.Book{
		book("1", "Dune", "Frank Herbert", 4.5),
		book("2", "Dune", "Frank Herbert", 4.1),
		book("3", "Foundation", "Isaac Asimov", 4.3),
	})
	handler := newTestServer(t, cat).Router()

	tests := []struct {
		target string
		want   []string
	}{
		{target: "/api/v1/options", want: []string{"Dune", "Foundation"}},
		{target: "/api/v1/options?by=author", want: []string{"Frank Herbert", "Isaac Asimov"}},
	}
	for _, tt := range tests {
		code, env := get(t, handler, tt.target)
		if code != http.StatusOK {
			t.Fatalf("%s: code = %d", tt.target, code)
		}
		var got []string
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode options: %v", err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: options = %v, want %v", tt.target, got, tt.want)
		}
	}

	if code, _ := get(t, handler, "/api/v1/options?by=isbn"); code != http.StatusBadRequest {
		t.Fatalf("unknown option field: code = %d, want 400", code)
	}
}

func TestAnalyticsAndViewEndpoints(t *testing.T) {
	handler := newTestServer(t, duneCatalog()).Router()

	for _, target := range []string{
		"/api/v1/analytics?q=Dune&n=2&top=2",
		"/api/v1/view?view=analytics&q=Dune&n=2&top=2",
	} {
		code, env := get(t, handler, target)
		if code != http.StatusOK {
			t.Fatalf("%s: code = %d (%+v)", target, code, env.Error)
		}
		var page AnalyticsPage
		if err := json.Unmarshal(env.Data, &page); err != nil {
			t.Fatalf("decode analytics: %v", err)
		}
		if page.Query != "Dune" || page.By != ranker.ByTitle {
			t.Fatalf("page state = %q/%q", page.Query, page.By)
		}
		if len(page.Dashboard.Ratings) != 2 || page.Dashboard.Ratings[0].Label != "Dune Messiah" || page.Dashboard.Ratings[0].Value != 4.0 {
			t.Fatalf("ratings = %+v", page.Dashboard.Ratings)
		}
		if len(page.Dashboard.TopTitles) != 2 || len(page.Dashboard.TopAuthors) != 2 {
			t.Fatalf("top lists = %+v / %+v", page.Dashboard.TopTitles, page.Dashboard.TopAuthors)
		}
	}

	code, env := get(t, handler, "/api/v1/view?q=Dune&n=2")
	if code != http.StatusOK {
		t.Fatalf("default view: code = %d", code)
	}
	if got := recTitles(t, env.Data); !reflect.DeepEqual(got, []string{"Dune Messiah", "Foundation"}) {
		t.Fatalf("default view titles = %v", got)
	}
}

func TestSelectView(t *testing.T) {
	tests := []struct {
		view    View
		wantErr bool
	}{
		{view: ViewRecommendations},
		{view: ViewAnalytics},
		{view: ""},
		{view: "settings", wantErr: true},
	}
	for _, tt := range tests {
		render, err := SelectView(ViewState{View: tt.view})
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownView) {
				t.Fatalf("view %q: expected ErrUnknownView, got %v", tt.view, err)
			}
			continue
		}
		if err != nil || render == nil {
			t.Fatalf("view %q: render=%v err=%v", tt.view, render != nil, err)
		}
	}
}

func TestRenderersUseState(t *testing.T) {
	s := newTestServer(t, duneCatalog())
	state := ViewState{View: ViewRecommendations, Query: "Isaac Asimov", By: ranker.ByAuthor, N: 1, Top: 10}

	render, err := SelectView(state)
	if err != nil {
		t.Fatalf("select view: %v", err)
	}
	page, err := render(s, state)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	recs := page.Data.([]models.Recommendation)
	if len(recs) != 1 || recs[0].Title != "Foundation" || recs[0].Similarity != 1 {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, duneCatalog())
	handler := s.Router()

	code, env := get(t, handler, "/healthz")
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("healthz: code=%d status=%q", code, env.Status)
	}

	get(t, handler, "/api/v1/recommendations?q=Dune")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, metric := range []string{
		"nextbook_catalog_books 3",
		`nextbook_http_requests_total{route="/api/v1/recommendations",status="200"} 1`,
		`nextbook_recommendation_cache_lookups_total{result="miss"} 1`,
		"nextbook_rank_duration_seconds_count",
	} {
		if !strings.Contains(string(body), metric) {
			t.Fatalf("metrics output missing %q", metric)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	handler := newTestServer(t, duneCatalog()).Router()
	code, env := get(t, handler, "/api/v2/nothing")
	if code != http.StatusNotFound || env.Error == nil || env.Error.Code != codeNotFound {
		t.Fatalf("code=%d env=%+v", code, env)
	}
}

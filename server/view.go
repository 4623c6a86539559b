package server

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-nextbook/analytics"
	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/ranker"
)

// View names a page of the dashboard.
type View string

const (
	ViewRecommendations View = "recommendations"
	ViewAnalytics       View = "analytics"
)

// ErrUnknownView is returned by SelectView for a view it cannot render.
var ErrUnknownView = errors.New("server: unknown view")

// ViewState is everything a page needs to render. It is built per request
// and passed explicitly; nothing about the current page is kept on the server.
type ViewState struct {
	View  View
	Query string
	By    ranker.Mode
	N     int
	Top   int
}

// Page is a rendered view ready to be wrapped in a response.
type Page struct {
	Data   any
	Count  int
	Cached bool
}

// Renderer produces the page for a state.
type Renderer func(s *Server, state ViewState) (Page, error)

// AnalyticsPage is the analytics view: the recommendations it was built from
// and the dashboard charts.
type AnalyticsPage struct {
	Query           string                  `json:"query"`
	By              ranker.Mode             `json:"by"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Dashboard       analytics.Dashboard     `json:"dashboard"`
}

// SelectView returns the renderer for state.View. An empty view selects the
// recommendations page.
func SelectView(state ViewState) (Renderer, error) {
	switch state.View {
	case ViewRecommendations, "":
		return renderRecommendations, nil
	case ViewAnalytics:
		return renderAnalytics, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, state.View)
	}
}

func renderRecommendations(s *Server, state ViewState) (Page, error) {
	recs, cached, err := s.Recommend(state.By, state.Query, state.N)
	if err != nil {
		return Page{}, err
	}
	return Page{Data: recs, Count: len(recs), Cached: cached}, nil
}

func renderAnalytics(s *Server, state ViewState) (Page, error) {
	recs, cached, err := s.Recommend(state.By, state.Query, state.N)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Data: AnalyticsPage{
			Query:           state.Query,
			By:              state.By,
			Recommendations: recs,
			Dashboard:       s.Dashboard(recs, state.Top),
		},
		Count:  len(recs),
		Cached: cached,
	}, nil
}

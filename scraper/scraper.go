// Package scraper harvests book catalog records from paginated HTML listings.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-nextbook/config"
	"github.com/aluiziolira/go-nextbook/models"
	"github.com/aluiziolira/go-nextbook/pipeline"
)

// Listing selectors. A catalog page holds one article.book per record and a
// li.next link to the following page.
const (
	bookSelector = "article.book"
	nextSelector = "li.next a"
)

// Scraper harvests catalog records from paginated listing pages.
type Scraper struct {
	cfg       *config.HarvestConfig
	collector *colly.Collector
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	pageCount    int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.HarvestConfig) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Hostname(), parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(newTransport(cfg.Timeout))

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.retry = newRetryManager(cfg, s.Metrics)
	return s, nil
}

func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// Run crawls from the base URL and streams every catalog record into p.
// The returned result is complete once the collector and pending retries are done.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.HarvestResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(s.onRequest)
		s.collector.OnResponse(s.onResponse)
		s.collector.OnError(s.onError)
		s.collector.OnHTML(bookSelector, func(e *colly.HTMLElement) { s.onBook(e, p) })
		s.collector.OnHTML(nextSelector, func(e *colly.HTMLElement) { s.onNext(ctx, e) })
	})

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.retry.Stop()
		case <-done:
		}
	}()

	if err := s.collector.Visit(s.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("initial visit: %w", err)
	}

	// Retries re-enter the collector, so wait until no timer is pending.
	for {
		s.collector.Wait()
		if !s.retry.Pending() {
			break
		}
		s.retry.WaitIdle()
	}
	s.retry.Stop()

	result := &models.HarvestResult{
		StartTime:    start,
		EndTime:      time.Now(),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
		TotalCount:   int(p.Stats().Processed),
		RetryCount:   s.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		PageCount:    int(atomic.LoadInt64(&s.pageCount)),
	}

	slog.Debug("harvest finished",
		slog.Int("requests", result.RequestCount),
		slog.Int("pages", result.PageCount),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("elapsed", result.EndTime.Sub(start)),
	)
	return result, nil
}

func (s *Scraper) onRequest(r *colly.Request) {
	r.Ctx.Put("start", time.Now())
	current := atomic.AddInt64(&s.requestCount, 1)
	s.Metrics.IncRequest("started")
	if current%50 == 0 {
		slog.Debug("harvest request progress",
			slog.Int64("requests", current),
			slog.Int64("pages", atomic.LoadInt64(&s.pageCount)),
			slog.String("url", r.URL.String()),
		)
	}
}

func (s *Scraper) onResponse(r *colly.Response) {
	s.Metrics.IncRequest("completed")
	if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
		s.Metrics.ObserveDuration(time.Since(start))
	}
}

func (s *Scraper) onError(r *colly.Response, err error) {
	atomic.AddInt64(&s.errorCount, 1)
	statusCode := 0
	target := ""
	var resubmit func() error
	if r != nil {
		statusCode = r.StatusCode
		if r.Request != nil && r.Request.URL != nil {
			target = r.Request.URL.String()
			// Visit would refuse an already visited URL.
			resubmit = r.Request.Retry
		}
	}
	category := errorTypeLabel(classifyError(err, statusCode))

	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()
	s.Metrics.IncError(category)

	slog.Error("request error",
		slog.String("url", target),
		slog.Int("status", statusCode),
		slog.String("category", category),
		slog.Any("error", err),
	)

	if !retryable(category) || !s.retry.Schedule(target, resubmit) {
		s.mu.Lock()
		s.failedURLs = append(s.failedURLs, target)
		s.mu.Unlock()
	}
}

func (s *Scraper) onBook(e *colly.HTMLElement, p *pipeline.Pipeline) {
	raw := extractBook(e)
	if raw == nil {
		return
	}
	s.Metrics.IncItems()
	if err := p.Process(raw); err != nil && !errors.Is(err, pipeline.ErrPipelineClosed) {
		slog.Error("pipeline process error", slog.Any("error", err))
	}
}

func (s *Scraper) onNext(ctx context.Context, e *colly.HTMLElement) {
	currentPage := atomic.AddInt64(&s.pageCount, 1)
	s.Metrics.IncPages()
	if currentPage >= int64(s.cfg.MaxPages) || ctx.Err() != nil {
		return
	}
	next := e.Request.AbsoluteURL(e.Attr("href"))
	if next == "" {
		return
	}
	if err := s.collector.Visit(next); err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
		slog.Debug("next page visit failed", slog.String("url", next), slog.Any("error", err))
	}
}

// extractBook reads one catalog entry. Values are kept as text so that the
// pipeline applies the same coercion rules as the file loaders.
func extractBook(e *colly.HTMLElement) *models.RawBook {
	title := strings.TrimSpace(e.ChildAttr("h3 a", "title"))
	if title == "" {
		title = strings.TrimSpace(e.ChildText("h3 a"))
	}
	if title == "" {
		return nil
	}

	sourceURL := ""
	if href := e.ChildAttr("h3 a", "href"); href != "" {
		sourceURL = e.Request.AbsoluteURL(href)
	}

	published := strings.TrimSpace(e.ChildAttr("time.publication-date", "datetime"))
	if published == "" {
		published = strings.TrimSpace(e.ChildText("time.publication-date"))
	}

	return &models.RawBook{
		BookID:           strings.TrimSpace(e.Attr("data-book-id")),
		Title:            title,
		Authors:          strings.TrimSpace(e.ChildText(".authors")),
		AverageRating:    strings.TrimSpace(e.ChildText(".average-rating")),
		ISBN:             strings.TrimSpace(e.ChildText(".isbn")),
		ISBN13:           strings.TrimSpace(e.ChildText(".isbn13")),
		LanguageCode:     strings.TrimSpace(e.ChildText(".language")),
		NumPages:         strings.TrimSpace(e.ChildText(".num-pages")),
		RatingsCount:     strings.TrimSpace(e.ChildText(".ratings-count")),
		TextReviewsCount: strings.TrimSpace(e.ChildText(".text-reviews-count")),
		PublicationDate:  published,
		Publisher:        strings.TrimSpace(e.ChildText(".publisher")),
		SourceURL:        sourceURL,
	}
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-nextbook/config"
)

const defaultRetryBackoff = 100 * time.Millisecond

// retryManager re-issues failed requests after a capped exponential backoff.
type retryManager struct {
	cfg     *config.HarvestConfig
	metrics *Metrics
	ctx     context.Context

	mu           sync.Mutex
	idle         *sync.Cond
	attempts     map[string]int
	timers       map[string]*time.Timer
	pending      int // scheduled retries that have not yet been visited
	totalRetries int
	stopped      bool
}

func newRetryManager(cfg *config.HarvestConfig, metrics *Metrics) *retryManager {
	rm := &retryManager{
		cfg:      cfg,
		metrics:  metrics,
		ctx:      context.Background(),
		attempts: make(map[string]int),
		timers:   make(map[string]*time.Timer),
	}
	rm.idle = sync.NewCond(&rm.mu)
	return rm
}

// Schedule arranges for resubmit to run after the backoff for target and
// reports whether it did. It refuses once MaxRetries is reached for target
// or the manager stopped.
func (rm *retryManager) Schedule(target string, resubmit func() error) bool {
	if rm.cfg.MaxRetries == 0 || target == "" || resubmit == nil {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped || rm.ctx.Err() != nil {
		return false
	}

	attempt := rm.attempts[target]
	if attempt >= rm.cfg.MaxRetries {
		return false
	}
	attempt++
	rm.attempts[target] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()

	rm.stopTimerLocked(target)
	rm.pending++
	rm.timers[target] = time.AfterFunc(rm.backoff(attempt), func() {
		rm.fire(target, attempt, resubmit)
	})
	return true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	return backoffDelay(rm.cfg.RetryBackoff, rm.cfg.RetryBackoffMax, attempt)
}

// backoffDelay doubles base for every attempt after the first, capped at max
// when max is positive.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if base <= 0 {
		base = defaultRetryBackoff
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			break
		}
	}
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) stopTimerLocked(target string) {
	if timer, ok := rm.timers[target]; ok {
		if timer.Stop() {
			rm.pending--
		}
		delete(rm.timers, target)
	}
}

func (rm *retryManager) fire(target string, attempt int, resubmit func() error) {
	rm.mu.Lock()
	stopped := rm.stopped
	ctx := rm.ctx
	rm.mu.Unlock()

	if !stopped && ctx.Err() == nil {
		slog.Debug("retrying request", slog.String("url", target), slog.Int("attempt", attempt))
		if err := resubmit(); err != nil {
			slog.Debug("retry visit failed", slog.String("url", target), slog.Any("error", err))
		}
	}

	rm.mu.Lock()
	if rm.attempts[target] == attempt {
		delete(rm.timers, target)
	}
	rm.pending--
	rm.idle.Broadcast()
	rm.mu.Unlock()
}

// Pending reports whether a scheduled retry has not been visited yet.
func (rm *retryManager) Pending() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.pending > 0 && !rm.stopped
}

// WaitIdle blocks until every scheduled retry has been resubmitted or the
// manager is stopped.
func (rm *retryManager) WaitIdle() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for rm.pending > 0 && !rm.stopped {
		rm.idle.Wait()
	}
}

// Stop cancels every pending timer. It is safe to call more than once.
func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return
	}
	rm.stopped = true
	for target := range rm.timers {
		rm.stopTimerLocked(target)
	}
	rm.idle.Broadcast()
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	rm.ctx = ctx
}

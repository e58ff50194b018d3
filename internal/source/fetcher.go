package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"rdxflow/internal/models"
	"rdxflow/logger"
)

const (
	fetchAttempts = 3
	fetchBackoff  = 2 * time.Second
)

// Fetcher downloads bhavcopy CSVs over HTTP. The exchange endpoints throttle
// aggressively, so all requests share one rate limiter.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Entry
}

// NewFetcher builds a fetcher allowing rps requests per second with a burst
// of one.
func NewFetcher(rps float64, timeout time.Duration) *Fetcher {
	if rps <= 0 {
		rps = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     logger.GetLogger().WithComponent("fetcher"),
	}
}

// Fetch downloads and parses one CSV. Transient failures are retried with a
// fixed backoff; the context cancels both the wait and the request.
func (f *Fetcher) Fetch(ctx context.Context, url string) (models.RawTable, []models.Warning, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return models.RawTable{}, nil, err
		}

		table, warnings, err := f.fetchOnce(ctx, url)
		if err == nil {
			return table, warnings, nil
		}
		lastErr = err
		f.log.WithError(err).WithFields(logger.Fields{"url": url, "attempt": attempt}).Warn("fetch failed")

		select {
		case <-ctx.Done():
			return models.RawTable{}, nil, ctx.Err()
		case <-time.After(fetchBackoff):
		}
	}
	return models.RawTable{}, nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (models.RawTable, []models.Warning, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.RawTable{}, nil, err
	}
	// The NSE archive rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; rdxflow)")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.RawTable{}, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.RawTable{}, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return ReadTable(resp.Body)
}

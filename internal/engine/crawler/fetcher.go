package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"benchtop/internal/core/errors"
	"benchtop/internal/core/ports"
)

const maxPageBytes = 2 << 20

// HTTPFetcher fetches pages over net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = "benchtop-crawler"
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (ports.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ports.FetchedPage{}, errors.Wrap(err, errors.CodeValidationError, "build request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return ports.FetchedPage{}, errors.Wrap(err, errors.CodeNetwork, "GET "+rawURL)
	}
	defer resp.Body.Close()

	page := ports.FetchedPage{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return page, errors.New(errors.CodeNotFound, rawURL)
	case resp.StatusCode == http.StatusTooManyRequests:
		return page, errors.New(errors.CodeRateLimited, rawURL)
	case resp.StatusCode >= 400:
		return page, errors.New(errors.CodeNetwork, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	page.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return page, errors.Wrap(err, errors.CodeNetwork, "read "+rawURL)
	}
	return page, nil
}

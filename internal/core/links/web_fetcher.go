package links

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

const (
	defaultFetchTimeoutSeconds = 10
	globalLimiterBurst         = 5
	maxRedirects               = 10
	maxDrainBytes              = 64 * 1024
	domainLimiterRate          = 1
	domainLimiterBurst         = 2
)

// WebFetcher follows HTTP redirects to find where a link ends up.
type WebFetcher struct {
	client         *http.Client
	globalLimiter  *rate.Limiter
	domainLimiters map[string]*rate.Limiter
	mu             sync.RWMutex
	userAgent      string
}

func NewWebFetcher(rps float64, timeout time.Duration) *WebFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeoutSeconds * time.Second
	}

	return &WebFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.ErrTooManyRedirects
				}

				return nil
			},
		},
		globalLimiter:  rate.NewLimiter(rate.Limit(rps), globalLimiterBurst),
		domainLimiters: make(map[string]*rate.Limiter),
		userAgent:      "Mozilla/5.0 (compatible; AffiliateLinkBot/1.0)",
	}
}

// Resolve issues a GET for rawURL and returns the URL of the final response after redirects.
func (f *WebFetcher) Resolve(ctx context.Context, rawURL string) (string, error) {
	if err := f.globalLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("global rate limiter wait: %w", err)
	}

	domain := f.extractDomain(rawURL)

	domainLimiter := f.getDomainLimiter(domain)
	if err := domainLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("domain rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	// Drain a little so the connection can be reused; the body itself is not needed.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)) //nolint:errcheck // best-effort drain

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %d", errors.ErrHTTPStatusNotOK, resp.StatusCode)
	}

	return resp.Request.URL.String(), nil
}

func (f *WebFetcher) getDomainLimiter(domain string) *rate.Limiter {
	f.mu.RLock()
	limiter, exists := f.domainLimiters[domain]
	f.mu.RUnlock()

	if exists {
		return limiter
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if limiter, exists := f.domainLimiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(domainLimiterRate, domainLimiterBurst)
	f.domainLimiters[domain] = limiter

	return limiter
}

func (f *WebFetcher) extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}

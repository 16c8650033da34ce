// Package aliexpress converts AliExpress product links into affiliate links through the
// signed link.generate call of the AliExpress affiliate API.
package aliexpress

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/lueurxax/affiliate-link-bot/internal/core/attribution"
	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
	"github.com/lueurxax/affiliate-link-bot/internal/platform/observability"
)

// DefaultEndpoint is the production gateway.
const DefaultEndpoint = "https://api-sg.aliexpress.com/sync"

const (
	methodLinkGenerate = "aliexpress.affiliate.link.generate"
	signMethod         = "hmac-sha256"
	promotionLinkType  = "0"
	successCode        = 200

	defaultTimeout   = 10 * time.Second
	defaultRPS       = 5
	limiterBurst     = 5
	maxResponseBytes = 1 << 20

	cbName         = "aliexpress-api"
	cbMaxRequests  = 1
	cbInterval     = 60 * time.Second
	cbTimeout      = 30 * time.Second
	cbTripFailures = 5

	statusSuccess = "success"
	statusError   = "error"
	statusOpen    = "circuit_open"
)

// Config configures the client. Zero values pick defaults.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	RPS      float64
}

// Client calls the link generation API. It is safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	cb       *gobreaker.CircuitBreaker
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.RPS <= 0 {
		cfg.RPS = defaultRPS
	}

	c := &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), limiterBurst),
		logger:   logger,
		now:      time.Now,
	}

	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cbName,
		MaxRequests: cbMaxRequests,
		Interval:    cbInterval,
		Timeout:     cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbTripFailures
		},
		IsSuccessful: func(err error) bool {
			var ue *upstreamError

			return err == nil || errors.As(err, &ue)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				observability.AliExpressCircuitBreakerOpens.Inc()
			}

			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	return c
}

type generateResponse struct {
	Response struct {
		RespResult struct {
			RespCode int    `json:"resp_code"`
			RespMsg  string `json:"resp_msg"`
			Result   struct {
				PromotionLinks struct {
					PromotionLink []struct {
						PromotionLink string `json:"promotion_link"`
						SourceValue   string `json:"source_value"`
					} `json:"promotion_link"`
				} `json:"promotion_links"`
			} `json:"result"`
		} `json:"resp_result"`
	} `json:"aliexpress_affiliate_link_generate_response"`
}

// upstreamError wraps failures caused by the request itself rather than the service being
// unhealthy, so they do not count against the circuit breaker.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string {
	return e.err.Error()
}

func (e *upstreamError) Unwrap() error {
	return e.err
}

// PromotionLink returns the affiliate link for sourceURL. The query string of sourceURL is not
// sent; AliExpress identifies the product by path.
func (c *Client) PromotionLink(ctx context.Context, creds attribution.AliExpressProgram, sourceURL string) (string, error) {
	if creds.AppKey == "" || creds.AppSecret == "" || creds.TrackingID == "" {
		return "", errors.ErrMissingCredentials
	}

	source, err := stripQuery(sourceURL)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	params := map[string]string{
		"app_key":             creds.AppKey,
		"timestamp":           strconv.FormatInt(c.now().UnixMilli(), 10),
		"sign_method":         signMethod,
		"promotion_link_type": promotionLinkType,
		"source_values":       source,
		"tracking_id":         creds.TrackingID,
		"method":              methodLinkGenerate,
	}
	params["sign"] = Sign(creds.AppSecret, params)

	start := time.Now()

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, params)
	})

	observability.AliExpressLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		var ue *upstreamError
		if errors.As(err, &ue) {
			err = ue.err
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			observability.AliExpressRequests.WithLabelValues(statusOpen).Inc()

			return "", fmt.Errorf("%w: %w", errors.ErrCircuitBreakerOpen, err)
		}

		observability.AliExpressRequests.WithLabelValues(statusError).Inc()

		return "", err
	}

	observability.AliExpressRequests.WithLabelValues(statusSuccess).Inc()

	link, _ := out.(string)

	c.logger.Debug().Str("source", source).Str("link", link).Msg("AliExpress promotion link generated")

	return link, nil
}

func (c *Client) call(ctx context.Context, params map[string]string) (string, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", &upstreamError{err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %d", errors.ErrHTTPStatusNotOK, resp.StatusCode)
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return "", &upstreamError{err: err}
		}

		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	result := decoded.Response.RespResult
	if result.RespCode != successCode {
		return "", &upstreamError{err: fmt.Errorf("%w: code %d: %s", errors.ErrAPIResponse, result.RespCode, result.RespMsg)}
	}

	links := result.Result.PromotionLinks.PromotionLink
	if len(links) == 0 || links[0].PromotionLink == "" {
		return "", &upstreamError{err: errors.ErrNoPromotionLink}
	}

	return links[0].PromotionLink, nil
}

// Sign computes the request signature: the uppercase hex HMAC-SHA256, keyed by secret, of
// every parameter except "sign" concatenated as key+value in key order.
func Sign(secret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k != "sign" {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sb.String()))

	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func stripQuery(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

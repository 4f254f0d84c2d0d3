// Package bybit fetches the raw inputs the reconstruction core consumes:
// private execution history, the current position snapshot, and public
// market-trade archives. It owns transport, pacing and retries; the core
// never performs I/O.
package bybit

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
	"golang.org/x/time/rate"
)

const (
	// MainnetURL is the REST endpoint for live accounts.
	MainnetURL = "https://api.bybit.com"
	// TestnetURL is the REST endpoint for testnet accounts.
	TestnetURL = "https://api-testnet.bybit.com"
	// PublicDataURL hosts the daily market-trade archives.
	PublicDataURL = "https://public.bybit.com"

	// Private endpoints allow 120 requests/min; pace well under that.
	requestsPerSec = 1.5

	maxRetries    = 5
	baseRetryWait = 2 * time.Second
)

// Client is a bybit REST client with request pacing and a bounded retry
// policy. Transient failures (network errors, 429, 5xx) are retried with
// exponential backoff up to maxRetries and then surfaced as errors; there
// are no unbounded retry loops.
type Client struct {
	baseURL    string
	publicURL  string
	key        string
	secret     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryWait  time.Duration
	log        zerolog.Logger
}

// NewClient creates a bybit client. Testnet selects the testnet REST
// endpoint; public archive downloads always go to the production host.
func NewClient(key, secret string, testnet bool, log zerolog.Logger) *Client {
	baseURL := MainnetURL
	if testnet {
		baseURL = TestnetURL
	}
	return &Client{
		baseURL:    baseURL,
		publicURL:  PublicDataURL,
		key:        key,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		retryWait:  baseRetryWait,
		log:        log,
	}
}

// getSigned performs a signed private GET and decodes the envelope payload
// into out.
func (c *Client) getSigned(ctx context.Context, path string, params url.Values, out any) error {
	body, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		signed := c.sign(params)
		u := c.baseURL + path + "?" + signed
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("bybit: decode response: %w", err)
	}
	if env.RetCode != 0 {
		return fmt.Errorf("bybit: api error %d: %s", env.RetCode, env.RetMsg)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("bybit: decode result: %w", err)
		}
	}
	return nil
}

// doWithRetry paces, executes and retries a request. The request is rebuilt
// each attempt so signatures carry fresh timestamps.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("bybit: rate limiter: %w", err)
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("request failed")
			if !c.sleep(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("bybit: status %d", resp.StatusCode)
			c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("retrying")
			if !c.sleep(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("bybit: read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("bybit: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return body, nil
	}
	return nil, fmt.Errorf("bybit: request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) sleep(ctx context.Context, attempt int) bool {
	wait := c.retryWait << attempt
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}

// sign appends api_key and timestamp, then signs the alphabetically sorted
// query string with HMAC-SHA256.
func (c *Client) sign(params url.Values) string {
	v := url.Values{}
	for k, vals := range params {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	v.Set("api_key", c.key)
	v.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))

	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v.Get(k))
	}

	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(sb.String()))
	sb.WriteString("&sign=")
	sb.WriteString(hex.EncodeToString(mac.Sum(nil)))
	return sb.String()
}

// envelope is the common bybit response wrapper.
type envelope struct {
	RetCode int             `json:"ret_code"`
	RetMsg  string          `json:"ret_msg"`
	Result  json.RawMessage `json:"result"`
}

// Package webclient implements the shared HTTP client used by every crawl
// task. One instance is built per invocation; its configuration is
// immutable afterwards, so concurrent use needs no locking.
package webclient

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

// Options configure the client once, at construction.
type Options struct {
	Proxy     string
	Timeout   time.Duration
	Retry     int // total attempts; values below 1 mean 1
	UserAgent string
	HostQPS   float64 // per-host request budget; <= 0 disables limiting
	// LogFunc receives one line per request attempt. May be nil.
	LogFunc func(string)
}

// Client performs governed text GETs through a colly collector.
type Client struct {
	opts         Options
	base         *colly.Collector
	attempts     int
	baseDelay    time.Duration
	maxDelay     time.Duration
	hostLimiters sync.Map
}

// New builds a Client. The proxy URL is validated here so a bad value
// fails before any task starts.
func New(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	// colly v2.1.0's Async option ignores its argument and always enables
	// async mode; the collector default is already synchronous, so the
	// option is omitted rather than passed as Async(false).
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}
	c.SetRequestTimeout(opts.Timeout)
	if opts.Proxy != "" {
		if err := c.SetProxy(opts.Proxy); err != nil {
			return nil, fmt.Errorf("set proxy %s: %w", opts.Proxy, err)
		}
	}
	return &Client{
		opts:      opts,
		base:      c,
		attempts:  max(1, opts.Retry),
		baseDelay: 250 * time.Millisecond,
		maxDelay:  5 * time.Second,
	}, nil
}

// GetText fetches rawURL and returns the response body as text. Exactly
// one of the return values is set: a non-empty body, or an error.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.logf("retrying %s (attempt %d/%d) after %s", rawURL, attempt+1, c.attempts, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", fmt.Errorf("get %s: %w", rawURL, ctx.Err())
			}
		}
		if err := c.waitHostBudget(ctx, rawURL); err != nil {
			return "", fmt.Errorf("get %s: %w", rawURL, err)
		}

		body, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			if body == "" {
				err = errors.New("empty response body")
			} else {
				return body, nil
			}
		}
		lastErr = err
		c.logf("request failed: url=%s err=%v", rawURL, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}
	return "", fmt.Errorf("get %s: %w", rawURL, lastErr)
}

// fetchOnce runs a single request on a cloned collector. Colly visits
// synchronously, so the collector is driven in a goroutine and raced
// against the context.
func (c *Client) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	collector := c.base.Clone()

	var (
		body     string
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("visit failed: %w", err)
		}
		if fetchErr != nil {
			return "", fmt.Errorf("response failed: %w", fetchErr)
		}
		return body, nil
	}
}

func (c *Client) waitHostBudget(ctx context.Context, rawURL string) error {
	if c.opts.HostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := c.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(c.opts.HostQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

// backoff returns a jittered exponential delay for the given attempt.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func (c *Client) logf(format string, args ...any) {
	if c.opts.LogFunc != nil {
		c.opts.LogFunc(fmt.Sprintf(format, args...))
	}
}

// Package site implements the HTTP client for the target site: cookie and
// header assembly, proxying, throttling, bounded retries, and detection of
// expired logins.
package site

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"articlegrab/pkg/config"
	errs "articlegrab/pkg/errors"
	"articlegrab/pkg/logger"
	"articlegrab/pkg/ratelimit"
	"articlegrab/pkg/retry"
)

// loginPathMarkers in a response's final URL mean the site bounced us to a
// login page instead of serving content.
var loginPathMarkers = []string{"login", "passport", "signin"}

// Client issues requests against the target site with the configured
// cookies, headers and pacing.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
	maxRetries int
	endpoints  *Endpoints
}

// NewClient builds a client from the config. Cookies are joined into a
// single Cookie header; the XSRF token cookie, when present, is mirrored
// into the x-xsrf-token header the site expects.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	transport := &http.Transport{}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	endpoints := NewEndpoints(cfg)

	cookies := cfg.CleanCookies()
	var pairs []string
	for name, value := range cookies {
		pairs = append(pairs, name+"="+value)
	}

	headers := map[string]string{
		"user-agent": cfg.UserAgent,
		"accept":     "application/json, text/plain, */*",
		"referer":    endpoints.ProfilePath(),
	}
	if len(pairs) > 0 {
		headers["cookie"] = strings.Join(pairs, "; ")
	}
	if token := cookies[cfg.XSRFCookieName()]; token != "" {
		headers["x-xsrf-token"] = token
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.Request.RequestsPerMinute > 0 {
		limiter = ratelimit.NewTokenBucket(cfg.Request.RequestsPerMinute, time.Minute)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Request.Timeout(),
			Transport: transport,
		},
		headers:    headers,
		limiter:    limiter,
		logger:     log,
		maxRetries: cfg.Request.MaxRetries,
		endpoints:  endpoints,
	}, nil
}

// Endpoints exposes the expanded endpoint templates.
func (c *Client) Endpoints() *Endpoints {
	return c.endpoints
}

// SetHeader sets a custom header on every subsequent request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// do performs one throttled request and classifies transport failures.
func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	if !c.limiter.Allow() {
		c.logger.Debug("request throttled, waiting for rate limit")
		c.limiter.Wait()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		logger.LogFetch(rawURL, 0, duration, err)
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "request failed: %v", err)
	}
	logger.LogFetch(rawURL, resp.StatusCode, duration, nil)
	return resp, nil
}

// fetch performs a GET with bounded retries, returning the body bytes.
// Auth failures are detected here and never retried.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	op := func() ([]byte, error) {
		resp, err := c.do(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := c.checkAuth(resp); err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			typ := errs.ErrorTypeFetch
			if errs.IsRetryableStatusCode(resp.StatusCode) {
				typ = errs.ErrorTypeServer
			}
			return nil, errs.New(typ, resp.StatusCode, "unexpected status for %s", rawURL)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeNetwork, 0, "failed to read body: %v", err)
		}
		return body, nil
	}

	return retry.DoWithResult(op, &retry.Config{
		MaxAttempts: c.attempts(),
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	})
}

// checkAuth turns login bounces into a fatal typed error: once cookies are
// rejected every later request fails the same way.
func (c *Client) checkAuth(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errs.New(errs.ErrorTypeAuth, resp.StatusCode,
			"authentication rejected, refresh your cookies")
	}
	if resp.Request != nil && resp.Request.URL != nil {
		final := strings.ToLower(resp.Request.URL.Path)
		for _, marker := range loginPathMarkers {
			if strings.Contains(final, marker) {
				return errs.New(errs.ErrorTypeAuth, resp.StatusCode,
					"redirected to login page, refresh your cookies")
			}
		}
	}
	return nil
}

func (c *Client) attempts() int {
	if c.maxRetries <= 0 {
		return 1
	}
	return c.maxRetries
}

// GetJSON fetches a URL and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errs.New(errs.ErrorTypeParse, 0, "failed to decode JSON from %s: %v", rawURL, err)
	}
	return nil
}

// GetHTML fetches a URL and returns the response body as a string.
func (c *Client) GetHTML(ctx context.Context, rawURL string) (string, error) {
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Download fetches a binary asset (image). Unlike page fetches, a 401/403
// here is not treated as an expired login: CDN hosts reject hotlinked
// requests independently of the session.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	op := func() ([]byte, error) {
		resp, err := c.do(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			typ := errs.ErrorTypeFetch
			if errs.IsRetryableStatusCode(resp.StatusCode) {
				typ = errs.ErrorTypeServer
			}
			return nil, errs.New(typ, resp.StatusCode, "unexpected status for %s", rawURL)
		}
		return io.ReadAll(resp.Body)
	}

	return retry.DoWithResult(op, &retry.Config{
		MaxAttempts: c.attempts(),
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	})
}

// VerifyLogin probes the profile endpoint and returns the target's screen
// name. A failure here means the run cannot proceed.
func (c *Client) VerifyLogin(ctx context.Context) (string, error) {
	var profile ProfileResponse
	if err := c.GetJSON(ctx, c.endpoints.ProfileURL(), &profile); err != nil {
		return "", fmt.Errorf("login verification failed: %w", err)
	}
	name := profile.Data.User.ScreenName
	if name == "" {
		name = "unknown"
	}
	return name, nil
}

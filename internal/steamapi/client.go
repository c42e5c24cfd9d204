// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package steamapi

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/offline"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// Configuration constants for the Steam Web API.
const (
	// DefaultBaseURL is the Steam Web API host.
	DefaultBaseURL = "https://api.steampowered.com"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultRequestsPerSecond keeps well under Steam's per-key quota.
	DefaultRequestsPerSecond = 1.0

	// retryBaseDelay is the first backoff step.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps a single backoff step.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize bounds JSON responses.
	MaxResponseSize = 1 << 20

	// MaxAvatarSize bounds avatar downloads.
	MaxAvatarSize = 2 << 20

	// ValidationSteamID is the account looked up to test a key.
	ValidationSteamID = "76561197960435530"

	// maxIDsPerRequest is GetPlayerSummaries' limit.
	maxIDsPerRequest = 100

	playerSummariesPath = "/ISteamUser/GetPlayerSummaries/v2/"
	userAgent           = "sam/1.0"
)

// PERFORMANCE: one pooled transport for every client.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 4,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Steam Web API. Safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	retryBase  time.Duration
	log        *logrus.Entry
}

// NewClient creates a client for apiKey with default settings.
func NewClient(apiKey string, logger *logrus.Logger) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: sharedTransport,
		},
		limiter:    newLimiter(DefaultRequestsPerSecond),
		maxRetries: DefaultMaxRetries,
		retryBase:  retryBaseDelay,
		log:        logging.Component(logger, "steamapi"),
	}
}

func newLimiter(rps float64) *rate.Limiter {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// WithBaseURL sets the API host, mainly for tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithRateLimit sets the sustained request rate. Zero or less disables it.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	c.limiter = newLimiter(rps)
	return c
}

// WithMaxRetries sets how many times a retryable failure is retried.
func (c *Client) WithMaxRetries(n uint64) *Client {
	c.maxRetries = n
	return c
}

// WithRetryBase sets the first backoff delay.
func (c *Client) WithRetryBase(d time.Duration) *Client {
	c.retryBase = d
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint identifies the key in logs without exposing it.
func (c *Client) KeyFingerprint() string {
	return KeyFingerprint(c.apiKey)
}

// KeyFingerprint returns the first 8 hex chars of sha256(key), or "none".
func KeyFingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// APIKeyMasked describes the key without revealing any of it.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.KeyFingerprint())
}

// =============================================================================
// PLAYER SUMMARIES
// =============================================================================

// GetPlayerSummary fetches one player's public profile.
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*Player, error) {
	players, err := c.GetPlayerSummaries(ctx, []string{steamID})
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, steamID)
	}
	return &players[0], nil
}

// GetPlayerSummaries fetches profiles for many IDs, batching by 100.
// Players Steam does not know are simply absent from the result.
func (c *Client) GetPlayerSummaries(ctx context.Context, steamIDs []string) ([]Player, error) {
	if !c.IsConfigured() {
		return nil, ErrNoAPIKey
	}
	for _, id := range steamIDs {
		if !util.IsDigits(id) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSteamID, id)
		}
	}

	var players []Player
	for _, batch := range lo.Chunk(lo.Uniq(steamIDs), maxIDsPerRequest) {
		q := url.Values{}
		q.Set("key", c.apiKey)
		q.Set("steamids", strings.Join(batch, ","))

		body, err := c.get(ctx, c.baseURL+playerSummariesPath+"?"+q.Encode(), MaxResponseSize)
		if err != nil {
			return nil, err
		}

		var resp summariesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse player summaries: %w", err)
		}
		players = append(players, resp.Response.Players...)
	}
	return players, nil
}

// ValidateKey checks the configured key with a known public profile. Any
// non-success response means the key is unusable.
func (c *Client) ValidateKey(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrNoAPIKey
	}
	_, err := c.GetPlayerSummaries(ctx, []string{ValidationSteamID})
	if err != nil {
		c.log.WithError(err).WithField("key", c.KeyFingerprint()).Warn("API key validation failed")
		return err
	}
	c.log.WithField("key", c.KeyFingerprint()).Info("API key validated")
	return nil
}

// =============================================================================
// AVATARS
// =============================================================================

// Avatar is a downloaded avatar image.
type Avatar struct {
	URL  string
	Ext  string // ".png" or ".jpg"
	Data []byte
}

// FetchAvatar downloads the player's largest avatar. For a .jpg URL the
// .png variant is tried first.
func (c *Client) FetchAvatar(ctx context.Context, p *Player) (*Avatar, error) {
	src := p.AvatarURL()
	if src == "" {
		return nil, ErrNoAvatar
	}

	candidates := []string{src}
	if strings.HasSuffix(strings.ToLower(src), ".jpg") {
		candidates = []string{src[:len(src)-len(".jpg")] + ".png", src}
	}

	var lastErr error
	for _, u := range candidates {
		data, err := c.get(ctx, u, MaxAvatarSize)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, offline.ErrNetworkBlocked) {
				return nil, err
			}
			lastErr = err
			continue
		}
		return &Avatar{URL: u, Ext: avatarExt(u), Data: data}, nil
	}
	return nil, fmt.Errorf("failed to download avatar: %w", lastErr)
}

func avatarExt(u string) string {
	if parsed, err := url.Parse(u); err == nil && strings.HasSuffix(strings.ToLower(parsed.Path), ".png") {
		return ".png"
	}
	return ".jpg"
}

// =============================================================================
// TRANSPORT
// =============================================================================

// get performs a rate-limited GET with retries on 429, 5xx and transport
// errors.
func (c *Client) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	if err := offline.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	b := retry.NewExponential(c.retryBase)
	b = retry.WithCappedDuration(retryMaxDelay, b)
	b = retry.WithMaxRetries(c.maxRetries, b)

	var body []byte
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		data, err := c.once(ctx, rawURL, limit)
		if err != nil {
			if isRetryable(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, image/*")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	// The query carries the key, so only the path is logged.
	c.log.WithFields(logrus.Fields{
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
		"key":      c.KeyFingerprint(),
	}).Debug("steam api request")

	body, err := readResponse(resp, limit)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// readResponse reads at most limit bytes and fails if the body is larger.
func readResponse(resp *http.Response, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", limit)
	}
	return body, nil
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// redactURLError strips the query string (which holds the key) from
// *url.Error messages.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if parsed, perr := url.Parse(urlErr.URL); perr == nil {
			parsed.RawQuery = ""
			urlErr.URL = parsed.String()
		}
	}
	return err
}

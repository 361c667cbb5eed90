package fusionsolar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Endpoint paths, relative to the base URL.
const (
	PathLogin         = "/thirdData/login"
	PathLogout        = "/thirdData/logout"
	PathStationList   = "/thirdData/getStationList"
	PathStationReal   = "/thirdData/getStationRealKpi"
	PathStationHour   = "/thirdData/getKpiStationHour"
	PathStationDay    = "/thirdData/getKpiStationDay"
	PathStationMonth  = "/thirdData/getKpiStationMonth"
	PathDeviceList    = "/thirdData/getDevList"
	PathAlarmList     = "/thirdData/getAlarmList"
	tokenHeader       = "XSRF-TOKEN"
	maxResponseBytes  = 16 << 20
	defaultRetries    = 3
	defaultTimeout    = 30 * time.Second
	defaultBackoff    = time.Second
	sessionLifetime   = 25 * time.Minute
	contentTypeJSON   = "application/json"
	errorBodyPreview  = 200
	backoffMultiplier = 2
)

// Options configure a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string

	// Timeout bounds each HTTP attempt. Zero means 30s.
	Timeout time.Duration

	// Retries is the number of attempts per request. Zero means 3.
	Retries int

	// InitialBackoff is the first wait between attempts. Zero means 1s.
	InitialBackoff time.Duration

	// HTTPClient overrides the transport. Nil builds one from Timeout.
	HTTPClient *http.Client

	// Logger receives request events. Nil discards logs.
	Logger *zerolog.Logger

	// Clock returns the current time. Nil means time.Now.
	Clock func() time.Time
}

// Client talks to the northbound API. It keeps one session and renews it
// before it expires or when the API rejects the token.
type Client struct {
	baseURL  string
	username string
	password string
	retries  int
	backoff  time.Duration
	http     *http.Client
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// envelope is the common response wrapper.
type envelope struct {
	Success  bool            `json:"success"`
	FailCode int             `json:"failCode"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
}

// NewClient creates a client. Credentials are only checked at login.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("fusionsolar: base URL is required")
	}

	c := &Client{
		baseURL:  base,
		username: opts.Username,
		password: opts.Password,
		retries:  opts.Retries,
		backoff:  opts.InitialBackoff,
		http:     opts.HTTPClient,
		logger:   zerolog.Nop(),
		now:      opts.Clock,
	}
	if c.retries <= 0 {
		c.retries = defaultRetries
	}
	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With().Str("component", "fusionsolar").Logger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// SystemCode returns the SHA-256 hex digest the login endpoint expects in
// place of the password.
func SystemCode(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login opens a new session.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return ErrMissingCredentials
	}

	c.logger.Info().Ctx(ctx).Str("user", c.username).Msg("logging in")

	body := map[string]string{
		"userName":   c.username,
		"systemCode": SystemCode(c.password),
	}
	env, header, err := c.post(ctx, PathLogin, "", body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusOK {
			return fmt.Errorf("%w: %s", ErrLoginFailed, apiErr.Message)
		}
		return err
	}

	token := header.Get(tokenHeader)
	if token == "" {
		var dataToken string
		if json.Unmarshal(env.Data, &dataToken) == nil {
			token = dataToken
		}
	}
	if token == "" {
		return ErrNoToken
	}

	c.token = token
	c.tokenExp = c.now().Add(sessionLifetime)
	c.logger.Debug().Ctx(ctx).Time("expires", c.tokenExp).Msg("session opened")
	return nil
}

// Logout closes the session. Errors from the API are logged and the local
// session is dropped regardless.
func (c *Client) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" {
		return
	}
	if _, _, err := c.post(ctx, PathLogout, c.token, map[string]string{"xsrfToken": c.token}); err != nil {
		c.logger.Warn().Ctx(ctx).Err(err).Msg("logout failed")
	}
	c.token = ""
	c.tokenExp = time.Time{}
	c.logger.Info().Ctx(ctx).Msg("logged out")
}

// SessionValid reports whether the current session can still be used.
func (c *Client) SessionValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionValidLocked()
}

func (c *Client) sessionValidLocked() bool {
	return c.token != "" && c.now().Before(c.tokenExp)
}

// Fetch performs req against the live API and returns the envelope's data.
func (c *Client) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	return c.Do(ctx, req.Path, req.Body)
}

// Do posts body to path with the session token, logging in first when
// needed. Transport failures and 5xx responses are retried with exponential
// backoff. An authentication failure triggers one re-login per attempt.
func (c *Client) Do(ctx context.Context, path string, body any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sessionValidLocked() {
		if err := c.loginLocked(ctx); err != nil {
			return nil, err
		}
	}

	var data json.RawMessage
	attempt := 0
	operation := func() error {
		attempt++
		env, _, err := c.post(ctx, path, c.token, body)
		if err != nil && IsAuthError(err) {
			c.logger.Info().Ctx(ctx).Str("path", path).Msg("session rejected, logging in again")
			if loginErr := c.loginLocked(ctx); loginErr != nil {
				return backoff.Permanent(loginErr)
			}
			env, _, err = c.post(ctx, path, c.token, body)
		}
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			c.logger.Warn().Ctx(ctx).Err(err).
				Str("path", path).
				Int("attempt", attempt).
				Int("max_attempts", c.retries).
				Msg("request failed")
			return err
		}
		data = env.Data
		return nil
	}

	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	b.Multiplier = backoffMultiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries-1)), ctx)
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// Transport errors.
	return true
}

// post sends one request and decodes the envelope. A success=false envelope
// becomes an *APIError.
func (c *Client) post(ctx context.Context, path, token string, body any) (*envelope, http.Header, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, backoff.Permanent(fmt.Errorf("encoding %s request: %w", path, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("calling %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s response: %w", path, err)
	}

	c.logger.Debug().Ctx(ctx).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", c.now().Sub(start)).
		Msg("api call")

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    preview(raw),
		}
	}

	var env envelope
	if err = json.Unmarshal(raw, &env); err != nil {
		return nil, nil, &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    "malformed response: " + preview(raw),
		}
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, nil, &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			FailCode:   env.FailCode,
			Message:    msg,
		}
	}
	return &env, resp.Header, nil
}

func preview(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > errorBodyPreview {
		s = s[:errorBodyPreview] + "..."
	}
	return s
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL        = "https://www.lingq.com"
	defaultLanguage       = "ja"
	defaultMaxRetries     = 4
	defaultBaseDelay      = time.Second
	defaultRateLimitDelay = 10 * time.Second
	defaultMaxDelay       = 2 * time.Minute
	defaultTimeout        = 30 * time.Second
	defaultPageSize       = 100

	// tokenType yields the header "Authorization: Token <key>".
	tokenType = "Token"
)

// ClientOpts configures a [Client]. Zero values fall back to defaults.
type ClientOpts struct {
	APIKey            string
	BaseURL           string // API host
	WebURL            string // host used for human-navigable links, defaults to BaseURL
	Language          string
	MaxRetries        int // total attempts per request
	BaseDelay         time.Duration
	RateLimitDelay    time.Duration // base delay after a 429
	MaxDelay          time.Duration
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 disables pacing
	PageSize          int
	Transport         http.RoundTripper
	Logger            *log.Logger
	Sleep             func(ctx context.Context, d time.Duration) error
}

// ClientOptsFromConfig maps the [api] section of cfg to client options.
func ClientOptsFromConfig(cfg *shared.Config, apiKey string) ClientOpts {
	return ClientOpts{
		APIKey:            apiKey,
		BaseURL:           cfg.API.BaseURL,
		WebURL:            cfg.API.WebURL,
		Language:          cfg.API.Language,
		MaxRetries:        cfg.API.MaxRetries,
		BaseDelay:         cfg.API.BaseDelay.Duration,
		RateLimitDelay:    cfg.API.RateLimitDelay.Duration,
		Timeout:           cfg.API.Timeout.Duration,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		PageSize:          cfg.API.PageSize,
	}
}

// Client executes authenticated requests against the lesson API.
type Client struct {
	baseURL        string
	webURL         string
	language       string
	maxRetries     int
	baseDelay      time.Duration
	rateLimitDelay time.Duration
	maxDelay       time.Duration
	pageSize       int
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         *log.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client. An empty API key is rejected before any request is made.
func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: API key is empty", shared.ErrMissingCredentials)
	}

	c := &Client{
		baseURL:        strings.TrimRight(orDefault(opts.BaseURL, defaultBaseURL), "/"),
		language:       orDefault(opts.Language, defaultLanguage),
		maxRetries:     opts.MaxRetries,
		baseDelay:      opts.BaseDelay,
		rateLimitDelay: opts.RateLimitDelay,
		maxDelay:       opts.MaxDelay,
		pageSize:       opts.PageSize,
		logger:         opts.Logger,
		sleep:          opts.Sleep,
	}
	c.webURL = strings.TrimRight(orDefault(opts.WebURL, c.baseURL), "/")

	if c.maxRetries < 1 {
		c.maxRetries = defaultMaxRetries
	}
	if c.baseDelay <= 0 {
		c.baseDelay = defaultBaseDelay
	}
	if c.rateLimitDelay <= 0 {
		c.rateLimitDelay = defaultRateLimitDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = defaultMaxDelay
	}
	if c.pageSize < 1 {
		c.pageSize = defaultPageSize
	}
	if c.logger == nil {
		c.logger = shared.DiscardLogger()
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}

	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.httpClient = &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: tokenType}),
			Base:   base,
		},
	}

	return c, nil
}

// Language returns the language code used in endpoint paths.
func (c *Client) Language() string { return c.language }

// MaxRetries returns the default attempt bound.
func (c *Client) MaxRetries() int { return c.maxRetries }

// LessonURL returns the reader link for a lesson.
func (c *Client) LessonURL(id int) string {
	return fmt.Sprintf("%s/learn/%s/web/reader/%d", c.webURL, c.language, id)
}

// CollectionURL returns the library link for a collection.
func (c *Client) CollectionURL(id int) string {
	return fmt.Sprintf("%s/learn/%s/web/library/course/%d", c.webURL, c.language, id)
}

// Request describes one logical API call. Retries resend the same body.
type Request struct {
	Method      string
	Endpoint    string // path relative to the base URL, or an absolute URL
	Body        []byte
	ContentType string
	MaxRetries  int    // 0 uses the client default
	ResourceURL string // link reported on failure, defaults to the request URL
}

// Response is the successful result of [Client.Execute].
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

// RequestError is returned when a request ends without success.
// It unwraps to the sentinel of the final outcome, and to [shared.ErrRetriesExhausted]
// when the attempt bound was reached.
type RequestError struct {
	Method      string
	Endpoint    string
	ResourceURL string
	Attempts    int
	Outcome     models.RequestOutcome
	Err         error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %v", e.Method, e.Endpoint, e.Err)
	if e.Outcome.LockReason != "" {
		fmt.Fprintf(&b, " (%s)", e.Outcome.LockReason)
	}
	if e.Outcome.StatusCode != 0 {
		fmt.Fprintf(&b, " [status %d]", e.Outcome.StatusCode)
	}
	fmt.Fprintf(&b, " after %d attempt(s)", e.Attempts)
	if e.ResourceURL != "" {
		fmt.Fprintf(&b, "; see %s", e.ResourceURL)
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// Execute sends req, retrying retryable outcomes with exponential backoff.
// At most max(1, MaxRetries) attempts are made. Cancelling ctx stops the loop immediately.
//
// Rate-limited responses wait on their own, longer schedule and honour a larger Retry-After.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	target := c.resolve(req.Endpoint)
	if req.ResourceURL == "" {
		req.ResourceURL = target
	}
	maxAttempts := req.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = c.maxRetries
	}

	fail := func(attempts int, outcome models.RequestOutcome, err error) error {
		return &RequestError{
			Method:      req.Method,
			Endpoint:    req.Endpoint,
			ResourceURL: req.ResourceURL,
			Attempts:    attempts,
			Outcome:     outcome,
			Err:         err,
		}
	}

	schedule := c.newSchedule()
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if maxAttempts > 1 {
		policy = backoff.WithMaxRetries(schedule, uint64(maxAttempts-1))
	}
	policy = backoff.WithContext(policy, ctx)

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fail(attempt-1, models.RequestOutcome{}, fmt.Errorf("%w: %w", shared.ErrAborted, err))
		}

		ex, err := c.send(ctx, req.Method, target, req.Body, req.ContentType)
		if err != nil {
			return nil, fail(attempt, models.RequestOutcome{Status: models.OutcomeFatal}, err)
		}
		outcome := ex.outcome
		if outcome.Status == models.OutcomeSuccess {
			ex.resp.Attempts = attempt
			return ex.resp, nil
		}

		if outcome.Status == models.OutcomeLocked && !KnownLockReason(outcome.LockReason) {
			c.logger.Warn("unrecognised lock reason", "reason", outcome.LockReason, "endpoint", req.Endpoint)
		}
		if !outcome.Status.Retryable() {
			return nil, fail(attempt, outcome, ex.kind)
		}

		schedule.observe(outcome, ex.resp)
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			if err := ctx.Err(); err != nil {
				return nil, fail(attempt, outcome, fmt.Errorf("%w: %w", shared.ErrAborted, err))
			}
			return nil, fail(attempt, outcome, fmt.Errorf("%w: %w", shared.ErrRetriesExhausted, ex.kind))
		}

		c.logger.Warn("retrying request",
			"method", req.Method,
			"endpoint", req.Endpoint,
			"attempt", attempt,
			"max", maxAttempts,
			"outcome", outcome.Status,
			"reason", outcome.LockReason,
			"delay", delay,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fail(attempt, outcome, fmt.Errorf("%w: %w", shared.ErrAborted, err))
		}
	}
}

// exchange is the classified result of one round trip. resp is nil when no response arrived.
type exchange struct {
	resp    *Response
	outcome models.RequestOutcome
	kind    error // sentinel for a non-success outcome
}

// send performs one round trip. A non-nil error means the retry loop must stop.
func (c *Client) send(ctx context.Context, method, target string, body []byte, contentType string) (*exchange, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", shared.ErrAPIRequest, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrAborted, ctxErr)
		}
		c.logger.Debug("transport error", "url", target, "error", err)
		return &exchange{
			outcome: models.RequestOutcome{Status: models.OutcomeTransient, Detail: err.Error()},
			kind:    shared.ErrTransient,
		}, nil
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrAborted, ctxErr)
		}
		return &exchange{
			outcome: models.RequestOutcome{Status: models.OutcomeTransient, StatusCode: httpResp.StatusCode, Detail: err.Error()},
			kind:    shared.ErrTransient,
		}, nil
	}

	outcome, kind := classify(httpResp.StatusCode, data)
	c.logger.Debug("response", "method", method, "url", target, "status", httpResp.StatusCode, "outcome", outcome.Status)
	return &exchange{
		resp:    &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data},
		outcome: outcome,
		kind:    kind,
	}, nil
}

// retrySchedule is a [backoff.BackOff] keeping one exponential schedule for rate limits and one for
// every other retryable outcome. The schedule used for the next wait follows the last observed outcome.
type retrySchedule struct {
	standard    *backoff.ExponentialBackOff
	rateLimited *backoff.ExponentialBackOff
	maxDelay    time.Duration
	last        models.RequestOutcome
	retryAfter  time.Duration
}

func (c *Client) newSchedule() *retrySchedule {
	return &retrySchedule{
		standard:    exponential(c.baseDelay, c.maxDelay),
		rateLimited: exponential(c.rateLimitDelay, c.maxDelay),
		maxDelay:    c.maxDelay,
	}
}

// exponential doubles from initial without jitter or an elapsed-time limit.
func exponential(initial, maxDelay time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// observe records the outcome the next wait is for. A Retry-After header only counts after a 429.
func (s *retrySchedule) observe(outcome models.RequestOutcome, resp *Response) {
	s.last = outcome
	s.retryAfter = 0
	if outcome.Status == models.OutcomeRateLimited && resp != nil {
		if after, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			s.retryAfter = after
		}
	}
}

// NextBackOff implements [backoff.BackOff]. Waits never exceed maxDelay.
func (s *retrySchedule) NextBackOff() time.Duration {
	if s.last.Status != models.OutcomeRateLimited {
		return min(s.standard.NextBackOff(), s.maxDelay)
	}
	delay := max(s.rateLimited.NextBackOff(), s.retryAfter)
	return min(delay, s.maxDelay)
}

// Reset implements [backoff.BackOff].
func (s *retrySchedule) Reset() {
	s.standard.Reset()
	s.rateLimited.Reset()
	s.last = models.RequestOutcome{}
	s.retryAfter = 0
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0), true
	}
	return 0, false
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

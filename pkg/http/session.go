package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/milan604/netlayer/pkg/logger"
	"github.com/milan604/netlayer/pkg/mock"
	"github.com/milan604/netlayer/pkg/request"
	"github.com/milan604/netlayer/pkg/version"
)

// Session dispatches requests through net/http, validates status codes and
// consults a Retrier when an attempt fails.
type Session struct {
	httpClient    *http.Client
	logger        logger.LogManager
	retrier       Retrier
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker[*Response]
	acceptable    func(status int) bool
	maxRetries    int
	requestHooks  []RequestHook
	responseHooks []ResponseHook
	mockFS        fs.FS
}

// RequestHook adapts a request before every attempt, retries included.
type RequestHook func(*http.Request) error

// ResponseHook inspects a response after it's received.
type ResponseHook func(*Response) error

// SessionOption configures the Session.
type SessionOption func(*Session)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) {
		s.httpClient = c
	}
}

// WithLogger sets a logger for the session.
func WithLogger(l logger.LogManager) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// WithRetrier installs the component that decides whether failed attempts are retried.
func WithRetrier(r Retrier) SessionOption {
	return func(s *Session) {
		s.retrier = r
	}
}

// WithMaxRetries caps how many times a single Do call may be retried.
func WithMaxRetries(n int) SessionOption {
	return func(s *Session) {
		s.maxRetries = n
	}
}

// WithAcceptableStatus replaces the status validation (default 100..399).
func WithAcceptableStatus(fn func(status int) bool) SessionOption {
	return func(s *Session) {
		s.acceptable = fn
	}
}

// WithRateLimit throttles dispatches to rps with the given burst.
func WithRateLimit(rps float64, burst int) SessionOption {
	return func(s *Session) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker opens after consecutiveFailures transport errors or 5xx
// responses and half-opens after openTimeout.
func WithCircuitBreaker(name string, consecutiveFailures uint32, openTimeout time.Duration) SessionOption {
	return func(s *Session) {
		s.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:    name,
			Timeout: openTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= consecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				var ve *ValidationError
				if errors.As(err, &ve) {
					return ve.StatusCode < http.StatusInternalServerError
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if s.logger != nil {
					s.logger.WarnF("circuit breaker %s: %s -> %s", name, from, to)
				}
			},
		})
	}
}

// WithMockTransport answers mock-tagged requests from fixtures in fsys. The
// fixture transport wraps whichever client the session ends up with,
// regardless of option order.
func WithMockTransport(fsys fs.FS) SessionOption {
	return func(s *Session) {
		s.mockFS = fsys
	}
}

// WithRequestHook adds a hook that runs before each attempt.
func WithRequestHook(hook RequestHook) SessionOption {
	return func(s *Session) {
		s.requestHooks = append(s.requestHooks, hook)
	}
}

// WithResponseHook adds a hook that runs after each response.
func WithResponseHook(hook ResponseHook) SessionOption {
	return func(s *Session) {
		s.responseHooks = append(s.responseHooks, hook)
	}
}

// WithRequestID stamps an X-Request-ID header on requests that lack one.
func WithRequestID() SessionOption {
	return WithRequestHook(func(r *http.Request) error {
		if r.Header.Get(HeaderRequestID) == "" {
			r.Header.Set(HeaderRequestID, uuid.NewString())
		}
		return nil
	})
}

const HeaderRequestID = "X-Request-ID"

// WithUserAgent sets the User-Agent header of every request to
// version.UserAgent(product).
func WithUserAgent(product string) SessionOption {
	ua := version.UserAgent(product)
	return WithRequestHook(func(r *http.Request) error {
		r.Header.Set("User-Agent", ua)
		return nil
	})
}

// NewSession creates a new Session with the given options.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     logger.NewNop(),
		maxRetries: 3,
		acceptable: func(status int) bool { return status >= 100 && status < 400 },
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.mockFS != nil {
		c := *s.httpClient
		next := c.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		c.Transport = &mock.Transport{FS: s.mockFS, Next: next}
		s.httpClient = &c
	}

	return s
}

// Do sends req. A response with an unacceptable status is returned together
// with a *ValidationError; a transport failure returns a nil response.
func (s *Session) Do(ctx context.Context, req *http.Request) (*Response, error) {
	bodyBytes, err := readRequestBody(req)
	if err != nil {
		return nil, err
	}

	current := req
	for retryCount := 0; ; retryCount++ {
		resp, err := s.executeRequest(ctx, current, bodyBytes)
		if err == nil {
			return resp, nil
		}
		if s.retrier == nil || retryCount >= s.maxRetries || ctx.Err() != nil {
			return resp, err
		}

		result, waitErr := s.awaitRetry(ctx, &Attempt{Request: current, RetryCount: retryCount, ctx: ctx}, err)
		if waitErr != nil {
			return nil, waitErr
		}
		if !result.Retry {
			return resp, err
		}
		if result.Request != nil {
			current = result.Request
		}
		s.logger.DebugFCtx(ctx, "retrying %s %s (retry %d)", current.Method, current.URL.Redacted(), retryCount+1)
	}
}

// awaitRetry blocks until the retrier resolves the attempt or ctx ends. The
// completion may be called late or more than once; extra calls are dropped.
func (s *Session) awaitRetry(ctx context.Context, attempt *Attempt, cause error) (RetryResult, error) {
	done := make(chan RetryResult, 1)
	s.retrier.Retry(attempt, cause, func(r RetryResult) {
		select {
		case done <- r:
		default:
		}
	})

	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return DoNotRetry, ctx.Err()
	}
}

// readRequestBody reads the request body once for retries.
func readRequestBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return bodyBytes, nil
}

// executeRequest executes a single attempt.
func (s *Session) executeRequest(ctx context.Context, req *http.Request, bodyBytes []byte) (*Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	if d, ok := request.TimeoutFrom(req.Context()); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	reqClone := req.Clone(ctx)
	if bodyBytes != nil {
		reqClone.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		reqClone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
		reqClone.ContentLength = int64(len(bodyBytes))
	}
	for _, hook := range s.requestHooks {
		if err := hook(reqClone); err != nil {
			return nil, fmt.Errorf("request hook failed: %w", err)
		}
	}

	if s.breaker == nil {
		return s.roundTrip(reqClone)
	}
	resp, err := s.breaker.Execute(func() (*Response, error) {
		return s.roundTrip(reqClone)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	return resp, err
}

func (s *Session) roundTrip(req *http.Request) (*Response, error) {
	start := time.Now()
	raw, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.WarnFCtx(req.Context(), "request failed: %s %s: %v", req.Method, req.URL.Redacted(), err)
		return nil, err
	}
	defer raw.Body.Close()

	body, err := io.ReadAll(raw.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		StatusCode: raw.StatusCode,
		Header:     raw.Header,
		Body:       body,
		Request:    req,
	}
	s.logger.DebugFCtx(req.Context(), "%s %s -> %d in %v", req.Method, req.URL.Redacted(), raw.StatusCode, time.Since(start))

	for _, hook := range s.responseHooks {
		if err := hook(resp); err != nil {
			return resp, fmt.Errorf("response hook failed: %w", err)
		}
	}

	if !s.acceptable(resp.StatusCode) {
		return resp, &ValidationError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

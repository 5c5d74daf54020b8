package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Sentinel errors callers can test with errors.Is. A rejected endpoint
// carries one of the first three so logs and handlers can tell a slow feed
// from a broken connection from a malformed payload.
var (
	ErrEndpointTimeout     = errors.New("endpoint timed out")
	ErrEndpointTransport   = errors.New("endpoint transport failure")
	ErrEndpointBadResponse = errors.New("endpoint bad response")

	// ErrAllEndpointsFailed marks a cycle in which no feed settled
	// fulfilled. The degraded snapshot is still returned alongside it.
	ErrAllEndpointsFailed = errors.New("all endpoints failed")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// BackoffConfig controls the retry cadence between attempts.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// JitterMax bounds the random slice added to each delay so endpoints
	// do not retry in lockstep.
	JitterMax time.Duration
}

// DefaultBackoffConfig returns the standard retry cadence.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		JitterMax:       250 * time.Millisecond,
	}
}

// FetchConfig bundles the HTTP client and resilience settings shared by
// every endpoint.
type FetchConfig struct {
	Client *http.Client
	// Timeout is the per-attempt deadline; zero disables it.
	Timeout time.Duration
	Backoff BackoffConfig
}

// fetchWithResilience executes the request with retries, exponential
// backoff with jitter, a per-attempt deadline, and a circuit breaker. It
// returns the response body and the number of attempts made. Timeouts,
// transport failures, 429s, and 5xx responses are retried; other non-2xx
// statuses and an open circuit fail immediately.
func fetchWithResilience(
	ctx context.Context,
	cfg FetchConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) ([]byte, int, error) {
	if cfg.Client == nil {
		return nil, 0, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, 0, errInvalidConfig
	}

	attempts := 0
	for {
		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, attempts, err
		}

		attempts++
		body, err := doAttempt(ctx, cfg, cb, req)
		if err == nil {
			return body, attempts, nil
		}

		// An open circuit fails fast; retrying would only hammer it.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, attempts, fmt.Errorf("%w: circuit open: %v", ErrEndpointTransport, err)
		}
		// 4xx statuses will not improve on retry.
		if errors.Is(err, ErrEndpointBadResponse) {
			return nil, attempts, err
		}
		if ctx.Err() != nil {
			return nil, attempts, ctx.Err()
		}
		if attempts > cfg.Backoff.MaxRetries {
			return nil, attempts, err
		}

		timer := time.NewTimer(backoffDelay(cfg.Backoff, attempts-1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempts, ctx.Err()
		case <-timer.C:
		}
	}
}

// doAttempt runs one request under the per-attempt deadline. The body is
// read in full before the deadline is released.
func doAttempt(ctx context.Context, cfg FetchConfig, cb *gobreaker.CircuitBreaker, req *http.Request) ([]byte, error) {
	attemptCtx := ctx
	cancel := func() {}
	if cfg.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}
	defer cancel()

	req = req.WithContext(attemptCtx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, classifyTransportError(ctx, execErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("%w: status %d", ErrEndpointTransport, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("%w: status %d", ErrEndpointBadResponse, resp.StatusCode)
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, classifyTransportError(ctx, readErr)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

// classifyTransportError folds low-level failures into the retryable
// sentinels. Cancellation of the parent context passes through untouched
// so callers can tell shutdown from a slow feed.
func classifyTransportError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrEndpointTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrEndpointTransport, err)
}

// backoffDelay grows exponentially from the initial interval, capped at
// MaxInterval, plus the jitter slice.
func backoffDelay(b BackoffConfig, retry int) time.Duration {
	delay := b.InitialInterval * time.Duration(math.Pow(2, float64(retry)))
	if b.MaxInterval > 0 && delay > b.MaxInterval {
		delay = b.MaxInterval
	}
	if b.JitterMax > 0 {
		delay += time.Duration(rand.Int63n(int64(b.JitterMax)))
	}
	return delay
}

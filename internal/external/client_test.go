package external

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftdesk/internal/types"
)

// noSleep disables backoff waits in tests.
func noSleep(time.Duration) {}

func testRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		MinWait:    time.Millisecond,
		MaxWait:    10 * time.Millisecond,
	}
}

func appErrorCode(t *testing.T, err error) types.ErrorCode {
	t.Helper()
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr.Code
}

func TestBaseClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewBaseClient(server.Client(), "test", testRetryPolicy(2), WithSleepFunc(noSleep))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBaseClient_Do_RetriesOn500ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var sleeps int
	client := NewBaseClient(server.Client(), "test", testRetryPolicy(2),
		WithSleepFunc(func(time.Duration) { sleeps++ }))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, sleeps, "one backoff between the two attempts")
}

func TestBaseClient_Do_ExhaustedRetriesMapsToUpstreamUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewBaseClient(server.Client(), "test", testRetryPolicy(2), WithSleepFunc(noSleep))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErrorCode(t, err))
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestBaseClient_Do_RateLimitMapsTo429Code(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewBaseClient(server.Client(), "test", testRetryPolicy(1), WithSleepFunc(noSleep))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErrorCode(t, err))
}

func TestBaseClient_Do_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewBaseClient(server.Client(), "test", testRetryPolicy(3), WithSleepFunc(noSleep))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	// 4xx other than 429 is the caller's problem, not a transient failure.
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBaseClient_Do_RequestBodyReplayedAcrossRetries(t *testing.T) {
	var calls atomic.Int32
	bodies := make(chan string, 3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		bodies <- string(buf[:n])
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewBaseClient(server.Client(), "test", testRetryPolicy(2), WithSleepFunc(noSleep))

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"k":"v"}`))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, `{"k":"v"}`, <-bodies, "first attempt carries the body")
	assert.Equal(t, `{"k":"v"}`, <-bodies, "retry must replay the same body")
}

func TestBaseClient_Do_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// Enough retries to push the breaker past its consecutive-failure trip.
	client := NewBaseClient(server.Client(), "test", testRetryPolicy(9), WithSleepFunc(noSleep))

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErrorCode(t, err),
		"an open breaker maps to the rate-limited code")
	assert.Less(t, calls.Load(), int32(10), "the open breaker stops further attempts")
}

func TestBaseClient_ComputeBackoff_HonorsRetryAfter(t *testing.T) {
	client := NewBaseClient(http.DefaultClient, "test", RetryPolicy{
		MaxRetries: 2,
		MinWait:    100 * time.Millisecond,
		MaxWait:    5 * time.Second,
	})

	resp := &http.Response{Header: http.Header{"Retry-After": []string{"2"}}}
	assert.Equal(t, 2*time.Second, client.computeBackoff(0, resp))

	// Retry-After beyond MaxWait is clamped.
	resp = &http.Response{Header: http.Header{"Retry-After": []string{"60"}}}
	assert.Equal(t, 5*time.Second, client.computeBackoff(0, resp))
}

func TestBaseClient_ComputeBackoff_ExponentialWithinBounds(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries: 3,
		MinWait:    100 * time.Millisecond,
		MaxWait:    1 * time.Second,
	}
	client := NewBaseClient(http.DefaultClient, "test", policy)

	for attempt := 0; attempt < 5; attempt++ {
		wait := client.computeBackoff(attempt, nil)
		assert.GreaterOrEqual(t, wait, policy.MinWait, "attempt %d below MinWait", attempt)
		assert.LessOrEqual(t, wait, policy.MaxWait, "attempt %d above MaxWait", attempt)
	}
}

package resilience

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFraction: 0,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickConfig(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(eris.New("too many requests"), 429)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DoesNotRetryPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickConfig(), func(ctx context.Context) error {
		calls++
		return eris.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), quickConfig(), func(ctx context.Context) error {
		calls++
		return NewTransientError(eris.New("still down"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, quickConfig(), func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(eris.New("transient"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ReturnsValue(t *testing.T) {
	got, err := DoVal(context.Background(), quickConfig(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestDoVal_RetryAfterHintOverridesBackoff(t *testing.T) {
	cfg := quickConfig()
	cfg.InitialBackoff = time.Hour // would stall without the hint override
	cfg.MaxBackoff = 50 * time.Millisecond

	start := time.Now()
	calls := 0
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (struct{}, error) {
		calls++
		if calls == 1 {
			return struct{}{}, &TransientError{
				Err:        eris.New("throttled"),
				StatusCode: 429,
				RetryAfter: 10 * time.Millisecond,
			}
		}
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Less(t, time.Since(start), time.Second, "Retry-After hint must replace the computed delay")
}

func TestTransientFromResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"7"}},
	}
	te := TransientFromResponse(eris.New("429"), resp)

	assert.Equal(t, 429, te.StatusCode)
	assert.Equal(t, 7*time.Second, te.RetryAfter)
	assert.Equal(t, 7*time.Second, RetryAfterHint(te))
}

func TestTransientFromResponse_NoHeader(t *testing.T) {
	resp := &http.Response{StatusCode: 503, Header: http.Header{}}
	te := TransientFromResponse(eris.New("503"), resp)

	assert.Zero(t, te.RetryAfter)
	assert.Zero(t, RetryAfterHint(te))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewTransientError(eris.New("x"), 429)))
	assert.True(t, IsTransient(eris.Wrap(NewTransientError(eris.New("x"), 503), "outer")))
	assert.True(t, IsTransient(eris.New("read tcp: connection reset by peer")))
	assert.False(t, IsTransient(eris.New("invalid field value")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		Attempts:   3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestRetry_FirstAttemptSucceeds(t *testing.T) {
	var calls int
	err := Retry(context.Background(), DefaultPolicy(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	var calls int
	err := Retry(context.Background(), fastPolicy(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return MarkTransient(errors.New("overloaded"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := Retry(context.Background(), fastPolicy(), func(_ context.Context) error {
		calls++
		return MarkTransient(errors.New("still down"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := Retry(context.Background(), fastPolicy(), func(_ context.Context) error {
		calls++
		return errors.New("invalid subscription key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_CancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy()
	p.BaseDelay = 50 * time.Millisecond

	var calls int
	err := Retry(ctx, p, func(_ context.Context) error {
		calls++
		cancel()
		return MarkTransient(errors.New("down"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_CustomRetryable(t *testing.T) {
	p := fastPolicy()
	p.Retryable = func(err error) bool { return err.Error() == "again" }

	var calls int
	err := Retry(context.Background(), p, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("again")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, _ error) {
		attempts = append(attempts, attempt)
	}

	_ = Retry(context.Background(), p, func(_ context.Context) error {
		return MarkTransient(errors.New("down"), 502)
	})
	assert.Equal(t, []int{1, 2}, attempts, "OnRetry fires before each sleep, not after the last attempt")
}

func TestRetryVal_ReturnsValue(t *testing.T) {
	var calls int
	val, err := RetryVal(context.Background(), fastPolicy(), func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", MarkTransient(errors.New("down"), 503)
		}
		return "catalog", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "catalog", val)
}

func TestRetryVal_ZeroValueOnFailure(t *testing.T) {
	val, err := RetryVal(context.Background(), fastPolicy(), func(_ context.Context) (int, error) {
		return 42, MarkTransient(errors.New("down"), 500)
	})
	require.Error(t, err)
	assert.Zero(t, val)
}

func TestPolicy_DelayGrowsAndCaps(t *testing.T) {
	p := Policy{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}.withDefaults()

	assert.Equal(t, 100*time.Millisecond, p.delay(0))
	assert.Equal(t, 200*time.Millisecond, p.delay(1))
	assert.Equal(t, 400*time.Millisecond, p.delay(2))
	assert.Equal(t, time.Second, p.delay(10), "delay is capped at MaxDelay")
}

func TestPolicy_DelayJitterBounded(t *testing.T) {
	p := Policy{
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.5,
	}.withDefaults()

	seen := map[time.Duration]bool{}
	for i := 0; i < 100; i++ {
		d := p.delay(0)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1, "jitter must vary the delay")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("bad request")))
	assert.True(t, IsRetryable(MarkTransient(errors.New("down"), 503)))
	assert.True(t, IsRetryable(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsRetryable(errors.New("dial tcp: lookup api.example.com: no such host")))

	wrapped := MarkTransient(errors.New("down"), 429)
	assert.ErrorIs(t, wrapped, wrapped.Err)
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		assert.False(t, RetryableStatus(code), "status %d", code)
	}
}

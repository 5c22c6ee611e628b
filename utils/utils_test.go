package utils

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, false, false).With("stage", "geocoding", "city", "Paris")

	logger.Info("resolved %d cities", 3)
	logger.Debug("hidden at info level")

	out := buf.String()
	assert.Contains(t, out, `"msg":"resolved 3 cities"`)
	assert.Contains(t, out, `"stage":"geocoding"`)
	assert.Contains(t, out, `"city":"Paris"`)
	assert.NotContains(t, out, "hidden at info level")
}

func TestLoggerPrettyVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, true, true)

	logger.Debug("debug %s", "visible")
	assert.Contains(t, buf.String(), "debug visible")
}

func TestRateLimiterFirstCallDoesNotWait(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiterSpacesCalls(t *testing.T) {
	rl := NewRateLimiter(30 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, rl.Wait(ctx))
	start := time.Now()
	require.NoError(t, rl.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestRateLimiterHonoursCancellation(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
}

func TestRetryWithBackoff(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), 3, 0, func(attempt int) error {
			calls++
			if attempt < 3 {
				return errBoom
			}
			return nil
		}, NopLogger())
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), 2, 0, func(int) error {
			calls++
			return errBoom
		}, NopLogger())
		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 2, calls)
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		_ = RetryWithBackoff(context.Background(), 0, 0, func(int) error {
			calls++
			return nil
		}, NopLogger())
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := RetryWithBackoff(ctx, 5, time.Hour, func(int) error {
			calls++
			cancel()
			return errBoom
		}, NopLogger())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestURLTracker(t *testing.T) {
	tracker := NewURLTracker()
	assert.True(t, tracker.Add("https://example.test/h1"))
	assert.False(t, tracker.Add("https://example.test/h1"))
	assert.True(t, tracker.Add(""))
	assert.True(t, tracker.Add(""))
	assert.Equal(t, 1, tracker.Count())

	tracker.Reset()
	assert.Equal(t, 0, tracker.Count())
	assert.True(t, tracker.Add("https://example.test/h1"))
}

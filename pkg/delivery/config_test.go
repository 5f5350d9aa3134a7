package delivery

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryConfig(t *testing.T) {
	c := DefaultRetryConfig()
	assert.Equal(t, uint32(DefaultMaxAttempts), c.MaxAttempts)
	assert.Equal(t, float64(DefaultBackoffMultiplier), c.BackoffMultiplier)
	assert.Equal(t, DefaultBaseDelay, c.BaseDelay)
	assert.Zero(t, c.MaxDelay)
	assert.Empty(t, c.BufferPath)
}

func TestValidate(t *testing.T) {
	c := RetryConfig{MaxAttempts: 2}
	require.NoError(t, c.Validate())
	assert.Equal(t, float64(DefaultBackoffMultiplier), c.BackoffMultiplier)

	for _, bad := range []RetryConfig{
		{BackoffMultiplier: 1},
		{BackoffMultiplier: 0.5},
		{BackoffMultiplier: math.NaN()},
		{BackoffMultiplier: 2, BaseDelay: -time.Second},
		{BackoffMultiplier: 2, MaxDelay: -time.Second},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
	}
}

func TestCompleteReplacesInvalidValues(t *testing.T) {
	for _, m := range []float64{0.5, 1, -3, math.NaN()} {
		c := RetryConfig{BackoffMultiplier: m, BaseDelay: -time.Second, MaxDelay: -time.Second}
		c.complete()

		assert.Equal(t, float64(DefaultBackoffMultiplier), c.BackoffMultiplier, "multiplier %v", m)
		assert.Equal(t, DefaultBaseDelay, c.BaseDelay)
		assert.Zero(t, c.MaxDelay)
		assert.Greater(t, c.Delay(1), c.Delay(0))
	}

	c := RetryConfig{BackoffMultiplier: 1.5, BaseDelay: time.Second, MaxDelay: time.Minute}
	c.complete()
	assert.Equal(t, RetryConfig{MaxAttempts: DefaultMaxAttempts, BackoffMultiplier: 1.5, BaseDelay: time.Second, MaxDelay: time.Minute}, c)
}

func TestDelay(t *testing.T) {
	c := RetryConfig{BackoffMultiplier: 2, BaseDelay: time.Millisecond}
	assert.Equal(t, time.Millisecond, c.Delay(0))
	assert.Equal(t, 2*time.Millisecond, c.Delay(1))
	assert.Equal(t, 1024*time.Millisecond, c.Delay(10))
	assert.Equal(t, time.Duration(math.MaxInt64), c.Delay(1000))

	c.MaxDelay = time.Second
	assert.Equal(t, time.Second, c.Delay(10))
}

func TestErrorKinds(t *testing.T) {
	err := NewError(AddressResolutionFailure, "nowhere:1", nil)
	assert.True(t, IsAddressResolutionFailure(err))
	assert.False(t, IsConnectFailure(err))
	assert.Equal(t, "address resolution failure (nowhere:1)", err.Error())

	assert.Equal(t, Kind(0), KindOf(nil))
	assert.True(t, IsEncodeFailure(NewError(EncodeFailure, "", nil)))
	assert.True(t, IsBufferFailure(NewError(BufferFailure, "", nil)))
}

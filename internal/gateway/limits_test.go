package gateway

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestConnectionLimits_Global(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 2, 10, 100, 100)

	ok, _ := l.Acquire("1.1.1.1")
	assert.True(t, ok)
	ok, _ = l.Acquire("2.2.2.2")
	assert.True(t, ok)

	ok, reason := l.Acquire("3.3.3.3")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)

	l.Release("1.1.1.1")
	ok, _ = l.Acquire("3.3.3.3")
	assert.True(t, ok)
	assert.Equal(t, int64(2), l.Current())
}

func TestConnectionLimits_PerIP(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 100, 1, 100, 100)

	ok, _ := l.Acquire("1.1.1.1")
	assert.True(t, ok)

	ok, reason := l.Acquire("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)
	assert.Equal(t, int64(1), l.Current(), "rejected per-IP acquire must not hold a global slot")

	ok, _ = l.Acquire("2.2.2.2")
	assert.True(t, ok)
}

func TestConnectionLimits_Rate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 100, 100, 1, 2)

	for range 2 {
		ok, _ := l.Acquire("1.1.1.1")
		assert.True(t, ok)
	}
	ok, reason := l.Acquire("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)

	clock.Advance(time.Second)
	ok, _ = l.Acquire("1.1.1.1")
	assert.True(t, ok)
}

func TestConnectionLimits_IdleLimitersAreDropped(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 100, 100, 1, 1)

	ok, _ := l.Acquire("1.1.1.1")
	assert.True(t, ok)
	l.Release("1.1.1.1")

	clock.Advance(limiterIdleTimeout + limiterCleanupInterval + time.Second)
	ok, _ = l.Acquire("2.2.2.2")
	assert.True(t, ok)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.limiters, "1.1.1.1")
}

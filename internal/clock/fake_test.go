package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAdvanceFiresDueTimers(t *testing.T) {
	c := Fake(epoch)
	var fired []string

	c.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "late") })
	c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "early") })
	require.Equal(t, 2, c.Pending())

	c.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"early"}, fired)
	assert.Equal(t, epoch.Add(50*time.Millisecond), c.Now())

	c.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Zero(t, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := Fake(epoch)
	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestFakeCallbackMayScheduleTimers(t *testing.T) {
	c := Fake(epoch)
	count := 0
	c.AfterFunc(time.Second, func() {
		count++
		c.AfterFunc(time.Second, func() { count++ })
	})

	c.Advance(time.Second)
	assert.Equal(t, 1, count)
	c.Advance(time.Second)
	assert.Equal(t, 2, count)
}

func TestRealClock(t *testing.T) {
	c := Real()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real AfterFunc never fired")
	}
	assert.False(t, c.Now().IsZero())
}

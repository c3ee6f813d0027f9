package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleDoublesUpToCap(t *testing.T) {
	s := New(5, 100*time.Millisecond, 350*time.Millisecond)

	var delays []time.Duration
	for {
		d, ok := s.Next()
		if !ok {
			break
		}
		delays = append(delays, d)
	}
	// max=5 means five attempts total, so four waits between them.
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		350 * time.Millisecond,
		350 * time.Millisecond,
	}, delays)
	assert.Equal(t, 5, s.Attempts())
}

func TestScheduleSingleAttempt(t *testing.T) {
	s := New(1, time.Second, time.Minute)
	_, ok := s.Next()
	assert.False(t, ok)
}

func TestSleepReturnsOnDone(t *testing.T) {
	done := make(chan struct{})
	close(done)
	assert.False(t, Sleep(done, time.Minute))
}

func TestSleepCompletes(t *testing.T) {
	assert.True(t, Sleep(nil, time.Millisecond))
}

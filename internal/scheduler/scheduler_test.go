package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRunsJob(t *testing.T) {
	s := New(time.UTC)
	var runs int32
	_, err := s.Every(time.Second, func() { atomic.AddInt32(&runs, 1) })
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestEveryRejectsNonPositive(t *testing.T) {
	_, err := New(nil).Every(0, func() {})
	assert.Error(t, err)
}

func TestCronSpecs(t *testing.T) {
	s := New(time.UTC)
	for _, spec := range []string{"0 3 * * *", "30 0 3 * * *", "@daily", "@every 1h30m"} {
		_, err := s.Cron(spec, func() {})
		assert.NoError(t, err, spec)
		assert.NoError(t, Validate(spec), spec)
	}
	_, err := s.Cron("not a spec", func() {})
	assert.Error(t, err)
	assert.Error(t, Validate("61 * * * *"))
}

func TestNext(t *testing.T) {
	s := New(time.UTC)
	id, err := s.Cron("@hourly", func() {})
	require.NoError(t, err)
	s.Start()
	defer s.Stop()
	assert.True(t, s.Next(id).After(time.Now()))
}

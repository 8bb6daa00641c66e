package window_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedStartWindows(t *testing.T) {
	loc := time.FixedZone("UTC+03:00", 3*60*60)
	s, err := window.New("2025-01-01-00-00-00", time.Minute, loc, nil)
	require.NoError(t, err)
	require.True(t, s.Fixed())

	first := s.Next()
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, loc), first.Start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 1, 0, 0, loc), first.End)

	second := s.Next()
	assert.Equal(t, time.Date(2025, 1, 1, 0, 1, 0, 0, loc), second.Start)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 2, 0, 0, loc), second.End)

	assert.Equal(t, "2025-01-01-00-01-00", s.Format(second.Start))
	assert.Equal(t, "2025-01-01-00-02-00", s.Format(second.End))
}

func TestFixedStartWindowsAreContiguous(t *testing.T) {
	calls := 0
	clock := func() time.Time {
		// Wall clock jumps around; fixed windows must not care.
		calls++
		return time.Date(2030, 6, 1, 12, calls*7, 0, 0, time.UTC)
	}

	s, err := window.New("2025-05-15-16-23-00", 45*time.Second, time.UTC, clock)
	require.NoError(t, err)

	prev := s.Next()
	for i := 0; i < 50; i++ {
		w := s.Next()
		assert.Equal(t, prev.End, w.Start)
		assert.Equal(t, 45*time.Second, w.Duration())
		prev = w
	}
	assert.Zero(t, calls)
}

func TestSlidingWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 30, 15, 0, time.UTC)
	s, err := window.New("", time.Minute, time.UTC, func() time.Time { return now })
	require.NoError(t, err)
	require.False(t, s.Fixed())

	w := s.Next()
	assert.Equal(t, now.Add(-time.Minute), w.Start)
	assert.Equal(t, now, w.End)

	now = now.Add(5 * time.Second)
	w = s.Next()
	assert.Equal(t, now.Add(-time.Minute), w.Start)
	assert.Equal(t, now, w.End)
}

func TestInvalidFixedStart(t *testing.T) {
	_, err := window.New("2025/01/01 00:00", time.Minute, time.UTC, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidStart))

	_, err = window.New("", 0, time.UTC, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

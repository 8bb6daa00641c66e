// Package window computes the time range requested in each cycle.
package window

import (
	"time"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

// Layout is the wire format of window bounds and of the fixed start time.
const Layout = "2006-01-02-15-04-05"

// Clock returns the current wall-clock time.
type Clock func() time.Time

// Scheduler yields one window per cycle, either sliding with the wall
// clock or advancing back-to-back from a fixed start.
type Scheduler struct {
	duration time.Duration
	loc      *time.Location
	now      Clock
	fixed    bool
	next     time.Time
}

// New creates a Scheduler. A non-empty fixedStart selects fixed-start mode
// and must parse with Layout in loc.
func New(fixedStart string, duration time.Duration, loc *time.Location, now Clock) (*Scheduler, error) {
	errFactory := errors.New()

	if duration <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, duration)
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}

	s := &Scheduler{
		duration: duration,
		loc:      loc,
		now:      now,
	}

	if fixedStart != "" {
		start, err := time.ParseInLocation(Layout, fixedStart, loc)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidStart, err)
		}
		s.fixed = true
		s.next = start
		logger.Info().Str("fixed_start", fixedStart).Msg("Fixed-start mode")
	}

	return s, nil
}

// Next returns the window of the upcoming cycle. In fixed-start mode each
// call advances the start by exactly one window length.
func (s *Scheduler) Next() sensor.Window {
	var w sensor.Window
	if s.fixed {
		w = sensor.Window{Start: s.next, End: s.next.Add(s.duration)}
		s.next = w.End
	} else {
		end := s.now().In(s.loc)
		w = sensor.Window{Start: end.Add(-s.duration), End: end}
	}

	logger.Debug().
		Time("start", w.Start).
		Time("end", w.End).
		Dur("duration", w.Duration()).
		Msg("Window computed")

	return w
}

// Fixed reports whether the scheduler runs in fixed-start mode.
func (s *Scheduler) Fixed() bool {
	return s.fixed
}

// Format renders t in the wire layout, in the scheduler's location.
func (s *Scheduler) Format(t time.Time) string {
	return Format(t, s.loc)
}

// Format renders t in the wire layout in loc.
func Format(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(Layout)
}

// Package acquire runs the acquisition loop: schedule a window, fetch all
// devices, commit the result, wait, repeat.
package acquire

import (
	"context"
	"runtime/debug"
	"time"

	"codeberg.org/mutker/ppgcollect/internal/archive"
	"codeberg.org/mutker/ppgcollect/internal/cycle"
	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

// Deps are the collaborators of a Runner. Archive and Observer are
// optional.
type Deps struct {
	Scheduler   Scheduler
	Coordinator Coordinator
	Store       Store
	Backup      Backupper
	Archive     archive.Recorder
	Observer    Observer
	Interval    time.Duration
}

// Runner owns the main control flow. History and snapshot are only ever
// touched from Run's goroutine.
type Runner struct {
	deps Deps
}

func New(deps Deps) (*Runner, error) {
	errFactory := errors.New()

	switch {
	case deps.Scheduler == nil:
		return nil, errFactory.WithMessage(ErrInvalidDeps, "scheduler is required")
	case deps.Coordinator == nil:
		return nil, errFactory.WithMessage(ErrInvalidDeps, "coordinator is required")
	case deps.Store == nil:
		return nil, errFactory.WithMessage(ErrInvalidDeps, "store is required")
	case deps.Backup == nil:
		return nil, errFactory.WithMessage(ErrInvalidDeps, "backup is required")
	case deps.Interval <= 0:
		return nil, errFactory.WithData(errors.ErrInvalidInterval, deps.Interval)
	}

	return &Runner{deps: deps}, nil
}

// Run loops until ctx is cancelled, which returns nil. A failed commit or
// a panic ends the loop with an ErrMainLoop error. The durable files are
// backed up on every return.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer r.backup()
	defer func() {
		if p := recover(); p != nil {
			loopErr := errors.New().WithData(ErrMainLoop, p)
			logger.ErrorWithCode(loopErr).
				Bytes("stack", debug.Stack()).
				Msg("Acquisition loop panicked")
			err = loopErr
		}
	}()

	logger.Info().Dur("interval", r.deps.Interval).Msg("Acquisition started")

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			logger.Info().Msg("Acquisition stopped")
			return nil
		}

		if err := r.cycle(ctx); err != nil {
			if errors.HasCode(err, ErrCancelled) && ctx.Err() != nil {
				logger.Info().Msg("Cycle interrupted, nothing committed")
				return nil
			}
			return err
		}

		timer.Reset(r.deps.Interval)
		select {
		case <-ctx.Done():
			logger.Info().Msg("Acquisition stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (r *Runner) cycle(ctx context.Context) error {
	errFactory := errors.New()

	w := r.deps.Scheduler.Next()
	started := time.Now()

	res, err := r.deps.Coordinator.Run(ctx, w)
	if err != nil {
		if errors.HasCode(err, ErrCancelled) {
			return err
		}
		return errFactory.Wrap(ErrMainLoop, err)
	}

	if err := r.deps.Store.Commit(res.Measurements, res.Delta); err != nil {
		return errFactory.Wrap(ErrMainLoop, err)
	}

	// The cycle is committed; an interrupt from here on must not leave the
	// archive behind the history.
	if r.deps.Archive != nil {
		if err := r.deps.Archive.Record(context.WithoutCancel(ctx), res.Measurements); err != nil {
			logger.Warn().Err(err).Msg("Archive record failed")
		}
	}

	took := time.Since(started)
	if r.deps.Observer != nil {
		r.deps.Observer.ObserveCycle(res.Outcomes, len(res.Measurements), res.LastReceived, took)
		r.deps.Observer.SetHistorySize(r.deps.Store.Len())
	}

	r.summarize(res, took)

	return nil
}

func (r *Runner) summarize(res cycle.Result, took time.Duration) {
	format := r.deps.Scheduler.Format

	kinds := make(map[sensor.OutcomeKind]int)
	for _, out := range res.Outcomes {
		kinds[out.Kind]++
	}

	logger.Info().
		Str("window_start", format(res.Window.Start)).
		Str("window_end", format(res.Window.End)).
		Str("last_received", format(res.LastReceived)).
		Int("measurements", len(res.Measurements)).
		Int("devices_reporting", len(res.Delta)).
		Int("ok", kinds[sensor.OutcomeOK]).
		Int("no_data", kinds[sensor.OutcomeNoData]).
		Int("empty", kinds[sensor.OutcomeEmpty]).
		Int("failed", kinds[sensor.OutcomeFailed]).
		Int("history", r.deps.Store.Len()).
		Dur("took", took).
		Msg("Cycle complete")
}

func (r *Runner) backup() {
	written, err := r.deps.Backup.Backup()
	if r.deps.Observer != nil {
		r.deps.Observer.ObserveBackup(err)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Backup incomplete")
		return
	}
	logger.Info().Int("files", len(written)).Msg("Backup complete")
}

// Package cycle fans one fetch per device out over a bounded pool and
// joins the outcomes into a single cycle result.
package cycle

import (
	"context"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
)

// Fetcher retrieves one device's outcome for a window.
type Fetcher interface {
	Fetch(ctx context.Context, device sensor.Device, w sensor.Window) sensor.Outcome
}

// Result is the joined outcome of one cycle.
type Result struct {
	Window sensor.Window
	// Outcomes and Measurements are in arrival order.
	Outcomes     []sensor.Outcome
	Measurements []sensor.Measurement
	Delta        sensor.Snapshot
	LastReceived time.Time
}

// Coordinator owns the worker pool shared by all cycles.
type Coordinator struct {
	fetcher Fetcher
	devices []sensor.Device
	pool    *semaphore.Weighted
	size    int
}

// New creates a Coordinator whose pool holds min(pollable devices, limit)
// slots. Devices without a MAC address are never dispatched.
func New(fetcher Fetcher, devices []sensor.Device, limit int) (*Coordinator, error) {
	errFactory := errors.New()

	if limit < 1 {
		return nil, errFactory.WithData(ErrInvalidLimits, limit)
	}

	pollable := sensor.Pollable(devices)
	if len(pollable) == 0 {
		return nil, errFactory.New(ErrNoDevices)
	}

	size := min(len(pollable), limit)
	logger.Info().
		Int("workers", size).
		Int("devices", len(pollable)).
		Msg("Worker pool created")

	return &Coordinator{
		fetcher: fetcher,
		devices: pollable,
		pool:    semaphore.NewWeighted(int64(size)),
		size:    size,
	}, nil
}

// Size returns the number of pool slots.
func (c *Coordinator) Size() int {
	return c.size
}

// Run dispatches one fetch per device and waits for all of them. When ctx
// is cancelled Run still joins every started task, then returns an error
// and no result.
func (c *Coordinator) Run(ctx context.Context, w sensor.Window) (Result, error) {
	errFactory := errors.New()

	logger.Info().Int("devices", len(c.devices)).Msg("Cycle started")

	results := make(chan sensor.Outcome, len(c.devices))
	g, gctx := errgroup.WithContext(ctx)
	for _, device := range c.devices {
		device := device
		g.Go(func() error {
			if err := c.pool.Acquire(gctx, 1); err != nil {
				return err
			}
			defer c.pool.Release(1)

			results <- c.fetch(gctx, device, w)
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(results)
	}()

	outcomes := make([]sensor.Outcome, 0, len(c.devices))
	for out := range results {
		outcomes = append(outcomes, out)
	}

	if err := <-done; err != nil {
		return Result{}, errFactory.Wrap(ErrCancelled, err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, errFactory.Wrap(ErrCancelled, err)
	}

	return aggregate(w, outcomes), nil
}

// fetch runs one task, turning a panic into a failed outcome.
func (c *Coordinator) fetch(ctx context.Context, device sensor.Device, w sensor.Window) (out sensor.Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := errors.New().WithData(ErrTaskFailed, r)
			logger.ErrorWithCode(err).
				Str("device", device.Label()).
				Bytes("stack", debug.Stack()).
				Msg("Fetch task failed")

			out = sensor.Outcome{
				Device:       device,
				Kind:         sensor.OutcomeFailed,
				RequestStart: start,
				Err:          err,
			}
		}
	}()

	return c.fetcher.Fetch(ctx, device, w)
}

// aggregate joins the outcomes of one cycle.
func aggregate(w sensor.Window, outcomes []sensor.Outcome) Result {
	res := Result{
		Window:   w,
		Outcomes: outcomes,
		Delta:    make(sensor.Snapshot),
	}

	for _, out := range outcomes {
		if n := len(out.Measurements); n > 0 {
			res.Measurements = append(res.Measurements, out.Measurements...)
			last := out.Measurements[n-1]
			res.Delta[last.DeviceID] = last
		}
		if out.Responded() && out.RequestEnd.After(res.LastReceived) {
			res.LastReceived = out.RequestEnd
		}
	}

	if res.LastReceived.IsZero() {
		logger.Warn().
			Time("window_end", w.End).
			Msg("No response received, using window end as last received")
		res.LastReceived = w.End
	}

	return res
}

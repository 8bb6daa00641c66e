// Package fetch performs the per-device request against the sensor
// endpoint and classifies what came back.
package fetch

import (
	"context"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
	"codeberg.org/mutker/ppgcollect/internal/sensor"
	"codeberg.org/mutker/ppgcollect/internal/window"
)

// Options configures a Fetcher.
type Options struct {
	Endpoint string
	Session  string
	Timeout  time.Duration
	Location *time.Location
	Clock    func() time.Time
}

// Fetcher issues one bounded GET per device and window.
type Fetcher struct {
	client   *resty.Client
	endpoint string
	session  string
	loc      *time.Location
	now      func() time.Time
}

// New creates a Fetcher. Retries are disabled: the next cycle is the retry.
func New(opts Options) (*Fetcher, error) {
	errFactory := errors.New()

	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, errFactory.Wrap(ErrInvalidEndpoint, err)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Fetcher{
		client:   client,
		endpoint: opts.Endpoint,
		session:  opts.Session,
		loc:      opts.Location,
		now:      opts.Clock,
	}, nil
}

// Fetch requests the device's samples for w. It never returns an error:
// failures are folded into the Outcome.
func (f *Fetcher) Fetch(ctx context.Context, device sensor.Device, w sensor.Window) sensor.Outcome {
	errFactory := errors.New()

	out := sensor.Outcome{
		Device:       device,
		RequestStart: f.now(),
	}

	if !device.Pollable() {
		logger.Warn().Str("device", device.Label()).Msg("Request skipped: no MAC address")
		out.Kind = sensor.OutcomeSkipped
		return out
	}

	params := map[string]string{
		"device_name": device.Identity(f.session),
		"start":       window.Format(w.Start, f.loc),
		"end":         window.Format(w.End, f.loc),
	}

	logger.Info().
		Str("device", device.Label()).
		Str("device_name", params["device_name"]).
		Str("start", params["start"]).
		Str("end", params["end"]).
		Msg("Request")

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(f.endpoint)

	if resp != nil && resp.RawResponse != nil {
		out.RequestEnd = f.now()
	}

	if err != nil {
		return f.fail(out, errFactory.Wrap(ErrTransport, err))
	}

	logger.Info().
		Str("device", device.Label()).
		Int("status", resp.StatusCode()).
		Msg("Response")

	if resp.IsError() {
		return f.fail(out, errFactory.WithData(ErrUnexpectedStatus, resp.Status()))
	}

	var payload ppgResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return f.fail(out, errFactory.Wrap(ErrDecode, err))
	}

	logger.Debug().
		Str("device", device.Label()).
		RawJSON("body", resp.Body()).
		Msg("Response payload")

	if payload.noData() {
		logger.Info().Str("device", device.Label()).Msg("No data found")
		out.Kind = sensor.OutcomeNoData
		return out
	}

	if payload.empty() {
		ev := logger.Warn().Str("device", device.Label())
		if payload.Message != nil {
			ev = ev.Str("message", *payload.Message)
		}
		ev.Msg("Empty data set")
		out.Kind = sensor.OutcomeEmpty
		return out
	}

	out.Measurements = f.zip(device, &payload)
	out.Kind = sensor.OutcomeOK

	logger.Info().
		Str("device", device.Label()).
		Int("measurements", len(out.Measurements)).
		Msg("Measurements received")

	return out
}

func (f *Fetcher) fail(out sensor.Outcome, err errors.Error) sensor.Outcome {
	logger.ErrorWithCode(err).
		Str("device", out.Device.Label()).
		Str("mac", out.Device.MACAddress).
		Bool("responded", out.Responded()).
		Msg("Fetch failed")

	out.Kind = sensor.OutcomeFailed
	out.Measurements = nil
	out.Err = err
	return out
}

// zip pairs the parallel arrays by position, truncating to the shortest.
func (f *Fetcher) zip(device sensor.Device, payload *ppgResponse) []sensor.Measurement {
	n, aligned := payload.rows()
	if !aligned {
		logger.Warn().
			Str("device", device.Label()).
			Ints("lengths", payload.lengths()).
			Int("rows", n).
			Msg("Response arrays differ in length, truncating")
	}

	identity := device.Identity(f.session)
	measurements := make([]sensor.Measurement, 0, n)
	for i := 0; i < n; i++ {
		measurements = append(measurements, sensor.Measurement{
			Session:    sensor.SessionID(f.session),
			DeviceID:   identity,
			DeviceMAC:  device.MACAddress,
			DeviceName: device.Name,
			Timestamp:  payload.Time[i],
			HR:         payload.HR[i],
			LFHFRatio:  payload.LFHFRatio[i],
			RMSSD:      payload.RMSSD[i],
			SDRR:       payload.SDRR[i],
			SI:         payload.SI[i],
		})
	}

	return measurements
}

// Package sensor holds the data model shared by the acquisition pipeline.
package sensor

import (
	"time"
)

// Device is one bracelet of the roster.
type Device struct {
	MACAddress string `json:"mac_address"`
	Name       string `json:"name"`
	// Process is optional in the roster file; absent means the device is polled.
	Process *bool `json:"process,omitempty"`
}

// Enabled reports whether the roster entry asks for the device to be polled.
func (d Device) Enabled() bool {
	return d.Process == nil || *d.Process
}

// Pollable reports whether a request can be issued for the device.
func (d Device) Pollable() bool {
	return d.MACAddress != ""
}

// Identity returns the device identity used on the wire and as snapshot key.
func (d Device) Identity(session string) string {
	return session + "_" + d.MACAddress
}

// Label is a short human readable tag for log lines.
func (d Device) Label() string {
	name := d.Name
	if name == "" {
		name = "unnamed"
	}
	if d.MACAddress == "" {
		return name + " (no mac)"
	}
	mac := d.MACAddress
	if len(mac) > 8 {
		mac = mac[len(mac)-8:]
	}
	return name + " " + mac
}

// Window is the half-open time range [Start, End) requested in one cycle.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Measurement is one positional sample of the sensor response. The
// physiological fields are nil when the server omitted them.
type Measurement struct {
	Session    SessionID `json:"session"`
	DeviceID   string    `json:"device_id"`
	DeviceMAC  string    `json:"device_mac"`
	DeviceName string    `json:"device_name"`
	Timestamp  string    `json:"timestamp"`
	HR         *float64  `json:"hr"`
	LFHFRatio  *float64  `json:"lf_hf_ratio"`
	RMSSD      *float64  `json:"rmssd"`
	SDRR       *float64  `json:"sdrr"`
	SI         *float64  `json:"si"`
}

// Snapshot maps a device identity to its latest measurement.
type Snapshot map[string]Measurement

// OutcomeKind classifies the result of one device fetch.
type OutcomeKind string

const (
	OutcomeOK      OutcomeKind = "ok"
	OutcomeNoData  OutcomeKind = "no_data"
	OutcomeEmpty   OutcomeKind = "empty"
	OutcomeFailed  OutcomeKind = "failed"
	OutcomeSkipped OutcomeKind = "skipped"
)

// Outcome is the per-device, per-cycle result of a fetch attempt.
type Outcome struct {
	Device       Device
	Kind         OutcomeKind
	Measurements []Measurement
	RequestStart time.Time
	// RequestEnd is zero when no response arrived.
	RequestEnd time.Time
	Err        error
}

// Responded reports whether a response arrived for the request.
func (o Outcome) Responded() bool {
	return !o.RequestEnd.IsZero()
}

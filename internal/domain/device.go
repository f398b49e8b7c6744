package domain

import (
	"fmt"
	"time"
)

// Device is a hardware address seen on the network at least once,
// or named by the operator before it was seen
type Device struct {
	ID           int64      `json:"-" yaml:"-"`
	MAC          MAC        `json:"mac" yaml:"mac"`
	LastHostname string     `json:"last_hostname,omitempty" yaml:"last_hostname,omitempty"`
	Name         string     `json:"name,omitempty" yaml:"name,omitempty"`
	FirstSeen    *time.Time `json:"first_seen,omitempty" yaml:"first_seen,omitempty"`
	LastSeen     *time.Time `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
}

// DisplayName returns the operator name, then the hostname, then the MAC
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.LastHostname != "" {
		return d.LastHostname
	}
	return d.MAC.String()
}

// Sighting is a single device observed by a scan
type Sighting struct {
	MAC      MAC    `json:"mac"`
	Hostname string `json:"hostname,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// Timestamp is one completed scan cycle
type Timestamp struct {
	ID      int64     `json:"-"`
	Instant time.Time `json:"instant"`
}

// HistoryPoint is the presence of one device at one scan
type HistoryPoint struct {
	Instant time.Time `json:"timestamp" yaml:"timestamp"`
	Present bool      `json:"present" yaml:"present"`
}

// DeviceHistory pairs a device with its reconstructed timeline
type DeviceHistory struct {
	Device Device         `json:"device" yaml:"device"`
	Points []HistoryPoint `json:"history" yaml:"history"`
}

// PresentCount returns how many scans saw the device
func (h DeviceHistory) PresentCount() int {
	n := 0
	for _, p := range h.Points {
		if p.Present {
			n++
		}
	}
	return n
}

// TimeRange bounds a history query. Both ends are inclusive;
// a zero From or To leaves that side open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Validate rejects a range whose From is after its To
func (r TimeRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("%w: range from %s is after to %s", ErrInvalidArgument,
			r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}
	return nil
}

// TimelineSnapshot is a consistent read of the timeline tables: the
// recorded timestamps in chronological order, the devices of interest and,
// per device ID, the set of timestamp IDs at which it was present.
type TimelineSnapshot struct {
	Timestamps []Timestamp
	Devices    []Device
	Presence   map[int64]map[int64]struct{}
}

package repository

import (
	"context"
	"time"

	"macwatch/internal/domain"
)

// UpsertResult counts the rows an ingestion batch actually added
type UpsertResult struct {
	NewOrganizations int `json:"new_organizations"`
	NewRanges        int `json:"new_ranges"`
}

// ScanResult summarizes one recorded scan cycle
type ScanResult struct {
	Timestamp  domain.Timestamp `json:"timestamp"`
	Devices    int              `json:"devices"`
	NewDevices int              `json:"new_devices"`
}

// RangeStore is the persisted interval index of registry assignments
type RangeStore interface {
	// UpsertAssignments inserts organizations and ranges that are not yet
	// known and records the feed, all in one transaction
	UpsertAssignments(ctx context.Context, feed domain.Feed, assignments []domain.Assignment) (UpsertResult, error)

	// Resolve returns every range containing mac, narrowest first
	Resolve(ctx context.Context, mac domain.MAC) ([]domain.MacRange, error)

	// Feed returns the last recorded ingestion of a class, or nil
	Feed(ctx context.Context, class domain.AssignmentClass) (*domain.Feed, error)

	CountOrganizations(ctx context.Context) (int, error)
	CountRanges(ctx context.Context) (int, error)

	Close() error
}

// DeviceStore holds device identities keyed by MAC
type DeviceStore interface {
	RecordSighting(ctx context.Context, s domain.Sighting, seenAt time.Time) (*domain.Device, error)
	SetName(ctx context.Context, mac domain.MAC, name string) (*domain.Device, error)
	ClearName(ctx context.Context, mac domain.MAC) (*domain.Device, error)

	// GetDevice and FindDeviceByName return nil, nil when nothing matches
	GetDevice(ctx context.Context, mac domain.MAC) (*domain.Device, error)
	FindDeviceByName(ctx context.Context, name string) (*domain.Device, error)
	ListDevices(ctx context.Context) ([]domain.Device, error)
}

// TimelineStore holds scan timestamps and the sparse presence join
type TimelineStore interface {
	RecordTimestamp(ctx context.Context, instant time.Time) (domain.Timestamp, error)
	RecordPresence(ctx context.Context, mac domain.MAC, instant time.Time) error

	// RecordScan writes a whole scan cycle (timestamp, sightings and
	// presence rows) in one transaction
	RecordScan(ctx context.Context, instant time.Time, sightings []domain.Sighting) (ScanResult, error)

	ListTimestamps(ctx context.Context, r domain.TimeRange) ([]domain.Timestamp, error)

	// LoadTimeline reads timestamps, devices and presence in one snapshot.
	// A nil mac loads every device.
	LoadTimeline(ctx context.Context, r domain.TimeRange, mac *domain.MAC) (*domain.TimelineSnapshot, error)
}

// InventoryStore is the device and timeline store as one object
type InventoryStore interface {
	DeviceStore
	TimelineStore
	Close() error
}

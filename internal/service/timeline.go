package service

import (
	"context"
	"errors"
	"fmt"

	"macwatch/internal/domain"
	"macwatch/internal/repository"
)

// Timeline reconstructs dense presence series from the sparse presence
// rows: one point per recorded timestamp, present or not.
type Timeline struct {
	store repository.InventoryStore
}

// NewTimeline creates a timeline reconstructor over an inventory store
func NewTimeline(store repository.InventoryStore) *Timeline {
	return &Timeline{store: store}
}

// History returns the timeline of the device identified by ref, a MAC
// address or an operator-assigned name. A ref that parses as a MAC but is
// not a known device is tried as a name. A ref matching no device yields
// an empty history, not an error.
func (t *Timeline) History(ctx context.Context, ref string, r domain.TimeRange) (*domain.DeviceHistory, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	device, err := FindDevice(ctx, t.store, ref)
	if errors.Is(err, domain.ErrDeviceNotFound) {
		return emptyHistory(ref), nil
	}
	if err != nil {
		return nil, err
	}

	mac := device.MAC
	snapshot, err := t.store.LoadTimeline(ctx, r, &mac)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Devices) == 0 {
		return emptyHistory(ref), nil
	}

	d := snapshot.Devices[0]
	return &domain.DeviceHistory{
		Device: d,
		Points: reconstruct(snapshot.Timestamps, snapshot.Presence[d.ID]),
	}, nil
}

func emptyHistory(ref string) *domain.DeviceHistory {
	h := &domain.DeviceHistory{Points: []domain.HistoryPoint{}}
	if mac, err := domain.ParseMAC(ref); err == nil {
		h.Device.MAC = mac
	} else {
		h.Device.Name = ref
	}
	return h
}

// HistoryAll returns the timeline of every device, ordered by MAC. Every
// series has the same length: the number of timestamps in r.
func (t *Timeline) HistoryAll(ctx context.Context, r domain.TimeRange) ([]domain.DeviceHistory, error) {
	snapshot, err := t.store.LoadTimeline(ctx, r, nil)
	if err != nil {
		return nil, err
	}

	histories := make([]domain.DeviceHistory, 0, len(snapshot.Devices))
	for _, d := range snapshot.Devices {
		histories = append(histories, domain.DeviceHistory{
			Device: d,
			Points: reconstruct(snapshot.Timestamps, snapshot.Presence[d.ID]),
		})
	}
	return histories, nil
}

// reconstruct aligns a presence set to the timestamp sequence. Membership
// is by timestamp ID, never by comparing instants.
func reconstruct(timestamps []domain.Timestamp, present map[int64]struct{}) []domain.HistoryPoint {
	points := make([]domain.HistoryPoint, len(timestamps))
	for i, ts := range timestamps {
		_, ok := present[ts.ID]
		points[i] = domain.HistoryPoint{Instant: ts.Instant, Present: ok}
	}
	return points
}

// FindDevice resolves a MAC address or device name to a stored device
func FindDevice(ctx context.Context, store repository.DeviceStore, ref string) (*domain.Device, error) {
	if mac, err := domain.ParseMAC(ref); err == nil {
		device, err := store.GetDevice(ctx, mac)
		if err != nil {
			return nil, err
		}
		if device != nil {
			return device, nil
		}
	}

	device, err := store.FindDeviceByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDeviceNotFound, ref)
	}
	return device, nil
}

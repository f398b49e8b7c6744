package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"macwatch/internal/domain"
	"macwatch/internal/repository"
	"macwatch/internal/telemetry"
)

// ErrNoScanner is returned by Scan when no scanner is configured
var ErrNoScanner = errors.New("no scanner configured")

// Scanner discovers the devices currently present on the network
type Scanner interface {
	Discover(ctx context.Context) ([]domain.Sighting, error)
}

// DeviceView is a device with the organizations owning its address
type DeviceView struct {
	domain.Device `yaml:",inline"`
	Organizations []domain.Organization `json:"organizations" yaml:"organizations"`
}

// InventoryOption configures an Inventory
type InventoryOption func(*Inventory)

// WithScanner sets the collaborator used by Scan
func WithScanner(scanner Scanner) InventoryOption {
	return func(s *Inventory) {
		s.scanner = scanner
	}
}

// WithResolver enables organization lookups in device listings
func WithResolver(resolver *Resolver) InventoryOption {
	return func(s *Inventory) {
		s.resolver = resolver
	}
}

// WithEventBus publishes inventory changes on bus
func WithEventBus(bus *EventBus) InventoryOption {
	return func(s *Inventory) {
		s.bus = bus
	}
}

// WithNow sets the clock that stamps scan cycles
func WithNow(now func() time.Time) InventoryOption {
	return func(s *Inventory) {
		s.now = now
	}
}

// Inventory records scan cycles and manages device names
type Inventory struct {
	store    repository.InventoryStore
	scanner  Scanner
	resolver *Resolver
	bus      *EventBus
	now      func() time.Time

	// one scan cycle at a time
	scanMu sync.Mutex
}

// NewInventory creates the inventory service
func NewInventory(store repository.InventoryStore, opts ...InventoryOption) *Inventory {
	s := &Inventory{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan runs one scan cycle: discovery through the scanner, then the
// timestamp, sightings and presence rows written as a unit
func (s *Inventory) Scan(ctx context.Context) (*repository.ScanResult, error) {
	if s.scanner == nil {
		return nil, ErrNoScanner
	}

	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	start := time.Now()
	sightings, err := s.scanner.Discover(ctx)
	if err != nil {
		telemetry.ScanCyclesTotal.WithLabelValues("error").Inc()
		slog.Error("scan discovery failed", "error", err)
		return nil, err
	}

	result, err := s.Record(ctx, s.now(), sightings)
	if err != nil {
		telemetry.ScanCyclesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	telemetry.ScanCyclesTotal.WithLabelValues("ok").Inc()
	telemetry.ScanDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// Record stores an externally collected scan cycle taken at instant
func (s *Inventory) Record(ctx context.Context, instant time.Time, sightings []domain.Sighting) (*repository.ScanResult, error) {
	result, err := s.store.RecordScan(ctx, instant.UTC(), sightings)
	if err != nil {
		slog.Error("failed to record scan", "error", err)
		return nil, err
	}

	telemetry.ScanDevices.Set(float64(result.Devices))
	slog.Info("scan recorded",
		"timestamp", result.Timestamp.Instant,
		"devices", result.Devices,
		"new_devices", result.NewDevices,
	)

	s.bus.Publish(Event{Type: EventScanCompleted, Payload: result})
	if result.NewDevices > 0 {
		s.bus.Publish(Event{
			Type:    EventDeviceDiscovered,
			Payload: map[string]int{"count": result.NewDevices},
		})
	}
	return &result, nil
}

// SetName assigns an operator name to the device with address mac
func (s *Inventory) SetName(ctx context.Context, mac, name string) (*domain.Device, error) {
	m, err := domain.ParseMAC(mac)
	if err != nil {
		return nil, err
	}

	device, err := s.store.SetName(ctx, m, name)
	if err != nil {
		return nil, err
	}

	slog.Info("device renamed", "mac", device.MAC, "name", device.Name)
	s.bus.Publish(Event{Type: EventDeviceRenamed, Payload: device})
	return device, nil
}

// ClearName removes the operator name of a known device
func (s *Inventory) ClearName(ctx context.Context, mac string) (*domain.Device, error) {
	m, err := domain.ParseMAC(mac)
	if err != nil {
		return nil, err
	}

	device, err := s.store.ClearName(ctx, m)
	if err != nil {
		return nil, err
	}

	slog.Info("device name cleared", "mac", device.MAC)
	s.bus.Publish(Event{Type: EventDeviceRenamed, Payload: device})
	return device, nil
}

// Devices lists every device ordered by MAC, with organizations when a
// resolver is configured
func (s *Inventory) Devices(ctx context.Context) ([]DeviceView, error) {
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		view, err := s.view(ctx, d)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Device returns one device by MAC address or name
func (s *Inventory) Device(ctx context.Context, ref string) (*DeviceView, error) {
	d, err := FindDevice(ctx, s.store, ref)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, *d)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Inventory) view(ctx context.Context, d domain.Device) (DeviceView, error) {
	view := DeviceView{Device: d, Organizations: []domain.Organization{}}
	if s.resolver == nil {
		return view, nil
	}
	orgs, err := s.resolver.ResolveMAC(ctx, d.MAC)
	if err != nil {
		return view, err
	}
	view.Organizations = orgs
	return view, nil
}

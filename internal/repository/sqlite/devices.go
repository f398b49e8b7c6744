package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"macwatch/internal/domain"
	"macwatch/internal/repository"
)

// DeviceRepository implements repository.InventoryStore using SQLite:
// device identities plus the scan timeline
type DeviceRepository struct {
	db *sqlx.DB
}

var _ repository.InventoryStore = (*DeviceRepository)(nil)

// OpenDeviceRepository opens (creating if needed) the device store at path
func OpenDeviceRepository(path string) (*DeviceRepository, error) {
	db, err := openDB(path, deviceMigrations)
	if err != nil {
		return nil, err
	}
	return NewDeviceRepository(db), nil
}

// NewDeviceRepository wraps an already migrated database
func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// queryer is the read/write surface shared by *sqlx.DB and *sqlx.Tx
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// upsertSighting creates the device if needed and refreshes its hostname
// and last-seen instant. The operator-assigned name is never touched.
// Returns the device ID and whether the row was created.
func upsertSighting(ctx context.Context, q queryer, s domain.Sighting, seenAt time.Time) (int64, bool, error) {
	var existing int64
	err := q.GetContext(ctx, &existing, `SELECT id FROM device WHERE mac = ?`, int64(s.MAC))
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return 0, false, storageErr("look up device "+s.MAC.String(), err)
	}

	seen := timeToNanos(seenAt)
	var id int64
	err = q.GetContext(ctx, &id, `
		INSERT INTO device (mac, last_hostname, first_seen, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mac) DO UPDATE SET
			last_hostname = excluded.last_hostname,
			first_seen = COALESCE(device.first_seen, excluded.first_seen),
			last_seen = excluded.last_seen
		RETURNING id
	`, int64(s.MAC), stringToNull(strings.TrimSpace(s.Hostname)), seen, seen)
	if err != nil {
		return 0, false, storageErr("record sighting of "+s.MAC.String(), err)
	}
	return id, created, nil
}

// getDevice loads one device by MAC, nil when absent
func getDevice(ctx context.Context, q queryer, mac domain.MAC) (*domain.Device, error) {
	var row deviceRow
	err := q.GetContext(ctx, &row, `SELECT `+deviceColumns+` FROM device WHERE mac = ?`, int64(mac))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query device "+mac.String(), err)
	}
	d := row.toDomain()
	return &d, nil
}

// RecordSighting stores one observation of a device
func (r *DeviceRepository) RecordSighting(ctx context.Context, s domain.Sighting, seenAt time.Time) (*domain.Device, error) {
	if err := checkMAC(s.MAC); err != nil {
		return nil, err
	}

	var device *domain.Device
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, _, err := upsertSighting(ctx, tx, s, seenAt); err != nil {
			return err
		}
		d, err := getDevice(ctx, tx, s.MAC)
		device = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

// SetName assigns an operator name, creating the device if it was never seen
func (r *DeviceRepository) SetName(ctx context.Context, mac domain.MAC, name string) (*domain.Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: device name is empty, use ClearName to remove it", domain.ErrInvalidArgument)
	}
	if err := checkMAC(mac); err != nil {
		return nil, err
	}

	var device *domain.Device
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO device (mac, name) VALUES (?, ?)
			ON CONFLICT(mac) DO UPDATE SET name = excluded.name
		`, int64(mac), name); err != nil {
			return storageErr("set name of "+mac.String(), err)
		}
		d, err := getDevice(ctx, tx, mac)
		device = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

// ClearName removes the operator name of a known device
func (r *DeviceRepository) ClearName(ctx context.Context, mac domain.MAC) (*domain.Device, error) {
	if err := checkMAC(mac); err != nil {
		return nil, err
	}
	var device *domain.Device
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE device SET name = NULL WHERE mac = ?`, int64(mac))
		if err != nil {
			return storageErr("clear name of "+mac.String(), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrDeviceNotFound, mac)
		}
		d, err := getDevice(ctx, tx, mac)
		device = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

// GetDevice retrieves a device by MAC
func (r *DeviceRepository) GetDevice(ctx context.Context, mac domain.MAC) (*domain.Device, error) {
	if err := checkMAC(mac); err != nil {
		return nil, err
	}
	return getDevice(ctx, r.db, mac)
}

// FindDeviceByName retrieves the oldest device carrying name
func (r *DeviceRepository) FindDeviceByName(ctx context.Context, name string) (*domain.Device, error) {
	var row deviceRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+deviceColumns+` FROM device WHERE name = ? ORDER BY id LIMIT 1
	`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query device by name", err)
	}
	d := row.toDomain()
	return &d, nil
}

// ListDevices returns every device ordered by MAC
func (r *DeviceRepository) ListDevices(ctx context.Context) ([]domain.Device, error) {
	return listDevices(ctx, r.db)
}

func listDevices(ctx context.Context, q queryer) ([]domain.Device, error) {
	var rows []deviceRow
	if err := q.SelectContext(ctx, &rows, `SELECT `+deviceColumns+` FROM device ORDER BY mac`); err != nil {
		return nil, storageErr("list devices", err)
	}

	devices := make([]domain.Device, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, row.toDomain())
	}
	return devices, nil
}

// Close closes the database connection
func (r *DeviceRepository) Close() error {
	return r.db.Close()
}

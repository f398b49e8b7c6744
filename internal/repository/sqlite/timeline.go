package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"macwatch/internal/domain"
	"macwatch/internal/repository"
)

// recordTimestamp inserts instant unless it exists and returns its row
func recordTimestamp(ctx context.Context, q queryer, instant time.Time) (domain.Timestamp, error) {
	n := timeToNanos(instant)
	if _, err := q.ExecContext(ctx, `
		INSERT INTO scan_timestamp (instant) VALUES (?)
		ON CONFLICT(instant) DO NOTHING
	`, n); err != nil {
		return domain.Timestamp{}, storageErr("record timestamp", err)
	}

	var row timestampRow
	if err := q.GetContext(ctx, &row, `SELECT id, instant FROM scan_timestamp WHERE instant = ?`, n); err != nil {
		return domain.Timestamp{}, storageErr("look up timestamp", err)
	}
	return row.toDomain(), nil
}

// RecordTimestamp records one completed scan cycle. Recording the same
// instant again returns the existing row.
func (r *DeviceRepository) RecordTimestamp(ctx context.Context, instant time.Time) (domain.Timestamp, error) {
	var ts domain.Timestamp
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		ts, err = recordTimestamp(ctx, tx, instant)
		return err
	})
	return ts, err
}

// RecordPresence marks the device as seen at an already recorded
// timestamp. Both must exist; nothing is created implicitly.
func (r *DeviceRepository) RecordPresence(ctx context.Context, mac domain.MAC, instant time.Time) error {
	if err := checkMAC(mac); err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var deviceID int64
		err := tx.GetContext(ctx, &deviceID, `SELECT id FROM device WHERE mac = ?`, int64(mac))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: device %s", domain.ErrUnknownReference, mac)
		}
		if err != nil {
			return storageErr("look up device "+mac.String(), err)
		}

		var timestampID int64
		err = tx.GetContext(ctx, &timestampID, `SELECT id FROM scan_timestamp WHERE instant = ?`, timeToNanos(instant))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: timestamp %s", domain.ErrUnknownReference, instant.UTC().Format(time.RFC3339Nano))
		}
		if err != nil {
			return storageErr("look up timestamp", err)
		}

		return insertPresence(ctx, tx, deviceID, timestampID)
	})
}

func insertPresence(ctx context.Context, q queryer, deviceID, timestampID int64) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO presence (device_id, timestamp_id) VALUES (?, ?)
		ON CONFLICT(device_id, timestamp_id) DO NOTHING
	`, deviceID, timestampID); err != nil {
		return storageErr("record presence", err)
	}
	return nil
}

// RecordScan writes a complete scan cycle atomically: the timestamp, a
// sighting per device and the presence rows linking them. A failure
// leaves no part of the cycle behind.
func (r *DeviceRepository) RecordScan(ctx context.Context, instant time.Time, sightings []domain.Sighting) (repository.ScanResult, error) {
	for _, s := range sightings {
		if err := checkMAC(s.MAC); err != nil {
			return repository.ScanResult{}, err
		}
	}

	var result repository.ScanResult
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		ts, err := recordTimestamp(ctx, tx, instant)
		if err != nil {
			return err
		}
		result.Timestamp = ts

		seen := make(map[domain.MAC]bool, len(sightings))
		for _, s := range sightings {
			if seen[s.MAC] {
				continue
			}
			seen[s.MAC] = true

			deviceID, created, err := upsertSighting(ctx, tx, s, instant)
			if err != nil {
				return err
			}
			if created {
				result.NewDevices++
			}
			if err := insertPresence(ctx, tx, deviceID, ts.ID); err != nil {
				return err
			}
			result.Devices++
		}
		return nil
	})
	if err != nil {
		return repository.ScanResult{}, err
	}
	return result, nil
}

// ListTimestamps returns the recorded timestamps inside r, oldest first
func (r *DeviceRepository) ListTimestamps(ctx context.Context, tr domain.TimeRange) ([]domain.Timestamp, error) {
	return listTimestamps(ctx, r.db, tr)
}

func listTimestamps(ctx context.Context, q queryer, tr domain.TimeRange) ([]domain.Timestamp, error) {
	from, to := rangeBounds(tr)

	var rows []timestampRow
	if err := q.SelectContext(ctx, &rows, `
		SELECT id, instant FROM scan_timestamp
		WHERE instant >= ? AND instant <= ?
		ORDER BY instant, id
	`, from, to); err != nil {
		return nil, storageErr("list timestamps", err)
	}

	timestamps := make([]domain.Timestamp, 0, len(rows))
	for _, row := range rows {
		timestamps = append(timestamps, row.toDomain())
	}
	return timestamps, nil
}

// LoadTimeline reads everything a reconstruction needs in one transaction
// so a scan committed concurrently is either fully visible or not at all
func (r *DeviceRepository) LoadTimeline(ctx context.Context, tr domain.TimeRange, mac *domain.MAC) (*domain.TimelineSnapshot, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	if mac != nil {
		if err := checkMAC(*mac); err != nil {
			return nil, err
		}
	}

	snapshot := &domain.TimelineSnapshot{Presence: make(map[int64]map[int64]struct{})}
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		snapshot.Timestamps, err = listTimestamps(ctx, tx, tr)
		if err != nil {
			return err
		}

		if mac != nil {
			d, err := getDevice(ctx, tx, *mac)
			if err != nil {
				return err
			}
			if d == nil {
				snapshot.Devices = []domain.Device{}
				return nil
			}
			snapshot.Devices = []domain.Device{*d}
		} else {
			snapshot.Devices, err = listDevices(ctx, tx)
			if err != nil {
				return err
			}
		}

		from, to := rangeBounds(tr)
		query := `
			SELECT p.device_id, p.timestamp_id
			FROM presence p
			JOIN scan_timestamp t ON t.id = p.timestamp_id
			WHERE t.instant >= ? AND t.instant <= ?`
		args := []interface{}{from, to}
		if mac != nil {
			query += ` AND p.device_id = ?`
			args = append(args, snapshot.Devices[0].ID)
		}

		var rows []presenceRow
		if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
			return storageErr("load presence", err)
		}
		for _, row := range rows {
			set, ok := snapshot.Presence[row.DeviceID]
			if !ok {
				set = make(map[int64]struct{})
				snapshot.Presence[row.DeviceID] = set
			}
			set[row.TimestampID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

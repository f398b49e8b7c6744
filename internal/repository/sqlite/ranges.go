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

// RangeRepository implements repository.RangeStore using SQLite
type RangeRepository struct {
	db *sqlx.DB
}

var _ repository.RangeStore = (*RangeRepository)(nil)

// OpenRangeRepository opens (creating if needed) the range store at path
func OpenRangeRepository(path string) (*RangeRepository, error) {
	db, err := openDB(path, rangeMigrations)
	if err != nil {
		return nil, err
	}
	return NewRangeRepository(db), nil
}

// NewRangeRepository wraps an already migrated database
func NewRangeRepository(db *sqlx.DB) *RangeRepository {
	return &RangeRepository{db: db}
}

// orgKey is the identity of an organization within one batch
type orgKey struct {
	name    string
	address string
}

// UpsertAssignments adds organizations and ranges that are not stored yet.
// Existing (name, address) organizations and (start, end, org) ranges are
// left untouched, so importing the same feed twice changes nothing.
func (r *RangeRepository) UpsertAssignments(ctx context.Context, feed domain.Feed, assignments []domain.Assignment) (repository.UpsertResult, error) {
	var result repository.UpsertResult

	for i, a := range assignments {
		if err := a.Range.Validate(); err != nil {
			return result, fmt.Errorf("assignment %d: %w", i, err)
		}
	}

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		orgStmt, err := tx.PreparexContext(ctx, `
			INSERT INTO organization (name, address) VALUES (?, ?)
			ON CONFLICT(name, address) DO NOTHING
		`)
		if err != nil {
			return storageErr("prepare organization statement", err)
		}
		defer orgStmt.Close()

		orgIDStmt, err := tx.PreparexContext(ctx, `
			SELECT id FROM organization WHERE name = ? AND address = ?
		`)
		if err != nil {
			return storageErr("prepare organization lookup", err)
		}
		defer orgIDStmt.Close()

		rangeStmt, err := tx.PreparexContext(ctx, `
			INSERT INTO mac_range (range_start, range_end, org_id, class) VALUES (?, ?, ?, ?)
			ON CONFLICT(range_start, range_end, org_id) DO NOTHING
		`)
		if err != nil {
			return storageErr("prepare range statement", err)
		}
		defer rangeStmt.Close()

		orgIDs := make(map[orgKey]int64)

		for _, a := range assignments {
			org := a.Range.Organization
			key := orgKey{name: org.Name, address: org.Address}

			orgID, ok := orgIDs[key]
			if !ok {
				res, err := orgStmt.ExecContext(ctx, org.Name, org.Address)
				if err != nil {
					return storageErr("insert organization "+org.Name, err)
				}
				if n, _ := res.RowsAffected(); n > 0 {
					result.NewOrganizations++
				}

				if err := orgIDStmt.QueryRowxContext(ctx, org.Name, org.Address).Scan(&orgID); err != nil {
					return storageErr("look up organization "+org.Name, err)
				}
				orgIDs[key] = orgID
			}

			res, err := rangeStmt.ExecContext(ctx, int64(a.Range.Start), int64(a.Range.End), orgID, string(a.Class))
			if err != nil {
				return storageErr(fmt.Sprintf("insert range %s-%s", a.Range.Start, a.Range.End), err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.NewRanges++
			}
		}

		if feed.Class == "" {
			return nil
		}
		ingestedAt := feed.IngestedAt
		if ingestedAt.IsZero() {
			ingestedAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registry_feed (class, digest, row_count, ingested_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(class) DO UPDATE SET
				digest = excluded.digest,
				row_count = excluded.row_count,
				ingested_at = excluded.ingested_at
		`, string(feed.Class), feed.Digest, feed.Rows, timeToNanos(ingestedAt)); err != nil {
			return storageErr("record registry feed", err)
		}
		return nil
	})
	if err != nil {
		return repository.UpsertResult{}, err
	}

	return result, nil
}

// Resolve returns every range containing mac. Order is narrowest range
// first, then lowest start, then insertion order.
func (r *RangeRepository) Resolve(ctx context.Context, mac domain.MAC) ([]domain.MacRange, error) {
	if err := checkMAC(mac); err != nil {
		return nil, err
	}

	var rows []rangeRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT r.range_start, r.range_end, o.id AS org_id, o.name AS org_name, o.address AS org_address
		FROM mac_range r
		JOIN organization o ON o.id = r.org_id
		WHERE r.range_start <= ? AND r.range_end >= ?
		ORDER BY (r.range_end - r.range_start) ASC, r.range_start ASC, r.id ASC
	`, int64(mac), int64(mac))
	if err != nil {
		return nil, storageErr("query ranges", err)
	}

	ranges := make([]domain.MacRange, 0, len(rows))
	for _, row := range rows {
		ranges = append(ranges, row.toDomain())
	}
	return ranges, nil
}

// Feed returns the last ingestion record for a class
func (r *RangeRepository) Feed(ctx context.Context, class domain.AssignmentClass) (*domain.Feed, error) {
	var row feedRow
	err := r.db.GetContext(ctx, &row, `
		SELECT class, digest, row_count, ingested_at FROM registry_feed WHERE class = ?
	`, string(class))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query registry feed", err)
	}
	return row.toDomain(), nil
}

// CountOrganizations returns the number of stored organizations
func (r *RangeRepository) CountOrganizations(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM organization`); err != nil {
		return 0, storageErr("count organizations", err)
	}
	return n, nil
}

// CountRanges returns the number of stored ranges
func (r *RangeRepository) CountRanges(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM mac_range`); err != nil {
		return 0, storageErr("count ranges", err)
	}
	return n, nil
}

// Close closes the database connection
func (r *RangeRepository) Close() error {
	return r.db.Close()
}

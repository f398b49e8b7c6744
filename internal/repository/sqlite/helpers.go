package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"macwatch/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull stores empty strings as NULL
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// Time Helpers
// ============================================================================
//
// Instants are stored as INTEGER Unix nanoseconds in UTC. Integer storage
// keeps the uniqueness constraint on scan_timestamp.instant exact and
// makes range bounds a plain numeric comparison.

// timeToNanos converts an instant to its stored form
func timeToNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// nanosToTime converts a stored instant back to UTC
func nanosToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// nullNanosToTimePtr converts a nullable stored instant
func nullNanosToTimePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := nanosToTime(n.Int64)
	return &t
}

// rangeBounds maps a TimeRange onto inclusive integer bounds; open sides
// become the extremes of int64
func rangeBounds(r domain.TimeRange) (from, to int64) {
	from, to = math.MinInt64, math.MaxInt64
	if !r.From.IsZero() {
		from = timeToNanos(r.From)
	}
	if !r.To.IsZero() {
		to = timeToNanos(r.To)
	}
	return from, to
}

// ============================================================================
// Row Scanners
// ============================================================================

// rangeRow is one mac_range joined with its organization
type rangeRow struct {
	Start      int64  `db:"range_start"`
	End        int64  `db:"range_end"`
	OrgID      int64  `db:"org_id"`
	OrgName    string `db:"org_name"`
	OrgAddress string `db:"org_address"`
}

// toDomain converts the scanned row to a domain.MacRange
func (r rangeRow) toDomain() domain.MacRange {
	return domain.MacRange{
		Start: domain.MAC(r.Start),
		End:   domain.MAC(r.End),
		Organization: domain.Organization{
			ID:      r.OrgID,
			Name:    r.OrgName,
			Address: r.OrgAddress,
		},
	}
}

// feedRow is one registry_feed row
type feedRow struct {
	Class      string `db:"class"`
	Digest     string `db:"digest"`
	Rows       int    `db:"row_count"`
	IngestedAt int64  `db:"ingested_at"`
}

// toDomain converts the scanned row to a domain.Feed
func (r feedRow) toDomain() *domain.Feed {
	return &domain.Feed{
		Class:      domain.AssignmentClass(r.Class),
		Digest:     r.Digest,
		Rows:       r.Rows,
		IngestedAt: nanosToTime(r.IngestedAt),
	}
}

// deviceRow holds all columns of the device table.
// MUST match deviceColumns order.
type deviceRow struct {
	ID           int64          `db:"id"`
	MAC          int64          `db:"mac"`
	LastHostname sql.NullString `db:"last_hostname"`
	Name         sql.NullString `db:"name"`
	FirstSeen    sql.NullInt64  `db:"first_seen"`
	LastSeen     sql.NullInt64  `db:"last_seen"`
}

// toDomain converts the scanned row to a domain.Device
func (r deviceRow) toDomain() domain.Device {
	return domain.Device{
		ID:           r.ID,
		MAC:          domain.MAC(r.MAC),
		LastHostname: nullToString(r.LastHostname),
		Name:         nullToString(r.Name),
		FirstSeen:    nullNanosToTimePtr(r.FirstSeen),
		LastSeen:     nullNanosToTimePtr(r.LastSeen),
	}
}

// deviceColumns returns the SELECT column list for device queries
const deviceColumns = `id, mac, last_hostname, name, first_seen, last_seen`

// timestampRow is one scan_timestamp row
type timestampRow struct {
	ID      int64 `db:"id"`
	Instant int64 `db:"instant"`
}

// toDomain converts the scanned row to a domain.Timestamp
func (r timestampRow) toDomain() domain.Timestamp {
	return domain.Timestamp{ID: r.ID, Instant: nanosToTime(r.Instant)}
}

// presenceRow is one presence row
type presenceRow struct {
	DeviceID    int64 `db:"device_id"`
	TimestampID int64 `db:"timestamp_id"`
}

// checkMAC rejects addresses wider than 48 bits before they reach a query
func checkMAC(mac domain.MAC) error {
	if !mac.Valid() {
		return fmt.Errorf("%w: %#x exceeds 48 bits", domain.ErrInvalidArgument, uint64(mac))
	}
	return nil
}

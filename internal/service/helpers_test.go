package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"macwatch/internal/domain"
	"macwatch/internal/repository/sqlite"
)

// newTestStores opens both stores on one temporary database file
func newTestStores(t *testing.T) (*sqlite.RangeRepository, *sqlite.DeviceRepository) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "macwatch.db")

	ranges, err := sqlite.OpenRangeRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { ranges.Close() })

	devices, err := sqlite.OpenDeviceRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { devices.Close() })

	return ranges, devices
}

func assign(t *testing.T, class domain.AssignmentClass, prefix uint64, name, address string) domain.Assignment {
	t.Helper()
	start, end, err := class.BlockFor(prefix)
	require.NoError(t, err)
	return domain.Assignment{
		Class: class,
		Range: domain.MacRange{
			Start:        start,
			End:          end,
			Organization: domain.Organization{Name: name, Address: address},
		},
	}
}

func seed(t *testing.T, ranges *sqlite.RangeRepository, assignments ...domain.Assignment) {
	t.Helper()
	_, err := ranges.UpsertAssignments(context.Background(), domain.Feed{}, assignments)
	require.NoError(t, err)
}

// stubScanner returns a fixed set of sightings per call
type stubScanner struct {
	rounds [][]domain.Sighting
	calls  int
	err    error
}

func (s *stubScanner) Discover(ctx context.Context) ([]domain.Sighting, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Sighting
	if s.calls < len(s.rounds) {
		out = s.rounds[s.calls]
	}
	s.calls++
	return out, nil
}

// steppingClock returns start, start+step, start+2*step, ...
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

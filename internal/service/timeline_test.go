package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macwatch/internal/domain"
)

var (
	t1 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 = t1.Add(5 * time.Minute)
	t3 = t1.Add(10 * time.Minute)
)

func presentFlags(points []domain.HistoryPoint) []bool {
	flags := make([]bool, 0, len(points))
	for _, p := range points {
		flags = append(flags, p.Present)
	}
	return flags
}

func TestReconstruct(t *testing.T) {
	timestamps := []domain.Timestamp{{ID: 1, Instant: t1}, {ID: 2, Instant: t2}, {ID: 3, Instant: t3}}

	tests := []struct {
		name    string
		present map[int64]struct{}
		want    []bool
	}{
		{"gap in the middle", map[int64]struct{}{1: {}, 3: {}}, []bool{true, false, true}},
		{"never present", nil, []bool{false, false, false}},
		{"always present", map[int64]struct{}{1: {}, 2: {}, 3: {}}, []bool{true, true, true}},
		{"ids outside the window are ignored", map[int64]struct{}{9: {}}, []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := reconstruct(timestamps, tt.present)
			assert.Equal(t, tt.want, presentFlags(points))
			assert.Equal(t, t2, points[1].Instant)
		})
	}

	t.Run("no timestamps", func(t *testing.T) {
		points := reconstruct(nil, map[int64]struct{}{1: {}})
		assert.NotNil(t, points)
		assert.Empty(t, points)
	})
}

func TestTimeline_History(t *testing.T) {
	_, devices := newTestStores(t)
	ctx := context.Background()
	d1 := domain.MustParseMAC("00:50:c2:00:00:01")
	d2 := domain.MustParseMAC("00:50:c2:00:00:02")

	_, err := devices.RecordScan(ctx, t1, []domain.Sighting{{MAC: d1}})
	require.NoError(t, err)
	_, err = devices.RecordScan(ctx, t2, nil)
	require.NoError(t, err)
	_, err = devices.RecordScan(ctx, t3, []domain.Sighting{{MAC: d1}, {MAC: d2}})
	require.NoError(t, err)
	_, err = devices.SetName(ctx, d1, "printer")
	require.NoError(t, err)

	timeline := NewTimeline(devices)

	t.Run("present, absent, present", func(t *testing.T) {
		h, err := timeline.History(ctx, "00:50:c2:00:00:01", domain.TimeRange{})
		require.NoError(t, err)
		assert.Equal(t, d1, h.Device.MAC)
		assert.Equal(t, []bool{true, false, true}, presentFlags(h.Points))
		assert.True(t, t1.Equal(h.Points[0].Instant))
		assert.True(t, t3.Equal(h.Points[2].Instant))
	})

	t.Run("by name", func(t *testing.T) {
		h, err := timeline.History(ctx, "printer", domain.TimeRange{})
		require.NoError(t, err)
		assert.Equal(t, d1, h.Device.MAC)
		assert.Equal(t, 2, h.PresentCount())
	})

	t.Run("device first seen later is absent before", func(t *testing.T) {
		h, err := timeline.History(ctx, d2.String(), domain.TimeRange{})
		require.NoError(t, err)
		assert.Equal(t, []bool{false, false, true}, presentFlags(h.Points))
	})

	t.Run("bounded range", func(t *testing.T) {
		h, err := timeline.History(ctx, "printer", domain.TimeRange{From: t2})
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true}, presentFlags(h.Points))

		h, err = timeline.History(ctx, "printer", domain.TimeRange{From: t1, To: t1})
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, presentFlags(h.Points))
	})

	t.Run("unknown device has an empty history", func(t *testing.T) {
		h, err := timeline.History(ctx, "00:00:00:00:00:99", domain.TimeRange{})
		require.NoError(t, err)
		assert.Equal(t, domain.MustParseMAC("00:00:00:00:00:99"), h.Device.MAC)
		assert.NotNil(t, h.Points)
		assert.Empty(t, h.Points)

		h, err = timeline.History(ctx, "scanner", domain.TimeRange{})
		require.NoError(t, err)
		assert.Empty(t, h.Points)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := timeline.History(ctx, "printer", domain.TimeRange{From: t3, To: t1})
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestTimeline_NameThatLooksLikeMAC(t *testing.T) {
	_, devices := newTestStores(t)
	ctx := context.Background()

	_, err := devices.RecordScan(ctx, t1, []domain.Sighting{{MAC: 0x01}})
	require.NoError(t, err)
	_, err = devices.SetName(ctx, 0x01, "cafe")
	require.NoError(t, err)

	h, err := NewTimeline(devices).History(ctx, "cafe", domain.TimeRange{})
	require.NoError(t, err)
	assert.Equal(t, domain.MAC(0x01), h.Device.MAC)
}

func TestTimeline_HistoryAll(t *testing.T) {
	_, devices := newTestStores(t)
	ctx := context.Background()

	_, err := devices.RecordScan(ctx, t1, []domain.Sighting{{MAC: 0x30}, {MAC: 0x10}})
	require.NoError(t, err)
	_, err = devices.RecordScan(ctx, t2, []domain.Sighting{{MAC: 0x20}})
	require.NoError(t, err)
	_, err = devices.RecordScan(ctx, t3, []domain.Sighting{{MAC: 0x10}})
	require.NoError(t, err)

	histories, err := NewTimeline(devices).HistoryAll(ctx, domain.TimeRange{})
	require.NoError(t, err)
	require.Len(t, histories, 3)

	assert.Equal(t, domain.MAC(0x10), histories[0].Device.MAC)
	assert.Equal(t, domain.MAC(0x20), histories[1].Device.MAC)
	assert.Equal(t, domain.MAC(0x30), histories[2].Device.MAC)

	for _, h := range histories {
		assert.Len(t, h.Points, 3, "every series covers every timestamp")
	}
	assert.Equal(t, []bool{true, false, true}, presentFlags(histories[0].Points))
	assert.Equal(t, []bool{false, true, false}, presentFlags(histories[1].Points))
	assert.Equal(t, []bool{true, false, false}, presentFlags(histories[2].Points))

	t.Run("empty store", func(t *testing.T) {
		_, empty := newTestStores(t)
		histories, err := NewTimeline(empty).HistoryAll(ctx, domain.TimeRange{})
		require.NoError(t, err)
		assert.NotNil(t, histories)
		assert.Empty(t, histories)
	})
}

func TestTimeline_EmptyStore(t *testing.T) {
	_, devices := newTestStores(t)

	h, err := NewTimeline(devices).History(context.Background(), "00:11:22:33:44:55", domain.TimeRange{})
	require.NoError(t, err)
	assert.Empty(t, h.Points)
}

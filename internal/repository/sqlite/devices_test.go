package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macwatch/internal/domain"
)

func TestDeviceRepository_RecordSighting(t *testing.T) {
	repo := newTestDeviceRepo(t)
	ctx := context.Background()
	mac := domain.MustParseMAC("00:50:c2:00:00:01")
	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	device, err := repo.RecordSighting(ctx, domain.Sighting{MAC: mac, Hostname: "printer"}, t1)
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, mac, device.MAC)
	assert.Equal(t, "printer", device.LastHostname)
	assert.Empty(t, device.Name)
	require.NotNil(t, device.FirstSeen)
	assert.True(t, t1.Equal(*device.FirstSeen))

	t.Run("second sighting keeps identity and first seen", func(t *testing.T) {
		again, err := repo.RecordSighting(ctx, domain.Sighting{MAC: mac, Hostname: "printer-2"}, t2)
		require.NoError(t, err)
		assert.Equal(t, device.ID, again.ID)
		assert.Equal(t, "printer-2", again.LastHostname)
		assert.True(t, t1.Equal(*again.FirstSeen))
		assert.True(t, t2.Equal(*again.LastSeen))
	})

	t.Run("empty hostname clears the last hostname", func(t *testing.T) {
		again, err := repo.RecordSighting(ctx, domain.Sighting{MAC: mac}, t2)
		require.NoError(t, err)
		assert.Empty(t, again.LastHostname)
	})

	t.Run("rejects wide values", func(t *testing.T) {
		_, err := repo.RecordSighting(ctx, domain.Sighting{MAC: domain.MAC(1 << 48)}, t1)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	devices, err := repo.ListDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestDeviceRepository_Names(t *testing.T) {
	repo := newTestDeviceRepo(t)
	ctx := context.Background()
	mac := domain.MAC(0x0050C2000001)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.RecordSighting(ctx, domain.Sighting{MAC: mac, Hostname: "host"}, now)
	require.NoError(t, err)

	t.Run("set name", func(t *testing.T) {
		device, err := repo.SetName(ctx, mac, "  laptop ")
		require.NoError(t, err)
		assert.Equal(t, "laptop", device.Name)
		assert.Equal(t, "laptop", device.DisplayName())
	})

	t.Run("sighting does not change the name", func(t *testing.T) {
		device, err := repo.RecordSighting(ctx, domain.Sighting{MAC: mac, Hostname: "other"}, now.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "laptop", device.Name)
		assert.Equal(t, "other", device.LastHostname)
	})

	t.Run("find by name", func(t *testing.T) {
		device, err := repo.FindDeviceByName(ctx, "laptop")
		require.NoError(t, err)
		require.NotNil(t, device)
		assert.Equal(t, mac, device.MAC)

		missing, err := repo.FindDeviceByName(ctx, "nothing")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("duplicate names resolve to the oldest device", func(t *testing.T) {
		_, err := repo.SetName(ctx, 0x0050C2000002, "laptop")
		require.NoError(t, err)

		device, err := repo.FindDeviceByName(ctx, "laptop")
		require.NoError(t, err)
		assert.Equal(t, mac, device.MAC)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := repo.SetName(ctx, mac, "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("clear name", func(t *testing.T) {
		device, err := repo.ClearName(ctx, mac)
		require.NoError(t, err)
		assert.Empty(t, device.Name)
		assert.Equal(t, "other", device.DisplayName())
	})

	t.Run("clear name of unknown device", func(t *testing.T) {
		_, err := repo.ClearName(ctx, 0x0000000000AA)
		assert.ErrorIs(t, err, domain.ErrDeviceNotFound)

		device, err := repo.GetDevice(ctx, 0x0000000000AA)
		require.NoError(t, err)
		assert.Nil(t, device)
	})
}

func TestDeviceRepository_SetNameCreatesDevice(t *testing.T) {
	repo := newTestDeviceRepo(t)
	ctx := context.Background()

	device, err := repo.SetName(ctx, 0x0050C2000009, "nas")
	require.NoError(t, err)
	assert.Equal(t, "nas", device.Name)
	assert.Nil(t, device.FirstSeen)
	assert.Nil(t, device.LastSeen)

	// a later sighting fills in the timestamps
	seen := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	device, err = repo.RecordSighting(ctx, domain.Sighting{MAC: 0x0050C2000009}, seen)
	require.NoError(t, err)
	require.NotNil(t, device.FirstSeen)
	assert.True(t, seen.Equal(*device.FirstSeen))
	assert.Equal(t, "nas", device.Name)
}

func TestDeviceRepository_ListOrderedByMAC(t *testing.T) {
	repo := newTestDeviceRepo(t)
	ctx := context.Background()
	now := time.Now()

	for _, mac := range []domain.MAC{0x30, 0x10, 0x20} {
		_, err := repo.RecordSighting(ctx, domain.Sighting{MAC: mac}, now)
		require.NoError(t, err)
	}

	devices, err := repo.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, domain.MAC(0x10), devices[0].MAC)
	assert.Equal(t, domain.MAC(0x20), devices[1].MAC)
	assert.Equal(t, domain.MAC(0x30), devices[2].MAC)
}

func TestDeviceRepository_RejectsWideMAC(t *testing.T) {
	repo := newTestDeviceRepo(t)
	ctx := context.Background()
	wide := domain.MAC(1 << 48)

	_, err := repo.GetDevice(ctx, wide)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = repo.ClearName(ctx, wide)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = repo.SetName(ctx, wide, "nas")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

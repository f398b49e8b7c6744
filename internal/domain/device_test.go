package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeRange(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	t.Run("open ranges are valid", func(t *testing.T) {
		assert.NoError(t, TimeRange{}.Validate())
		assert.NoError(t, TimeRange{From: t2}.Validate())
		assert.NoError(t, TimeRange{To: t2}.Validate())
	})

	t.Run("single instant is valid", func(t *testing.T) {
		assert.NoError(t, TimeRange{From: t1, To: t1}.Validate())
	})

	t.Run("inverted range is rejected", func(t *testing.T) {
		r := TimeRange{From: t3, To: t1}
		assert.ErrorIs(t, r.Validate(), ErrInvalidArgument)
	})
}

func TestDeviceDisplayName(t *testing.T) {
	d := Device{MAC: 0x0050C2000001}
	assert.Equal(t, "00:50:c2:00:00:01", d.DisplayName())

	d.LastHostname = "printer.lan"
	assert.Equal(t, "printer.lan", d.DisplayName())

	d.Name = "office printer"
	assert.Equal(t, "office printer", d.DisplayName())
}

func TestDeviceHistoryPresentCount(t *testing.T) {
	h := DeviceHistory{Points: []HistoryPoint{{Present: true}, {Present: false}, {Present: true}}}
	assert.Equal(t, 2, h.PresentCount())
}

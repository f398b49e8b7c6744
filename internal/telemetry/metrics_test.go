package telemetry

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_AllRegistered(t *testing.T) {
	cases := []struct {
		name string
		c    prometheus.Collector
	}{
		{"macwatch_http_requests_total", HTTPRequestsTotal},
		{"macwatch_http_request_duration_seconds", HTTPRequestDuration},
		{"macwatch_registry_rows_total", RegistryRowsTotal},
		{"macwatch_registry_ingests_total", RegistryIngestsTotal},
		{"macwatch_scan_cycles_total", ScanCyclesTotal},
		{"macwatch_scan_devices", ScanDevices},
		{"macwatch_scan_duration_seconds", ScanDuration},
		{"macwatch_resolve_lookups_total", ResolveLookupsTotal},
		{"macwatch_event_clients", EventClients},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := make(chan *prometheus.Desc, 10)
			tc.c.Describe(ch)
			close(ch)

			found := false
			for desc := range ch {
				if strings.Contains(desc.String(), `"`+tc.name+`"`) {
					found = true
				}
			}
			assert.True(t, found, "metric %s not described", tc.name)
		})
	}
}

func TestRegistryRowsTotal_Increments(t *testing.T) {
	counter := RegistryRowsTotal.WithLabelValues("MA-S", "accepted")

	var before dto.Metric
	require.NoError(t, counter.Write(&before))

	counter.Add(3)

	var after dto.Metric
	require.NoError(t, counter.Write(&after))
	assert.Equal(t, before.GetCounter().GetValue()+3, after.GetCounter().GetValue())
}

func TestEventClients_Gauge(t *testing.T) {
	EventClients.Set(0)
	EventClients.Inc()
	EventClients.Inc()
	EventClients.Dec()

	var m dto.Metric
	require.NoError(t, EventClients.Write(&m))
	assert.Equal(t, float64(1), m.GetGauge().GetValue())
	EventClients.Set(0)
}

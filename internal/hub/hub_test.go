package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macwatch/internal/service"
)

// connect opens an event stream and waits for the greeting
func connect(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)
	_, _ = r.ReadString('\n')

	return r, func() {
		cancel()
		resp.Body.Close()
	}
}

func readMessage(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestHub_Broadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	r, disconnect := connect(t, srv.URL)
	defer disconnect()
	assert.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast(service.Event{Type: service.EventDeviceRenamed, Payload: map[string]string{"name": "printer"}})

	msg := readMessage(t, r)
	require.Len(t, msg, 2)
	assert.Equal(t, "event: device_renamed", msg[0])
	assert.JSONEq(t, `{"type":"device_renamed","payload":{"name":"printer"}}`, strings.TrimPrefix(msg[1], "data: "))
}

func TestHub_Forward(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New()
	go h.Run(ctx)

	bus := service.NewEventBus()
	go h.Forward(ctx, bus)

	srv := httptest.NewServer(h)
	defer srv.Close()

	r, disconnect := connect(t, srv.URL)
	defer disconnect()

	// Forward subscribes asynchronously; publish until the message arrives
	done := make(chan []string, 1)
	go func() {
		lines := []string{}
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSuffix(line, "\n")
			if line == "" && len(lines) > 0 {
				done <- lines
				return
			}
			if line != "" {
				lines = append(lines, line)
			}
		}
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case msg := <-done:
			assert.Equal(t, "event: scan_completed", msg[0])
			return
		case <-tick.C:
			bus.Publish(service.Event{Type: service.EventScanCompleted})
		case <-deadline:
			t.Fatal("event was not forwarded")
		}
	}
}

func TestHub_Disconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New()
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	_, disconnect := connect(t, srv.URL)
	disconnect()

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEncode(t *testing.T) {
	msg, err := encode(service.Event{Type: service.EventScanCompleted})
	require.NoError(t, err)
	assert.Equal(t, "event: scan_completed\ndata: {\"type\":\"scan_completed\"}\n\n", string(msg))

	_, err = encode(service.Event{Type: service.EventScanCompleted, Payload: make(chan int)})
	assert.Error(t, err)
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"macwatch/internal/codec"
	"macwatch/internal/domain"
	"macwatch/internal/service"
)

// APIHandler handles API requests
type APIHandler struct {
	inventory *service.Inventory
	resolver  *service.Resolver
	timeline  *service.Timeline
	registry  *service.RegistrySync
	now       func() time.Time
}

// NewAPIHandler creates a new API handler. registry may be nil, in which
// case ingest requests are answered with 503.
func NewAPIHandler(inventory *service.Inventory, resolver *service.Resolver, timeline *service.Timeline, registry *service.RegistrySync) *APIHandler {
	return &APIHandler{
		inventory: inventory,
		resolver:  resolver,
		timeline:  timeline,
		registry:  registry,
		now:       time.Now,
	}
}

// Register adds the API routes to mux
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/resolve/{mac}", h.Resolve)

	mux.HandleFunc("GET /api/devices", h.ListDevices)
	mux.HandleFunc("GET /api/devices/{ref}", h.GetDevice)
	mux.HandleFunc("GET /api/devices/{ref}/history", h.GetHistory)
	mux.HandleFunc("PUT /api/devices/{mac}/name", h.SetName)
	mux.HandleFunc("DELETE /api/devices/{mac}/name", h.ClearName)

	mux.HandleFunc("GET /api/history", h.ListHistory)
	mux.HandleFunc("GET /api/export", h.Export)

	mux.HandleFunc("POST /api/scan", h.Scan)
	mux.HandleFunc("POST /api/registry/ingest", h.Ingest)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Resolve returns the organizations whose ranges contain the address
func (h *APIHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.resolver.ResolveString(r.Context(), r.PathValue("mac"))
	if err != nil {
		h.fail(w, "Failed to resolve address", err)
		return
	}

	h.writeJSON(w, orgs, http.StatusOK)
}

// ListDevices returns every device ordered by MAC
func (h *APIHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.inventory.Devices(r.Context())
	if err != nil {
		h.fail(w, "Failed to list devices", err)
		return
	}

	h.writeJSON(w, devices, http.StatusOK)
}

// GetDevice returns a single device
func (h *APIHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.inventory.Device(r.Context(), r.PathValue("ref"))
	if err != nil {
		h.fail(w, "Failed to get device", err)
		return
	}

	h.writeJSON(w, device, http.StatusOK)
}

// GetHistory returns the presence timeline of one device as
// [{timestamp, present}]. An unknown device has an empty timeline.
func (h *APIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	tr, err := parseTimeRange(r)
	if err != nil {
		h.fail(w, "Invalid time range", err)
		return
	}

	history, err := h.timeline.History(r.Context(), r.PathValue("ref"), tr)
	if err != nil {
		h.fail(w, "Failed to get history", err)
		return
	}

	h.writeJSON(w, history.Points, http.StatusOK)
}

// ListHistory returns the timelines of every device
func (h *APIHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	tr, err := parseTimeRange(r)
	if err != nil {
		h.fail(w, "Invalid time range", err)
		return
	}

	histories, err := h.timeline.HistoryAll(r.Context(), tr)
	if err != nil {
		h.fail(w, "Failed to get history", err)
		return
	}

	h.writeJSON(w, histories, http.StatusOK)
}

// Export writes every timeline as a download in the requested format
func (h *APIHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		h.fail(w, "Invalid export format", err)
		return
	}

	tr, err := parseTimeRange(r)
	if err != nil {
		h.fail(w, "Invalid time range", err)
		return
	}

	histories, err := h.timeline.HistoryAll(r.Context(), tr)
	if err != nil {
		h.fail(w, "Failed to export history", err)
		return
	}

	if c.Format() == "yaml" {
		w.Header().Set("Content-Type", "application/x-yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=macwatch-history.%s", c.Format()))

	if err := c.Export(codec.NewDocument(histories, tr, h.now()), w); err != nil {
		// Can't write error response as we already set headers
		slog.Error("failed to export history", "format", c.Format(), "error", err)
	}
}

// NameRequest is the body of a rename
type NameRequest struct {
	Name string `json:"name"`
}

// SetName assigns an operator name to a device, creating it if unseen
func (h *APIHandler) SetName(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	device, err := h.inventory.SetName(r.Context(), r.PathValue("mac"), req.Name)
	if err != nil {
		h.fail(w, "Failed to set name", err)
		return
	}

	h.writeJSON(w, device, http.StatusOK)
}

// ClearName removes the operator name of a device
func (h *APIHandler) ClearName(w http.ResponseWriter, r *http.Request) {
	device, err := h.inventory.ClearName(r.Context(), r.PathValue("mac"))
	if err != nil {
		h.fail(w, "Failed to clear name", err)
		return
	}

	h.writeJSON(w, device, http.StatusOK)
}

// Scan runs one scan cycle and returns what it recorded
func (h *APIHandler) Scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.inventory.Scan(r.Context())
	if err != nil {
		h.fail(w, "Scan failed", err)
		return
	}

	h.writeJSON(w, result, http.StatusOK)
}

// Ingest re-reads the configured registry feed files
func (h *APIHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.writeError(w, "Registry not configured", "No registry feeds are configured", http.StatusServiceUnavailable)
		return
	}

	reports, err := h.registry.Sync(r.Context())
	if err != nil {
		h.fail(w, "Registry ingest failed", err)
		return
	}

	h.writeJSON(w, reports, http.StatusOK)
}

// parseTimeRange reads the optional from and to query parameters
func parseTimeRange(r *http.Request) (domain.TimeRange, error) {
	var tr domain.TimeRange
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &tr.From}, {"to", &tr.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return tr, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, p.name, err)
		}
		*p.dst = t
	}
	return tr, tr.Validate()
}

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrMalformedRecord):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDeviceNotFound),
		errors.Is(err, domain.ErrUnknownReference):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, service.ErrNoScanner):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err with the status of its kind, logging server-side failures
func (h *APIHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err)
	}
	h.writeError(w, msg, err.Error(), status)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON", "error", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

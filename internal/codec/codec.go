// Package codec serializes device timelines for export.
package codec

import (
	"fmt"
	"io"
	"strings"
	"time"

	"macwatch/internal/domain"
)

// Document is an exported set of device histories
type Document struct {
	GeneratedAt time.Time              `json:"generated_at"`
	From        *time.Time             `json:"from,omitempty"`
	To          *time.Time             `json:"to,omitempty"`
	Devices     []domain.DeviceHistory `json:"devices"`
}

// NewDocument wraps histories queried over r
func NewDocument(histories []domain.DeviceHistory, r domain.TimeRange, now time.Time) *Document {
	doc := &Document{GeneratedAt: now.UTC(), Devices: histories}
	if doc.Devices == nil {
		doc.Devices = []domain.DeviceHistory{}
	}
	if !r.From.IsZero() {
		from := r.From.UTC()
		doc.From = &from
	}
	if !r.To.IsZero() {
		to := r.To.UTC()
		doc.To = &to
	}
	return doc
}

// Importer interface for reading an exported document back
type Importer interface {
	Parse(r io.Reader) (*Document, error)
	Format() string
}

// Exporter interface for writing device histories in various formats
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
}

// Codec both reads and writes one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec registered under format
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	}
	return nil, fmt.Errorf("%w: unsupported export format %q", domain.ErrInvalidArgument, format)
}

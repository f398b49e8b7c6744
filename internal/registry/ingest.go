package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"macwatch/internal/domain"
	"macwatch/internal/repository"
	"macwatch/internal/telemetry"
)

// maxRowErrors bounds how many per-row failures a Report keeps
const maxRowErrors = 50

// RowError describes one skipped feed row
type RowError struct {
	Line int   `json:"line"`
	Err  error `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Unwrap exposes the row failure to errors.Is
func (e RowError) Unwrap() error {
	return e.Err
}

// Report summarizes one feed ingestion
type Report struct {
	Class            domain.AssignmentClass `json:"class"`
	Digest           string                 `json:"digest"`
	Accepted         int                    `json:"accepted"`
	Skipped          int                    `json:"skipped"`
	Placeholders     int                    `json:"placeholders"`
	NewOrganizations int                    `json:"new_organizations"`
	NewRanges        int                    `json:"new_ranges"`
	Unchanged        bool                   `json:"unchanged"`
	Errors           []RowError             `json:"-"`
}

// IngestorOption configures an Ingestor
type IngestorOption func(*Ingestor)

// WithForce re-ingests feeds even when their digest matches the last run
func WithForce(force bool) IngestorOption {
	return func(i *Ingestor) {
		i.force = force
	}
}

// WithClock sets the clock used for feed ingestion times
func WithClock(now func() time.Time) IngestorOption {
	return func(i *Ingestor) {
		i.now = now
	}
}

// Ingestor loads registry feeds into a range store
type Ingestor struct {
	store repository.RangeStore
	force bool
	now   func() time.Time
}

// NewIngestor creates an ingestor writing to store
func NewIngestor(store repository.RangeStore, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestFile ingests the feed at path as class
func (i *Ingestor) IngestFile(ctx context.Context, class domain.AssignmentClass, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s feed: %w", class, err)
	}
	defer f.Close()

	return i.Ingest(ctx, class, f)
}

// IngestFiles ingests one feed file per class in MA-L, MA-M, MA-S order.
// Classes without a path are skipped.
func (i *Ingestor) IngestFiles(ctx context.Context, paths map[domain.AssignmentClass]string) ([]*Report, error) {
	var reports []*Report
	for _, class := range domain.AssignmentClasses {
		path := paths[class]
		if path == "" {
			continue
		}
		report, err := i.IngestFile(ctx, class, path)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Ingest reads a class feed from r. Malformed rows are skipped and
// reported; only read and storage failures abort the batch.
func (i *Ingestor) Ingest(ctx context.Context, class domain.AssignmentClass, r io.Reader) (*Report, error) {
	if !class.Valid() {
		return nil, fmt.Errorf("%w: unknown assignment class %q", domain.ErrInvalidArgument, class)
	}

	data, digest, err := ReadWithDigest(r)
	if err != nil {
		telemetry.RegistryIngestsTotal.WithLabelValues(string(class), "error").Inc()
		return nil, err
	}

	report := &Report{Class: class, Digest: digest}

	if !i.force {
		feed, err := i.store.Feed(ctx, class)
		if err != nil {
			telemetry.RegistryIngestsTotal.WithLabelValues(string(class), "error").Inc()
			return nil, err
		}
		if feed != nil && feed.Digest == digest {
			report.Unchanged = true
			telemetry.RegistryIngestsTotal.WithLabelValues(string(class), "unchanged").Inc()
			slog.Info("registry feed unchanged", "class", class, "digest", digest[:12])
			return report, nil
		}
	}

	assignments, err := parseFeed(class, data, report)
	if err != nil {
		telemetry.RegistryIngestsTotal.WithLabelValues(string(class), "error").Inc()
		return nil, err
	}

	result, err := i.store.UpsertAssignments(ctx, domain.Feed{
		Class:      class,
		Digest:     digest,
		Rows:       report.Accepted,
		IngestedAt: i.now(),
	}, assignments)
	if err != nil {
		telemetry.RegistryIngestsTotal.WithLabelValues(string(class), "error").Inc()
		return nil, fmt.Errorf("failed to store %s assignments: %w", class, err)
	}
	report.NewOrganizations = result.NewOrganizations
	report.NewRanges = result.NewRanges

	telemetry.RegistryIngestsTotal.WithLabelValues(string(class), "ingested").Inc()
	telemetry.RegistryRowsTotal.WithLabelValues(string(class), "accepted").Add(float64(report.Accepted))
	telemetry.RegistryRowsTotal.WithLabelValues(string(class), "skipped").Add(float64(report.Skipped))
	telemetry.RegistryRowsTotal.WithLabelValues(string(class), "placeholder").Add(float64(report.Placeholders))

	slog.Info("registry feed ingested",
		"class", class,
		"accepted", report.Accepted,
		"skipped", report.Skipped,
		"placeholders", report.Placeholders,
		"new_organizations", report.NewOrganizations,
		"new_ranges", report.NewRanges,
	)
	for _, rowErr := range report.Errors {
		slog.Debug("registry row skipped", "class", class, "line", rowErr.Line, "error", rowErr.Err)
	}

	return report, nil
}

// parseFeed decodes every data row of a feed, recording per-row outcomes
// in report. The first row is the header.
func parseFeed(class domain.AssignmentClass, data []byte, report *Report) ([]domain.Assignment, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var assignments []domain.Assignment
	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}

		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			return nil, fmt.Errorf("failed to read %s feed: %w", class, err)
		}

		if header {
			header = false
			continue
		}

		if parseErr != nil {
			report.skip(parseErr.StartLine, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, parseErr.Err))
			continue
		}

		line, _ := cr.FieldPos(0)
		a, err := parseRecord(class, rec)
		switch {
		case errors.Is(err, errPlaceholder):
			report.Placeholders++
		case err != nil:
			report.skip(line, err)
		default:
			report.Accepted++
			assignments = append(assignments, a)
		}
	}
	return assignments, nil
}

func (r *Report) skip(line int, err error) {
	r.Skipped++
	if len(r.Errors) < maxRowErrors {
		r.Errors = append(r.Errors, RowError{Line: line, Err: err})
	}
}

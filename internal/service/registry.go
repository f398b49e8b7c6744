package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"macwatch/internal/domain"
	"macwatch/internal/registry"
)

// RegistrySync ingests the configured registry feed files
type RegistrySync struct {
	ingestor *registry.Ingestor
	feeds    map[domain.AssignmentClass]string
	bus      *EventBus

	mu sync.Mutex
}

// NewRegistrySync creates a sync over one feed path per class
func NewRegistrySync(ingestor *registry.Ingestor, feeds map[domain.AssignmentClass]string, bus *EventBus) *RegistrySync {
	return &RegistrySync{
		ingestor: ingestor,
		feeds:    feeds,
		bus:      bus,
	}
}

// Paths returns the configured feed files in class order
func (s *RegistrySync) Paths() []string {
	var paths []string
	for _, class := range domain.AssignmentClasses {
		if p := s.feeds[class]; p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Sync ingests every configured feed
func (s *RegistrySync) Sync(ctx context.Context) ([]*registry.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.ingestor.IngestFiles(ctx, s.feeds)
	for _, r := range reports {
		s.publish(r)
	}
	return reports, err
}

// SyncFile ingests the feed configured at path
func (s *RegistrySync) SyncFile(ctx context.Context, path string) (*registry.Report, error) {
	class, ok := s.classOf(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a configured registry feed", domain.ErrInvalidArgument, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.ingestor.IngestFile(ctx, class, s.feeds[class])
	if err != nil {
		return nil, err
	}
	s.publish(report)
	return report, nil
}

func (s *RegistrySync) classOf(path string) (domain.AssignmentClass, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for class, p := range s.feeds {
		if p == "" {
			continue
		}
		if pAbs, err := filepath.Abs(p); err == nil && pAbs == abs {
			return class, true
		}
	}
	return "", false
}

func (s *RegistrySync) publish(r *registry.Report) {
	if r.Unchanged {
		return
	}
	s.bus.Publish(Event{Type: EventRegistryIngested, Payload: r})
}

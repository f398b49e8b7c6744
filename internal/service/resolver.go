package service

import (
	"context"

	"macwatch/internal/domain"
	"macwatch/internal/repository"
	"macwatch/internal/telemetry"
)

// Resolver answers which organizations own a MAC address
type Resolver struct {
	ranges repository.RangeStore
}

// NewResolver creates a resolver over a range store
func NewResolver(ranges repository.RangeStore) *Resolver {
	return &Resolver{ranges: ranges}
}

// Resolve returns the organizations whose ranges contain mac, narrowest
// range first. An organization owning several containing ranges appears
// once, at the position of its narrowest one. No match is an empty slice.
func (r *Resolver) Resolve(ctx context.Context, mac uint64) ([]domain.Organization, error) {
	m, err := domain.MACFromUint64(mac)
	if err != nil {
		return nil, err
	}
	return r.ResolveMAC(ctx, m)
}

// ResolveString parses s and resolves it
func (r *Resolver) ResolveString(ctx context.Context, s string) ([]domain.Organization, error) {
	m, err := domain.ParseMAC(s)
	if err != nil {
		return nil, err
	}
	return r.ResolveMAC(ctx, m)
}

// ResolveMAC resolves an already validated address
func (r *Resolver) ResolveMAC(ctx context.Context, mac domain.MAC) ([]domain.Organization, error) {
	ranges, err := r.ranges.Resolve(ctx, mac)
	if err != nil {
		return nil, err
	}

	orgs := make([]domain.Organization, 0, len(ranges))
	seen := make(map[domain.Organization]bool, len(ranges))
	for _, rng := range ranges {
		org := rng.Organization
		key := domain.Organization{Name: org.Name, Address: org.Address}
		if seen[key] {
			continue
		}
		seen[key] = true
		orgs = append(orgs, org)
	}

	if len(orgs) == 0 {
		telemetry.ResolveLookupsTotal.WithLabelValues("none").Inc()
	} else {
		telemetry.ResolveLookupsTotal.WithLabelValues("match").Inc()
	}
	return orgs, nil
}

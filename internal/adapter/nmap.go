package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"macwatch/internal/domain"
)

// NmapScanner discovers devices with an nmap ping sweep (-sn). On a local
// segment nmap reports the hardware address of every host that answered
// ARP; hosts without one (the scanning machine, routed hosts) are skipped.
type NmapScanner struct {
	targets      []string
	timeout      time.Duration
	binaryPath   string
	privileged   bool
	resolveNames bool
	runner       func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error)
}

// NewNmapScanner creates an nmap-based scanner
// targets: list of CIDR ranges or individual IPs to sweep
// opts: optional configuration options
func NewNmapScanner(targets []string, opts ...NmapOption) *NmapScanner {
	scanner := &NmapScanner{
		targets:      targets,
		timeout:      5 * time.Minute,
		resolveNames: true,
		runner:       runNmap,
	}

	for _, opt := range opts {
		opt(scanner)
	}

	return scanner
}

// Name returns the scanner identifier
func (n *NmapScanner) Name() string {
	return "nmap"
}

// Discover sweeps every target and returns one sighting per MAC address
func (n *NmapScanner) Discover(ctx context.Context) ([]domain.Sighting, error) {
	if len(n.targets) == 0 {
		return nil, fmt.Errorf("nmap: no scan targets configured")
	}

	targets, err := expandTargets(n.targets)
	if err != nil {
		return nil, err
	}

	slog.Info("nmap sweep started", "targets", targets)

	var c collector
	failed := 0
	for _, target := range targets {
		result, err := n.scanTarget(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("nmap sweep failed", "target", target, "error", err)
			failed++
			continue
		}
		for _, s := range processResults(result) {
			c.add(s)
		}
	}

	if failed == len(targets) {
		return nil, fmt.Errorf("nmap: every target failed")
	}

	slog.Info("nmap sweep complete", "targets", len(targets), "devices", len(c.out))
	return c.sightings(), nil
}

// scanTarget performs the ping sweep of a single target
func (n *NmapScanner) scanTarget(ctx context.Context, target string) (*nmap.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(target),
		nmap.WithPingScan(),
	}
	if n.binaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(n.binaryPath))
	}
	if n.privileged {
		opts = append(opts, nmap.WithPrivileged())
	}
	if !n.resolveNames {
		opts = append(opts, nmap.WithDisabledDNSResolution())
	}

	slog.Debug("nmap scanning target", "target", target)
	return n.runner(ctx, opts...)
}

func runNmap(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error) {
	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		slog.Warn("nmap reported warnings", "warnings", *warnings)
	}
	return result, nil
}

// processResults converts the hosts of an nmap run into sightings
func processResults(result *nmap.Run) []domain.Sighting {
	if result == nil {
		return nil
	}

	var sightings []domain.Sighting
	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}

		var ip, mac string
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "ipv4", "ipv6":
				if ip == "" {
					ip = addr.Addr
				}
			case "mac":
				mac = addr.Addr
			}
		}

		if mac == "" {
			slog.Debug("nmap host without hardware address", "ip", ip)
			continue
		}

		m, err := domain.ParseMAC(mac)
		if err != nil {
			slog.Warn("nmap reported unparseable hardware address", "ip", ip, "mac", mac, "error", err)
			continue
		}

		s := domain.Sighting{MAC: m, IP: ip}
		if len(host.Hostnames) > 0 {
			s.Hostname = cleanHostname(host.Hostnames[0].Name)
		}
		sightings = append(sightings, s)
	}

	return sightings
}

// expandTargets validates CIDR targets; nmap expands them itself
func expandTargets(targets []string) ([]string, error) {
	var expanded []string
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if strings.Contains(target, "/") {
			_, ipNet, err := net.ParseCIDR(target)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %s: %w", target, err)
			}
			expanded = append(expanded, ipNet.String())
		} else {
			// Single IP or hostname
			expanded = append(expanded, target)
		}
	}
	if len(expanded) == 0 {
		return nil, fmt.Errorf("no scan targets configured")
	}
	return expanded, nil
}

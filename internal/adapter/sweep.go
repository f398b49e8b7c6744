package adapter

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"macwatch/internal/domain"
)

// DefaultARPTable is the Linux kernel neighbour table
const DefaultARPTable = "/proc/net/arp"

// SweepConfig holds configuration for the unprivileged sweep scanner
type SweepConfig struct {
	// Targets are the CIDR ranges or single IPs to sweep
	Targets []string
	// ProbePorts are dialled on every address; any answer, even a
	// refusal, leaves the host in the kernel ARP table
	ProbePorts []int
	// Timeout for individual connection attempts
	Timeout time.Duration
	// ScanTimeout bounds a whole Discover call; zero means no bound
	ScanTimeout time.Duration
	// MaxConcurrent limits parallel probe operations
	MaxConcurrent int
	// ARPTable is the neighbour table to read afterwards
	ARPTable string
}

// DefaultSweepConfig returns sensible defaults for a home network
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		ProbePorts:    []int{80, 443, 22, 445},
		Timeout:       750 * time.Millisecond,
		MaxConcurrent: 128,
		ARPTable:      DefaultARPTable,
	}
}

// SweepScanner discovers devices without nmap or root: it pokes every
// address with TCP connection attempts, then reads the hardware addresses
// the kernel resolved from its ARP table.
type SweepScanner struct {
	config SweepConfig
	lookup func(ip string) string

	mu       sync.Mutex
	scanning bool
}

// NewSweepScanner creates a sweep scanner
func NewSweepScanner(config SweepConfig) *SweepScanner {
	defaults := DefaultSweepConfig()
	if len(config.ProbePorts) == 0 {
		config.ProbePorts = defaults.ProbePorts
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.ARPTable == "" {
		config.ARPTable = defaults.ARPTable
	}
	return &SweepScanner{
		config: config,
		lookup: reverseDNS,
	}
}

// Name returns the scanner identifier
func (s *SweepScanner) Name() string {
	return "sweep"
}

// Discover sweeps the configured targets and returns the devices found in
// the ARP table inside them
func (s *SweepScanner) Discover(ctx context.Context) ([]domain.Sighting, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, fmt.Errorf("scan already in progress")
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	if s.config.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ScanTimeout)
		defer cancel()
	}

	var ips []string
	var networks []*net.IPNet
	for _, target := range s.config.Targets {
		expanded, network, err := expandCIDR(target)
		if err != nil {
			return nil, fmt.Errorf("invalid target %s: %w", target, err)
		}
		ips = append(ips, expanded...)
		networks = append(networks, network)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("sweep: no scan targets configured")
	}

	slog.Info("sweep started", "targets", s.config.Targets, "addresses", len(ips))
	s.probe(ctx, ips)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := readARPTable(s.config.ARPTable)
	if err != nil {
		return nil, err
	}

	var c collector
	for _, e := range entries {
		ip := net.ParseIP(e.ip)
		if ip == nil || !containedIn(ip, networks) {
			continue
		}
		c.add(domain.Sighting{MAC: e.mac, IP: e.ip, Hostname: cleanHostname(s.lookup(e.ip))})
	}

	slog.Info("sweep complete", "addresses", len(ips), "devices", len(c.out))
	return c.sightings(), nil
}

// probe dials every port of every address through a worker pool
func (s *SweepScanner) probe(ctx context.Context, ips []string) {
	type probeJob struct {
		ip   string
		port int
	}
	jobs := make(chan probeJob, s.config.MaxConcurrent)

	var wg sync.WaitGroup
	for i := 0; i < s.config.MaxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				dialer := net.Dialer{Timeout: s.config.Timeout}
				conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(job.ip, fmt.Sprint(job.port)))
				if err == nil {
					conn.Close()
				}
			}
		}()
	}

	for _, ip := range ips {
		for _, port := range s.config.ProbePorts {
			jobs <- probeJob{ip: ip, port: port}
		}
	}
	close(jobs)

	wg.Wait()
}

// arpEntry is one complete row of the neighbour table
type arpEntry struct {
	ip  string
	mac domain.MAC
}

func readARPTable(path string) ([]arpEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ARP table: %w", err)
	}
	defer f.Close()
	return parseARPTable(f)
}

// parseARPTable reads the /proc/net/arp layout:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
//
// Incomplete entries (flags 0x0) and all-zero addresses are skipped.
func parseARPTable(r io.Reader) ([]arpEntry, error) {
	var entries []arpEntry
	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 || fields[2] == "0x0" {
			continue
		}
		mac, err := domain.ParseMAC(fields[3])
		if err != nil || mac == 0 {
			continue
		}
		entries = append(entries, arpEntry{ip: fields[0], mac: mac})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ARP table: %w", err)
	}
	return entries, nil
}

func containedIn(ip net.IP, networks []*net.IPNet) bool {
	for _, n := range networks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// reverseDNS performs a reverse DNS lookup
func reverseDNS(ip string) string {
	names, err := net.LookupAddr(ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	return names[0]
}

// expandCIDR converts a CIDR notation or single IPv4 address to the list
// of host addresses it covers
func expandCIDR(cidr string) ([]string, *net.IPNet, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		// Try parsing as single IP
		ip := net.ParseIP(cidr).To4()
		if ip == nil {
			return nil, nil, err
		}
		return []string{ip.String()}, &net.IPNet{IP: ip, Mask: net.CIDRMask(32, 32)}, nil
	}

	ip := ipNet.IP.To4()
	if ip == nil {
		return nil, nil, fmt.Errorf("only IPv4 supported")
	}

	mask := ipNet.Mask
	networkInt := binary.BigEndian.Uint32(ip)
	maskInt := binary.BigEndian.Uint32(mask)

	firstIP := networkInt & maskInt
	lastIP := firstIP | ^maskInt

	// Skip network and broadcast addresses for /24 and larger
	ones, bits := mask.Size()
	if ones <= 24 && bits == 32 {
		firstIP++
		lastIP--
	}

	// Safety limit - don't sweep more than 4096 addresses
	if lastIP-firstIP > 4096 {
		return nil, nil, fmt.Errorf("CIDR range too large (max 4096 addresses)")
	}

	var ips []string
	for i := firstIP; i <= lastIP; i++ {
		ipBytes := make([]byte, 4)
		binary.BigEndian.PutUint32(ipBytes, i)
		ips = append(ips, net.IP(ipBytes).String())
	}

	return ips, ipNet, nil
}

package adapter

import (
	"context"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// NmapOption is a functional option for configuring NmapScanner
type NmapOption func(*NmapScanner)

// WithTimeout sets the timeout for the sweep of one target
func WithTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithBinaryPath runs the nmap binary at path instead of the one in PATH
func WithBinaryPath(path string) NmapOption {
	return func(n *NmapScanner) {
		n.binaryPath = path
	}
}

// WithPrivileged tells nmap it may use raw sockets (--privileged).
// Without raw sockets nmap cannot read hardware addresses.
func WithPrivileged(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		n.privileged = enabled
	}
}

// WithNameResolution enables or disables reverse DNS lookups (-n)
func WithNameResolution(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		n.resolveNames = enabled
	}
}

// WithTargets sets or replaces the target list
func WithTargets(targets []string) NmapOption {
	return func(n *NmapScanner) {
		n.targets = targets
	}
}

// withRunner replaces the nmap invocation, for tests
func withRunner(run func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, error)) NmapOption {
	return func(n *NmapScanner) {
		n.runner = run
	}
}

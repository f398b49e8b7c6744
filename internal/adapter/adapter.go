package adapter

import (
	"strings"

	"macwatch/internal/domain"
	"macwatch/internal/service"
)

var (
	_ service.Scanner = (*NmapScanner)(nil)
	_ service.Scanner = (*SweepScanner)(nil)
)

// Scanner method names accepted in configuration
const (
	MethodNmap  = "nmap"
	MethodSweep = "sweep"
)

// collector keeps one sighting per MAC address in discovery order. A
// later sighting only fills in a hostname the first one lacked.
type collector struct {
	index map[domain.MAC]int
	out   []domain.Sighting
}

func (c *collector) add(s domain.Sighting) {
	if c.index == nil {
		c.index = make(map[domain.MAC]int)
	}
	if i, ok := c.index[s.MAC]; ok {
		if c.out[i].Hostname == "" {
			c.out[i].Hostname = s.Hostname
		}
		return
	}
	c.index[s.MAC] = len(c.out)
	c.out = append(c.out, s)
}

// sightings returns the collected sightings, never nil
func (c *collector) sightings() []domain.Sighting {
	if c.out == nil {
		return []domain.Sighting{}
	}
	return c.out
}

// cleanHostname strips the trailing root dot of a DNS name
func cleanHostname(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".")
}

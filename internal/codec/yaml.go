package codec

import (
	"fmt"
	"io"
	"time"

	"macwatch/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// yamlDocument represents the YAML structure of an export
type yamlDocument struct {
	GeneratedAt time.Time     `yaml:"generated_at"`
	From        *time.Time    `yaml:"from,omitempty"`
	To          *time.Time    `yaml:"to,omitempty"`
	Devices     []yamlHistory `yaml:"devices"`
}

type yamlHistory struct {
	MAC          string     `yaml:"mac"`
	Name         string     `yaml:"name,omitempty"`
	LastHostname string     `yaml:"last_hostname,omitempty"`
	FirstSeen    *time.Time `yaml:"first_seen,omitempty"`
	LastSeen     *time.Time `yaml:"last_seen,omitempty"`
	Present      []bool     `yaml:"present,flow"`
	Timestamps   []string   `yaml:"timestamps,flow,omitempty"`
}

// Parse reads an exported document from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*Document, error) {
	var yd yamlDocument
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yd); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	doc := &Document{
		GeneratedAt: yd.GeneratedAt,
		From:        yd.From,
		To:          yd.To,
		Devices:     make([]domain.DeviceHistory, 0, len(yd.Devices)),
	}

	for _, yh := range yd.Devices {
		mac, err := domain.ParseMAC(yh.MAC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: device %q: %w", yh.MAC, err)
		}
		if len(yh.Timestamps) != len(yh.Present) {
			return nil, fmt.Errorf("failed to parse YAML: device %s has %d timestamps and %d presence flags",
				yh.MAC, len(yh.Timestamps), len(yh.Present))
		}

		history := domain.DeviceHistory{
			Device: domain.Device{
				MAC:          mac,
				Name:         yh.Name,
				LastHostname: yh.LastHostname,
				FirstSeen:    yh.FirstSeen,
				LastSeen:     yh.LastSeen,
			},
			Points: make([]domain.HistoryPoint, len(yh.Present)),
		}
		for i, present := range yh.Present {
			instant, err := time.Parse(time.RFC3339Nano, yh.Timestamps[i])
			if err != nil {
				return nil, fmt.Errorf("failed to parse YAML: device %s: %w", yh.MAC, err)
			}
			history.Points[i] = domain.HistoryPoint{Instant: instant, Present: present}
		}
		doc.Devices = append(doc.Devices, history)
	}

	return doc, nil
}

// Export writes the document as YAML. Each device carries its presence
// flags and scan instants as parallel flow sequences, one line each.
func (c *YAMLCodec) Export(doc *Document, w io.Writer) error {
	yd := yamlDocument{
		GeneratedAt: doc.GeneratedAt,
		From:        doc.From,
		To:          doc.To,
		Devices:     make([]yamlHistory, 0, len(doc.Devices)),
	}

	for _, h := range doc.Devices {
		yh := yamlHistory{
			MAC:          h.Device.MAC.String(),
			Name:         h.Device.Name,
			LastHostname: h.Device.LastHostname,
			FirstSeen:    h.Device.FirstSeen,
			LastSeen:     h.Device.LastSeen,
			Present:      make([]bool, len(h.Points)),
			Timestamps:   make([]string, len(h.Points)),
		}
		for i, p := range h.Points {
			yh.Present[i] = p.Present
			yh.Timestamps[i] = p.Instant.UTC().Format(time.RFC3339Nano)
		}
		yd.Devices = append(yd.Devices, yh)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(&yd); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}

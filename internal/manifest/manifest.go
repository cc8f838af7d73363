// Package manifest reads bus manifests: YAML files labelling the primary
// addresses installed on a bus, used by the CLI scan command.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes the devices expected on one bus.
type Manifest struct {
	Name    string   `yaml:"name"`
	Devices []Device `yaml:"devices"`
}

// Device is one labelled bus member.
type Device struct {
	Address int    `yaml:"address"`
	Label   string `yaml:"label"`
	Medium  string `yaml:"medium,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	seen := make(map[int]string, len(m.Devices))
	for _, d := range m.Devices {
		if d.Address < 1 || d.Address > 250 {
			return nil, fmt.Errorf("manifest device %q: address %d outside 1..250", d.Label, d.Address)
		}
		if prev, dup := seen[d.Address]; dup {
			return nil, fmt.Errorf("manifest devices %q and %q share address %d", prev, d.Label, d.Address)
		}
		seen[d.Address] = d.Label
	}
	return &m, nil
}

// Label returns the label for an address, if the manifest names it.
func (m *Manifest) Label(addr int) (string, bool) {
	for _, d := range m.Devices {
		if d.Address == addr {
			return d.Label, true
		}
	}
	return "", false
}

package p4utils

//
// Topology description loading
//

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSwitchBinary is the switch binary used when the topology
// description does not name one.
const DefaultSwitchBinary = "simple_switch"

// LinkSpec is a raw link tuple from the topology description: two node
// identifiers optionally followed by latency, bandwidth, and weight.
type LinkSpec []any

// SwitchConfig contains the per-switch properties of the topology
// description.
type SwitchConfig struct {
	// CLIInput is the optional path of a file with control-plane
	// commands to push into the switch after the network starts.
	CLIInput string `json:"cli_input,omitempty" yaml:"cli_input,omitempty"`

	// Program is the optional P4 program this switch runs. A switch
	// with a program is a programmable switch (see [Topology.IsP4Switch]).
	Program string `json:"program,omitempty" yaml:"program,omitempty"`
}

// TopologyConfig is the `topology` section of the description.
type TopologyConfig struct {
	// Hosts lists the host identifiers in declaration order.
	Hosts []string `json:"hosts" yaml:"hosts"`

	// Switches maps switch identifiers to their properties.
	Switches map[string]*SwitchConfig `json:"switches" yaml:"switches"`

	// Links lists the raw link tuples.
	Links []LinkSpec `json:"links" yaml:"links"`
}

// AppConfig is a parsed topology description. The zero value is invalid;
// obtain an instance using [LoadConfig] or populate at least Topology.
type AppConfig struct {
	// Topology describes the network to create. Required.
	Topology *TopologyConfig `json:"topology" yaml:"topology"`

	// Switch is the name or path of the switch binary.
	Switch string `json:"switch,omitempty" yaml:"switch,omitempty"`

	// Backend names the emulator backend to use (see [RegisterBackend]).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// EnableLog enables per-switch log and transcript files.
	EnableLog bool `json:"enable_log,omitempty" yaml:"enable_log,omitempty"`

	// PcapDump asks the switch binary to record pcap files.
	PcapDump bool `json:"pcap_dump,omitempty" yaml:"pcap_dump,omitempty"`

	// CLI requests an interactive session after provisioning.
	CLI bool `json:"cli,omitempty" yaml:"cli,omitempty"`
}

// SwitchBinary returns the configured switch binary or the default.
func (c *AppConfig) SwitchBinary() string {
	if c.Switch != "" {
		return c.Switch
	}
	return DefaultSwitchBinary
}

// LoadConfig reads and parses a topology description. The codec is
// selected by file extension: `.yaml` and `.yml` files are YAML and
// everything else is JSON. The returned config has been checked for the
// presence of the required `topology` section.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfiguration, err.Error())
	}

	config := &AppConfig{}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrConfiguration, path, err.Error())
	}

	if err := config.check(); err != nil {
		return nil, err
	}
	return config, nil
}

// check verifies that the required sections are present.
func (c *AppConfig) check() error {
	if c.Topology == nil {
		return fmt.Errorf("%w: missing required section: topology", ErrConfiguration)
	}
	if len(c.Topology.Hosts) <= 0 && len(c.Topology.Switches) <= 0 {
		return fmt.Errorf("%w: topology declares no nodes", ErrConfiguration)
	}
	return nil
}

package p4utils

//
// Topology model
//

import (
	"fmt"
	"sort"
)

// Topology is the validated set of hosts, switches, and normalized
// links of a run. The zero value is invalid; construct using
// [NewTopology]. A Topology is immutable once built: mutating it after
// the emulated network has started would desynchronize emulator state
// and provisioning state.
type Topology struct {
	// hosts are the host identifiers in declaration order.
	hosts []string

	// switches maps switch identifiers to their properties.
	switches map[string]*SwitchConfig

	// switchNames are the switch identifiers in sorted order.
	switchNames []string

	// links are the normalized links in declaration order.
	links []*Link

	// byNode maps each node to the links touching it.
	byNode map[string][]*Link
}

// NewTopology parses the raw links of a [TopologyConfig] and builds a
// validated [Topology]. It fails with [ErrConfiguration] for malformed
// input (duplicate identifiers, reserved-prefix violations, host-to-host
// links) and with [ErrTopology] for structurally inconsistent input
// (links referencing undeclared nodes). Validation happens here, before
// any emulator process is started, so an invalid topology is never
// partially provisioned.
func NewTopology(config *TopologyConfig) (*Topology, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: missing required section: topology", ErrConfiguration)
	}

	seen := make(map[string]bool)
	for _, host := range config.Hosts {
		if !isHostName(host) {
			return nil, fmt.Errorf("%w: host %q: host identifiers must start with 'h'",
				ErrConfiguration, host)
		}
		if seen[host] {
			return nil, fmt.Errorf("%w: duplicate node identifier: %s", ErrConfiguration, host)
		}
		seen[host] = true
	}

	// copy the switch properties so that later mutation of the config
	// cannot reach into the built topology
	switches := make(map[string]*SwitchConfig, len(config.Switches))
	switchNames := make([]string, 0, len(config.Switches))
	for name, properties := range config.Switches {
		if !isSwitchName(name) {
			return nil, fmt.Errorf("%w: switch %q: switch identifiers must start with 's'",
				ErrConfiguration, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate node identifier: %s", ErrConfiguration, name)
		}
		seen[name] = true
		switchNames = append(switchNames, name)
		if properties != nil {
			copied := *properties
			properties = &copied
		}
		switches[name] = properties
	}
	sort.Strings(switchNames)

	links, err := ParseLinks(config.Links)
	if err != nil {
		return nil, err
	}

	// every endpoint must reference a declared node
	byNode := make(map[string][]*Link)
	for _, link := range links {
		for _, endpoint := range []string{link.Node1, link.Node2} {
			if !seen[endpoint] {
				return nil, fmt.Errorf("%w: link %s-%s references undeclared node %s",
					ErrTopology, link.Node1, link.Node2, endpoint)
			}
			byNode[endpoint] = append(byNode[endpoint], link)
		}
	}

	topo := &Topology{
		hosts:       append([]string{}, config.Hosts...),
		switches:    switches,
		switchNames: switchNames,
		links:       links,
		byNode:      byNode,
	}
	return topo, nil
}

// Hosts returns the host identifiers in declaration order.
func (t *Topology) Hosts() []string {
	return append([]string{}, t.hosts...)
}

// Switches returns the switch identifiers in sorted order.
func (t *Topology) Switches() []string {
	return append([]string{}, t.switchNames...)
}

// SwitchConfig returns the properties of a switch, or nil if the
// identifier does not name a switch.
func (t *Topology) SwitchConfig(name string) *SwitchConfig {
	return t.switches[name]
}

// Links returns the normalized links in declaration order.
func (t *Topology) Links() []*Link {
	return append([]*Link{}, t.links...)
}

// LinksOf returns the links touching the given node, in normalization
// order.
func (t *Topology) LinksOf(node string) []*Link {
	return append([]*Link{}, t.byNode[node]...)
}

// SwitchOf returns the unique switch a host attaches to. It fails with
// [ErrTopology] if the host has zero or more than one switch-attached
// link: multihomed hosts are unsupported.
func (t *Topology) SwitchOf(host string) (string, error) {
	var attached []string
	for _, link := range t.byNode[host] {
		other := link.Node1
		if other == host {
			other = link.Node2
		}
		if isSwitchName(other) {
			attached = append(attached, other)
		}
	}
	switch len(attached) {
	case 0:
		return "", fmt.Errorf("%w: host %s is not attached to any switch", ErrTopology, host)
	case 1:
		return attached[0], nil
	default:
		return "", fmt.Errorf("%w: host %s is attached to %d switches, expected one",
			ErrTopology, host, len(attached))
	}
}

// LinkBetween returns the link connecting two nodes, or nil when they
// are not directly connected. The argument order does not matter.
func (t *Topology) LinkBetween(a, b string) *Link {
	if a > b {
		a, b = b, a
	}
	for _, link := range t.byNode[a] {
		if link.Node1 == a && link.Node2 == b {
			return link
		}
	}
	return nil
}

// IsP4Switch tells whether a node is a programmable switch, i.e., a
// declared switch that runs a P4 program.
func (t *Topology) IsP4Switch(node string) bool {
	config := t.switches[node]
	return config != nil && config.Program != ""
}

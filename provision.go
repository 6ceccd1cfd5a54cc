package p4utils

//
// Host provisioning
//

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
)

// StepFailure records a provisioning or control-plane step that failed
// on a specific node.
type StepFailure struct {
	// Node is the affected node.
	Node string

	// Command is the failing command, when one is known.
	Command string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (f *StepFailure) Error() string {
	if f.Command != "" {
		return fmt.Sprintf("%s: %s: %s", f.Node, f.Command, f.Err.Error())
	}
	return fmt.Sprintf("%s: %s", f.Node, f.Err.Error())
}

// Unwrap returns the underlying error.
func (f *StepFailure) Unwrap() error {
	return f.Err
}

// Provisioner brings every host's network stack into a state where any
// two hosts on the same switch, or reachable by routing, can exchange
// traffic. It must only run after the emulated network has started. The
// zero value is invalid; construct using [NewProvisioner].
type Provisioner struct {
	// backend is the emulator backend.
	backend Backend

	// logger is the logger to use.
	logger Logger
}

// NewProvisioner creates a new [Provisioner].
func NewProvisioner(backend Backend, logger Logger) *Provisioner {
	return &Provisioner{
		backend: backend,
		logger:  logger,
	}
}

// ProvisionHosts provisions every host of the topology in declaration
// order. Hosts are independent: a failing step aborts the remaining
// steps of that host only, and the failure is recorded in the returned
// list rather than halting the other hosts. Each recorded failure wraps
// [ErrProvisioning].
func (p *Provisioner) ProvisionHosts(
	ctx context.Context,
	topo *Topology,
	plan AddressPlan,
) []*StepFailure {
	var failures []*StepFailure
	for _, host := range topo.Hosts() {
		if err := p.provisionHost(ctx, host, plan); err != nil {
			p.logger.Warnf("p4utils: provision %s: %s", host, err.Error())
			failures = append(failures, err)
			continue
		}
		p.logger.Infof("p4utils: provisioned host %s", host)
	}
	return failures
}

// provisionHost runs the fixed provisioning sequence for one host:
// interface rename, offload disable, gateway ARP injection, default
// route installation, and subnet-mate ARP pre-seeding.
func (p *Provisioner) provisionHost(
	ctx context.Context,
	host string,
	plan AddressPlan,
) *StepFailure {
	hostPlan := plan[host]
	if hostPlan == nil {
		return &StepFailure{
			Node: host,
			Err:  fmt.Errorf("%w: host not in address plan", ErrProvisioning),
		}
	}

	node, err := p.backend.Host(host)
	if err != nil {
		return &StepFailure{
			Node: host,
			Err:  fmt.Errorf("%w: %s", ErrProvisioning, err.Error()),
		}
	}

	ifaces := node.Interfaces()
	if len(ifaces) <= 0 {
		return &StepFailure{
			Node: host,
			Err:  fmt.Errorf("%w: host has no interfaces", ErrProvisioning),
		}
	}
	iface := ifaces[0]
	if iface.Peer == nil {
		return &StepFailure{
			Node: host,
			Err:  fmt.Errorf("%w: interface %s has no peer", ErrProvisioning, iface.Name),
		}
	}

	// rename the first interface to a globally-unique canonical name:
	// emulator teardown depends on unique interface names across hosts
	name := HostIfaceName(host)
	if err := node.RenameInterface(ctx, iface.Name, name); err != nil {
		return &StepFailure{
			Node: host,
			Err:  fmt.Errorf("%w: rename %s: %s", ErrProvisioning, iface.Name, err.Error()),
		}
	}

	// emulated links do not support hardware offload; leaving it
	// enabled silently corrupts traffic
	commands := []string{
		fmt.Sprintf("ethtool --offload %s rx off tx off", name),

		// static ARP entry for the phony gateway, resolved to the
		// real MAC of the switch-facing peer interface
		fmt.Sprintf("arp -i %s -s %s %s", name, hostPlan.Gateway, iface.Peer.MAC),

		// make the gateway directly reachable, then route everything
		// through it; replace semantics keep re-provisioning idempotent
		fmt.Sprintf("ip route replace %s dev %s", hostPlan.Gateway, name),
		fmt.Sprintf("ip route replace default via %s dev %s", hostPlan.Gateway, name),
	}

	mates, failure := p.subnetMateCommands(host, name, iface, plan)
	if failure != nil {
		return failure
	}
	commands = append(commands, mates...)

	for _, command := range commands {
		if _, err := node.Exec(ctx, command); err != nil {
			return &StepFailure{
				Node:    host,
				Command: command,
				Err:     fmt.Errorf("%w: %s", ErrProvisioning, err.Error()),
			}
		}
	}
	return nil
}

// subnetMateCommands computes the static ARP entries pre-seeding every
// other host on the same switch whose address shares this host's network
// prefix. Pre-seeding avoids relying on ARP broadcast resolution inside
// the emulated L2 domain, which can be unreliable under the emulator's
// virtual switching.
func (p *Provisioner) subnetMateCommands(
	host string,
	ifaceName string,
	iface *IfaceFacts,
	plan AddressPlan,
) ([]string, *StepFailure) {
	network, err := hostNetwork(iface)
	if err != nil {
		return nil, &StepFailure{
			Node: host,
			Err:  fmt.Errorf("%w: %s", ErrProvisioning, err.Error()),
		}
	}

	var commands []string
	for _, other := range sortedHosts(plan) {
		if other == host || plan[other].Switch != plan[host].Switch {
			continue
		}
		otherNode, err := p.backend.Host(other)
		if err != nil {
			return nil, &StepFailure{
				Node: host,
				Err:  fmt.Errorf("%w: %s", ErrProvisioning, err.Error()),
			}
		}
		otherIfaces := otherNode.Interfaces()
		if len(otherIfaces) <= 0 {
			continue
		}
		otherIface := otherIfaces[0]
		otherNetwork, err := hostNetwork(otherIface)
		if err != nil {
			return nil, &StepFailure{
				Node: host,
				Err:  fmt.Errorf("%w: %s", ErrProvisioning, err.Error()),
			}
		}
		if network != otherNetwork {
			continue
		}
		commands = append(commands, fmt.Sprintf(
			"arp -i %s -s %s %s", ifaceName, otherIface.IP, otherIface.MAC))
	}
	return commands, nil
}

// hostNetwork returns the masked network prefix of a live interface.
func hostNetwork(iface *IfaceFacts) (netip.Prefix, error) {
	addr, err := netip.ParseAddr(iface.IP)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("interface %s: %s", iface.Name, err.Error())
	}
	prefix, err := addr.Prefix(iface.PrefixLen)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("interface %s: %s", iface.Name, err.Error())
	}
	return prefix, nil
}

// sortedHosts returns the plan's hosts in sorted order so that the
// emitted ARP entries are reproducible across runs.
func sortedHosts(plan AddressPlan) []string {
	hosts := make([]string, 0, len(plan))
	for host := range plan {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

package p4utils

//
// Address planning
//

import (
	"fmt"
	"strconv"
)

// HostPlan contains the addressing facts planned for one host before
// the emulated network exists. The gateway is a phony address used as an
// ARP and routing anchor; the host's real IP and MAC are only known once
// the network is live.
type HostPlan struct {
	// Switch is the switch the host attaches to.
	Switch string

	// Gateway is the phony gateway IP for the host.
	Gateway string
}

// AddressPlan maps each host to its [HostPlan].
type AddressPlan map[string]*HostPlan

// PlanAddresses computes the [AddressPlan] for a topology. It is a pure
// function: it never consults the live emulator and identical topologies
// yield identical plans.
//
// The gateway of host hN is 10.0.N.254, derived from the numeric suffix
// of the host identifier and independent of actual topology addressing.
// Route and ARP installation precompute this address, so the scheme must
// match what [Provisioner] installs.
func PlanAddresses(topo *Topology) (AddressPlan, error) {
	plan := make(AddressPlan)
	for _, host := range topo.Hosts() {
		attached, err := topo.SwitchOf(host)
		if err != nil {
			return nil, err
		}
		ordinal, err := hostOrdinal(host)
		if err != nil {
			return nil, err
		}
		plan[host] = &HostPlan{
			Switch:  attached,
			Gateway: fmt.Sprintf("10.0.%d.254", ordinal),
		}
	}
	return plan, nil
}

// hostOrdinal parses the numeric suffix of a host identifier.
func hostOrdinal(host string) (int, error) {
	ordinal, err := strconv.Atoi(host[1:])
	if err != nil || ordinal < 0 {
		return 0, fmt.Errorf("%w: host %q: identifier suffix must be a number",
			ErrConfiguration, host)
	}
	return ordinal, nil
}

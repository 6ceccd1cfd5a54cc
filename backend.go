package p4utils

//
// In-memory emulator backend
//

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"sync"
)

// staticControlPlaneBasePort is the first control-plane port assigned
// by [StaticBackend], mirroring the bmv2 thrift port convention.
const staticControlPlaneBasePort = 9090

// StaticBackend is an in-memory [Backend] with deterministic addressing
// and no real packet forwarding. It records every command executed on
// every node, which makes it suitable for tests and for validating a
// topology description without a live emulator (dry runs). The zero
// value is invalid; construct using [NewStaticBackend].
//
// Unless overridden with [StaticBackend.AssignAddress], the i-th host
// gets the address 10.0.0.<i+1>/8. Unless overridden with
// [StaticBackend.SetControlPlanePort], the i-th switch in sorted order
// listens for control-plane commands on port 9090+i.
type StaticBackend struct {
	// ExecFunc optionally intercepts command execution on nodes. When
	// nil, every command succeeds with empty output. Tests use it to
	// inject per-node failures.
	ExecFunc func(node string, command string) (string, error)

	// addresses contains pre-start address overrides.
	addresses map[string]netip.Prefix

	// hosts are the live host nodes.
	hosts map[string]*StaticNode

	// logger is the logger to use.
	logger Logger

	// macID assigns unique hardware addresses.
	macID int

	// mu protects the mutable state.
	mu sync.Mutex

	// ports contains pre-start control-plane port overrides.
	ports map[string]int

	// started tells whether the network is running.
	started bool

	// switches are the live switch nodes.
	switches map[string]*StaticNode
}

// NewStaticBackend creates a new, stopped [StaticBackend].
func NewStaticBackend(logger Logger) *StaticBackend {
	return &StaticBackend{
		addresses: map[string]netip.Prefix{},
		hosts:     map[string]*StaticNode{},
		logger:    logger,
		ports:     map[string]int{},
		switches:  map[string]*StaticNode{},
	}
}

var _ Backend = &StaticBackend{}

// AssignAddress overrides the address the given host will carry once
// the network starts. The address must be in CIDR form.
func (b *StaticBackend) AssignAddress(host, cidr string) error {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrBackend, host, err.Error())
	}
	b.mu.Lock()
	b.addresses[host] = prefix
	b.mu.Unlock()
	return nil
}

// SetControlPlanePort overrides the control-plane port the given switch
// will listen on once the network starts.
func (b *StaticBackend) SetControlPlanePort(name string, port int) {
	b.mu.Lock()
	b.ports[name] = port
	b.mu.Unlock()
}

// Start implements [Backend]
func (b *StaticBackend) Start(ctx context.Context, topo *Topology) error {
	defer b.mu.Unlock()
	b.mu.Lock()
	if b.started {
		return fmt.Errorf("%w: network already started", ErrBackend)
	}

	b.hosts = map[string]*StaticNode{}
	b.switches = map[string]*StaticNode{}

	for idx, host := range topo.Hosts() {
		address, ok := b.addresses[host]
		if !ok {
			address = netip.PrefixFrom(netip.AddrFrom4([4]byte{10, 0, 0, byte(idx + 1)}), 8)
		}
		b.hosts[host] = &StaticNode{
			backend: b,
			name:    host,
			address: address,
		}
	}
	for idx, name := range topo.Switches() {
		port, ok := b.ports[name]
		if !ok {
			port = staticControlPlaneBasePort + idx
		}
		b.switches[name] = &StaticNode{
			backend:          b,
			name:             name,
			controlPlanePort: port,
		}
	}

	// materialize an interface pair per link
	for _, link := range topo.Links() {
		left, err := b.node(link.Node1)
		if err != nil {
			return err
		}
		right, err := b.node(link.Node2)
		if err != nil {
			return err
		}
		leftIface := b.newIface(left)
		rightIface := b.newIface(right)
		leftIface.Peer, leftIface.PeerNode = rightIface, right.name
		rightIface.Peer, rightIface.PeerNode = leftIface, left.name
		left.ifaces = append(left.ifaces, leftIface)
		right.ifaces = append(right.ifaces, rightIface)
	}

	b.started = true
	b.logger.Infof("static: network up: %d hosts, %d switches, %d links",
		len(b.hosts), len(b.switches), len(topo.Links()))
	return nil
}

// newIface creates a live interface for a node. Hosts carry their
// assigned address on the interface; switch ports are addressless.
func (b *StaticBackend) newIface(node *StaticNode) *IfaceFacts {
	b.macID++
	iface := &IfaceFacts{
		Name: newIfaceName(),
		MAC:  fmt.Sprintf("00:00:00:00:%02x:%02x", b.macID>>8, b.macID&0xff),
	}
	if node.address.IsValid() {
		iface.IP = node.address.Addr().String()
		iface.PrefixLen = node.address.Bits()
	}
	return iface
}

// node returns a live node of either kind. Callers must hold b.mu.
func (b *StaticBackend) node(name string) (*StaticNode, error) {
	if node := b.hosts[name]; node != nil {
		return node, nil
	}
	if node := b.switches[name]; node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("%w: no such node: %s", ErrBackend, name)
}

// Stop implements [Backend]
func (b *StaticBackend) Stop(ctx context.Context) error {
	defer b.mu.Unlock()
	b.mu.Lock()
	if b.started {
		b.started = false
		b.logger.Infof("static: network down")
	}
	return nil
}

// Running tells whether the network is currently started.
func (b *StaticBackend) Running() bool {
	defer b.mu.Unlock()
	b.mu.Lock()
	return b.started
}

// Host implements [Backend]
func (b *StaticBackend) Host(name string) (NodeHandle, error) {
	defer b.mu.Unlock()
	b.mu.Lock()
	if !b.started {
		return nil, fmt.Errorf("%w: network not started", ErrBackend)
	}
	node := b.hosts[name]
	if node == nil {
		return nil, fmt.Errorf("%w: no such host: %s", ErrBackend, name)
	}
	return node, nil
}

// Switch implements [Backend]
func (b *StaticBackend) Switch(name string) (SwitchHandle, error) {
	defer b.mu.Unlock()
	b.mu.Lock()
	if !b.started {
		return nil, fmt.Errorf("%w: network not started", ErrBackend)
	}
	node := b.switches[name]
	if node == nil {
		return nil, fmt.Errorf("%w: no such switch: %s", ErrBackend, name)
	}
	return node, nil
}

// Commands returns the commands executed so far on the given node, in
// execution order.
func (b *StaticBackend) Commands(name string) []string {
	b.mu.Lock()
	node, err := b.node(name)
	b.mu.Unlock()
	if err != nil {
		return nil
	}
	defer node.mu.Unlock()
	node.mu.Lock()
	return append([]string{}, node.commands...)
}

// StaticNode is a live node of a [StaticBackend].
type StaticNode struct {
	// address is the assigned host address; invalid for switches.
	address netip.Prefix

	// backend is the owning backend.
	backend *StaticBackend

	// commands are the executed commands in execution order.
	commands []string

	// controlPlanePort is the control-plane port; zero for hosts.
	controlPlanePort int

	// ifaces are the live interfaces in attachment order.
	ifaces []*IfaceFacts

	// mu protects commands and ifaces.
	mu sync.Mutex

	// name is the node identifier.
	name string
}

var _ SwitchHandle = &StaticNode{}

// Exec implements [NodeHandle]
func (n *StaticNode) Exec(ctx context.Context, command string) (string, error) {
	n.mu.Lock()
	n.commands = append(n.commands, command)
	n.mu.Unlock()
	if fn := n.backend.ExecFunc; fn != nil {
		return fn(n.name, command)
	}
	return "", nil
}

// Interfaces implements [NodeHandle]
func (n *StaticNode) Interfaces() []*IfaceFacts {
	defer n.mu.Unlock()
	n.mu.Lock()
	return append([]*IfaceFacts{}, n.ifaces...)
}

// RenameInterface implements [NodeHandle]
func (n *StaticNode) RenameInterface(ctx context.Context, oldName, newName string) error {
	defer n.mu.Unlock()
	n.mu.Lock()
	for _, iface := range n.ifaces {
		if iface.Name == oldName || iface.Name == newName {
			iface.Name = newName
			return nil
		}
	}
	return fmt.Errorf("%w: %s: no such interface: %s", ErrBackend, n.name, oldName)
}

// Describe implements [NodeHandle]
func (n *StaticNode) Describe() string {
	defer n.mu.Unlock()
	n.mu.Lock()
	var parts []string
	for _, iface := range n.ifaces {
		if iface.IP != "" {
			parts = append(parts, fmt.Sprintf("%s %s/%d %s",
				iface.Name, iface.IP, iface.PrefixLen, iface.MAC))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", iface.Name, iface.MAC))
	}
	if n.controlPlanePort != 0 {
		parts = append(parts, fmt.Sprintf("control-plane port %d", n.controlPlanePort))
	}
	return fmt.Sprintf("%s: %s", n.name, strings.Join(parts, ", "))
}

// ControlPlanePort implements [SwitchHandle]
func (n *StaticNode) ControlPlanePort() int {
	return n.controlPlanePort
}

package p4utils

//
// Data model
//

import (
	"context"
	"errors"
)

// Logger is the logger we're using.
type Logger interface {
	// Debugf formats and emits a debug message.
	Debugf(format string, v ...any)

	// Debug emits a debug message.
	Debug(message string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...any)

	// Info emits an informational message.
	Info(message string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...any)

	// Warn emits a warning message.
	Warn(message string)
}

// ErrConfiguration indicates that the topology description is malformed
// or missing required fields. This error class is fatal and aborts a run
// before the emulated network is started.
var ErrConfiguration = errors.New("p4utils: invalid configuration")

// ErrTopology indicates that the topology description is structurally
// inconsistent, such as a link referencing an undeclared node or a host
// attached to more than one switch. Fatal before network start.
var ErrTopology = errors.New("p4utils: inconsistent topology")

// ErrProvisioning indicates that a per-host configuration step failed
// after the network was started. Non-fatal to the overall run.
var ErrProvisioning = errors.New("p4utils: host provisioning failed")

// ErrControlPlane indicates that a switch rejected a control-plane
// command. Non-fatal to the overall run.
var ErrControlPlane = errors.New("p4utils: control-plane command rejected")

// ErrBackend indicates that the emulator backend failed to start or stop
// the network, or to hand out a live node. Fatal, though the [Runner]
// still attempts a best-effort stop before propagating it.
var ErrBackend = errors.New("p4utils: emulator backend failure")

// IfaceFacts describes a live interface of a started emulated network
// as reported by a [Backend]. Values are read from the running network,
// not computed from the topology description.
type IfaceFacts struct {
	// Name is the interface name inside the owning node.
	Name string

	// MAC is the hardware address.
	MAC string

	// IP is the assigned IPv4 address, without prefix. Empty for
	// interfaces that carry no address (e.g., switch ports).
	IP string

	// PrefixLen is the network prefix length of IP.
	PrefixLen int

	// PeerNode is the identifier of the node at the other end of
	// the attached link.
	PeerNode string

	// Peer is the interface at the other end of the attached link.
	Peer *IfaceFacts
}

// NodeHandle is a live node of a started emulated network. Handles are
// only valid between [Backend.Start] and [Backend.Stop].
type NodeHandle interface {
	// Exec executes a shell-equivalent command inside the node's
	// network namespace and blocks until it completes, returning
	// the combined output.
	Exec(ctx context.Context, command string) (string, error)

	// Interfaces returns the node's live interfaces in attachment
	// order. The first interface of a host faces its switch.
	Interfaces() []*IfaceFacts

	// RenameInterface renames a live interface.
	RenameInterface(ctx context.Context, oldName, newName string) error

	// Describe returns a human-readable summary of the node.
	Describe() string
}

// SwitchHandle is a live switch of a started emulated network.
type SwitchHandle interface {
	NodeHandle

	// ControlPlanePort returns the runtime-assigned TCP port of the
	// switch's control-plane listener.
	ControlPlanePort() int
}

// Backend is the emulator that realizes a [Topology] as a live network
// of namespaces, interfaces, and switch processes. Implementations are
// external to this package; [StaticBackend] is an in-memory stand-in
// with deterministic addressing.
type Backend interface {
	// Start realizes the given topology and starts it. Interface and
	// link establishment may complete asynchronously relative to
	// Start returning; callers should allow a settle delay before
	// reading interface facts.
	Start(ctx context.Context, topo *Topology) error

	// Stop tears the emulated network down. Stop is idempotent.
	Stop(ctx context.Context) error

	// Host returns a handle for a live host.
	Host(name string) (NodeHandle, error)

	// Switch returns a handle for a live switch.
	Switch(name string) (SwitchHandle, error)
}
